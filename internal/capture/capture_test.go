package capture

import (
	"errors"
	"testing"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

func TestClassifyOpenErrorInterfaceNotFound(t *testing.T) {
	got := classifyOpenError(errors.New("eth9: No such device exists"))
	if got.Kind != model.OpenErrorInterfaceNotFound {
		t.Fatalf("kind = %v", got.Kind)
	}
}

func TestClassifyOpenErrorPermissionDenied(t *testing.T) {
	got := classifyOpenError(errors.New("eth0: You don't have permission to capture (Permission denied)"))
	if got.Kind != model.OpenErrorPermissionDenied {
		t.Fatalf("kind = %v", got.Kind)
	}
}

func TestClassifyOpenErrorDefaultsToDriver(t *testing.T) {
	got := classifyOpenError(errors.New("some other libpcap failure"))
	if got.Kind != model.OpenErrorDriver {
		t.Fatalf("kind = %v", got.Kind)
	}
}

func TestPollBatchOnClosedHandleReturnsEOF(t *testing.T) {
	h := &Handle{closed: true}
	result := h.PollBatch(10)
	if result.Status != StatusEOF {
		t.Fatalf("status = %v", result.Status)
	}
}
