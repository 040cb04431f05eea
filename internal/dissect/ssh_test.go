package dissect

import "testing"

func TestSSHVersionBanner(t *testing.T) {
	buf := []byte("SSH-2.0-OpenSSH_9.3\r\n")
	layer, result, err := SSH(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	if got := SSHSummary(result); got != "SSH SSH-2.0-OpenSSH_9.3" {
		t.Fatalf("summary = %q", got)
	}
}

func TestSSHBinaryPacket(t *testing.T) {
	buf := []byte{0, 0, 0, 12, 4, 20, 1, 2, 3, 4, 5, 6, 7, 8}
	_, result, err := SSH(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MessageType != "KEXINIT" {
		t.Fatalf("message type = %q", result.MessageType)
	}
}
