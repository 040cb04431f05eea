package dissect

import "testing"

func TestNTPDecode(t *testing.T) {
	buf := make([]byte, 48)
	buf[0] = (0 << 6) | (4 << 3) | 3 // LI=0, VN=4, mode=client
	buf[1] = 1                       // stratum
	layer, err := NTP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	var mode string
	for _, f := range layer.Fields {
		if f.Label == "mode" {
			mode = f.Value
		}
	}
	if mode != "3 (client)" {
		t.Fatalf("mode = %q", mode)
	}
}

func TestNTPTruncated(t *testing.T) {
	layer, err := NTP([]byte{0x23})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !layer.Truncated() {
		t.Fatal("expected truncation")
	}
}
