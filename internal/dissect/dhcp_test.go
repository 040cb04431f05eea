package dissect

import "testing"

func buildDHCP(msgType uint8) []byte {
	buf := make([]byte, 236)
	buf[0] = 1 // BOOTREQUEST
	buf = append(buf, 0x63, 0x82, 0x53, 0x63) // magic cookie
	buf = append(buf, 53, 1, msgType)         // option 53: message type
	buf = append(buf, 0xff)                   // end option
	return buf
}

func TestDHCPMessageType(t *testing.T) {
	buf := buildDHCP(1) // DISCOVER
	layer, result, err := DHCP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	if result.MessageType != 1 {
		t.Fatalf("message type = %d", result.MessageType)
	}
	if got := DHCPSummary(result); got != "DHCP DISCOVER" {
		t.Fatalf("summary = %q", got)
	}
}

func TestDHCPMissingMagicCookie(t *testing.T) {
	buf := make([]byte, 236)
	layer, _, err := DHCP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, w := range layer.Warnings {
		if w == "missing_magic_cookie" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected missing_magic_cookie warning, got %+v", layer.Warnings)
	}
}

func TestDHCPTruncatedHeader(t *testing.T) {
	layer, _, err := DHCP([]byte{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !layer.Truncated() {
		t.Fatal("expected truncation")
	}
}
