package dissect

import "testing"

func TestQUICLongHeaderInitial(t *testing.T) {
	buf := []byte{0xc0 | (0 << 4), 0, 0, 0, 1, 8}
	buf = append(buf, make([]byte, 8)...) // dcid
	buf = append(buf, 0)                  // scid len
	layer, result, err := QUIC(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	if !result.IsLongHeader || result.PacketType != "Initial" {
		t.Fatalf("got %+v", result)
	}
	if got := QUICSummary(result); got != "QUIC Initial" {
		t.Fatalf("summary = %q", got)
	}
}

func TestQUICShortHeaderFixedBitUnset(t *testing.T) {
	buf := []byte{0x00, 1, 2, 3, 4}
	layer, result, err := QUIC(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsLongHeader {
		t.Fatal("expected short header classification")
	}
	found := false
	for _, w := range layer.Warnings {
		if w == "fixed_bit_unset: ambiguous short-header candidate" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fixed-bit warning, got %+v", layer.Warnings)
	}
}

func TestQUICHighBitWithoutFixedBitNotLongHeader(t *testing.T) {
	// Top bit set but fixed bit (0x40) clear: the tightened heuristic
	// must not classify this as a long header.
	buf := []byte{0x80, 1, 2, 3}
	_, result, err := QUIC(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsLongHeader {
		t.Fatal("expected rejection of ambiguous long-header candidate")
	}
}
