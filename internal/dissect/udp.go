package dissect

import (
	"fmt"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// UDPResult carries the fields needed to pick an application dissector.
type UDPResult struct {
	SrcPort    uint16
	DstPort    uint16
	PayloadLen int
}

// UDP decodes ports, length (re-validated against the captured bytes),
// and checksum (spec.md §4.2); checksum 0 is marked disabled per RFC 768.
func UDP(buf []byte) (model.LayerRecord, UDPResult, error) {
	layer := model.LayerRecord{Name: "UDP"}
	c := newCursor(buf)

	srcPort, err := c.u16()
	if err != nil {
		truncate(&layer, "src_port")
		return finishUDP(&layer, c), UDPResult{}, nil
	}
	dstPort, err := c.u16()
	if err != nil {
		truncate(&layer, "dst_port")
		return finishUDP(&layer, c), UDPResult{}, nil
	}
	length, err := c.u16()
	if err != nil {
		truncate(&layer, "length")
		return finishUDP(&layer, c), UDPResult{}, nil
	}
	checksum, err := c.u16()
	if err != nil {
		truncate(&layer, "checksum")
		return finishUDP(&layer, c), UDPResult{}, nil
	}

	layer.AddField("src_port", fmt.Sprintf("%d", srcPort))
	layer.AddField("dst_port", fmt.Sprintf("%d", dstPort))
	layer.AddField("length", fmt.Sprintf("%d", length))
	if checksum == 0 {
		layer.AddField("checksum", "disabled")
	} else {
		layer.AddField("checksum", fmt.Sprintf("0x%04x", checksum))
	}

	declaredPayload := int(length) - 8
	actualPayload := len(buf) - c.offset()
	if declaredPayload < 0 || declaredPayload > actualPayload {
		layer.AddWarning("length_mismatch: declared length exceeds captured bytes")
		declaredPayload = actualPayload
	}

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, UDPResult{SrcPort: srcPort, DstPort: dstPort, PayloadLen: declaredPayload}, nil
}

func finishUDP(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
