package dissect

import (
	"fmt"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// QUIC long-header packet types (RFC 9000 §17.2), valid only when the
// header form bit is set.
var quicLongHeaderTypeNames = map[uint8]string{
	0: "Initial",
	1: "0-RTT",
	2: "Handshake",
	3: "Retry",
}

// QUICResult carries the header classification for the summary line.
type QUICResult struct {
	IsLongHeader bool
	PacketType   string
	Version      uint32
}

// QUIC classifies the first byte as a long or short header. The
// source heuristic treated any packet with the high bit set as a long
// header; this tightens it per spec.md §9 REDESIGN FLAG by also
// requiring the fixed bit (0x40) to be set, since a cleartext UDP
// payload that merely happens to have its top bit set is otherwise
// indistinguishable from a real QUIC long header. When the fixed bit
// is absent the packet is reported as an unrecognized/short-header
// candidate rather than misclassified as long-header QUIC.
func QUIC(buf []byte) (model.LayerRecord, QUICResult, error) {
	layer := model.LayerRecord{Name: "QUIC"}
	c := newCursor(buf)

	first, err := c.u8()
	if err != nil {
		truncate(&layer, "first_byte")
		return finishQUIC(&layer, c), QUICResult{}, nil
	}

	headerForm := first&0x80 != 0
	fixedBit := first&0x40 != 0

	if !headerForm {
		layer.AddField("header_form", "short")
		if !fixedBit {
			layer.AddWarning("fixed_bit_unset: ambiguous short-header candidate")
		}
		dcidLen := int(first & 0x1f) // heuristic only, no connection ID length table
		if dcid, err := c.take(dcidLen); err == nil {
			layer.AddField("dcid", fmt.Sprintf("%x", dcid))
		}
		layer.Span = model.ByteSpan{Length: c.offset()}
		return layer, QUICResult{IsLongHeader: false}, nil
	}

	if !fixedBit {
		layer.AddWarning("fixed_bit_unset: not treated as long-header QUIC")
		layer.Span = model.ByteSpan{Length: c.offset()}
		return layer, QUICResult{}, nil
	}

	packetType := (first >> 4) & 0x3
	layer.AddField("header_form", "long")
	layer.AddField("packet_type", quicLongHeaderTypeName(packetType))

	version, err := c.u32()
	if err != nil {
		truncate(&layer, "version")
		return finishQUIC(&layer, c), QUICResult{IsLongHeader: true, PacketType: quicLongHeaderTypeName(packetType)}, nil
	}
	layer.AddField("version", fmt.Sprintf("0x%08x", version))

	dcidLen, err := c.u8()
	if err != nil {
		truncate(&layer, "dcid_len")
		return finishQUIC(&layer, c), QUICResult{IsLongHeader: true, PacketType: quicLongHeaderTypeName(packetType), Version: version}, nil
	}
	if dcid, err := c.take(int(dcidLen)); err == nil {
		layer.AddField("dcid", fmt.Sprintf("%x", dcid))
	} else {
		truncate(&layer, "dcid")
		return finishQUIC(&layer, c), QUICResult{IsLongHeader: true, PacketType: quicLongHeaderTypeName(packetType), Version: version}, nil
	}

	scidLen, err := c.u8()
	if err != nil {
		truncate(&layer, "scid_len")
		return finishQUIC(&layer, c), QUICResult{IsLongHeader: true, PacketType: quicLongHeaderTypeName(packetType), Version: version}, nil
	}
	if scid, err := c.take(int(scidLen)); err == nil {
		layer.AddField("scid", fmt.Sprintf("%x", scid))
	} else {
		truncate(&layer, "scid")
	}

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, QUICResult{IsLongHeader: true, PacketType: quicLongHeaderTypeName(packetType), Version: version}, nil
}

func quicLongHeaderTypeName(t uint8) string {
	if name, ok := quicLongHeaderTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", t)
}

// QUICSummary builds "QUIC <Type>" or "QUIC short-header" (spec.md §4.2).
func QUICSummary(r QUICResult) string {
	if r.IsLongHeader {
		return fmt.Sprintf("QUIC %s", r.PacketType)
	}
	return "QUIC short-header"
}

func finishQUIC(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
