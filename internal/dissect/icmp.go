package dissect

import (
	"fmt"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// ICMP decodes type, code, and checksum with enumerated names for the
// common ICMPv4 types (spec.md §4.2): echo request/reply, destination
// unreachable (codes 0-3), time exceeded.
func ICMP(buf []byte) (model.LayerRecord, error) {
	layer := model.LayerRecord{Name: "ICMP"}
	c := newCursor(buf)

	typ, err := c.u8()
	if err != nil {
		truncate(&layer, "type")
		return finishICMP(&layer, c), nil
	}
	code, err := c.u8()
	if err != nil {
		truncate(&layer, "code")
		return finishICMP(&layer, c), nil
	}
	checksum, err := c.u16()
	if err != nil {
		truncate(&layer, "checksum")
		return finishICMP(&layer, c), nil
	}

	layer.AddField("type", fmt.Sprintf("%d (%s)", typ, icmpTypeName(typ, code)))
	layer.AddField("code", fmt.Sprintf("%d", code))
	layer.AddField("checksum", fmt.Sprintf("0x%04x", checksum))

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, nil
}

func icmpTypeName(typ, code uint8) string {
	switch typ {
	case 0:
		return "Echo Reply"
	case 3:
		switch code {
		case 0:
			return "Destination Unreachable: Net Unreachable"
		case 1:
			return "Destination Unreachable: Host Unreachable"
		case 2:
			return "Destination Unreachable: Protocol Unreachable"
		case 3:
			return "Destination Unreachable: Port Unreachable"
		default:
			return "Destination Unreachable"
		}
	case 8:
		return "Echo Request"
	case 11:
		return "Time Exceeded"
	default:
		return "Unknown"
	}
}

// ICMPv6 decodes type/code/checksum with the v6-specific type names
// (spec.md §4.2), including neighbor discovery.
func ICMPv6(buf []byte) (model.LayerRecord, error) {
	layer := model.LayerRecord{Name: "ICMPv6"}
	c := newCursor(buf)

	typ, err := c.u8()
	if err != nil {
		truncate(&layer, "type")
		return finishICMP(&layer, c), nil
	}
	code, err := c.u8()
	if err != nil {
		truncate(&layer, "code")
		return finishICMP(&layer, c), nil
	}
	checksum, err := c.u16()
	if err != nil {
		truncate(&layer, "checksum")
		return finishICMP(&layer, c), nil
	}

	layer.AddField("type", fmt.Sprintf("%d (%s)", typ, icmpv6TypeName(typ)))
	layer.AddField("code", fmt.Sprintf("%d", code))
	layer.AddField("checksum", fmt.Sprintf("0x%04x", checksum))

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, nil
}

func icmpv6TypeName(typ uint8) string {
	switch typ {
	case 1:
		return "Destination Unreachable"
	case 2:
		return "Packet Too Big"
	case 3:
		return "Time Exceeded"
	case 128:
		return "Echo Request"
	case 129:
		return "Echo Reply"
	case 133:
		return "Router Solicitation"
	case 134:
		return "Router Advertisement"
	case 135:
		return "Neighbor Solicitation"
	case 136:
		return "Neighbor Advertisement"
	case 137:
		return "Redirect"
	default:
		return "Unknown"
	}
}

func finishICMP(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
