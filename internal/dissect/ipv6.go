package dissect

import (
	"fmt"
	"net"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// IPv6 extension header next-header values walked by Extensions below.
const (
	nextHeaderHopByHop = 0
	nextHeaderRouting  = 43
	nextHeaderFragment = 44
	nextHeaderDstOpts  = 60

	maxExtensionHeaders = 8 // spec.md §4.2: "stops after 8 iterations"
)

// IPv6Result mirrors IPv4Result for the downstream dissector.
type IPv6Result struct {
	SrcIP      string
	DstIP      string
	NextHeader uint8
	PayloadOff int
}

// IPv6 decodes the fixed 40-byte base header (version, traffic class,
// flow label, payload length, next header, hop limit, addresses), then
// walks chained extension headers up to maxExtensionHeaders times,
// replacing the source's single 8-byte peek with a full bounded walk
// (spec.md §9 REDESIGN FLAG).
func IPv6(buf []byte) (model.LayerRecord, IPv6Result, error) {
	layer := model.LayerRecord{Name: "IPv6"}
	c := newCursor(buf)

	verClassFlow, err := c.u32()
	if err != nil {
		truncate(&layer, "version/class/flow")
		return finish6(&layer, c), IPv6Result{}, nil
	}
	version := verClassFlow >> 28
	trafficClass := (verClassFlow >> 20) & 0xff
	flowLabel := verClassFlow & 0xfffff
	layer.AddField("version", fmt.Sprintf("%d", version))
	layer.AddField("dscp", fmt.Sprintf("%d", trafficClass>>2))
	layer.AddField("ecn", fmt.Sprintf("%d", trafficClass&0x3))
	layer.AddField("flow_label", fmt.Sprintf("0x%05x", flowLabel))

	payloadLen, err := c.u16()
	if err != nil {
		truncate(&layer, "payload_length")
		return finish6(&layer, c), IPv6Result{}, nil
	}
	layer.AddField("payload_length", fmt.Sprintf("%d", payloadLen))

	nextHeader, err := c.u8()
	if err != nil {
		truncate(&layer, "next_header")
		return finish6(&layer, c), IPv6Result{}, nil
	}

	hopLimit, err := c.u8()
	if err != nil {
		truncate(&layer, "hop_limit")
		return finish6(&layer, c), IPv6Result{}, nil
	}
	layer.AddField("hop_limit", fmt.Sprintf("%d", hopLimit))

	srcBytes, err := c.take(16)
	if err != nil {
		truncate(&layer, "src")
		return finish6(&layer, c), IPv6Result{}, nil
	}
	dstBytes, err := c.take(16)
	if err != nil {
		truncate(&layer, "dst")
		layer.AddField("src", net.IP(srcBytes).String())
		return finish6(&layer, c), IPv6Result{}, nil
	}
	src := net.IP(srcBytes).String()
	dst := net.IP(dstBytes).String()
	layer.AddField("src", src)
	layer.AddField("dst", dst)
	layer.AddField("next_header", fmt.Sprintf("%d", nextHeader))

	// Extension header walk: a proper bounded traversal, not a peek.
	current := nextHeader
	for i := 0; i < maxExtensionHeaders; i++ {
		if !isExtensionHeader(current) {
			break
		}
		nh, err := c.u8()
		if err != nil {
			truncate(&layer, "extension header next_header")
			return finish6(&layer, c), IPv6Result{}, nil
		}
		hdrExtLen, err := c.u8()
		if err != nil {
			truncate(&layer, "extension header length")
			return finish6(&layer, c), IPv6Result{}, nil
		}
		totalLen := int(hdrExtLen)*8 + 8
		if current == nextHeaderFragment {
			totalLen = 8 // Fragment header has a fixed 8-byte length.
		}
		remaining := totalLen - 2
		if remaining > 0 {
			if _, err := c.take(remaining); err != nil {
				truncate(&layer, "extension header body")
				return finish6(&layer, c), IPv6Result{}, nil
			}
		}
		layer.AddField(fmt.Sprintf("ext_header_%d", i), extensionHeaderName(current))
		current = nh
	}

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, IPv6Result{SrcIP: src, DstIP: dst, NextHeader: current, PayloadOff: c.offset()}, nil
}

func isExtensionHeader(nh uint8) bool {
	switch nh {
	case nextHeaderHopByHop, nextHeaderRouting, nextHeaderFragment, nextHeaderDstOpts:
		return true
	default:
		return false
	}
}

func extensionHeaderName(nh uint8) string {
	switch nh {
	case nextHeaderHopByHop:
		return "HopByHop"
	case nextHeaderRouting:
		return "Routing"
	case nextHeaderFragment:
		return "Fragment"
	case nextHeaderDstOpts:
		return "DestinationOptions"
	default:
		return fmt.Sprintf("Unknown(%d)", nh)
	}
}

func finish6(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
