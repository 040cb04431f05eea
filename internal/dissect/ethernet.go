package dissect

import (
	"fmt"
	"net"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// EtherType values dispatched by the registry (spec.md §4.2).
const (
	EtherTypeIPv4 = 0x0800
	EtherTypeIPv6 = 0x86DD
	EtherTypeARP  = 0x0806
)

// EthernetHeaderLen is the fixed 14-byte Ethernet II header size.
const EthernetHeaderLen = 14

// Ethernet decodes the fixed 14-byte link-layer header: dst MAC, src
// MAC, EtherType. A frame shorter than 14 bytes never reaches here —
// the pipeline drops it before dissection (spec.md §3 invariant
// "layers[0] is always the link layer if captured_length >= 14").
func Ethernet(buf []byte) (model.LayerRecord, uint16, error) {
	layer := model.LayerRecord{Name: "Ethernet"}
	c := newCursor(buf)

	dst, err := c.take(6)
	if err != nil {
		truncate(&layer, "dst mac")
		layer.Span = model.ByteSpan{Length: c.offset()}
		return layer, 0, nil
	}
	src, err := c.take(6)
	if err != nil {
		truncate(&layer, "src mac")
		layer.Span = model.ByteSpan{Length: c.offset()}
		layer.AddField("dst_mac", net.HardwareAddr(dst).String())
		return layer, 0, nil
	}
	etherType, err := c.u16()
	if err != nil {
		truncate(&layer, "ethertype")
		layer.Span = model.ByteSpan{Length: c.offset()}
		layer.AddField("dst_mac", net.HardwareAddr(dst).String())
		layer.AddField("src_mac", net.HardwareAddr(src).String())
		return layer, 0, nil
	}

	layer.AddField("dst_mac", net.HardwareAddr(dst).String())
	layer.AddField("src_mac", net.HardwareAddr(src).String())
	layer.AddField("ethertype", fmt.Sprintf("0x%04x", etherType))
	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, etherType, nil
}
