package dissect

import (
	"fmt"
	"net"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// IPv4Result carries the fields the next dissector needs without forcing
// it to re-parse the header.
type IPv4Result struct {
	SrcIP      string
	DstIP      string
	Protocol   uint8
	PayloadOff int
}

// IPv4 decodes version, IHL, TOS (DSCP/ECN split), total length,
// identification, flags+fragment offset, TTL, protocol, checksum
// (unverified), and addresses (spec.md §4.2). Options are reported only
// as a raw byte count, per spec.md.
func IPv4(buf []byte) (model.LayerRecord, IPv4Result, error) {
	layer := model.LayerRecord{Name: "IPv4"}
	c := newCursor(buf)

	verIHL, err := c.u8()
	if err != nil {
		truncate(&layer, "version/ihl")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	version := verIHL >> 4
	ihl := verIHL & 0x0f
	layer.AddField("version", fmt.Sprintf("%d", version))
	layer.AddField("ihl", fmt.Sprintf("%d", ihl))

	if ihl < 5 || ihl > 15 || int(ihl)*4 > len(buf) {
		layer.State = model.LayerTruncated
		layer.AddWarning("malformed: ihl out of range")
		layer.Span = model.ByteSpan{Length: c.offset()}
		return layer, IPv4Result{}, nil
	}
	headerLen := int(ihl) * 4

	tos, err := c.u8()
	if err != nil {
		truncate(&layer, "tos")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	layer.AddField("dscp", fmt.Sprintf("%d", tos>>2))
	layer.AddField("ecn", fmt.Sprintf("%d", tos&0x3))

	totalLen, err := c.u16()
	if err != nil {
		truncate(&layer, "total_length")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	layer.AddField("total_length", fmt.Sprintf("%d", totalLen))

	ident, err := c.u16()
	if err != nil {
		truncate(&layer, "identification")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	layer.AddField("identification", fmt.Sprintf("0x%04x", ident))

	flagsFrag, err := c.u16()
	if err != nil {
		truncate(&layer, "flags/fragment_offset")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	df := flagsFrag&0x4000 != 0
	mf := flagsFrag&0x2000 != 0
	fragOffset := (flagsFrag & 0x1fff) * 8
	layer.AddField("flags", fmt.Sprintf("DF=%v MF=%v", df, mf))
	layer.AddField("fragment_offset", fmt.Sprintf("%d", fragOffset))

	ttl, err := c.u8()
	if err != nil {
		truncate(&layer, "ttl")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	layer.AddField("ttl", fmt.Sprintf("%d", ttl))

	proto, err := c.u8()
	if err != nil {
		truncate(&layer, "protocol")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	layer.AddField("protocol", fmt.Sprintf("%d", proto))

	checksum, err := c.u16()
	if err != nil {
		truncate(&layer, "checksum")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	layer.AddField("checksum", fmt.Sprintf("0x%04x", checksum))

	srcBytes, err := c.take(4)
	if err != nil {
		truncate(&layer, "src")
		return finish4(&layer, c), IPv4Result{}, nil
	}
	dstBytes, err := c.take(4)
	if err != nil {
		truncate(&layer, "dst")
		layer.AddField("src", net.IP(srcBytes).String())
		return finish4(&layer, c), IPv4Result{}, nil
	}
	src := net.IP(srcBytes).String()
	dst := net.IP(dstBytes).String()
	layer.AddField("src", src)
	layer.AddField("dst", dst)

	optLen := headerLen - c.offset()
	if optLen > 0 {
		if _, err := c.take(optLen); err != nil {
			truncate(&layer, "options")
			return finish4(&layer, c), IPv4Result{}, nil
		}
		layer.AddField("options_length", fmt.Sprintf("%d", optLen))
	}

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, IPv4Result{SrcIP: src, DstIP: dst, Protocol: proto, PayloadOff: headerLen}, nil
}

func finish4(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
