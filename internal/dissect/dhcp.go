package dissect

import (
	"fmt"
	"net"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

const dhcpMagicCookie = 0x63825363

// DHCP message type values from option 53 (spec.md §4.2).
var dhcpMessageTypeNames = map[uint8]string{
	1: "DISCOVER",
	2: "OFFER",
	3: "REQUEST",
	4: "DECLINE",
	5: "ACK",
	6: "NAK",
	7: "RELEASE",
	8: "INFORM",
}

// DHCPResult carries the fields the summary line needs.
type DHCPResult struct {
	MessageType uint8
	ClientIP    string
	YourIP      string
}

// DHCP decodes the fixed BOOTP header then walks the option 53
// (message type) field out of the variable options area, stopping at
// the 0xFF end option (spec.md §4.2).
func DHCP(buf []byte) (model.LayerRecord, DHCPResult, error) {
	layer := model.LayerRecord{Name: "DHCP"}
	c := newCursor(buf)

	op, err := c.u8()
	if err != nil {
		truncate(&layer, "op")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	htype, err := c.u8()
	if err != nil {
		truncate(&layer, "htype")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	hlen, err := c.u8()
	if err != nil {
		truncate(&layer, "hlen")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	if _, err := c.u8(); err != nil { // hops
		truncate(&layer, "hops")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	xid, err := c.u32()
	if err != nil {
		truncate(&layer, "xid")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	if _, err := c.u16(); err != nil { // secs
		truncate(&layer, "secs")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	if _, err := c.u16(); err != nil { // flags
		truncate(&layer, "flags")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	ciaddr, err := c.take(4)
	if err != nil {
		truncate(&layer, "ciaddr")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	yiaddr, err := c.take(4)
	if err != nil {
		truncate(&layer, "yiaddr")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	if _, err := c.take(4); err != nil { // siaddr
		truncate(&layer, "siaddr")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	if _, err := c.take(4); err != nil { // giaddr
		truncate(&layer, "giaddr")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	chaddr, err := c.take(16)
	if err != nil {
		truncate(&layer, "chaddr")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	if _, err := c.take(64); err != nil { // sname
		truncate(&layer, "sname")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}
	if _, err := c.take(128); err != nil { // file
		truncate(&layer, "file")
		return finishDHCP(&layer, c), DHCPResult{}, nil
	}

	opStr := "BOOTREQUEST"
	if op == 2 {
		opStr = "BOOTREPLY"
	}
	layer.AddField("op", opStr)
	layer.AddField("xid", fmt.Sprintf("0x%08x", xid))
	if int(hlen) <= len(chaddr) && hlen > 0 {
		layer.AddField("chaddr", net.HardwareAddr(chaddr[:hlen]).String())
	}
	layer.AddField("ciaddr", net.IP(ciaddr).String())
	layer.AddField("yiaddr", net.IP(yiaddr).String())
	_ = htype

	magic, err := c.u32()
	if err != nil || magic != dhcpMagicCookie {
		layer.AddWarning("missing_magic_cookie")
		return finishDHCP(&layer, c), DHCPResult{ClientIP: net.IP(ciaddr).String(), YourIP: net.IP(yiaddr).String()}, nil
	}

	var msgType uint8
	for i := 0; i < 64 && !c.eof(); i++ {
		code, err := c.u8()
		if err != nil {
			break
		}
		if code == 0xff {
			break
		}
		if code == 0 {
			continue // pad
		}
		length, err := c.u8()
		if err != nil {
			break
		}
		value, err := c.take(int(length))
		if err != nil {
			layer.AddWarning("truncated option")
			break
		}
		if code == 53 && len(value) == 1 {
			msgType = value[0]
			layer.AddField("message_type", dhcpMessageTypeName(msgType))
		}
	}

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, DHCPResult{MessageType: msgType, ClientIP: net.IP(ciaddr).String(), YourIP: net.IP(yiaddr).String()}, nil
}

func dhcpMessageTypeName(t uint8) string {
	if name, ok := dhcpMessageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", t)
}

// DHCPSummary formats "DHCP <TYPE>" per spec.md §4.2.
func DHCPSummary(r DHCPResult) string {
	return fmt.Sprintf("DHCP %s", dhcpMessageTypeName(r.MessageType))
}

func finishDHCP(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
