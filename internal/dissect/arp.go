package dissect

import (
	"fmt"
	"net"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

const (
	arpOpRequest = 1
	arpOpReply   = 2
)

// ARP decodes hardware type, protocol type, hlen, plen, opcode, and the
// sender/target MAC+IP pairs (spec.md §4.2). Returns the summary line
// mandated by spec.md §4.2/§8 scenario 3.
func ARP(buf []byte) (model.LayerRecord, string, error) {
	layer := model.LayerRecord{Name: "ARP"}
	c := newCursor(buf)

	htype, err := c.u16()
	if err != nil {
		truncate(&layer, "htype")
		return finishARP(&layer, c), "", nil
	}
	ptype, err := c.u16()
	if err != nil {
		truncate(&layer, "ptype")
		return finishARP(&layer, c), "", nil
	}
	hlen, err := c.u8()
	if err != nil {
		truncate(&layer, "hlen")
		return finishARP(&layer, c), "", nil
	}
	plen, err := c.u8()
	if err != nil {
		truncate(&layer, "plen")
		return finishARP(&layer, c), "", nil
	}
	opcode, err := c.u16()
	if err != nil {
		truncate(&layer, "opcode")
		return finishARP(&layer, c), "", nil
	}

	layer.AddField("htype", fmt.Sprintf("%d", htype))
	layer.AddField("ptype", fmt.Sprintf("0x%04x", ptype))
	layer.AddField("hlen", fmt.Sprintf("%d", hlen))
	layer.AddField("plen", fmt.Sprintf("%d", plen))
	layer.AddField("opcode", fmt.Sprintf("%d", opcode))

	senderMAC, err := c.take(int(hlen))
	if err != nil {
		truncate(&layer, "sender mac")
		return finishARP(&layer, c), "", nil
	}
	senderIP, err := c.take(int(plen))
	if err != nil {
		truncate(&layer, "sender ip")
		layer.AddField("sender_mac", net.HardwareAddr(senderMAC).String())
		return finishARP(&layer, c), "", nil
	}
	targetMAC, err := c.take(int(hlen))
	if err != nil {
		truncate(&layer, "target mac")
		layer.AddField("sender_mac", net.HardwareAddr(senderMAC).String())
		layer.AddField("sender_ip", net.IP(senderIP).String())
		return finishARP(&layer, c), "", nil
	}
	targetIP, err := c.take(int(plen))
	if err != nil {
		truncate(&layer, "target ip")
		layer.AddField("sender_mac", net.HardwareAddr(senderMAC).String())
		layer.AddField("sender_ip", net.IP(senderIP).String())
		layer.AddField("target_mac", net.HardwareAddr(targetMAC).String())
		return finishARP(&layer, c), "", nil
	}

	sMAC := net.HardwareAddr(senderMAC).String()
	sIP := net.IP(senderIP).String()
	tMAC := net.HardwareAddr(targetMAC).String()
	tIP := net.IP(targetIP).String()

	layer.AddField("sender_mac", sMAC)
	layer.AddField("sender_ip", sIP)
	layer.AddField("target_mac", tMAC)
	layer.AddField("target_ip", tIP)

	var summary string
	switch opcode {
	case arpOpRequest:
		summary = fmt.Sprintf("ARP Request: Who has %s? Tell %s", tIP, sIP)
	case arpOpReply:
		summary = fmt.Sprintf("ARP Reply: %s is at %s", sIP, sMAC)
	default:
		summary = fmt.Sprintf("ARP opcode %d", opcode)
	}

	return finishARP(&layer, c), summary, nil
}

func finishARP(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
