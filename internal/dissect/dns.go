package dissect

import (
	"fmt"
	"net"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

const (
	maxDNSPointerJumps = 10  // spec.md §4.2 rule 3
	maxDNSNameBytes    = 255 // spec.md §4.2 rule 3
)

// DNSResult summarizes what was decoded, enough to build the summary
// line without re-walking the packet.
type DNSResult struct {
	ID         uint16
	IsResponse bool
	RCode      uint8
	QDCount    uint16
	ANCount    uint16
}

// DNS decodes the 12-byte header, the question section with name
// decompression, and the answer/authority/additional RR sections for
// the record types spec.md §4.2 names (A, AAAA, NS, CNAME, PTR, MX, TXT,
// SOA, SRV, OPT). Name decompression stops after maxDNSPointerJumps
// pointer jumps or maxDNSNameBytes decoded bytes.
func DNS(buf []byte) (model.LayerRecord, DNSResult, error) {
	layer := model.LayerRecord{Name: "DNS"}
	c := newCursor(buf)

	id, err := c.u16()
	if err != nil {
		truncate(&layer, "id")
		return finishDNS(&layer, c), DNSResult{}, nil
	}
	flags, err := c.u16()
	if err != nil {
		truncate(&layer, "flags")
		return finishDNS(&layer, c), DNSResult{}, nil
	}
	qd, err := c.u16()
	if err != nil {
		truncate(&layer, "qdcount")
		return finishDNS(&layer, c), DNSResult{}, nil
	}
	an, err := c.u16()
	if err != nil {
		truncate(&layer, "ancount")
		return finishDNS(&layer, c), DNSResult{}, nil
	}
	ns, err := c.u16()
	if err != nil {
		truncate(&layer, "nscount")
		return finishDNS(&layer, c), DNSResult{}, nil
	}
	ar, err := c.u16()
	if err != nil {
		truncate(&layer, "arcount")
		return finishDNS(&layer, c), DNSResult{}, nil
	}

	qr := flags&0x8000 != 0
	opcode := (flags >> 11) & 0xf
	aa := flags&0x0400 != 0
	tc := flags&0x0200 != 0
	rd := flags&0x0100 != 0
	ra := flags&0x0080 != 0
	rcode := uint8(flags & 0xf)

	layer.AddField("id", fmt.Sprintf("0x%04x", id))
	layer.AddField("qr", fmt.Sprintf("%v", qr))
	layer.AddField("opcode", fmt.Sprintf("%d", opcode))
	layer.AddField("aa", fmt.Sprintf("%v", aa))
	layer.AddField("tc", fmt.Sprintf("%v", tc))
	layer.AddField("rd", fmt.Sprintf("%v", rd))
	layer.AddField("ra", fmt.Sprintf("%v", ra))
	layer.AddField("rcode", fmt.Sprintf("%d", rcode))
	layer.AddField("qdcount", fmt.Sprintf("%d", qd))
	layer.AddField("ancount", fmt.Sprintf("%d", an))
	layer.AddField("nscount", fmt.Sprintf("%d", ns))
	layer.AddField("arcount", fmt.Sprintf("%d", ar))

	for i := 0; i < int(qd); i++ {
		name, err := decodeDNSName(buf, c)
		if err != nil {
			truncate(&layer, "question name")
			return finishDNS(&layer, c), DNSResult{ID: id, IsResponse: qr, RCode: rcode, QDCount: qd, ANCount: an}, nil
		}
		qtype, err := c.u16()
		if err != nil {
			truncate(&layer, "question qtype")
			return finishDNS(&layer, c), DNSResult{ID: id, IsResponse: qr, RCode: rcode, QDCount: qd, ANCount: an}, nil
		}
		qclass, err := c.u16()
		if err != nil {
			truncate(&layer, "question qclass")
			return finishDNS(&layer, c), DNSResult{ID: id, IsResponse: qr, RCode: rcode, QDCount: qd, ANCount: an}, nil
		}
		layer.AddField("qname", name)
		layer.AddField("qtype", fmt.Sprintf("%d", qtype))
		layer.AddField("qclass", fmt.Sprintf("%d", qclass))
	}

	sections := []struct {
		name  string
		count uint16
	}{{"answer", an}, {"authority", ns}, {"additional", ar}}
	for _, s := range sections {
		for i := 0; i < int(s.count); i++ {
			if !decodeDNSRR(buf, c, &layer, s.name) {
				truncate(&layer, s.name+" record")
				return finishDNS(&layer, c), DNSResult{ID: id, IsResponse: qr, RCode: rcode, QDCount: qd, ANCount: an}, nil
			}
		}
	}

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, DNSResult{ID: id, IsResponse: qr, RCode: rcode, QDCount: qd, ANCount: an}, nil
}

func decodeDNSRR(buf []byte, c *cursor, layer *model.LayerRecord, section string) bool {
	name, err := decodeDNSName(buf, c)
	if err != nil {
		return false
	}
	rtype, err := c.u16()
	if err != nil {
		return false
	}
	_, err = c.u16() // class
	if err != nil {
		return false
	}
	ttl, err := c.u32()
	if err != nil {
		return false
	}
	rdlen, err := c.u16()
	if err != nil {
		return false
	}
	rdata, err := c.take(int(rdlen))
	if err != nil {
		return false
	}

	value := decodeDNSRData(buf, c.offset()-int(rdlen), rtype, rdata)
	layer.AddField(fmt.Sprintf("%s[%s type=%d ttl=%d]", section, name, rtype, ttl), value)
	return true
}

func decodeDNSRData(fullBuf []byte, rdataOffset int, rtype uint16, rdata []byte) string {
	switch rtype {
	case 1: // A
		if len(rdata) == 4 {
			return net.IP(rdata).String()
		}
	case 28: // AAAA
		if len(rdata) == 16 {
			return net.IP(rdata).String()
		}
	case 2, 5, 12: // NS, CNAME, PTR — all a single compressed name
		rc := newCursor(fullBuf)
		rc.pos = rdataOffset
		if name, err := decodeDNSName(fullBuf, rc); err == nil {
			return name
		}
	case 15: // MX
		if len(rdata) >= 2 {
			rc := newCursor(fullBuf)
			rc.pos = rdataOffset + 2
			pref := uint16(rdata[0])<<8 | uint16(rdata[1])
			if name, err := decodeDNSName(fullBuf, rc); err == nil {
				return fmt.Sprintf("pref=%d %s", pref, name)
			}
		}
	case 16: // TXT
		return string(rdata)
	case 6: // SOA
		return fmt.Sprintf("SOA(%d bytes)", len(rdata))
	case 33: // SRV
		if len(rdata) >= 6 {
			pri := uint16(rdata[0])<<8 | uint16(rdata[1])
			weight := uint16(rdata[2])<<8 | uint16(rdata[3])
			port := uint16(rdata[4])<<8 | uint16(rdata[5])
			return fmt.Sprintf("priority=%d weight=%d port=%d", pri, weight, port)
		}
	case 41: // OPT (EDNS)
		return fmt.Sprintf("OPT(%d bytes)", len(rdata))
	}
	return fmt.Sprintf("%d bytes", len(rdata))
}

// decodeDNSName reads a (possibly compressed) domain name starting at
// c's current position, following pointers into fullBuf. It enforces
// both caps from spec.md §4.2 rule 3 and advances c past the encoded
// name in the original stream (not past any followed pointer).
func decodeDNSName(fullBuf []byte, c *cursor) (string, error) {
	var labels []string
	jumps := 0
	totalBytes := 0
	pos := c.pos
	advanced := false

	for {
		if pos >= len(fullBuf) {
			return "", errTruncated
		}
		b := fullBuf[pos]
		if b == 0 {
			pos++
			if !advanced {
				c.pos = pos
			}
			break
		}
		if b&0xc0 == 0xc0 {
			if pos+1 >= len(fullBuf) {
				return "", errTruncated
			}
			if !advanced {
				c.pos = pos + 2
				advanced = true
			}
			jumps++
			if jumps > maxDNSPointerJumps {
				return "", errTruncated
			}
			pointer := (int(b&0x3f) << 8) | int(fullBuf[pos+1])
			if pointer >= pos {
				return "", errTruncated // forward/self pointer: treat as a cycle
			}
			pos = pointer
			continue
		}
		labelLen := int(b)
		if pos+1+labelLen > len(fullBuf) {
			return "", errTruncated
		}
		totalBytes += labelLen
		if totalBytes > maxDNSNameBytes {
			return "", errTruncated
		}
		labels = append(labels, string(fullBuf[pos+1:pos+1+labelLen]))
		pos += 1 + labelLen
	}

	if !advanced {
		c.pos = pos
	}

	if len(labels) == 0 {
		return ".", nil
	}
	name := labels[0]
	for _, l := range labels[1:] {
		name += "." + l
	}
	return name, nil
}

// DNSSummary builds the summary line from spec.md §4.2/§8 scenario 2:
// queries report question count, responses report NXDOMAIN for rcode 3
// or the answer count otherwise.
func DNSSummary(r DNSResult) string {
	if !r.IsResponse {
		return fmt.Sprintf("DNS Query: %d question(s)", r.QDCount)
	}
	if r.RCode == 3 {
		return "DNS Response: NXDOMAIN"
	}
	return fmt.Sprintf("DNS Response: %d answer(s)", r.ANCount)
}

func finishDNS(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
