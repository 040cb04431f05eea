package dissect

import (
	"fmt"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// TCP option kinds walked by the options loop (spec.md §4.2).
const (
	tcpOptEOL           = 0
	tcpOptNOP           = 1
	tcpOptMSS           = 2
	tcpOptWindowScale   = 3
	tcpOptSACKPermitted = 4
	tcpOptTimestamp     = 8

	maxTCPOptionIterations = 40 // generous cap; EOL/length walk is the real bound
)

// TCPResult carries the fields needed to choose an application dissector.
type TCPResult struct {
	SrcPort    uint16
	DstPort    uint16
	Flags      TCPFlags
	PayloadLen int
	HasPayload bool
}

// TCPFlags holds the eight TCP control bits.
type TCPFlags struct {
	FIN, SYN, RST, PSH, ACK, URG, ECE, CWR bool
}

// TCP decodes ports, sequence/ack numbers, header length, the eight
// flags, window, checksum, urgent pointer, and walks options (spec.md
// §4.2). Whatever follows the header in buf is treated as payload: its
// length is reported as PayloadLen and sets HasPayload.
func TCP(buf []byte) (model.LayerRecord, TCPResult, error) {
	layer := model.LayerRecord{Name: "TCP"}
	c := newCursor(buf)

	srcPort, err := c.u16()
	if err != nil {
		truncate(&layer, "src_port")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	dstPort, err := c.u16()
	if err != nil {
		truncate(&layer, "dst_port")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	layer.AddField("src_port", fmt.Sprintf("%d", srcPort))
	layer.AddField("dst_port", fmt.Sprintf("%d", dstPort))

	seq, err := c.u32()
	if err != nil {
		truncate(&layer, "seq")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	layer.AddField("seq", fmt.Sprintf("%d", seq))

	ack, err := c.u32()
	if err != nil {
		truncate(&layer, "ack")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	layer.AddField("ack", fmt.Sprintf("%d", ack))

	offsetReserved, err := c.u8()
	if err != nil {
		truncate(&layer, "data_offset")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	dataOffset := offsetReserved >> 4
	if dataOffset < 5 || dataOffset > 15 {
		layer.State = model.LayerTruncated
		layer.AddWarning("malformed: data offset out of range")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	headerLen := int(dataOffset) * 4
	layer.AddField("data_offset", fmt.Sprintf("%d", dataOffset))

	flagByte, err := c.u8()
	if err != nil {
		truncate(&layer, "flags")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	flags := TCPFlags{
		FIN: flagByte&0x01 != 0,
		SYN: flagByte&0x02 != 0,
		RST: flagByte&0x04 != 0,
		PSH: flagByte&0x08 != 0,
		ACK: flagByte&0x10 != 0,
		URG: flagByte&0x20 != 0,
		ECE: flagByte&0x40 != 0,
		CWR: flagByte&0x80 != 0,
	}
	layer.AddField("flags", tcpFlagsString(flags))

	window, err := c.u16()
	if err != nil {
		truncate(&layer, "window")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	layer.AddField("window", fmt.Sprintf("%d", window))

	checksum, err := c.u16()
	if err != nil {
		truncate(&layer, "checksum")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	layer.AddField("checksum", fmt.Sprintf("0x%04x", checksum))

	urgent, err := c.u16()
	if err != nil {
		truncate(&layer, "urgent_pointer")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	layer.AddField("urgent_pointer", fmt.Sprintf("%d", urgent))

	optLen := headerLen - c.offset()
	if optLen < 0 {
		layer.State = model.LayerTruncated
		layer.AddWarning("malformed: data offset shorter than fixed header")
		return finishTCP(&layer, c), TCPResult{}, nil
	}
	if optLen > 0 {
		optBytes, err := c.take(optLen)
		if err != nil {
			truncate(&layer, "options")
			return finishTCP(&layer, c), TCPResult{}, nil
		}
		walkTCPOptions(&layer, optBytes)
	}

	payloadLen := len(buf) - c.offset()
	if payloadLen < 0 {
		payloadLen = 0
	}

	addTCPWarnings(&layer, flags, window, seq, payloadLen)

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, TCPResult{
		SrcPort:    srcPort,
		DstPort:    dstPort,
		Flags:      flags,
		PayloadLen: payloadLen,
		HasPayload: payloadLen > 0,
	}, nil
}

func walkTCPOptions(layer *model.LayerRecord, opts []byte) {
	oc := newCursor(opts)
	var names []string
	for i := 0; i < maxTCPOptionIterations && !oc.eof(); i++ {
		kind, err := oc.u8()
		if err != nil {
			break
		}
		switch kind {
		case tcpOptEOL:
			names = append(names, "EOL")
			i = maxTCPOptionIterations // stop the walk, matches spec.md "stops at EOL"
		case tcpOptNOP:
			names = append(names, "NOP")
		default:
			length, err := oc.u8()
			if err != nil {
				names = append(names, fmt.Sprintf("kind=%d(truncated)", kind))
				i = maxTCPOptionIterations
				continue
			}
			if length < 2 {
				names = append(names, fmt.Sprintf("kind=%d(invalid length)", kind))
				i = maxTCPOptionIterations
				continue
			}
			body, err := oc.take(int(length) - 2)
			if err != nil {
				names = append(names, tcpOptionName(kind)+"(truncated)")
				i = maxTCPOptionIterations
				continue
			}
			names = append(names, describeTCPOption(kind, body))
		}
	}
	if len(names) > 0 {
		layer.AddField("options", fmt.Sprintf("%v", names))
	}
}

func tcpOptionName(kind uint8) string {
	switch kind {
	case tcpOptMSS:
		return "MSS"
	case tcpOptWindowScale:
		return "WindowScale"
	case tcpOptSACKPermitted:
		return "SACKPermitted"
	case tcpOptTimestamp:
		return "Timestamp"
	default:
		return fmt.Sprintf("kind=%d", kind)
	}
}

func describeTCPOption(kind uint8, body []byte) string {
	name := tcpOptionName(kind)
	switch kind {
	case tcpOptMSS:
		if len(body) >= 2 {
			return fmt.Sprintf("%s=%d", name, uint16(body[0])<<8|uint16(body[1]))
		}
	case tcpOptWindowScale:
		if len(body) >= 1 {
			return fmt.Sprintf("%s=%d", name, body[0])
		}
	}
	return name
}

func tcpFlagsString(f TCPFlags) string {
	s := ""
	add := func(set bool, c string) {
		if set {
			s += c
		}
	}
	add(f.FIN, "F")
	add(f.SYN, "S")
	add(f.RST, "R")
	add(f.PSH, "P")
	add(f.ACK, "A")
	add(f.URG, "U")
	add(f.ECE, "E")
	add(f.CWR, "C")
	if s == "" {
		return "none"
	}
	return s
}

func addTCPWarnings(layer *model.LayerRecord, f TCPFlags, window uint16, seq uint32, payloadLen int) {
	noneSet := !f.FIN && !f.SYN && !f.RST && !f.PSH && !f.ACK && !f.URG && !f.ECE && !f.CWR
	if noneSet {
		layer.AddWarning("null_scan: no flags set")
	}
	if f.FIN && f.URG && f.PSH {
		layer.AddWarning("xmas_scan: FIN+URG+PSH set")
	}
	if window == 0 {
		layer.AddWarning("zero_window")
	}
	if seq == 0 && !f.SYN {
		layer.AddWarning("sequence_zero_without_syn")
	}
	_ = payloadLen
}

// TCPSummary formats the flag-combination summary line mandated by
// spec.md §4.2/§8 scenario 1: "SYN src:port → dst:port" style lines.
func TCPSummary(srcIP string, srcPort uint16, dstIP string, dstPort uint16, f TCPFlags, hasPayload bool, appTag string) string {
	var kind string
	switch {
	case f.SYN && f.ACK:
		kind = "SYN+ACK"
	case f.SYN:
		kind = "SYN"
	case f.FIN:
		kind = "FIN"
	case f.RST:
		kind = "RST"
	case f.PSH && f.ACK && hasPayload:
		kind = "PSH+ACK [Data]"
	default:
		kind = "ACK"
	}
	base := fmt.Sprintf("%s %s:%d → %s:%d", kind, srcIP, srcPort, dstIP, dstPort)
	if appTag != "" {
		base += " [" + appTag + "]"
	}
	if kind == "ACK" && !hasPayload {
		base += " [Keep-alive]"
	}
	return base
}

func finishTCP(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
