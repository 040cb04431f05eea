package dissect

import (
	"fmt"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// Well-known ports used to pick an application dissector once the
// transport layer is known (spec.md §4.2).
const (
	portDNS        = 53
	portDHCPServer = 67
	portDHCPClient = 68
	portNTP        = 123
	portHTTP       = 80
	portHTTPAlt    = 8080
	portHTTPS      = 443
	portFTPControl = 21
	portSMTP       = 25
	portIMAP       = 143
	portSSH        = 22
	portSNMP       = 161
)

// Dissect walks a single captured frame top-down — Ethernet, then the
// network layer, then the transport layer, then an application-layer
// dissector chosen by port — appending one model.LayerRecord per layer
// it manages to parse and stopping at the first truncation or unknown
// protocol (spec.md §4.1/§4.2). It never panics: every layer function
// is built on the bounds-checked cursor.
func Dissect(frame *model.RawFrame) model.PacketRecord {
	rec := model.PacketRecord{
		Timestamp:      frame.Timestamp(),
		WireLength:     frame.WireLen,
		CapturedLength: frame.CapturedLen,
		Raw:            frame.Raw,
	}

	buf := frame.Data
	eth, ethertype, err := Ethernet(buf)
	rec.Layers = append(rec.Layers, eth)
	if err != nil || eth.Truncated() {
		finalizeSummary(&rec)
		return rec
	}
	rest := buf[eth.Span.Length:]

	switch ethertype {
	case EtherTypeARP:
		arp, summary, err := ARP(rest)
		rec.Layers = append(rec.Layers, arp)
		if err == nil && !arp.Truncated() {
			rec.TopProtocol = "ARP"
			rec.SummaryLine = summary
		}
		finalizeSummary(&rec)
		return rec
	case EtherTypeIPv4:
		dissectIPv4(&rec, rest)
	case EtherTypeIPv6:
		dissectIPv6(&rec, rest)
	default:
		rec.TopProtocol = "Unknown"
	}

	finalizeSummary(&rec)
	return rec
}

func dissectIPv4(rec *model.PacketRecord, buf []byte) {
	layer, result, _ := IPv4(buf)
	rec.Layers = append(rec.Layers, layer)
	rec.SrcAddr, rec.DstAddr = result.SrcIP, result.DstIP
	if layer.Truncated() {
		return
	}
	dissectTransport(rec, result.Protocol, buf[result.PayloadOff:], result.SrcIP, result.DstIP)
}

func dissectIPv6(rec *model.PacketRecord, buf []byte) {
	layer, result, _ := IPv6(buf)
	rec.Layers = append(rec.Layers, layer)
	rec.SrcAddr, rec.DstAddr = result.SrcIP, result.DstIP
	if layer.Truncated() {
		return
	}
	dissectTransport(rec, result.NextHeader, buf[result.PayloadOff:], result.SrcIP, result.DstIP)
}

// Transport protocol numbers (IANA).
const (
	protoICMP   = 1
	protoTCP    = 6
	protoUDP    = 17
	protoICMPv6 = 58
)

func dissectTransport(rec *model.PacketRecord, protocol uint8, buf []byte, srcIP, dstIP string) {
	switch protocol {
	case protoTCP:
		layer, result, _ := TCP(buf)
		rec.Layers = append(rec.Layers, layer)
		rec.TopProtocol = "TCP"
		if layer.Truncated() {
			return
		}
		payload := buf[layer.Span.Length:]
		appTag := servicePortTag(result.DstPort, result.SrcPort, true)
		if result.HasPayload {
			if parsedTag, appSummary := dissectApplication(rec, result.DstPort, result.SrcPort, payload, true); appSummary != "" {
				rec.TopProtocol = parsedTag
				rec.SummaryLine = appSummary
				return
			}
		}
		rec.SummaryLine = TCPSummary(srcIP, result.SrcPort, dstIP, result.DstPort, result.Flags, result.HasPayload, appTag)
	case protoUDP:
		layer, result, _ := UDP(buf)
		rec.Layers = append(rec.Layers, layer)
		rec.TopProtocol = "UDP"
		if layer.Truncated() {
			return
		}
		payload := buf[layer.Span.Length:]
		appTag, appSummary := dissectApplication(rec, result.DstPort, result.SrcPort, payload, false)
		if appSummary != "" {
			rec.TopProtocol = appTag
			rec.SummaryLine = appSummary
			return
		}
		rec.SummaryLine = fmt.Sprintf("[%d bytes]", result.PayloadLen)
	case protoICMP:
		layer, _ := ICMP(buf)
		rec.Layers = append(rec.Layers, layer)
		rec.TopProtocol = "ICMP"
	case protoICMPv6:
		layer, _ := ICMPv6(buf)
		rec.Layers = append(rec.Layers, layer)
		rec.TopProtocol = "ICMPv6"
	default:
		rec.TopProtocol = fmt.Sprintf("IP-proto-%d", protocol)
	}
}

// dissectApplication chooses an application dissector by the
// destination (server) port, falling back to the source port for
// response traffic, per spec.md §4.2's port-based dispatch table.
func dissectApplication(rec *model.PacketRecord, dstPort, srcPort uint16, payload []byte, isTCP bool) (tag, summary string) {
	if len(payload) == 0 {
		return "", ""
	}
	port := dstPort
	if !isWellKnownAppPort(port) && isWellKnownAppPort(srcPort) {
		port = srcPort
	}

	switch {
	case !isTCP && port == portDNS:
		layer, result, _ := DNS(payload)
		rec.Layers = append(rec.Layers, layer)
		if layer.Truncated() {
			return "DNS", ""
		}
		return "DNS", DNSSummary(result)
	case !isTCP && (port == portDHCPServer || port == portDHCPClient):
		layer, result, _ := DHCP(payload)
		rec.Layers = append(rec.Layers, layer)
		if layer.Truncated() {
			return "DHCP", ""
		}
		return "DHCP", DHCPSummary(result)
	case !isTCP && port == portNTP:
		layer, err := NTP(payload)
		rec.Layers = append(rec.Layers, layer)
		if err != nil || layer.Truncated() {
			return "NTP", ""
		}
		return "NTP", "NTP"
	case !isTCP && port == portSNMP:
		layer, result, _ := SNMP(payload)
		rec.Layers = append(rec.Layers, layer)
		if layer.Truncated() {
			return "SNMP", ""
		}
		return "SNMP", SNMPSummary(result)
	case isTCP && (port == portHTTP || port == portHTTPAlt):
		layer, result, _ := HTTP(payload)
		rec.Layers = append(rec.Layers, layer)
		if layer.Truncated() {
			return "HTTP", ""
		}
		return "HTTP", HTTPSummary(result)
	case isTCP && port == portHTTPS:
		layer, result, _ := TLS(payload)
		rec.Layers = append(rec.Layers, layer)
		if layer.Truncated() {
			return "TLS", ""
		}
		return "TLS", TLSSummary(result)
	case isTCP && port == portSSH:
		layer, result, _ := SSH(payload)
		rec.Layers = append(rec.Layers, layer)
		if layer.Truncated() {
			return "SSH", ""
		}
		return "SSH", SSHSummary(result)
	case isTCP && port == portFTPControl:
		layer, result, _ := FTP(payload)
		rec.Layers = append(rec.Layers, layer)
		return "FTP", TextProtoSummary(result)
	case isTCP && port == portSMTP:
		layer, result, _ := SMTP(payload)
		rec.Layers = append(rec.Layers, layer)
		return "SMTP", TextProtoSummary(result)
	case isTCP && port == portIMAP:
		layer, result, _ := IMAP(payload)
		rec.Layers = append(rec.Layers, layer)
		return "IMAP", TextProtoSummary(result)
	case !isTCP && port == portHTTPS:
		layer, result, _ := QUIC(payload)
		rec.Layers = append(rec.Layers, layer)
		if layer.Truncated() {
			return "QUIC", ""
		}
		return "QUIC", QUICSummary(result)
	default:
		return "", ""
	}
}

var servicePortNames = map[uint16]string{
	portDNS:        "DNS",
	portDHCPServer: "DHCP",
	portDHCPClient: "DHCP",
	portNTP:        "NTP",
	portHTTP:       "HTTP",
	portHTTPAlt:    "HTTP",
	portHTTPS:      "TLS",
	portFTPControl: "FTP",
	portSMTP:       "SMTP",
	portIMAP:       "IMAP",
	portSSH:        "SSH",
	portSNMP:       "SNMP",
}

// servicePortTag names the well-known service associated with a
// connection's port, independent of whether the current segment
// carries a parseable application payload — a bare SYN still names its
// destination service (spec.md §8 scenario 1).
func servicePortTag(dstPort, srcPort uint16, isTCP bool) string {
	if name, ok := servicePortNames[dstPort]; ok {
		return name
	}
	if name, ok := servicePortNames[srcPort]; ok {
		return name
	}
	return ""
}

func isWellKnownAppPort(port uint16) bool {
	switch port {
	case portDNS, portDHCPServer, portDHCPClient, portNTP, portHTTP, portHTTPAlt,
		portHTTPS, portFTPControl, portSMTP, portIMAP, portSSH, portSNMP:
		return true
	default:
		return false
	}
}

// Protocols the generic fallback reports as "Encrypted" rather than
// "Plain Text" (spec.md §4.3 step 5).
var encryptedProtocols = map[string]bool{
	"HTTPS": true, "TLS": true, "SSL": true, "SSH": true, "SFTP": true,
	"FTPS": true, "IMAPS": true, "POP3S": true, "SMTPS": true,
}

// finalizeSummary fills SummaryLine with the generic Encrypted/Plain
// Text fallback when no protocol-specific heuristic produced one, then
// appends the size/keep-alive suffixes spec.md §4.3 step 5 always adds.
func finalizeSummary(rec *model.PacketRecord) {
	if rec.TopProtocol == "" {
		rec.TopProtocol = "Unknown"
	}
	if rec.SummaryLine == "" {
		if encryptedProtocols[rec.TopProtocol] {
			rec.SummaryLine = rec.TopProtocol + " Encrypted"
		} else {
			rec.SummaryLine = rec.TopProtocol + " Plain Text"
		}
	}
	if rec.WireLength > 1400 {
		rec.SummaryLine += fmt.Sprintf(" [%d bytes]", rec.WireLength)
	}
	if rec.WireLength == 0 {
		rec.SummaryLine += " [Keep-alive]"
	}
}
