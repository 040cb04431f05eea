package dissect

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

func buildEthernetIPv4TCP(srcIP, dstIP net.IP, srcPort, dstPort uint16, flags byte) []byte {
	var buf []byte
	buf = append(buf, net.HardwareAddr{0, 0, 0, 0, 0, 2}...) // dst mac
	buf = append(buf, net.HardwareAddr{0, 0, 0, 0, 0, 1}...) // src mac
	buf = append(buf, 0x08, 0x00)                            // IPv4

	tcp := make([]byte, 20)
	binary.BigEndian.PutUint16(tcp[0:], srcPort)
	binary.BigEndian.PutUint16(tcp[2:], dstPort)
	tcp[12] = 5 << 4 // data offset
	tcp[13] = flags
	binary.BigEndian.PutUint16(tcp[14:], 65535) // window

	ip := make([]byte, 20)
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:], uint16(20+len(tcp)))
	ip[8] = 64
	ip[9] = protoTCP
	copy(ip[12:16], srcIP.To4())
	copy(ip[16:20], dstIP.To4())

	buf = append(buf, ip...)
	buf = append(buf, tcp...)
	return buf
}

func TestDissectTCPSynSummary(t *testing.T) {
	data := buildEthernetIPv4TCP(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), 0x1234, 80, 0x02)
	frame := &model.RawFrame{CapturedLen: len(data), WireLen: len(data), Data: data}
	rec := Dissect(frame)
	want := "SYN 10.0.0.1:4660 → 10.0.0.2:80 [HTTP]"
	if rec.SummaryLine != want {
		t.Fatalf("summary = %q, want %q", rec.SummaryLine, want)
	}
}

func TestDissectARPRequestSummary(t *testing.T) {
	var buf []byte
	buf = append(buf, net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}...)
	buf = append(buf, net.HardwareAddr{0, 0, 0, 0, 0, 1}...)
	buf = append(buf, 0x08, 0x06) // ARP ethertype

	arp := make([]byte, 28)
	binary.BigEndian.PutUint16(arp[0:], 1) // htype ethernet
	binary.BigEndian.PutUint16(arp[2:], 0x0800)
	arp[4] = 6
	arp[5] = 4
	binary.BigEndian.PutUint16(arp[6:], 1) // request
	copy(arp[8:14], net.HardwareAddr{0, 0, 0, 0, 0, 1})
	copy(arp[14:18], net.ParseIP("10.0.0.1").To4())
	copy(arp[24:28], net.ParseIP("10.0.0.2").To4())

	buf = append(buf, arp...)

	frame := &model.RawFrame{CapturedLen: len(buf), WireLen: len(buf), Data: buf}
	rec := Dissect(frame)
	want := "ARP Request: Who has 10.0.0.2? Tell 10.0.0.1"
	if rec.SummaryLine != want {
		t.Fatalf("summary = %q, want %q", rec.SummaryLine, want)
	}
}

func TestDissectTruncatedFrameStopsAtLastGoodLayer(t *testing.T) {
	data := []byte{0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 1, 0x08} // ethertype cut short
	frame := &model.RawFrame{CapturedLen: len(data), WireLen: len(data), Data: data}
	rec := Dissect(frame)
	if len(rec.Layers) == 0 {
		t.Fatal("expected at least one layer")
	}
	if !rec.Layers[len(rec.Layers)-1].Truncated() {
		t.Fatal("expected last layer to be marked truncated")
	}
}

func TestDissectRespectsTimestamp(t *testing.T) {
	data := buildEthernetIPv4TCP(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), 1, 2, 0x10)
	frame := &model.RawFrame{TimestampSec: 1700000000, TimestampUsec: 500000, CapturedLen: len(data), WireLen: len(data), Data: data}
	rec := Dissect(frame)
	if rec.Timestamp.Unix() != 1700000000 {
		t.Fatalf("timestamp seconds = %d", rec.Timestamp.Unix())
	}
}
