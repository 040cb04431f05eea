package dissect

import (
	"encoding/binary"
	"testing"
)

func buildDNSQuery(id uint16, qname string) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[0:], id)
	binary.BigEndian.PutUint16(buf[4:], 1) // qdcount
	for _, label := range splitDomain(qname) {
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}
	buf = append(buf, 0)
	qtype := make([]byte, 4)
	binary.BigEndian.PutUint16(qtype[0:], 1) // A
	binary.BigEndian.PutUint16(qtype[2:], 1) // IN
	buf = append(buf, qtype...)
	return buf
}

func splitDomain(name string) []string {
	var labels []string
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '.' {
			labels = append(labels, name[start:i])
			start = i + 1
		}
	}
	return labels
}

func TestDNSQuerySummary(t *testing.T) {
	buf := buildDNSQuery(0x1234, "example.com")
	layer, result, err := DNS(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	summary := DNSSummary(result)
	if summary != "DNS Query: 1 question(s)" {
		t.Fatalf("got %q", summary)
	}

	var qname, qtype string
	for _, f := range layer.Fields {
		if f.Label == "qname" {
			qname = f.Value
		}
		if f.Label == "qtype" {
			qtype = f.Value
		}
	}
	if qname != "example.com" {
		t.Fatalf("qname = %q", qname)
	}
	if qtype != "1" {
		t.Fatalf("qtype = %q", qtype)
	}
}

func TestDNSTruncatedHeader(t *testing.T) {
	layer, _, err := DNS([]byte{0x12, 0x34})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !layer.Truncated() {
		t.Fatal("expected truncation on short header")
	}
}

func TestDNSNameCompression(t *testing.T) {
	buf := buildDNSQuery(1, "example.com")
	// Append an answer whose name is a compression pointer to offset 12
	// (the start of the question's qname).
	answer := []byte{0xc0, 0x0c}
	answer = append(answer, 0, 1) // type A
	answer = append(answer, 0, 1) // class IN
	answer = append(answer, 0, 0, 0, 60) // ttl
	answer = append(answer, 0, 4) // rdlength
	answer = append(answer, 93, 184, 216, 34) // rdata (example.com's A record, illustrative)

	binary.BigEndian.PutUint16(buf[6:], 1) // ancount = 1
	buf = append(buf, answer...)

	layer, _, err := DNS(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	found := false
	for _, f := range layer.Fields {
		if len(f.Label) > 6 && f.Label[:6] == "answer" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an answer field")
	}
}

func TestDNSPointerLoopRejected(t *testing.T) {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[4:], 1)
	// A name that points at itself forms a loop; decodeDNSName rejects
	// any forward-or-equal pointer, so this must not hang.
	buf = append(buf, 0xc0, 12)
	layer, _, err := DNS(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !layer.Truncated() {
		t.Fatal("expected truncation on self-referential pointer")
	}
}
