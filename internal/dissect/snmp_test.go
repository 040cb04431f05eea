package dissect

import "testing"

func encodeBERLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	return []byte{0x81, byte(n)}
}

func buildSNMPGetRequest(community string) []byte {
	version := []byte{berTagInteger, 1, 0} // v1
	comm := append([]byte{berTagOctetStr}, encodeBERLength(len(community))...)
	comm = append(comm, community...)
	pdu := []byte{snmpPDUGetRequest, 0} // empty PDU body

	var inner []byte
	inner = append(inner, version...)
	inner = append(inner, comm...)
	inner = append(inner, pdu...)

	outer := append([]byte{berTagSequence}, encodeBERLength(len(inner))...)
	outer = append(outer, inner...)
	return outer
}

func TestSNMPGetRequest(t *testing.T) {
	buf := buildSNMPGetRequest("public")
	layer, result, err := SNMP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	if result.Community != "public" {
		t.Fatalf("community = %q", result.Community)
	}
	if result.PDUType != "GetRequest" {
		t.Fatalf("pdu type = %q", result.PDUType)
	}
	found := false
	for _, w := range layer.Warnings {
		if w == "default_community_string" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected default_community_string warning for 'public'")
	}
	if got := SNMPSummary(result); got != "SNMP GetRequest (v1)" {
		t.Fatalf("summary = %q", got)
	}
}

func TestSNMPTruncated(t *testing.T) {
	layer, _, err := SNMP([]byte{berTagSequence})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !layer.Truncated() {
		t.Fatal("expected truncation")
	}
}

func encodeBERInt(v byte) []byte {
	return []byte{berTagInteger, 1, v}
}

// buildSNMPFullPDU assembles a v2c message with request-id, error-status,
// error-index, and a two-element varbind list, for the given PDU tag.
func buildSNMPFullPDU(pduTag byte) []byte {
	version := []byte{berTagInteger, 1, 1} // v2c
	community := "public"
	comm := append([]byte{berTagOctetStr}, encodeBERLength(len(community))...)
	comm = append(comm, community...)

	varbind := []byte{berTagSequence, 2, berTagNull, 0}
	varbinds := append([]byte{berTagSequence}, encodeBERLength(len(varbind)*2)...)
	varbinds = append(varbinds, varbind...)
	varbinds = append(varbinds, varbind...)

	var pduBody []byte
	pduBody = append(pduBody, encodeBERInt(7)...)  // request-id
	pduBody = append(pduBody, encodeBERInt(0)...)  // error-status: noError
	pduBody = append(pduBody, encodeBERInt(0)...)  // error-index
	pduBody = append(pduBody, varbinds...)

	pdu := append([]byte{pduTag}, encodeBERLength(len(pduBody))...)
	pdu = append(pdu, pduBody...)

	var inner []byte
	inner = append(inner, version...)
	inner = append(inner, comm...)
	inner = append(inner, pdu...)

	outer := append([]byte{berTagSequence}, encodeBERLength(len(inner))...)
	outer = append(outer, inner...)
	return outer
}

func TestSNMPGetBulkRequestFields(t *testing.T) {
	buf := buildSNMPFullPDU(snmpPDUGetBulkRequest)
	layer, result, err := SNMP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	if result.PDUType != "GetBulkRequest" {
		t.Fatalf("pdu type = %q, want GetBulkRequest", result.PDUType)
	}
	want := map[string]string{
		"request_id":    "7",
		"error_status":  "0 (noError)",
		"error_index":   "0",
		"varbind_count": "2",
	}
	got := map[string]string{}
	for _, f := range layer.Fields {
		got[f.Label] = f.Value
	}
	for label, v := range want {
		if got[label] != v {
			t.Fatalf("%s = %q, want %q", label, got[label], v)
		}
	}
}

func TestSNMPSetRequestWarnsOnSet(t *testing.T) {
	buf := buildSNMPFullPDU(snmpPDUSetRequest)
	layer, _, err := SNMP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, w := range layer.Warnings {
		if w == "snmp_set_operation" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected snmp_set_operation warning for SetRequest")
	}
}

func TestSNMPPDUTypeNamesCoverA5ToA8(t *testing.T) {
	for tag, name := range map[byte]string{
		snmpPDUGetBulkRequest: "GetBulkRequest",
		snmpPDUInformRequest:  "InformRequest",
		snmpPDUTrapV2:         "SNMPv2-Trap",
		snmpPDUReport:         "Report",
	} {
		if snmpPDUTypeName(tag) != name {
			t.Fatalf("snmpPDUTypeName(0x%02x) = %q, want %q", tag, snmpPDUTypeName(tag), name)
		}
	}
}

func TestSNMPv3PayloadIsOpaque(t *testing.T) {
	version := []byte{berTagInteger, 1, 3} // v3
	inner := version
	// any trailing bytes stand in for msgGlobalData/msgSecurityParameters/
	// ScopedPDU, none of which SNMP() attempts to parse for v3.
	inner = append(inner, 0xaa, 0xbb, 0xcc)
	outer := append([]byte{berTagSequence}, encodeBERLength(len(inner))...)
	outer = append(outer, inner...)

	layer, result, err := SNMP(outer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatal("v3 detection must not be reported as truncation")
	}
	if result.Version != 3 {
		t.Fatalf("version = %d, want 3", result.Version)
	}
	if result.Community != "" {
		t.Fatalf("community = %q, want empty for v3", result.Community)
	}
	found := false
	for _, w := range layer.Warnings {
		if w == "snmpv3 payload opaque: msgSecurityParameters/ScopedPDU not decoded" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an opaque-payload warning for v3")
	}
	if got := SNMPSummary(result); got != "SNMP v3" {
		t.Fatalf("summary = %q, want \"SNMP v3\"", got)
	}
}
