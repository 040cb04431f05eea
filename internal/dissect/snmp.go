package dissect

import (
	"fmt"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// ASN.1 BER universal tags and SNMP application tags used by the PDU
// walk below (spec.md §4.2).
const (
	berTagInteger  = 0x02
	berTagOctetStr = 0x04
	berTagNull     = 0x05
	berTagOID      = 0x06
	berTagSequence = 0x30

	snmpVersion3 = 3

	snmpPDUGetRequest     = 0xa0
	snmpPDUGetNextRequest = 0xa1
	snmpPDUGetResponse    = 0xa2
	snmpPDUSetRequest     = 0xa3
	snmpPDUTrapV1         = 0xa4
	snmpPDUGetBulkRequest = 0xa5
	snmpPDUInformRequest  = 0xa6
	snmpPDUTrapV2         = 0xa7
	snmpPDUReport         = 0xa8
)

var snmpPDUTypeNames = map[byte]string{
	snmpPDUGetRequest:     "GetRequest",
	snmpPDUGetNextRequest: "GetNextRequest",
	snmpPDUGetResponse:    "GetResponse",
	snmpPDUSetRequest:     "SetRequest",
	snmpPDUTrapV1:         "Trap",
	snmpPDUGetBulkRequest: "GetBulkRequest",
	snmpPDUInformRequest:  "InformRequest",
	snmpPDUTrapV2:         "SNMPv2-Trap",
	snmpPDUReport:         "Report",
}

// snmpErrorStatusNames names RFC 3416's error-status values 0..18.
var snmpErrorStatusNames = [...]string{
	"noError", "tooBig", "noSuchName", "badValue", "readOnly", "genErr",
	"noAccess", "wrongType", "wrongLength", "wrongEncoding", "wrongValue",
	"noCreation", "inconsistentValue", "resourceUnavailable", "commitFailed",
	"undoFailed", "authorizationError", "notWritable", "inconsistentName",
}

func snmpErrorStatusName(v int) string {
	if v < 0 || v >= len(snmpErrorStatusNames) {
		return "unknown"
	}
	return snmpErrorStatusNames[v]
}

// SNMPResult carries the version/community/PDU type for the summary.
type SNMPResult struct {
	Version   int
	Community string
	PDUType   string
}

// berTLV is one decoded ASN.1 BER tag-length-value triple.
type berTLV struct {
	tag   byte
	value []byte
}

// readBERTLV reads one TLV using the short/long-form length encoding
// from ASN.1 BER (spec.md §4.2): a length byte with the high bit set
// declares how many following bytes hold a big-endian length value.
func readBERTLV(c *cursor) (berTLV, error) {
	tag, err := c.u8()
	if err != nil {
		return berTLV{}, errTruncated
	}
	lenByte, err := c.u8()
	if err != nil {
		return berTLV{}, errTruncated
	}
	var length int
	if lenByte&0x80 == 0 {
		length = int(lenByte)
	} else {
		numBytes := int(lenByte & 0x7f)
		if numBytes == 0 || numBytes > 4 {
			return berTLV{}, errTruncated
		}
		lb, err := c.take(numBytes)
		if err != nil {
			return berTLV{}, errTruncated
		}
		for _, b := range lb {
			length = length<<8 | int(b)
		}
	}
	value, err := c.take(length)
	if err != nil {
		return berTLV{}, errTruncated
	}
	return berTLV{tag: tag, value: value}, nil
}

// readSNMPInt reads one TLV and reports its value only if tagged INTEGER.
// The TLV is consumed whether or not it matches, so a non-INTEGER element
// is skipped and the next call reads the element after it.
func readSNMPInt(c *cursor) (int, bool) {
	tlv, err := readBERTLV(c)
	if err != nil || tlv.tag != berTagInteger || len(tlv.value) == 0 {
		return 0, false
	}
	v := 0
	for _, b := range tlv.value {
		v = v<<8 | int(b)
	}
	return v, true
}

// countSNMPVarbinds counts the top-level TLVs in a variable-bindings
// SEQUENCE's content, each one a whole VarBind (spec.md §4.2: "varbind
// count, no full value decode required").
func countSNMPVarbinds(data []byte) int {
	c := newCursor(data)
	n := 0
	for {
		_, err := readBERTLV(c)
		if err != nil {
			break
		}
		n++
	}
	return n
}

// snmpExtractPDUFields pulls request-id/error-status/error-index/
// varbind-count out of the PDU body. The classic v1 Trap-PDU (0xA4) has
// no request-id/error-status/error-index fields at all (enterprise OID,
// agent-addr, generic-trap, specific-trap, time-stamp, then the varbind
// list), so it only reports the varbind count, taken from the PDU's last
// top-level element.
func snmpExtractPDUFields(layer *model.LayerRecord, pduTag byte, pduValue []byte) {
	if pduTag == snmpPDUTrapV1 {
		c := newCursor(pduValue)
		var last berTLV
		for {
			tlv, err := readBERTLV(c)
			if err != nil {
				break
			}
			last = tlv
		}
		if last.tag == berTagSequence {
			layer.AddField("varbind_count", fmt.Sprintf("%d", countSNMPVarbinds(last.value)))
		}
		return
	}

	c := newCursor(pduValue)
	if v, ok := readSNMPInt(c); ok {
		layer.AddField("request_id", fmt.Sprintf("%d", v))
	}
	if v, ok := readSNMPInt(c); ok {
		layer.AddField("error_status", fmt.Sprintf("%d (%s)", v, snmpErrorStatusName(v)))
	}
	if v, ok := readSNMPInt(c); ok {
		layer.AddField("error_index", fmt.Sprintf("%d", v))
	}
	if varbinds, err := readBERTLV(c); err == nil && varbinds.tag == berTagSequence {
		layer.AddField("varbind_count", fmt.Sprintf("%d", countSNMPVarbinds(varbinds.value)))
	}
}

// SNMP decodes the outer SEQUENCE, version, community string (v1/v2c
// only — a v3 message's msgSecurityParameters/ScopedPDU are opaque and
// left undecoded), and the PDU type tag plus its request-id/
// error-status/error-index/varbind-count fields (spec.md §4.2).
func SNMP(buf []byte) (model.LayerRecord, SNMPResult, error) {
	layer := model.LayerRecord{Name: "SNMP"}
	c := newCursor(buf)

	outer, err := readBERTLV(c)
	if err != nil || outer.tag != berTagSequence {
		truncate(&layer, "outer sequence")
		return layer, SNMPResult{}, nil
	}
	inner := newCursor(outer.value)

	verTLV, err := readBERTLV(inner)
	if err != nil || verTLV.tag != berTagInteger || len(verTLV.value) == 0 {
		truncate(&layer, "version")
		return layer, SNMPResult{}, nil
	}
	version := int(verTLV.value[0])
	layer.AddField("version", fmt.Sprintf("%d", version))

	if version == snmpVersion3 {
		layer.AddWarning("snmpv3 payload opaque: msgSecurityParameters/ScopedPDU not decoded")
		layer.Span = model.ByteSpan{Length: c.offset()}
		return layer, SNMPResult{Version: version}, nil
	}

	commTLV, err := readBERTLV(inner)
	if err != nil || commTLV.tag != berTagOctetStr {
		truncate(&layer, "community")
		return layer, SNMPResult{Version: version}, nil
	}
	community := string(commTLV.value)
	layer.AddField("community", community)
	if community == "public" || community == "private" {
		layer.AddWarning("default_community_string")
	}

	pduTLV, err := readBERTLV(inner)
	if err != nil {
		truncate(&layer, "pdu")
		return layer, SNMPResult{Version: version, Community: community}, nil
	}
	pduName := snmpPDUTypeName(pduTLV.tag)
	layer.AddField("pdu_type", pduName)
	if pduTLV.tag == snmpPDUSetRequest {
		layer.AddWarning("snmp_set_operation")
	}
	snmpExtractPDUFields(&layer, pduTLV.tag, pduTLV.value)

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, SNMPResult{Version: version, Community: community, PDUType: pduName}, nil
}

func snmpPDUTypeName(tag byte) string {
	if name, ok := snmpPDUTypeNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", tag)
}

// snmpVersionName renders the raw version field per spec.md §4.2's
// 0=v1/1=v2c/3=v3 encoding, which is not a zero-based sequential scheme.
func snmpVersionName(version int) string {
	switch version {
	case 0:
		return "v1"
	case 1:
		return "v2c"
	case snmpVersion3:
		return "v3"
	default:
		return fmt.Sprintf("v?(%d)", version)
	}
}

// SNMPSummary builds "SNMP <PDUType> (<version>)" (spec.md §4.2).
func SNMPSummary(r SNMPResult) string {
	if r.PDUType == "" {
		return fmt.Sprintf("SNMP %s", snmpVersionName(r.Version))
	}
	return fmt.Sprintf("SNMP %s (%s)", r.PDUType, snmpVersionName(r.Version))
}
