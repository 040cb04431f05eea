package dissect

import (
	"fmt"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

const (
	tlsContentTypeHandshake = 22
	tlsHandshakeClientHello = 1
	tlsHandshakeServerHello = 2
)

// Cipher suites considered weak for the summary warning (spec.md §4.2):
// RC4 and NULL-encryption suites.
var weakTLSCipherSuites = map[uint16]string{
	0x0004: "TLS_RSA_WITH_RC4_128_MD5",
	0x0005: "TLS_RSA_WITH_RC4_128_SHA",
	0x0000: "TLS_NULL_WITH_NULL_NULL",
}

// TLSResult carries the handshake summary fields.
type TLSResult struct {
	IsClientHello bool
	IsServerHello bool
	SNI           string
	WeakCipher    string
}

// TLS decodes the 5-byte record header and, for handshake records,
// walks into ClientHello/ServerHello to extract the version, a cipher
// suite list (ClientHello) or chosen suite (ServerHello), and the SNI
// extension (spec.md §4.2). Anything beyond the first handshake message
// in the record is left undissected.
func TLS(buf []byte) (model.LayerRecord, TLSResult, error) {
	layer := model.LayerRecord{Name: "TLS"}
	c := newCursor(buf)

	contentType, err := c.u8()
	if err != nil {
		truncate(&layer, "content_type")
		return finishTLS(&layer, c), TLSResult{}, nil
	}
	verMajor, err := c.u8()
	if err != nil {
		truncate(&layer, "version_major")
		return finishTLS(&layer, c), TLSResult{}, nil
	}
	verMinor, err := c.u8()
	if err != nil {
		truncate(&layer, "version_minor")
		return finishTLS(&layer, c), TLSResult{}, nil
	}
	recLen, err := c.u16()
	if err != nil {
		truncate(&layer, "length")
		return finishTLS(&layer, c), TLSResult{}, nil
	}
	layer.AddField("content_type", tlsContentTypeName(contentType))
	layer.AddField("version", tlsVersionName(verMajor, verMinor))
	layer.AddField("length", fmt.Sprintf("%d", recLen))

	if contentType != tlsContentTypeHandshake {
		layer.Span = model.ByteSpan{Length: c.offset()}
		return layer, TLSResult{}, nil
	}

	body, err := c.take(int(recLen))
	if err != nil {
		layer.AddWarning("handshake body exceeds captured bytes")
		layer.Span = model.ByteSpan{Length: c.offset()}
		return layer, TLSResult{}, nil
	}

	result := parseTLSHandshake(&layer, body)
	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, result, nil
}

func parseTLSHandshake(layer *model.LayerRecord, body []byte) TLSResult {
	hc := newCursor(body)
	msgType, err := hc.u8()
	if err != nil {
		layer.AddWarning("truncated handshake header")
		return TLSResult{}
	}
	msgLen, err := hc.u24()
	if err != nil {
		layer.AddWarning("truncated handshake length")
		return TLSResult{}
	}
	msgBody, err := hc.take(int(msgLen))
	if err != nil {
		msgBody, _ = hc.take(hc.remaining())
		layer.AddWarning("handshake message shorter than declared")
	}

	switch msgType {
	case tlsHandshakeClientHello:
		layer.AddField("handshake_type", "ClientHello")
		sni, weak := parseClientHello(msgBody)
		if sni != "" {
			layer.AddField("sni", sni)
		}
		if weak != "" {
			layer.AddWarning("weak_cipher_offered: " + weak)
		}
		return TLSResult{IsClientHello: true, SNI: sni, WeakCipher: weak}
	case tlsHandshakeServerHello:
		layer.AddField("handshake_type", "ServerHello")
		weak := parseServerHello(msgBody)
		if weak != "" {
			layer.AddWarning("weak_cipher_selected: " + weak)
		}
		return TLSResult{IsServerHello: true, WeakCipher: weak}
	default:
		layer.AddField("handshake_type", fmt.Sprintf("%d", msgType))
		return TLSResult{}
	}
}

func parseClientHello(body []byte) (sni string, weakCipher string) {
	c := newCursor(body)
	if _, err := c.take(2); err != nil { // client_version
		return "", ""
	}
	if _, err := c.take(32); err != nil { // random
		return "", ""
	}
	sessionIDLen, err := c.u8()
	if err != nil {
		return "", ""
	}
	if _, err := c.take(int(sessionIDLen)); err != nil {
		return "", ""
	}
	cipherSuitesLen, err := c.u16()
	if err != nil {
		return "", ""
	}
	cipherBytes, err := c.take(int(cipherSuitesLen))
	if err != nil {
		return "", ""
	}
	for i := 0; i+1 < len(cipherBytes); i += 2 {
		suite := uint16(cipherBytes[i])<<8 | uint16(cipherBytes[i+1])
		if name, ok := weakTLSCipherSuites[suite]; ok {
			weakCipher = name
		}
	}
	compLen, err := c.u8()
	if err != nil {
		return sni, weakCipher
	}
	if _, err := c.take(int(compLen)); err != nil {
		return sni, weakCipher
	}
	if c.eof() {
		return sni, weakCipher
	}
	extTotalLen, err := c.u16()
	if err != nil {
		return sni, weakCipher
	}
	extBytes, err := c.take(int(extTotalLen))
	if err != nil {
		extBytes, _ = c.take(c.remaining())
	}
	sni = extractSNI(extBytes)
	return sni, weakCipher
}

func parseServerHello(body []byte) (weakCipher string) {
	c := newCursor(body)
	if _, err := c.take(2); err != nil {
		return ""
	}
	if _, err := c.take(32); err != nil {
		return ""
	}
	sessionIDLen, err := c.u8()
	if err != nil {
		return ""
	}
	if _, err := c.take(int(sessionIDLen)); err != nil {
		return ""
	}
	suite, err := c.u16()
	if err != nil {
		return ""
	}
	if name, ok := weakTLSCipherSuites[suite]; ok {
		return name
	}
	return ""
}

const tlsExtensionServerName = 0

func extractSNI(ext []byte) string {
	c := newCursor(ext)
	for !c.eof() {
		extType, err := c.u16()
		if err != nil {
			return ""
		}
		extLen, err := c.u16()
		if err != nil {
			return ""
		}
		extData, err := c.take(int(extLen))
		if err != nil {
			return ""
		}
		if extType != tlsExtensionServerName {
			continue
		}
		sc := newCursor(extData)
		if _, err := sc.u16(); err != nil { // server_name_list length
			return ""
		}
		for !sc.eof() {
			nameType, err := sc.u8()
			if err != nil {
				return ""
			}
			nameLen, err := sc.u16()
			if err != nil {
				return ""
			}
			name, err := sc.take(int(nameLen))
			if err != nil {
				return ""
			}
			if nameType == 0 {
				return string(name)
			}
		}
	}
	return ""
}

func tlsContentTypeName(t uint8) string {
	switch t {
	case 20:
		return "ChangeCipherSpec"
	case 21:
		return "Alert"
	case 22:
		return "Handshake"
	case 23:
		return "ApplicationData"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

func tlsVersionName(major, minor uint8) string {
	switch {
	case major == 3 && minor == 1:
		return "TLS 1.0"
	case major == 3 && minor == 2:
		return "TLS 1.1"
	case major == 3 && minor == 3:
		return "TLS 1.2"
	case major == 3 && minor == 4:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("%d.%d", major, minor)
	}
}

// TLSSummary builds the handshake summary line (spec.md §4.2).
func TLSSummary(r TLSResult) string {
	switch {
	case r.IsClientHello && r.SNI != "":
		return fmt.Sprintf("TLS ClientHello (SNI: %s)", r.SNI)
	case r.IsClientHello:
		return "TLS ClientHello"
	case r.IsServerHello:
		return "TLS ServerHello"
	default:
		return "TLS Record"
	}
}

func finishTLS(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
