package dissect

import "testing"

func buildClientHelloRecord(sni string, cipherSuite uint16) []byte {
	var body []byte
	body = append(body, 3, 3)               // client_version TLS 1.2
	body = append(body, make([]byte, 32)...) // random
	body = append(body, 0)                   // session_id_len
	body = append(body, byte(2>>8), byte(2)) // cipher_suites_len = 2
	body = append(body, byte(cipherSuite>>8), byte(cipherSuite))
	body = append(body, 1, 0) // compression_methods_len=1, method=0

	var ext []byte
	var sniExt []byte
	sniExt = append(sniExt, 0, byte(len(sni)+3)) // server_name_list len
	sniExt = append(sniExt, 0)                   // name_type = host_name
	sniExt = append(sniExt, byte(len(sni)>>8), byte(len(sni)))
	sniExt = append(sniExt, sni...)
	ext = append(ext, 0, 0) // extension type = server_name
	ext = append(ext, byte(len(sniExt)>>8), byte(len(sniExt)))
	ext = append(ext, sniExt...)

	body = append(body, byte(len(ext)>>8), byte(len(ext)))
	body = append(body, ext...)

	var handshake []byte
	handshake = append(handshake, tlsHandshakeClientHello)
	handshake = append(handshake, byte(len(body)>>16), byte(len(body)>>8), byte(len(body)))
	handshake = append(handshake, body...)

	var record []byte
	record = append(record, tlsContentTypeHandshake, 3, 3)
	record = append(record, byte(len(handshake)>>8), byte(len(handshake)))
	record = append(record, handshake...)
	return record
}

func TestTLSClientHelloSNI(t *testing.T) {
	buf := buildClientHelloRecord("example.com", 0xc02f)
	layer, result, err := TLS(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layer.Truncated() {
		t.Fatalf("unexpected truncation: %+v", layer.Warnings)
	}
	if result.SNI != "example.com" {
		t.Fatalf("sni = %q", result.SNI)
	}
	if got := TLSSummary(result); got != "TLS ClientHello (SNI: example.com)" {
		t.Fatalf("summary = %q", got)
	}
}

func TestTLSWeakCipherWarning(t *testing.T) {
	buf := buildClientHelloRecord("example.com", 0x0004) // RC4/MD5
	layer, result, err := TLS(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WeakCipher == "" {
		t.Fatal("expected weak cipher detected")
	}
	found := false
	for _, w := range layer.Warnings {
		if len(w) >= len("weak_cipher_offered") && w[:len("weak_cipher_offered")] == "weak_cipher_offered" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected weak cipher warning, got %+v", layer.Warnings)
	}
}

func TestTLSTruncatedRecordHeader(t *testing.T) {
	layer, _, err := TLS([]byte{22, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !layer.Truncated() {
		t.Fatal("expected truncation")
	}
}
