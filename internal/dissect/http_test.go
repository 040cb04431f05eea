package dissect

import "testing"

func TestHTTPRequestLine(t *testing.T) {
	buf := []byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\nAuthorization: Bearer secret\r\n\r\n")
	layer, result, err := HTTP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := HTTPSummary(result); got != "GET /index.html" {
		t.Fatalf("summary = %q", got)
	}
	var authValue string
	for _, f := range layer.Fields {
		if f.Label == "header:Authorization" {
			authValue = f.Value
		}
	}
	if authValue != "<redacted>" {
		t.Fatalf("authorization header not redacted: %q", authValue)
	}
}

func TestHTTPStatusLine(t *testing.T) {
	buf := []byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")
	_, result, err := HTTP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := HTTPSummary(result); got != "HTTP 404" {
		t.Fatalf("summary = %q", got)
	}
}

func TestHTTPUnterminatedHeaders(t *testing.T) {
	buf := []byte("GET / HTTP/1.1\r\nHost: example.com")
	layer, _, err := HTTP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, w := range layer.Warnings {
		if w == "header block not terminated within captured bytes" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unterminated-header warning, got %+v", layer.Warnings)
	}
}
