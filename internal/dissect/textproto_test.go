package dissect

import (
	"strings"
	"testing"
)

func TestFTPPasswordRedacted(t *testing.T) {
	buf := []byte("USER anonymous\r\nPASS hunter2\r\n")
	layer, result, err := FTP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Line != "USER <redacted>" {
		t.Fatalf("first line = %q", result.Line)
	}
	var passLine string
	for _, f := range layer.Fields {
		if f.Label == "line[1]" {
			passLine = f.Value
		}
	}
	if passLine != "PASS <redacted>" {
		t.Fatalf("line[1] = %q, want PASS argument redacted", passLine)
	}
	if strings.Contains(passLine, "hunter2") {
		t.Fatal("password argument must not appear verbatim")
	}
}

func TestFTPAccountAndProtectionCommandsRedacted(t *testing.T) {
	for _, cmd := range []string{"ACCT", "ADAT", "PROT", "PBSZ", "CCC"} {
		buf := []byte(cmd + " secretarg\r\n")
		layer, _, err := FTP(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var line string
		for _, f := range layer.Fields {
			if f.Label == "line[0]" {
				line = f.Value
			}
		}
		if line != cmd+" <redacted>" {
			t.Fatalf("%s: line = %q", cmd, line)
		}
	}
}

func TestSMTPAuthRedacted(t *testing.T) {
	buf := []byte("AUTH PLAIN AGFsaWNlAHNlY3JldA==\r\n")
	layer, _, err := SMTP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var line string
	for _, f := range layer.Fields {
		if f.Label == "line[0]" {
			line = f.Value
		}
	}
	if line != "AUTH <redacted>" {
		t.Fatalf("line = %q", line)
	}
}

func TestSMTPPassRedacted(t *testing.T) {
	buf := []byte("PASS hunter2\r\n")
	layer, _, err := SMTP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var line string
	for _, f := range layer.Fields {
		if f.Label == "line[0]" {
			line = f.Value
		}
	}
	if line != "PASS <redacted>" {
		t.Fatalf("line = %q", line)
	}
}

func TestIMAPLoginRedacted(t *testing.T) {
	buf := []byte("a1 LOGIN alice secretpass\r\n")
	layer, _, err := IMAP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var line string
	for _, f := range layer.Fields {
		if f.Label == "line[0]" {
			line = f.Value
		}
	}
	if line != "a1 LOGIN <redacted>" {
		t.Fatalf("line = %q", line)
	}
}

func TestTextProtoBinaryPayloadSkipped(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x02, 0xff}
	layer, result, err := FTP(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Line != "" {
		t.Fatalf("expected no decoded line for binary payload, got %q", result.Line)
	}
	if len(layer.Warnings) == 0 {
		t.Fatal("expected a warning for binary payload")
	}
}
