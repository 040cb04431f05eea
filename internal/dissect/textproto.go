package dissect

import (
	"fmt"
	"strings"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// Commands whose arguments are redacted before being recorded, one set
// per line-oriented protocol (spec.md §4.2).
var sensitiveTextCommands = map[string]map[string]bool{
	"FTP": {
		"PASS": true,
		"USER": true,
		"ACCT": true,
		"AUTH": true,
		"ADAT": true,
		"PROT": true,
		"PBSZ": true,
		"CCC":  true,
	},
	"SMTP": {
		"AUTH":  true,
		"PASS":  true,
		"LOGIN": true,
	},
	"IMAP": {
		"LOGIN": true,
		"AUTH":  true,
	},
}

// TextProtoResult carries the first command/reply line for the summary.
type TextProtoResult struct {
	Protocol string
	Line     string
}

// isPrintableASCII gates all three line-oriented dissectors: binary
// payloads on these ports are left undissected rather than garbled
// into fields (spec.md §4.2).
func isPrintableASCII(buf []byte) bool {
	for _, b := range buf {
		if b == '\r' || b == '\n' || b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}

func splitCRLFLines(buf []byte) []string {
	s := string(buf)
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\r\n")
}

// FTP decodes CRLF-delimited command/reply lines, redacting the
// arguments of PASS, USER, ACCT, AUTH, ADAT, PROT, PBSZ and CCC
// (spec.md §4.2).
func FTP(buf []byte) (model.LayerRecord, TextProtoResult, error) {
	return textProtoLines("FTP", buf)
}

// SMTP decodes CRLF-delimited command/reply lines, redacting AUTH, PASS
// and LOGIN arguments.
func SMTP(buf []byte) (model.LayerRecord, TextProtoResult, error) {
	return textProtoLines("SMTP", buf)
}

// IMAP decodes CRLF-delimited tagged command/reply lines, redacting
// LOGIN and AUTH arguments.
func IMAP(buf []byte) (model.LayerRecord, TextProtoResult, error) {
	return textProtoLines("IMAP", buf)
}

func textProtoLines(name string, buf []byte) (model.LayerRecord, TextProtoResult, error) {
	layer := model.LayerRecord{Name: name}

	if !isPrintableASCII(buf) {
		layer.AddWarning("binary payload: not dissected as " + name)
		return layer, TextProtoResult{}, nil
	}

	lines := splitCRLFLines(buf)
	if len(lines) == 0 {
		layer.AddWarning("empty")
		return layer, TextProtoResult{}, nil
	}

	first := redactTextLine(name, lines[0])
	layer.AddField("line[0]", first)
	for i, line := range lines[1:] {
		layer.AddField(fmt.Sprintf("line[%d]", i+1), redactTextLine(name, line))
	}

	layer.Span = model.ByteSpan{Length: len(buf)}
	return layer, TextProtoResult{Protocol: name, Line: first}, nil
}

func redactTextLine(protocol, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return line
	}
	command := strings.ToUpper(fields[0])
	// IMAP commands carry a leading tag, so check the second token too.
	checkIdx := 0
	if protocol == "IMAP" && len(fields) > 1 {
		command = strings.ToUpper(fields[1])
		checkIdx = 1
	}
	if sensitiveTextCommands[protocol][command] {
		kept := fields[:checkIdx+1]
		return strings.Join(kept, " ") + " <redacted>"
	}
	return line
}

// TextProtoSummary builds "<PROTO> <first line>" for the summary line.
func TextProtoSummary(r TextProtoResult) string {
	return fmt.Sprintf("%s %s", r.Protocol, r.Line)
}
