package dissect

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

var sensitiveHeaderNames = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"proxy-authorization": true,
}

// HTTPResult carries enough for the summary line.
type HTTPResult struct {
	IsRequest  bool
	Method     string
	Path       string
	StatusCode string
}

// HTTP decodes the request or status line and enumerates header names
// (values for sensitive headers are redacted per spec.md §4.2). Only
// the head is parsed; body bytes are left alone.
func HTTP(buf []byte) (model.LayerRecord, HTTPResult, error) {
	layer := model.LayerRecord{Name: "HTTP"}

	headEnd := bytes.Index(buf, []byte("\r\n\r\n"))
	head := buf
	if headEnd >= 0 {
		head = buf[:headEnd]
	}
	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		truncate(&layer, "start_line")
		return layer, HTTPResult{}, nil
	}

	startLine := lines[0]
	result := HTTPResult{}
	if strings.HasPrefix(startLine, "HTTP/") {
		fields := strings.SplitN(startLine, " ", 3)
		if len(fields) >= 2 {
			result.StatusCode = fields[1]
			layer.AddField("status_line", startLine)
		} else {
			layer.AddWarning("malformed status line")
		}
	} else {
		fields := strings.SplitN(startLine, " ", 3)
		if len(fields) >= 2 {
			result.IsRequest = true
			result.Method = fields[0]
			result.Path = fields[1]
			layer.AddField("request_line", startLine)
		} else {
			layer.AddWarning("malformed request line")
		}
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if sensitiveHeaderNames[strings.ToLower(name)] {
			value = "<redacted>"
			layer.AddWarning(fmt.Sprintf("sensitive_header: %s", name))
		}
		layer.AddField("header:"+name, value)
	}

	if headEnd < 0 {
		layer.AddWarning("header block not terminated within captured bytes")
		layer.Span = model.ByteSpan{Length: len(buf)}
	} else {
		layer.Span = model.ByteSpan{Length: headEnd + 4}
	}
	return layer, result, nil
}

// HTTPSummary builds "GET /path" or "HTTP 200" style summaries.
func HTTPSummary(r HTTPResult) string {
	if r.IsRequest {
		return fmt.Sprintf("%s %s", r.Method, r.Path)
	}
	return fmt.Sprintf("HTTP %s", r.StatusCode)
}
