package dissect

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

var sshMessageNames = map[uint8]string{
	20: "KEXINIT",
	21: "NEWKEYS",
	50: "USERAUTH_REQUEST",
	51: "USERAUTH_FAILURE",
	52: "USERAUTH_SUCCESS",
}

// SSHResult carries the fields needed for the summary line.
type SSHResult struct {
	VersionString string
	MessageType   string
}

// SSH recognizes the plaintext version-exchange line ("SSH-2.0-...")
// before encryption begins, and otherwise reports only the packet's
// message type byte once the binary packet protocol has started
// (spec.md §4.2) — payloads beyond that point are opaque ciphertext.
func SSH(buf []byte) (model.LayerRecord, SSHResult, error) {
	layer := model.LayerRecord{Name: "SSH"}

	if bytes.HasPrefix(buf, []byte("SSH-")) {
		end := bytes.IndexByte(buf, '\n')
		line := string(buf)
		if end >= 0 {
			line = string(buf[:end])
		} else {
			layer.AddWarning("version line not terminated within captured bytes")
		}
		line = strings.TrimRight(line, "\r")
		layer.AddField("version_string", line)
		span := len(line) + 1
		if span > len(buf) {
			span = len(buf)
		}
		layer.Span = model.ByteSpan{Length: span}
		return layer, SSHResult{VersionString: line}, nil
	}

	c := newCursor(buf)
	packetLen, err := c.u32()
	if err != nil {
		truncate(&layer, "packet_length")
		return finishSSH(&layer, c), SSHResult{}, nil
	}
	paddingLen, err := c.u8()
	if err != nil {
		truncate(&layer, "padding_length")
		return finishSSH(&layer, c), SSHResult{}, nil
	}
	msgType, err := c.u8()
	if err != nil {
		truncate(&layer, "message_type")
		return finishSSH(&layer, c), SSHResult{}, nil
	}

	layer.AddField("packet_length", fmt.Sprintf("%d", packetLen))
	layer.AddField("padding_length", fmt.Sprintf("%d", paddingLen))
	name := sshMessageName(msgType)
	layer.AddField("message_type", name)

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, SSHResult{MessageType: name}, nil
}

func sshMessageName(t uint8) string {
	if name, ok := sshMessageNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type=%d (encrypted)", t)
}

// SSHSummary builds the version-banner or message-type summary line.
func SSHSummary(r SSHResult) string {
	if r.VersionString != "" {
		return fmt.Sprintf("SSH %s", r.VersionString)
	}
	return fmt.Sprintf("SSH %s", r.MessageType)
}

func finishSSH(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
