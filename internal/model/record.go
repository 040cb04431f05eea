package model

import "time"

// Field is one (label, value) pair within a LayerRecord, order preserved
// as decoded.
type Field struct {
	Label string
	Value string
}

// ByteSpan locates a layer's bytes within the owning PacketRecord's Raw
// buffer.
type ByteSpan struct {
	Offset int
	Length int
}

// LayerState marks whether a LayerRecord decoded cleanly or was cut
// short by a bounds check.
type LayerState uint8

const (
	// LayerOK means every field in the layer decoded successfully.
	LayerOK LayerState = iota
	// LayerTruncated means decoding stopped early on a bounds check;
	// the layer's Fields holds everything decoded up to that point and
	// no further layer exists in the record (invariant 4, spec §8).
	LayerTruncated
)

// LayerRecord is one parsed protocol layer, outer layers first within a
// PacketRecord.
type LayerRecord struct {
	Name     string
	Fields   []Field
	Span     ByteSpan
	State    LayerState
	Warnings []string
}

// AddField appends a decoded (label, value) pair in decode order.
func (l *LayerRecord) AddField(label, value string) {
	l.Fields = append(l.Fields, Field{Label: label, Value: value})
}

// AddWarning records a malformation, weak-crypto, or credential-exposure
// note against the layer without failing the parse.
func (l *LayerRecord) AddWarning(w string) {
	l.Warnings = append(l.Warnings, w)
}

// Truncated reports whether this layer's decode was cut short.
func (l *LayerRecord) Truncated() bool {
	return l.State == LayerTruncated
}

// PacketRecord is the pipeline's output unit: one fully (or gracefully
// partially) dissected frame.
type PacketRecord struct {
	Serial         uint64
	Timestamp      time.Time
	WireLength     int
	CapturedLength int
	SrcAddr        string
	DstAddr        string
	TopProtocol    string
	SummaryLine    string
	Layers         []LayerRecord
	Raw            *SharedBytes
}

// LastLayer returns the record's innermost decoded layer, or nil if no
// layer was produced (which never happens for an emitted record, but
// callers inspecting partial state during assembly may see this).
func (p *PacketRecord) LastLayer() *LayerRecord {
	if len(p.Layers) == 0 {
		return nil
	}
	return &p.Layers[len(p.Layers)-1]
}

// Truncated reports whether the record's last layer was cut short.
func (p *PacketRecord) Truncated() bool {
	last := p.LastLayer()
	return last != nil && last.State == LayerTruncated
}
