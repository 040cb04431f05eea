// Package model holds the value types shared by the capture source,
// dissector registry, pipeline, and controller: RawFrame, PacketRecord,
// LayerRecord, CaptureStats, and CaptureConfig.
package model

import "time"

// RawFrame is an immutable capture unit handed from the capture source
// to the pipeline. The producer never mutates Data after it is returned
// from PollBatch; ownership passes to the caller for the duration of one
// dissect step.
type RawFrame struct {
	TimestampSec  int64
	TimestampUsec int64
	CapturedLen   int
	WireLen       int
	Data          []byte
	// Raw is the pool-owned backing buffer for Data, if the capture
	// source allocated one. Dissect carries it through to the resulting
	// PacketRecord so the controller can release it back to the pool
	// once every observer in a batch delivery has seen it (the pipeline
	// releases it itself for frames it drops). Nil for frames
	// built directly (e.g. in tests) without a pool.
	Raw *SharedBytes
}

// Timestamp returns the frame's capture time in UTC.
func (f RawFrame) Timestamp() time.Time {
	return time.Unix(f.TimestampSec, f.TimestampUsec*1000).UTC()
}
