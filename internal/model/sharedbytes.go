package model

import "sync/atomic"

// SharedBytes is a reference-counted view over a captured frame's bytes.
// The capture source owns the backing array until handoff; from the
// moment a PacketRecord is assembled, SharedBytes is read-only and may be
// aliased by every LayerRecord's byte span without copying.
//
// This is the "reference-counted byte buffer... so dissectors and
// observers can share views without copying" infrastructure called for
// in spec.md §9; no pack dependency models this, so it is implemented
// directly against sync/atomic.
type SharedBytes struct {
	data     []byte
	refcount atomic.Int32
	release  func([]byte)
}

// NewSharedBytes wraps data with an initial reference count of one. If
// release is non-nil, it is invoked exactly once, when the reference
// count drops to zero, so a pool can reclaim the backing array.
func NewSharedBytes(data []byte, release func([]byte)) *SharedBytes {
	s := &SharedBytes{data: data, release: release}
	s.refcount.Store(1)
	return s
}

// Bytes returns the underlying slice. Callers must not mutate it.
func (s *SharedBytes) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.data
}

// Len reports the length of the underlying slice.
func (s *SharedBytes) Len() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}

// Retain increments the reference count. Call once per new owner (e.g.
// once per observer a batch is fanned out to, if an observer intends to
// hold the batch past delivery).
func (s *SharedBytes) Retain() {
	if s == nil {
		return
	}
	s.refcount.Add(1)
}

// Release decrements the reference count, invoking the release callback
// once it reaches zero. Safe to call from any goroutine.
func (s *SharedBytes) Release() {
	if s == nil {
		return
	}
	if s.refcount.Add(-1) == 0 && s.release != nil {
		s.release(s.data)
		s.data = nil
	}
}
