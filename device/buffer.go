package device

import "sync"

// A device-resident float32 buffer. For the CPU backend residency is
// modeled as a private slice that host code can only observe through Read,
// which keeps the copy-from-device contract honest: once the buffer is
// freed, readback fails instead of returning stale data.
type Buffer struct {
	mu    sync.Mutex
	name  string
	data  []float32
	freed bool
}

func newBuffer(name string, elements int) *Buffer {
	return &Buffer{
		name: name,
		data: make([]float32, elements),
	}
}

// Get buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// Get buffer element count. Returns 0 after Free.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed {
		return 0
	}
	return len(b.data)
}

// Zero clears the accumulated contents.
func (b *Buffer) Zero() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed {
		return
	}
	for i := range b.data {
		b.data[i] = 0
	}
}

// Read copies device contents into dst. It returns false if the buffer has
// been freed or dst does not match the buffer size; callers treat that as
// "no data available this call".
func (b *Buffer) Read(dst []float32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed || len(dst) != len(b.data) {
		return false
	}
	copy(dst, b.data)
	return true
}

// Free releases the device allocation. Idempotent.
func (b *Buffer) Free() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	b.freed = true
}

// Freed reports whether the buffer has been released.
func (b *Buffer) Freed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freed
}

// update runs fn against the raw device storage while holding the buffer
// lock. Kernels write through short locked windows so accumulation never
// interleaves with a concurrent Read on the same memory. Returns false
// once the buffer has been freed.
func (b *Buffer) update(fn func(data []float32)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed {
		return false
	}
	fn(b.data)
	return true
}
