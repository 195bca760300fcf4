package history

import "fmt"

// Buffer is a fixed-capacity ring of float64 samples with drop-oldest
// overflow semantics. The backing slice holds one slot more than the usable
// capacity so that a full buffer and an empty buffer have distinct
// read/write index configurations.
type Buffer struct {
	data  []float64
	read  int
	write int
}

// New returns an empty Buffer retaining at most capacity samples.
func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("history: capacity must be at least 1, got %d", capacity)
	}
	return &Buffer{data: make([]float64, capacity+1)}, nil
}

// Capacity returns the maximum number of samples the buffer retains.
func (b *Buffer) Capacity() int {
	return len(b.data) - 1
}

// Len returns the number of samples currently stored.
func (b *Buffer) Len() int {
	n := b.write - b.read
	if n < 0 {
		n += len(b.data)
	}
	return n
}

// Free returns the number of samples that can be pushed before the oldest
// stored sample is evicted.
func (b *Buffer) Free() int {
	return b.Capacity() - b.Len()
}

// Full reports whether the buffer holds Capacity samples.
func (b *Buffer) Full() bool {
	return b.Len() == b.Capacity()
}

// Push appends samples, evicting the oldest stored samples as needed. When
// len(samples) exceeds the capacity only the most recent Capacity samples
// are stored. It returns the number of samples actually written.
func (b *Buffer) Push(samples []float64) int {
	if len(samples) == 0 {
		return 0
	}
	if c := b.Capacity(); len(samples) > c {
		samples = samples[len(samples)-c:]
	}
	if over := len(samples) - b.Free(); over > 0 {
		b.discard(over)
	}
	n := len(samples)
	first := len(b.data) - b.write
	if first > n {
		first = n
	}
	copy(b.data[b.write:], samples[:first])
	copy(b.data, samples[first:])
	b.write = (b.write + n) % len(b.data)
	return n
}

// Snapshot copies the stored samples oldest-to-newest into dst and returns
// the number of samples copied, min(len(dst), Len()). When the buffer holds
// more samples than dst can take, the oldest are copied first.
func (b *Buffer) Snapshot(dst []float64) int {
	n := b.Len()
	if n > len(dst) {
		n = len(dst)
	}
	first := len(b.data) - b.read
	if first > n {
		first = n
	}
	copy(dst, b.data[b.read:b.read+first])
	copy(dst[first:], b.data[:n-first])
	return n
}

// Reset discards all stored samples.
func (b *Buffer) Reset() {
	b.read = 0
	b.write = 0
}

// discard drops the n oldest samples. Callers guarantee n <= Len().
func (b *Buffer) discard(n int) {
	b.read = (b.read + n) % len(b.data)
}
