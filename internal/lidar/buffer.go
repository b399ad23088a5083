package lidar

import (
	"math"
	"sync/atomic"
)

// SampleBuffer holds one float per angular slot. It is allocated once,
// zero-initialised and never resized. Each slot is written and read
// atomically, so a reader running alongside a tick sees either the old or the
// new value of a slot but never a torn one. A full read is a rolling
// snapshot: neighbouring slots may come from different rotations.
type SampleBuffer struct {
	slots []atomic.Uint64
}

// NewSampleBuffer allocates a buffer of n zeroed slots.
func NewSampleBuffer(n int) *SampleBuffer {
	return &SampleBuffer{slots: make([]atomic.Uint64, n)}
}

// Len is the number of slots.
func (b *SampleBuffer) Len() int { return len(b.slots) }

// At returns the latest value written to slot i.
func (b *SampleBuffer) At(i int) float64 {
	return math.Float64frombits(b.slots[i].Load())
}

// Snapshot copies every slot into dst, growing it if needed, and returns it.
func (b *SampleBuffer) Snapshot(dst []float64) []float64 {
	if cap(dst) < len(b.slots) {
		dst = make([]float64, len(b.slots))
	}
	dst = dst[:len(b.slots)]
	for i := range b.slots {
		dst[i] = math.Float64frombits(b.slots[i].Load())
	}
	return dst
}

// Float32s copies every slot as float32, the width the agent and the wire
// formats use.
func (b *SampleBuffer) Float32s() []float32 {
	out := make([]float32, len(b.slots))
	for i := range b.slots {
		out[i] = float32(math.Float64frombits(b.slots[i].Load()))
	}
	return out
}

func (b *SampleBuffer) store(i int, v float64) {
	b.slots[i].Store(math.Float64bits(v))
}

// Reader is the read-only view handed to consumers.
type Reader interface {
	Len() int
	At(i int) float64
	Snapshot(dst []float64) []float64
}

var _ Reader = (*SampleBuffer)(nil)

// SliceReader adapts a plain slice (a recorded or decoded scan) to Reader.
type SliceReader []float64

func (s SliceReader) Len() int         { return len(s) }
func (s SliceReader) At(i int) float64 { return s[i] }
func (s SliceReader) Snapshot(dst []float64) []float64 {
	return append(dst[:0], s...)
}
