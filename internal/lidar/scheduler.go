package lidar

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// ErrNegativeElapsed is returned when a tick reports time moving backwards.
// Callers should treat it as fatal.
var ErrNegativeElapsed = errors.New("elapsed time must be non-negative")

// Span is the ordered run of slot indices one tick must sample. It starts at
// Start and covers Count consecutive slots modulo N; Count may exceed N when
// a single tick covers more than one rotation, in which case every slot is
// visited once per rotation covered.
type Span struct {
	Start int
	Count int
	N     int
}

// Indices yields the slot indices of the span in scan order.
func (s Span) Indices() iter.Seq[int] {
	return func(yield func(int) bool) {
		idx := s.Start
		for k := 0; k < s.Count; k++ {
			if !yield(idx) {
				return
			}
			idx++
			if idx == s.N {
				idx = 0
			}
		}
	}
}

// End is the cursor position after the span has been sampled.
func (s Span) End() int {
	if s.N == 0 {
		return 0
	}
	return (s.Start + s.Count) % s.N
}

// RotationScheduler converts elapsed time into a number of discrete samples,
// carrying the rotation cursor across ticks. The sample rate is fixed when
// the scheduler is built. It is not safe for concurrent use; the simulation
// tick is its only caller.
type RotationScheduler struct {
	numSamples       int
	samplesPerSecond float64
	cursor           int
	total            uint64
}

// NewRotationScheduler builds a scheduler for the profile.
func NewRotationScheduler(p SensorProfile) (*RotationScheduler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &RotationScheduler{
		numSamples:       p.NumSamples,
		samplesPerSecond: p.SamplesPerSecond(),
	}, nil
}

// Schedule computes the span to sample for a tick of elapsedSeconds and
// advances the cursor past it.
func (s *RotationScheduler) Schedule(elapsedSeconds float64) (Span, error) {
	if elapsedSeconds < 0 || math.IsNaN(elapsedSeconds) {
		return Span{}, fmt.Errorf("%w: got %v", ErrNegativeElapsed, elapsedSeconds)
	}
	steps := math.Round(s.samplesPerSecond * elapsedSeconds)
	if steps > math.MaxInt32 || math.IsInf(steps, 0) {
		return Span{}, fmt.Errorf("elapsed time %vs schedules too many samples", elapsedSeconds)
	}

	span := Span{Start: s.cursor, Count: int(steps), N: s.numSamples}
	s.cursor = span.End()
	s.total += uint64(span.Count)
	return span, nil
}

// StepsFor reports how many samples a tick of elapsedSeconds would schedule
// without advancing the cursor.
func (s *RotationScheduler) StepsFor(elapsedSeconds float64) int {
	if elapsedSeconds <= 0 {
		return 0
	}
	return int(math.Round(s.samplesPerSecond * elapsedSeconds))
}

// Cursor is the index of the next slot to write.
func (s *RotationScheduler) Cursor() int { return s.cursor }

// Total is the number of samples scheduled since construction.
func (s *RotationScheduler) Total() uint64 { return s.total }

// Rotations is the number of complete rotations scheduled since construction.
func (s *RotationScheduler) Rotations() uint64 { return s.total / uint64(s.numSamples) }
