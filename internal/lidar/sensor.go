package lidar

import (
	"fmt"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// Options configures a Sensor beyond its profile.
type Options struct {
	// Environment answers the range queries. A nil environment reports
	// every sample as "no obstacle".
	Environment Environment
	// Mask restricts which collider layers are sensed.
	Mask LayerMask
	// Seed seeds the realism noise source.
	Seed uint64
	// MountOffset is the sensor position relative to the vehicle origin, in
	// the vehicle frame (X right, Y up, Z forward).
	MountOffset r3.Vec
}

// TickInput carries everything one simulation tick needs.
type TickInput struct {
	Elapsed float64 // seconds since the previous tick
	Vehicle Pose    // vehicle origin and yaw
	Realism bool
}

// Sensor is a rotating range sensor: a RotationScheduler driving a
// SampleEngine over a SampleBuffer. Tick must be called from a single
// goroutine; Buffer, Samples and the clearance/projection helpers may be
// called from any goroutine at any time.
type Sensor struct {
	profile   SensorProfile
	offset    r3.Vec
	buf       *SampleBuffer
	scheduler *RotationScheduler
	engine    *SampleEngine

	ticks  atomic.Uint64
	cursor atomic.Int64
}

// New validates the profile and allocates the sensor.
func New(p SensorProfile, opts Options) (*Sensor, error) {
	sch, err := NewRotationScheduler(p)
	if err != nil {
		return nil, fmt.Errorf("lidar %q: %w", p.Name, err)
	}
	buf := NewSampleBuffer(p.NumSamples)
	return &Sensor{
		profile:   p,
		offset:    opts.MountOffset,
		buf:       buf,
		scheduler: sch,
		engine:    NewSampleEngine(p, opts.Environment, opts.Mask, buf, opts.Seed),
	}, nil
}

// Tick advances the rotation by in.Elapsed and takes every sample it covers.
// It returns the number of samples written.
func (s *Sensor) Tick(in TickInput) (int, error) {
	span, err := s.scheduler.Schedule(in.Elapsed)
	if err != nil {
		return 0, err
	}
	n := s.engine.SampleSpan(span, s.mountPose(in.Vehicle), in.Realism)
	s.cursor.Store(int64(s.scheduler.Cursor()))
	s.ticks.Add(1)
	return n, nil
}

// mountPose places the sensor on the vehicle.
func (s *Sensor) mountPose(v Pose) Pose {
	right := v.Direction(90)
	fwd := v.Direction(0)
	pos := r3.Add(v.Position, r3.Scale(s.offset.X, right))
	pos = r3.Add(pos, r3.Vec{Y: s.offset.Y})
	pos = r3.Add(pos, r3.Scale(s.offset.Z, fwd))
	return Pose{Position: pos, YawDeg: v.YawDeg}
}

// Profile returns the sensor's configuration.
func (s *Sensor) Profile() SensorProfile { return s.profile }

// Buffer returns the read-only view of the sample buffer.
func (s *Sensor) Buffer() Reader { return s.buf }

// Samples returns a copy of the current buffer contents.
func (s *Sensor) Samples() []float64 { return s.buf.Snapshot(nil) }

// Float32Samples returns the current buffer contents as float32.
func (s *Sensor) Float32Samples() []float32 { return s.buf.Float32s() }

// Cursor is the index of the next slot the sensor will write.
func (s *Sensor) Cursor() int { return int(s.cursor.Load()) }

// Ticks is the number of completed ticks.
func (s *Sensor) Ticks() uint64 { return s.ticks.Load() }

// SamplesTaken is the number of samples written since construction.
// Only the ticking goroutine may call it.
func (s *Sensor) SamplesTaken() uint64 { return s.scheduler.Total() }

// IsForwardClear evaluates the clearance query on the current buffer.
func (s *Sensor) IsForwardClear(halfWidth int, threshold float64) bool {
	return IsForwardClear(s.profile, s.buf, halfWidth, threshold)
}
