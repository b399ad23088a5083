package lidar

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// LayerMask selects which collider layers a range query may hit.
type LayerMask uint32

// Environment answers directional range queries against the scene. A query
// returns the distance to the nearest collider in mask along dir from origin,
// or ok=false when nothing lies within maxDistance. dir is a unit vector.
type Environment interface {
	QueryRange(origin, dir r3.Vec, maxDistance float64, mask LayerMask) (distance float64, ok bool)
}

// EnvironmentFunc adapts a function to Environment.
type EnvironmentFunc func(origin, dir r3.Vec, maxDistance float64, mask LayerMask) (float64, bool)

// QueryRange calls f.
func (f EnvironmentFunc) QueryRange(origin, dir r3.Vec, maxDistance float64, mask LayerMask) (float64, bool) {
	return f(origin, dir, maxDistance, mask)
}

// Pose is the sensor mount's world position and the vehicle yaw, in degrees
// clockwise from the world +Z axis seen from above (Y is up).
type Pose struct {
	Position r3.Vec
	YawDeg   float64
}

// Direction returns the world-space unit vector for a sensor-relative heading.
func (p Pose) Direction(headingDeg float64) r3.Vec {
	rad := (p.YawDeg + headingDeg) * math.Pi / 180.0
	return r3.Vec{X: math.Sin(rad), Y: 0, Z: math.Cos(rad)}
}

// SampleEngine takes one sample per scheduled slot: it orients the ray,
// queries the environment, applies the error model and writes the slot.
type SampleEngine struct {
	profile SensorProfile
	env     Environment
	mask    LayerMask
	buf     *SampleBuffer
	noise   distuv.Normal
}

// NewSampleEngine builds an engine writing into buf. The noise source is
// seeded from seed so realism-mode runs are reproducible.
func NewSampleEngine(p SensorProfile, env Environment, mask LayerMask, buf *SampleBuffer, seed uint64) *SampleEngine {
	return &SampleEngine{
		profile: p,
		env:     env,
		mask:    mask,
		buf:     buf,
		noise: distuv.Normal{
			Mu:    1,
			Sigma: p.AverageErrorFactor,
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
}

// Sample measures slot i from pose and stores the result. Slots in the
// exclusion arc are written with the blocked code without a query.
func (e *SampleEngine) Sample(i int, pose Pose, realism bool) float64 {
	v := e.measure(i, pose, realism)
	e.buf.store(i, v)
	return v
}

// SampleSpan samples every index of span in order and returns the count.
func (e *SampleEngine) SampleSpan(span Span, pose Pose, realism bool) int {
	n := 0
	for i := range span.Indices() {
		e.Sample(i, pose, realism)
		n++
	}
	return n
}

func (e *SampleEngine) measure(i int, pose Pose, realism bool) float64 {
	p := e.profile
	if p.Blocked(i) {
		return p.BlockedCode
	}
	if e.env == nil {
		return p.MaxCode
	}

	dir := pose.Direction(p.Heading(i))
	distance, ok := e.env.QueryRange(pose.Position, dir, p.MaxRange, e.mask)
	if !ok || distance > p.MaxRange {
		return p.MaxCode
	}
	return e.reading(distance, realism)
}

// reading converts a native hit distance into the reported value.
func (e *SampleEngine) reading(distance float64, realism bool) float64 {
	p := e.profile
	if distance <= p.MinRange {
		return p.MinCode
	}
	v := distance * p.UnitScale
	if realism && p.AverageErrorFactor > 0 {
		v *= e.noise.Rand()
	}
	return v
}
