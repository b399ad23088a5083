package lidar

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProfile is returned (wrapped) when a SensorProfile cannot be used
// to build a sensor.
var ErrInvalidProfile = errors.New("invalid sensor profile")

// TimingMode selects where the per-tick elapsed time comes from.
type TimingMode string

const (
	// TimingFixed feeds the configured fixed timestep to every tick.
	TimingFixed TimingMode = "fixed"
	// TimingVariable feeds the measured wall-clock delta to every tick.
	TimingVariable TimingMode = "variable"
)

// ExclusionArc is an angular range, in index-angle degrees (i * 360/numSamples,
// before the start offset is applied), that the sensor does not scan.
// The arc is open on both ends: an index angle a is excluded when
// FromDeg < a < ToDeg. FromDeg > ToDeg wraps through zero.
type ExclusionArc struct {
	FromDeg float64 `json:"from_deg"`
	ToDeg   float64 `json:"to_deg"`
}

// Contains reports whether the index angle falls inside the arc.
func (a ExclusionArc) Contains(angleDeg float64) bool {
	if a.FromDeg <= a.ToDeg {
		return angleDeg > a.FromDeg && angleDeg < a.ToDeg
	}
	return angleDeg > a.FromDeg || angleDeg < a.ToDeg
}

// SensorProfile is the immutable configuration of one sensor instance.
// Distances in MinRange/MaxRange are in physics-engine units; every value
// written to the sample buffer is in the sensor's reported unit
// (native distance * UnitScale) or one of the sentinel codes.
type SensorProfile struct {
	Name               string  `json:"name"`
	NumSamples         int     `json:"num_samples"`
	MotorFrequencyHz   float64 `json:"motor_frequency_hz"`
	MinRange           float64 `json:"min_range"`
	MaxRange           float64 `json:"max_range"`
	MinCode            float64 `json:"min_code"`
	MaxCode            float64 `json:"max_code"`
	AverageErrorFactor float64 `json:"average_error_factor"`
	StartAngleOffset   float64 `json:"start_angle_offset_deg"`
	UnitScale          float64 `json:"unit_scale"`

	// Exclusion is nil when the whole rotation is scanned.
	Exclusion   *ExclusionArc `json:"exclusion,omitempty"`
	BlockedCode float64       `json:"blocked_code"`

	// Timing is the timing base the historical variant used. The simulation
	// loop may override it from configuration.
	Timing TimingMode `json:"timing"`

	// VisualisationRange is the maximum display range in native units.
	VisualisationRange float64 `json:"visualisation_range"`
}

// HokuyoUST10LX returns the profile of the Hokuyo scanner fitted to the
// current vehicle: 1440 samples at 40Hz, 0.02-10m, reported in centimetres,
// with the rear quarter occluded by the mount.
func HokuyoUST10LX() SensorProfile {
	return SensorProfile{
		Name:               "hokuyo-ust-10lx",
		NumSamples:         1440,
		MotorFrequencyHz:   40,
		MinRange:           0.02,
		MaxRange:           10,
		MinCode:            0,
		MaxCode:            0,
		AverageErrorFactor: 0.02,
		StartAngleOffset:   135,
		UnitScale:          100,
		Exclusion:          &ExclusionArc{FromDeg: 270.25, ToDeg: 360},
		BlockedCode:        0,
		Timing:             TimingFixed,
		VisualisationRange: 10,
	}
}

// YDLidarX4 returns the profile of the YDLIDAR X4 fitted to the earlier
// vehicle revision: 720 samples at 7Hz, 0.12-10m, reported in centimetres.
func YDLidarX4() SensorProfile {
	return SensorProfile{
		Name:               "ydlidar-x4",
		NumSamples:         720,
		MotorFrequencyHz:   7,
		MinRange:           0.12,
		MaxRange:           10,
		MinCode:            0,
		MaxCode:            0,
		AverageErrorFactor: 0.02,
		StartAngleOffset:   0,
		UnitScale:          100,
		Timing:             TimingVariable,
		VisualisationRange: 10,
	}
}

// ProfileByName looks up a preset profile.
func ProfileByName(name string) (SensorProfile, error) {
	switch name {
	case "", "hokuyo-ust-10lx", "hokuyo":
		return HokuyoUST10LX(), nil
	case "ydlidar-x4", "ydlidar":
		return YDLidarX4(), nil
	default:
		return SensorProfile{}, fmt.Errorf("unknown sensor profile %q", name)
	}
}

// Validate checks the construction-time invariants.
func (p SensorProfile) Validate() error {
	if p.NumSamples <= 0 {
		return fmt.Errorf("%w: num_samples must be positive, got %d", ErrInvalidProfile, p.NumSamples)
	}
	if !(p.MotorFrequencyHz > 0) || math.IsInf(p.MotorFrequencyHz, 0) {
		return fmt.Errorf("%w: motor_frequency_hz must be positive, got %v", ErrInvalidProfile, p.MotorFrequencyHz)
	}
	if p.MinRange < 0 {
		return fmt.Errorf("%w: min_range must be non-negative, got %v", ErrInvalidProfile, p.MinRange)
	}
	if !(p.MinRange < p.MaxRange) {
		return fmt.Errorf("%w: min_range (%v) must be less than max_range (%v)", ErrInvalidProfile, p.MinRange, p.MaxRange)
	}
	if p.AverageErrorFactor < 0 {
		return fmt.Errorf("%w: average_error_factor must be non-negative, got %v", ErrInvalidProfile, p.AverageErrorFactor)
	}
	if p.UnitScale == 0 {
		return fmt.Errorf("%w: unit_scale must be non-zero", ErrInvalidProfile)
	}
	switch p.Timing {
	case "", TimingFixed, TimingVariable:
	default:
		return fmt.Errorf("%w: unknown timing mode %q", ErrInvalidProfile, p.Timing)
	}
	return nil
}

// SamplesPerSecond is the sustained sampling rate.
func (p SensorProfile) SamplesPerSecond() float64 {
	return float64(p.NumSamples) * p.MotorFrequencyHz
}

// IndexAngle is the rotation angle of slot i before the start offset.
func (p SensorProfile) IndexAngle(i int) float64 {
	return float64(i) * 360.0 / float64(p.NumSamples)
}

// Heading is the sensor-relative heading of slot i in degrees, where 0 is the
// vehicle's forward direction and positive angles turn clockwise seen from
// above.
func (p SensorProfile) Heading(i int) float64 {
	return p.IndexAngle(i) - p.StartAngleOffset
}

// ForwardIndex is the slot whose heading is closest to straight ahead.
func (p SensorProfile) ForwardIndex() int {
	idx := int(math.Round(p.StartAngleOffset * float64(p.NumSamples) / 360.0))
	return wrapIndex(idx, p.NumSamples)
}

// Blocked reports whether slot i lies in the exclusion arc.
func (p SensorProfile) Blocked(i int) bool {
	if p.Exclusion == nil {
		return false
	}
	return p.Exclusion.Contains(p.IndexAngle(i))
}

// IsSentinel reports whether v is one of the profile's reserved codes.
func (p SensorProfile) IsSentinel(v float64) bool {
	return v == p.MinCode || v == p.MaxCode || (p.Exclusion != nil && v == p.BlockedCode)
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
