// Package sim drives a lidar sensor from a clock, the way the physics host
// would: once per physics step in fixed mode, or by measured wall time in
// variable mode.
package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/monitoring"
	"github.com/banshee-data/racecar-sim/internal/timeutil"
)

var logf = monitoring.Component("sim")

// Rotation describes a completed sensor rotation.
type Rotation struct {
	Sequence uint64    // 1-based rotation count
	SimTime  float64   // seconds of simulated time
	Cursor   int       // next slot to be written
	Samples  []float64 // buffer snapshot taken right after the tick
}

// Observer is called from the loop goroutine after each tick that
// completes at least one rotation. It must not block for long.
type Observer func(Rotation)

// PoseFunc reports the vehicle pose for the next tick.
type PoseFunc func() lidar.Pose

// Config selects the loop timing.
type Config struct {
	Mode lidar.TimingMode
	// FixedStep is the elapsed time fed to every tick in fixed mode and the
	// wall pacing period in both modes.
	FixedStep time.Duration
	Realism   bool
	Pose      PoseFunc
}

// Loop owns one sensor and ticks it.
type Loop struct {
	sensor *lidar.Sensor
	clock  timeutil.Clock
	cfg    Config

	realism atomic.Bool

	mu        sync.Mutex
	observers []Observer

	// Owned by the ticking goroutine.
	last      time.Time
	started   bool
	simTime   float64
	rotations uint64
	steps     uint64
}

// New builds a loop. A zero Mode uses the sensor profile's timing.
func New(sensor *lidar.Sensor, clock timeutil.Clock, cfg Config) (*Loop, error) {
	if cfg.Mode == "" {
		cfg.Mode = sensor.Profile().Timing
	}
	switch cfg.Mode {
	case lidar.TimingFixed, lidar.TimingVariable:
	default:
		return nil, fmt.Errorf("unknown timing mode %q", cfg.Mode)
	}
	if cfg.FixedStep <= 0 {
		return nil, fmt.Errorf("fixed step must be positive, got %s", cfg.FixedStep)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	l := &Loop{sensor: sensor, clock: clock, cfg: cfg}
	l.realism.Store(cfg.Realism)
	return l, nil
}

// OnRotation registers an observer.
func (l *Loop) OnRotation(o Observer) {
	l.mu.Lock()
	l.observers = append(l.observers, o)
	l.mu.Unlock()
}

// SetRealism toggles the noise model for subsequent ticks.
func (l *Loop) SetRealism(on bool) { l.realism.Store(on) }

// Realism reports whether the noise model is on.
func (l *Loop) Realism() bool { return l.realism.Load() }

// Sensor returns the ticked sensor.
func (l *Loop) Sensor() *lidar.Sensor { return l.sensor }

// Mode returns the effective timing mode.
func (l *Loop) Mode() lidar.TimingMode { return l.cfg.Mode }

// elapsed returns the time to feed the next tick.
func (l *Loop) elapsed() float64 {
	now := l.clock.Now()
	defer func() { l.last = now }()

	if l.cfg.Mode == lidar.TimingFixed {
		return l.cfg.FixedStep.Seconds()
	}
	if !l.started {
		l.started = true
		return l.cfg.FixedStep.Seconds()
	}
	return now.Sub(l.last).Seconds()
}

// Step runs one tick. Errors from the sensor are returned unchanged.
func (l *Loop) Step() error {
	dt := l.elapsed()

	var pose lidar.Pose
	if l.cfg.Pose != nil {
		pose = l.cfg.Pose()
	}
	if _, err := l.sensor.Tick(lidar.TickInput{Elapsed: dt, Vehicle: pose, Realism: l.realism.Load()}); err != nil {
		return err
	}
	l.simTime += dt
	l.steps++

	n := uint64(l.sensor.Profile().NumSamples)
	rotations := l.sensor.SamplesTaken() / n
	if rotations == l.rotations {
		return nil
	}
	l.rotations = rotations

	l.mu.Lock()
	observers := append([]Observer(nil), l.observers...)
	l.mu.Unlock()
	if len(observers) == 0 {
		return nil
	}
	rot := Rotation{
		Sequence: rotations,
		SimTime:  l.simTime,
		Cursor:   l.sensor.Cursor(),
		Samples:  l.sensor.Samples(),
	}
	for _, o := range observers {
		o(rot)
	}
	return nil
}

// Run ticks every FixedStep of wall time until ctx is cancelled. A sensor
// error stops the loop and is returned.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.cfg.FixedStep)
	defer ticker.Stop()

	logf("loop started: mode=%s step=%s profile=%s", l.cfg.Mode, l.cfg.FixedStep, l.sensor.Profile().Name)
	for {
		select {
		case <-ctx.Done():
			logf("loop stopped after %d steps, %d rotations", l.steps, l.rotations)
			return nil
		case <-ticker.C():
			if err := l.Step(); err != nil {
				logf("tick failed: %v", err)
				return fmt.Errorf("sim step %d: %w", l.steps+1, err)
			}
		}
	}
}

// Stats is a point-in-time view of loop progress. Only the ticking
// goroutine may call it.
type Stats struct {
	Steps     uint64  `json:"steps"`
	Rotations uint64  `json:"rotations"`
	SimTime   float64 `json:"sim_time"`
}

// Stats returns loop progress.
func (l *Loop) Stats() Stats {
	return Stats{Steps: l.steps, Rotations: l.rotations, SimTime: l.simTime}
}
