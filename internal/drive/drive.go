// Package drive is the boundary to the vehicle's drive actuator. Commands
// arrive from the network bridge, are clamped to the normalised range the
// vehicle controller accepts, and are fanned out to any attached actuators.
package drive

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrInvalidCommand is returned for commands that carry NaN or infinite
// values.
var ErrInvalidCommand = errors.New("invalid drive command")

// Command is a normalised throttle and steering request. Both values lie in
// [-1, 1]; positive angle steers right.
type Command struct {
	Speed float64 `json:"speed"`
	Angle float64 `json:"angle"`
}

// String formats the command as the serial wire line without the newline.
func (c Command) String() string {
	return fmt.Sprintf("speed=%.3f angle=%.3f", c.Speed, c.Angle)
}

// Clamp limits both values to [-1, 1].
func (c Command) Clamp() Command {
	return Command{Speed: clampUnit(c.Speed), Angle: clampUnit(c.Angle)}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// Actuator receives clamped commands.
type Actuator interface {
	Apply(Command) error
}

// State keeps the most recent command and forwards each new one to the
// attached actuators. It is safe for concurrent use.
type State struct {
	mu        sync.RWMutex
	cmd       Command
	updated   time.Time
	count     uint64
	actuators []Actuator
	now       func() time.Time
}

// NewState returns a stopped, centred State forwarding to the given actuators.
func NewState(actuators ...Actuator) *State {
	return &State{actuators: actuators, now: time.Now}
}

// Attach adds another actuator.
func (s *State) Attach(a Actuator) {
	s.mu.Lock()
	s.actuators = append(s.actuators, a)
	s.mu.Unlock()
}

// Apply clamps and stores c, then forwards it. Forwarding errors are joined
// and returned; the stored command is updated regardless.
func (s *State) Apply(c Command) error {
	if math.IsNaN(c.Speed) || math.IsNaN(c.Angle) || math.IsInf(c.Speed, 0) || math.IsInf(c.Angle, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, c)
	}
	c = c.Clamp()

	s.mu.Lock()
	s.cmd = c
	s.updated = s.now()
	s.count++
	actuators := append([]Actuator(nil), s.actuators...)
	s.mu.Unlock()

	var errs []error
	for _, a := range actuators {
		if err := a.Apply(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Current returns the last stored command.
func (s *State) Current() Command {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cmd
}

// Snapshot is the state reported over HTTP.
type Snapshot struct {
	Command
	Updated  time.Time `json:"updated"`
	Commands uint64    `json:"commands"`
}

// Snapshot returns the last command with its bookkeeping.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Command: s.cmd, Updated: s.updated, Commands: s.count}
}
