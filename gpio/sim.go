/*
	Copyright (c) 2026 The rangefinder authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	sim.go: Deterministic sensor simulator with a virtual clock.
*/

package gpio

import (
	"fmt"
	"sync"
	"time"
)

// Echo scripts the response of the simulated sensor to one trigger pulse.
// Delay is measured from the trigger falling edge to the echo rising edge.
type Echo struct {
	Delay  time.Duration
	Width  time.Duration
	NoRise bool // sensor never answers
	NoFall bool // echo line stuck high
}

// EchoFor returns the echo an object at meters would produce for the given
// speed of sound.
func EchoFor(meters, speedOfSound float64) Echo {
	w := time.Duration(2 * meters / speedOfSound * float64(time.Second))
	return Echo{Delay: 50 * time.Microsecond, Width: w}
}

// Transition is a recorded change of the trigger line.
type Transition struct {
	At    time.Duration
	Level Level
}

// Sim is a Device whose clock only moves when the caller sleeps or polls.
// Every ReadInput costs Tick of virtual time, which is what lets a busy
// polling loop make progress and time out.
type Sim struct {
	Tick         time.Duration
	SetupErr     error // returned before anything is claimed
	EchoSetupErr error // returned after the trigger was claimed
	Default      *Echo // answer once the script is exhausted, nil for silence

	mu       sync.Mutex
	elapsed  time.Duration
	claimed  bool
	trigger  Pin
	echo     Pin
	pull     Pull
	level    Level
	queue    []Echo
	armed    bool
	riseAt   time.Duration
	fallAt   time.Duration
	stuck    bool
	history  []Transition
	releases int
}

var simEpoch = time.Unix(0, 0).UTC()

func NewSim() *Sim {
	return &Sim{Tick: time.Microsecond}
}

// Script queues echoes; each trigger pulse consumes one. Once the queue is
// empty the sensor answers with Default.
func (s *Sim) Script(echoes ...Echo) {
	s.mu.Lock()
	s.queue = append(s.queue, echoes...)
	s.mu.Unlock()
}

// Repeat queues n copies of e.
func (s *Sim) Repeat(n int, e Echo) {
	for i := 0; i < n; i++ {
		s.Script(e)
	}
}

func (s *Sim) Setup(trigger, echo Pin, pull Pull) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		return ErrAlreadySetup
	}
	if s.SetupErr != nil {
		return s.SetupErr
	}
	s.claimed = true
	s.trigger = trigger
	s.setTrigger(Low)
	if s.EchoSetupErr != nil {
		s.releaseLocked()
		return fmt.Errorf("echo pin %d: %w", echo, s.EchoSetupErr)
	}
	s.echo = echo
	s.pull = pull
	return nil
}

func (s *Sim) SetOutput(pin Pin, level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claimed || pin != s.trigger {
		return
	}
	if s.level == High && level == Low {
		s.arm()
	}
	s.setTrigger(level)
}

func (s *Sim) setTrigger(level Level) {
	if s.level == level && len(s.history) > 0 {
		return
	}
	s.level = level
	s.history = append(s.history, Transition{At: s.elapsed, Level: level})
}

func (s *Sim) arm() {
	s.armed = false
	var e Echo
	switch {
	case len(s.queue) > 0:
		e = s.queue[0]
		s.queue = s.queue[1:]
	case s.Default != nil:
		e = *s.Default
	default:
		return
	}
	if e.NoRise {
		return
	}
	s.armed = true
	s.riseAt = s.elapsed + e.Delay
	s.fallAt = s.riseAt + e.Width
	s.stuck = e.NoFall
}

func (s *Sim) ReadInput(pin Pin) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	level := Low
	if s.claimed && pin == s.echo && s.armed && s.elapsed >= s.riseAt {
		level = Level(s.stuck || s.elapsed < s.fallAt)
	}
	tick := s.Tick
	if tick <= 0 {
		tick = time.Microsecond
	}
	s.elapsed += tick
	return level
}

func (s *Sim) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return simEpoch.Add(s.elapsed)
}

func (s *Sim) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.elapsed += d
	s.mu.Unlock()
}

func (s *Sim) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		s.releaseLocked()
	}
	return nil
}

func (s *Sim) releaseLocked() {
	s.setTrigger(Low)
	s.claimed = false
	s.armed = false
	s.releases++
}

// Elapsed is the virtual time since the simulator was created.
func (s *Sim) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Claimed reports whether the lines are currently set up.
func (s *Sim) Claimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed
}

// Releases counts how often claimed lines were deconfigured.
func (s *Sim) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

// Pull reports the bias requested for the echo line.
func (s *Sim) Pull() Pull {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pull
}

// TriggerLevel is the current trigger output.
func (s *Sim) TriggerLevel() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Pulses returns the width of every completed trigger pulse.
func (s *Sim) Pulses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	var start time.Duration
	high := false
	for _, t := range s.history {
		switch {
		case t.Level == High:
			start, high = t.At, true
		case high:
			out = append(out, t.At-start)
			high = false
		}
	}
	return out
}
