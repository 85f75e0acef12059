package gpio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pulse(s *Sim, trigger Pin, width time.Duration) {
	s.SetOutput(trigger, High)
	s.Sleep(width)
	s.SetOutput(trigger, Low)
}

func TestSimEchoFollowsScript(t *testing.T) {
	s := NewSim()
	require.NoError(t, s.Setup(1, 2, PullDown))
	s.Script(Echo{Delay: 5 * time.Microsecond, Width: 3 * time.Microsecond})

	pulse(s, 1, 10*time.Microsecond)
	var got []Level
	for i := 0; i < 10; i++ {
		got = append(got, s.ReadInput(2))
	}
	assert.Equal(t, []Level{Low, Low, Low, Low, Low, High, High, High, Low, Low}, got)
	assert.Equal(t, 20*time.Microsecond, s.Elapsed())
}

func TestSimSilentWithoutScript(t *testing.T) {
	s := NewSim()
	require.NoError(t, s.Setup(1, 2, PullNone))
	pulse(s, 1, 10*time.Microsecond)
	for i := 0; i < 100; i++ {
		assert.Equal(t, Low, s.ReadInput(2))
	}
}

func TestSimStuckEcho(t *testing.T) {
	s := NewSim()
	require.NoError(t, s.Setup(1, 2, PullNone))
	s.Script(Echo{NoFall: true, Width: time.Microsecond})
	pulse(s, 1, 10*time.Microsecond)
	for i := 0; i < 100; i++ {
		assert.Equal(t, High, s.ReadInput(2))
	}
}

func TestSimIgnoresUnclaimedLines(t *testing.T) {
	s := NewSim()
	s.Script(Echo{Width: time.Millisecond})
	pulse(s, 1, 10*time.Microsecond)
	assert.Equal(t, Low, s.ReadInput(2))
	assert.Empty(t, s.Pulses())
}

func TestSimPulsesAndRelease(t *testing.T) {
	s := NewSim()
	require.NoError(t, s.Setup(1, 2, PullNone))
	assert.ErrorIs(t, s.Setup(1, 2, PullNone), ErrAlreadySetup)

	pulse(s, 1, 10*time.Microsecond)
	pulse(s, 1, 15*time.Microsecond)
	s.SetOutput(1, High)
	assert.Equal(t, []time.Duration{10 * time.Microsecond, 15 * time.Microsecond}, s.Pulses())

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	assert.Equal(t, Low, s.TriggerLevel())
	assert.Equal(t, 1, s.Releases())
	assert.False(t, s.Claimed())
}

func TestSimSetupErrors(t *testing.T) {
	s := NewSim()
	s.EchoSetupErr = assert.AnError
	err := s.Setup(1, 2, PullNone)
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, s.Claimed())
	assert.Equal(t, 1, s.Releases())
}

func TestEchoFor(t *testing.T) {
	e := EchoFor(0.17, 340)
	assert.InDelta(t, float64(time.Millisecond), float64(e.Width), 1)
	assert.Equal(t, 50*time.Microsecond, e.Delay)
}

func TestSimDefaultEcho(t *testing.T) {
	s := NewSim()
	s.Default = &Echo{Width: 2 * time.Microsecond}
	require.NoError(t, s.Setup(1, 2, PullNone))
	s.Script(Echo{NoRise: true})

	pulse(s, 1, 10*time.Microsecond)
	assert.Equal(t, Low, s.ReadInput(2))
	pulse(s, 1, 10*time.Microsecond)
	assert.Equal(t, High, s.ReadInput(2))
	assert.Equal(t, High, s.ReadInput(2))
	assert.Equal(t, Low, s.ReadInput(2))
}
