package gpio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackends(t *testing.T) {
	for name, want := range map[string]Device{
		"":     &RPIO{},
		"rpio": &RPIO{},
		"embd": &EMBD{},
		"sim":  &Sim{},
	} {
		dev, err := Open(name)
		require.NoError(t, err, name)
		assert.IsType(t, want, dev, name)
	}

	_, err := Open("wiringpi")
	assert.True(t, errors.Is(err, ErrUnknownDevice))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "low", Low.String())
}

func TestReleaseBeforeSetup(t *testing.T) {
	assert.NoError(t, NewRPIO().Release())
	assert.NoError(t, NewEMBD().Release())
	assert.NoError(t, NewSim().Release())
}

func TestHostSleep(t *testing.T) {
	start := time.Now()
	hostSleep(20 * time.Microsecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Microsecond)
	hostSleep(-time.Second)
}
