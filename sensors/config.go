package sensors

import (
	"errors"
	"fmt"
	"time"

	"github.com/b3nn0/rangefinder/gpio"
)

const (
	DefaultTriggerPin     gpio.Pin = 23
	DefaultEchoPin        gpio.Pin = 24
	DefaultTimeout                 = 120 * time.Millisecond
	DefaultSpeedOfSound            = 340.0 // m/s, dry air around 15 celsius
	DefaultSamples                 = 5
	DefaultSampleInterval          = 10 * time.Millisecond
	DefaultSettleDelay             = 50 * time.Millisecond
	DefaultTriggerLow              = 2 * time.Microsecond
	DefaultTriggerPulse            = 15 * time.Microsecond
)

// Config is the electrical and timing profile of one sensor. It is fixed
// once the sensor is opened.
type Config struct {
	TriggerPin     gpio.Pin
	EchoPin        gpio.Pin
	PullDown       bool          // bias the echo input low so a floating line reads low
	Timeout        time.Duration // bound on each of the two edge waits
	SpeedOfSound   float64       // m/s
	Samples        int           // attempts per batch
	SampleInterval time.Duration // pause after every attempt
	SettleDelay    time.Duration // pause after the lines are claimed
	TriggerLow     time.Duration
	TriggerPulse   time.Duration
	PollInterval   time.Duration // 0 polls the echo line as fast as possible
}

func DefaultConfig() Config {
	return Config{
		TriggerPin:     DefaultTriggerPin,
		EchoPin:        DefaultEchoPin,
		Timeout:        DefaultTimeout,
		SpeedOfSound:   DefaultSpeedOfSound,
		Samples:        DefaultSamples,
		SampleInterval: DefaultSampleInterval,
		SettleDelay:    DefaultSettleDelay,
		TriggerLow:     DefaultTriggerLow,
		TriggerPulse:   DefaultTriggerPulse,
	}
}

var errConfig = errors.New("invalid sensor config")

func (c Config) Validate() error {
	switch {
	case c.TriggerPin < 0 || c.EchoPin < 0:
		return fmt.Errorf("%w: negative pin (trigger %d, echo %d)", errConfig, c.TriggerPin, c.EchoPin)
	case c.TriggerPin == c.EchoPin:
		return fmt.Errorf("%w: trigger and echo share pin %d", errConfig, c.TriggerPin)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout %s", errConfig, c.Timeout)
	case c.SpeedOfSound <= 0:
		return fmt.Errorf("%w: speed of sound %g", errConfig, c.SpeedOfSound)
	case c.Samples <= 0:
		return fmt.Errorf("%w: sample count %d", errConfig, c.Samples)
	case c.SampleInterval < 0 || c.SettleDelay < 0 || c.PollInterval < 0:
		return fmt.Errorf("%w: negative delay", errConfig)
	case c.TriggerPulse <= 0 || c.TriggerLow < 0:
		return fmt.Errorf("%w: trigger timing %s/%s", errConfig, c.TriggerLow, c.TriggerPulse)
	}
	return nil
}

func (c Config) pull() gpio.Pull {
	if c.PullDown {
		return gpio.PullDown
	}
	return gpio.PullNone
}

// IsConfigError reports whether err came from Validate.
func IsConfigError(err error) bool {
	return errors.Is(err, errConfig)
}
