package sensors

import (
	"fmt"
	"time"
)

// Distance is a one-way range in meters.
type Distance float64

// Meters returns the distance in meters.
func (d Distance) Meters() float64 { return float64(d) }

// Centimeters returns the distance in centimeters.
func (d Distance) Centimeters() float64 { return float64(d) * 100 }

func (d Distance) String() string {
	return fmt.Sprintf("%.2f cm", d.Centimeters())
}

// PulseDistance converts the width of an echo pulse into a distance. The
// pulse covers the round trip, hence the halving. Negative widths have no
// physical meaning and report false.
func PulseDistance(width time.Duration, speedOfSound float64) (Distance, bool) {
	if width < 0 || speedOfSound <= 0 {
		return 0, false
	}
	return Distance(width.Seconds() * speedOfSound / 2), true
}
