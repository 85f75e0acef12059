package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const InvalidCpuTemp = float32(-99.0)

// CpuTempPath is the Raspberry Pi SoC thermal zone.
const CpuTempPath = "/sys/class/thermal/thermal_zone0/temp"

type CpuTempUpdateFunc func(cpuTemp float32)

// ReadCpuTemp parses a thermal zone file. Kernels report either millidegrees
// or plain degrees.
func ReadCpuTemp(path string) (float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return InvalidCpuTemp, err
	}
	tInt, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return InvalidCpuTemp, fmt.Errorf("thermal zone %s: %w", path, err)
	}
	if tInt > 1000 {
		return float32(tInt) / 1000.0, nil
	}
	return float32(tInt), nil
}

// CpuTempMonitor reads the board temperature every interval and calls
// updater with every valid value until ctx is done. Run it in its own
// goroutine: reading the thermal zone on the Pi can hang for a long time.
func CpuTempMonitor(ctx context.Context, path string, interval time.Duration, updater CpuTempUpdateFunc) {
	timer := time.NewTicker(interval)
	defer timer.Stop()
	for {
		if t, err := ReadCpuTemp(path); err == nil && IsCPUTempValid(t) {
			updater(t)
		}
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Check if CPU temperature is valid. Assume <= 0 is invalid.
func IsCPUTempValid(cpuTemp float32) bool {
	return cpuTemp > 0
}
