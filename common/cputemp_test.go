package common

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZone(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "temp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCpuTemp(t *testing.T) {
	temp, err := ReadCpuTemp(writeZone(t, "48312\n"))
	require.NoError(t, err)
	assert.InDelta(t, 48.312, temp, 1e-4)

	temp, err = ReadCpuTemp(writeZone(t, "52"))
	require.NoError(t, err)
	assert.Equal(t, float32(52), temp)

	temp, err = ReadCpuTemp(writeZone(t, "garbage"))
	assert.Error(t, err)
	assert.Equal(t, InvalidCpuTemp, temp)

	_, err = ReadCpuTemp(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCpuTempMonitor(t *testing.T) {
	path := writeZone(t, "45000")
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []float32
	done := make(chan struct{})
	go func() {
		CpuTempMonitor(ctx, path, time.Millisecond, func(temp float32) {
			mu.Lock()
			got = append(got, temp)
			mu.Unlock()
		})
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 2
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, float32(45), got[0])
}

func TestIsCPUTempValid(t *testing.T) {
	assert.False(t, IsCPUTempValid(InvalidCpuTemp))
	assert.False(t, IsCPUTempValid(0))
	assert.True(t, IsCPUTempValid(0.5))
}

func TestCanAccessGPIOSimulator(t *testing.T) {
	assert.True(t, CanAccessGPIO("sim"))
}
