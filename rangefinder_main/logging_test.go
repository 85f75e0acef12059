package main

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useLogDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	logDirf = dir
	captureStderr = false
	openLogFile()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		if logFileHandle != nil {
			logFileHandle.Close()
			logFileHandle = nil
		}
	})
	return dir
}

func TestOpenLogFile(t *testing.T) {
	dir := useLogDir(t)
	log.Printf("hello")

	buf, err := os.ReadFile(filepath.Join(dir, debugLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(buf), "hello")
}

func TestRotateLogs(t *testing.T) {
	dir := useLogDir(t)
	for i := 1; i <= maxLogFiles; i++ {
		name := filepath.Join(dir, debugLogFile+"."+strconv.Itoa(i))
		require.NoError(t, os.WriteFile(name, []byte(strconv.Itoa(i)), 0644))
	}
	log.Printf("current")

	rotateLogs()

	logs := getLogFiles()
	assert.Len(t, logs, maxLogFiles)
	buf, err := os.ReadFile(filepath.Join(dir, debugLogFile+".1"))
	require.NoError(t, err)
	assert.Contains(t, string(buf), "current")
	buf, err = os.ReadFile(filepath.Join(dir, debugLogFile+".9"))
	require.NoError(t, err)
	assert.Equal(t, "8", string(buf))

	_, err = os.Stat(filepath.Join(dir, debugLogFile))
	assert.NoError(t, err, "a fresh log is reopened")
}

func TestDeleteOldestLog(t *testing.T) {
	dir := useLogDir(t)
	assert.Zero(t, deleteOldestLog())

	require.NoError(t, os.WriteFile(filepath.Join(dir, debugLogFile+".1"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, debugLogFile+".2"), []byte("abc"), 0644))

	assert.Equal(t, int64(3), deleteOldestLog())
	assert.Equal(t, []string{filepath.Join(dir, debugLogFile+".1")}, getLogFiles())
}

func TestLogDbg(t *testing.T) {
	dir := useLogDir(t)
	logDebug = false
	logDbg("hidden")
	logDebug = true
	logDbg("shown")
	logDebug = false

	buf, err := os.ReadFile(filepath.Join(dir, debugLogFile))
	require.NoError(t, err)
	assert.NotContains(t, string(buf), "hidden")
	assert.Contains(t, string(buf), "shown")
}
