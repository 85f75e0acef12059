/*
	Copyright (c) 2026 The rangefinder authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: Initialize go logging, watch log file size and rotate, delete old logs

*/

package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/ricochet2200/go-disk-usage/du"
)

const (
	debugLogFile = "rangefinder.log"
	maxLogSize   = 10 * 1024 * 1024 // rotate above 10mb
	minFreeBytes = 50 * 1024 * 1024 // leave 50mb free
	maxLogFiles  = 9
)

var logDirf string   // Set from the settings.
var debugLogf string // logDirf/debugLogFile
var logFileHandle *os.File
var captureStderr bool
var logDebug bool

func getLogFiles() []string {
	entries, err := os.ReadDir(logDirf)
	logs := make([]string, 0)
	if err != nil {
		return logs
	}

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), debugLogFile+".") {
			logs = append(logs, filepath.Join(logDirf, e.Name()))
		}
	}
	sort.Strings(logs)
	return logs
}

func rotateLogs() {
	logs := getLogFiles()

	// rename suffix, remove if > maxLogFiles
	for i := len(logs) - 1; i >= 0; i-- {
		parts := strings.Split(logs[i], ".")
		logNum, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			continue
		}

		newPath := filepath.Join(logDirf, debugLogFile+"."+strconv.Itoa(logNum+1))

		if logNum >= maxLogFiles {
			os.Remove(logs[i])
		} else {
			os.Rename(logs[i], newPath)
		}
	}

	// Now rename current log file and re-open
	os.Rename(debugLogf, debugLogf+".1")
	openLogFile()
}

func deleteOldestLog() int64 {
	logs := getLogFiles()
	if len(logs) == 0 {
		return 0
	}
	oldest := logs[len(logs)-1]
	stat, err := os.Stat(oldest)
	if err != nil {
		return 0
	}
	if err := os.Remove(oldest); err != nil {
		return 0
	}
	log.Printf("removed %s (%s) to free disk space\n", filepath.Base(oldest), humanize.Bytes(uint64(stat.Size())))
	return stat.Size()
}

// checkLogs rotates an oversized log and trims old ones while the disk is
// short on space.
func checkLogs() {
	logSize, err := os.Stat(debugLogf)
	if err == nil && logSize.Size() > maxLogSize {
		rotateLogs()
	}

	usage := du.NewDiskUsage(logDirf)
	freeBytes := int64(usage.Free())
	for freeBytes < minFreeBytes {
		deleted := deleteOldestLog()
		if deleted == 0 {
			break
		}
		freeBytes += deleted
	}
}

func logFileWatcher() {
	for {
		checkLogs()
		time.Sleep(30 * time.Second)
	}
}

func openLogFile() {
	oldFp := logFileHandle
	debugLogf = filepath.Join(logDirf, debugLogFile)
	fp, err := os.OpenFile(debugLogf, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open '%s': %s\n", debugLogf, err.Error())
	} else {
		// Keep the logfile handle for later use
		logFileHandle = fp
		mfp := io.MultiWriter(fp, os.Stdout)
		log.SetOutput(mfp)

		// Make sure crash dumps are written to the log as well
		if captureStderr {
			syscall.Dup3(int(fp.Fd()), 2, 0)
		}
	}
	if oldFp != nil {
		oldFp.Close()
	}
}

func initLogging(dir string) {
	logDirf = dir
	captureStderr = true
	openLogFile()
	go logFileWatcher()
}

func logDbg(msg string, args ...any) {
	if logDebug {
		log.Printf(msg, args...)
	}
}
