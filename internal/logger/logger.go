// Package logger provides verbose logging for the ghpr CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow a long crawl. A crawl can
// additionally be recorded to a log file via SetFile; file lines are
// timestamped and written regardless of the verbose setting.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	file    io.Writer
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetFile sets the log file sink. All levels are written to it,
// timestamped, independent of the verbose setting. A nil writer
// disables the sink. The caller owns closing the underlying file.
func SetFile(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	file = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	log("DEBUG", false, format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	log("INFO", false, format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	log("WARN", false, format, args...)
}

// Error prints an error message. Errors are printed to stderr even
// when verbose mode is off.
func Error(format string, args ...any) {
	log("ERROR", true, format, args...)
}

func log(level string, always bool, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose || always {
		fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
	}
	if file != nil {
		stamp := time.Now().Format("2006-01-02 15:04")
		fmt.Fprintf(file, "["+stamp+"] "+level+": "+format+"\n", args...)
	}
}
