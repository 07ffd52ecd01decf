package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Enabled can be flipped at build time:
// go build -ldflags "-X github.com/standardbeagle/fastfind/internal/debug.Enabled=true"
var Enabled = "false"

var (
	mu     sync.Mutex
	output io.Writer
	file   *os.File
)

// SetOutput sets a custom writer for debug output. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitLogFile routes debug output to a timestamped file under the OS temp
// directory and returns its path. Call Close when done.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	logDir := filepath.Join(os.TempDir(), "fastfind-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	file = f
	output = f
	return logPath, nil
}

// Close flushes and closes the debug log file, if one was opened.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
		output = nil
	}
}

// active reports whether any sink will receive output.
func active() bool {
	return Enabled == "true" || output != nil
}

func logf(prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	w := output
	if w == nil {
		if Enabled != "true" {
			return
		}
		w = os.Stderr
	}
	fmt.Fprintf(w, "%s [%s] %s\n", time.Now().Format("15:04:05.000"), prefix, fmt.Sprintf(format, args...))
}

// Logf writes a general debug line.
func Logf(format string, args ...any) {
	if !active() {
		return
	}
	logf("debug", format, args...)
}

// LogScan writes an enumerator trace line.
func LogScan(format string, args ...any) {
	if !active() {
		return
	}
	logf("scan", format, args...)
}

// LogWatch writes a change-monitor trace line.
func LogWatch(format string, args ...any) {
	if !active() {
		return
	}
	logf("watch", format, args...)
}

// LogStore writes a persistence trace line.
func LogStore(format string, args ...any) {
	if !active() {
		return
	}
	logf("store", format, args...)
}
