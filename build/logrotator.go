package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrick/logrotate/rotator"
)

// ErrLogFileClosed is returned when writing to a closed log file.
var ErrLogFileClosed = errors.New("log file closed")

// RotatingLogWriter writes log lines to a file that is rolled over once it
// exceeds the configured size. Until Open is called, writes are discarded so
// the writer can be handed to loggers before the config is parsed.
type RotatingLogWriter struct {
	mu      sync.Mutex
	rotator *rotator.Rotator
	closed  bool
}

// NewRotatingLogWriter creates a log writer that discards writes until it is
// opened.
func NewRotatingLogWriter() *RotatingLogWriter {
	return &RotatingLogWriter{}
}

// Open starts writing to logFile, creating its directory if needed. Rolled
// files are kept next to it, compressed with the configured compressor.
func (r *RotatingLogWriter) Open(cfg *LogConfig, logFile string) error {
	compressor, suffix, err := cfg.newCompressor()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
		return fmt.Errorf("unable to create log directory: %w", err)
	}

	rot, err := rotator.New(
		logFile, int64(cfg.MaxLogFileSize)*1024, false, cfg.MaxLogFiles,
	)
	if err != nil {
		return fmt.Errorf("unable to open log file %v: %w", logFile, err)
	}
	rot.SetCompressor(compressor, suffix)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rotator != nil {
		_ = rot.Close()
		return fmt.Errorf("log file already open")
	}
	r.rotator = rot

	return nil
}

// Write appends b to the log file, rolling it over once it is too large.
func (r *RotatingLogWriter) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.closed:
		return 0, ErrLogFileClosed

	case r.rotator == nil:
		return len(b), nil
	}

	return r.rotator.Write(b)
}

// Close closes the log file and waits for pending compressions.
func (r *RotatingLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.rotator == nil {
		return nil
	}

	return r.rotator.Close()
}
