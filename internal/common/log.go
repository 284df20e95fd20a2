// File path: internal/common/log.go
package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const runLogName = "cortex-sync.log"

var (
	loggerMu sync.Mutex
	logger   *slog.Logger
)

// Logger returns the process logger, configured via the LOG_LEVEL
// environment variable. It writes to stdout until a run log is opened.
func Logger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = newLogger(os.Stdout)
	}
	return logger
}

func setLogger(l *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// OpenRunLog rotates the previous run's log file out of the way, opens a
// fresh one under dir, and returns a logger that writes to both the file
// and stdout. The caller owns the returned closer.
func OpenRunLog(dir string) (*slog.Logger, io.Closer, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return Logger(), nopCloser{}, nil
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(trimmed, runLogName)
	if err := rotatePrevious(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open run log: %w", err)
	}
	l := newLogger(io.MultiWriter(os.Stdout, file))
	setLogger(l)
	return l, file, nil
}

// rotatePrevious renames an existing run log using its modification
// timestamp so each run starts a clean file.
func rotatePrevious(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat previous log: %w", err)
	}
	stamp := info.ModTime().Format("2006-01-02-15-04")
	renamed := filepath.Join(filepath.Dir(path), stamp+"_"+runLogName)
	if err := os.Rename(path, renamed); err != nil {
		return fmt.Errorf("rotate previous log: %w", err)
	}
	return nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
