package logger

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig describes a rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      LogLevel
	JSON       bool
	// Console mirrors records to stderr as well as the file.
	Console bool
}

// NewFileLogger creates a Logger that writes to a size-rotated file.
// The returned closer flushes and closes the file.
func NewFileLogger(cfg FileConfig) (Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, err
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	var w io.Writer = rotator
	if cfg.Console {
		w = io.MultiWriter(rotator, os.Stderr)
	}
	return NewSlogLogger(w, cfg.Level, &Options{JSON: cfg.JSON}), rotator, nil
}
