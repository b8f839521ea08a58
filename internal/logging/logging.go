// Package logging builds the zerolog logger shared by the CLI and shell.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// File, when set, also receives JSON lines through a rotating writer.
	File  string
	Quiet bool
	// Console defaults to os.Stderr.
	Console io.Writer
}

// ParseLevel maps a config level name onto a zerolog level. Unknown names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger writing human-readable lines to the console and,
// optionally, JSON lines to a rotated log file. Quiet raises the level to error.
func New(opts Options) zerolog.Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	level := ParseLevel(opts.Level)
	if opts.Quiet && level < zerolog.ErrorLevel {
		level = zerolog.ErrorLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen, NoColor: !isTerminal(console)}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = zerolog.MultiLevelWriter(w, rotator)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
