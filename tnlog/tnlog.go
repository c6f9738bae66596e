// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tnlog implements the two orthogonal logging levels of
// spec.md §6 ("Logging levels. Two orthogonal integer levels (client,
// runtime); 0 = silent") as a thin leveled logger wrapping log/slog, the
// structural-logging library the wider corpus reaches for in place of
// bare fmt.Printf (the teacher carries no logging package of its own).
package tnlog

import (
	"context"
	"log/slog"
	"os"
)

// Level is an integer verbosity level; 0 means silent.
type Level int

const (
	// Silent disables all output for a channel.
	Silent Level = 0
	// Error logs only failures.
	Error Level = 1
	// Info logs lifecycle and scheduling events.
	Info Level = 2
	// Debug logs per-operation detail.
	Debug Level = 3
)

// Logger carries two independent levels — client (user-facing
// operations: submit, sync) and runtime (scheduler/executor internals)
// — over a single slog.Logger sink.
type Logger struct {
	client  Level
	runtime Level
	sink    *slog.Logger
}

// New returns a Logger writing text-handler output to os.Stderr at the
// given client and runtime levels.
func New(client, runtime Level) *Logger {
	return &Logger{
		client:  client,
		runtime: runtime,
		sink:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

// SetClientLevel updates the client-facing verbosity level.
func (l *Logger) SetClientLevel(lvl Level) { l.client = lvl }

// SetRuntimeLevel updates the scheduler/executor verbosity level.
func (l *Logger) SetRuntimeLevel(lvl Level) { l.runtime = lvl }

// Client logs a client-facing event at lvl, if the client level admits it.
func (l *Logger) Client(lvl Level, msg string, args ...any) {
	l.log(l.client, lvl, msg, args...)
}

// Runtime logs a scheduler/executor event at lvl, if the runtime level
// admits it.
func (l *Logger) Runtime(lvl Level, msg string, args ...any) {
	l.log(l.runtime, lvl, msg, args...)
}

func (l *Logger) log(current, lvl Level, msg string, args ...any) {
	if current < lvl || lvl == Silent {
		return
	}
	l.sink.Log(context.Background(), slogLevel(lvl), msg, args...)
}

func slogLevel(lvl Level) slog.Level {
	switch lvl {
	case Error:
		return slog.LevelError
	case Info:
		return slog.LevelInfo
	case Debug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
