// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package logger

import "log"

// Logger provides a simple logging interface
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type defaultLogger struct {
	prefix string
	debug  bool
}

// New creates a logger. Debug output is suppressed unless enabled.
func New(prefix string, debug bool) Logger {
	if prefix != "" {
		prefix = prefix + ": "
	}
	return &defaultLogger{prefix: prefix, debug: debug}
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	log.Printf("[INFO] "+l.prefix+format, args...)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	log.Printf("[WARN] "+l.prefix+format, args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	log.Printf("[ERROR] "+l.prefix+format, args...)
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	log.Printf("[DEBUG] "+l.prefix+format, args...)
}

type nopLogger struct{}

// Nop returns a logger that discards everything.
func Nop() Logger { return &nopLogger{} }

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Warn(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
