package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

type Logger struct {
	level  string
	prefix string
	out    *log.Logger
}

func New(level string) *Logger {
	return &Logger{
		level: strings.ToLower(level),
		out:   log.Default(),
	}
}

// NewWithWriter is used by tests to capture output.
func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		level: strings.ToLower(level),
		out:   log.New(w, "", log.LstdFlags),
	}
}

// Named returns a logger that tags every line with the component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		level:  l.level,
		prefix: l.prefix + "[" + name + "] ",
		out:    l.out,
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level == "debug" || l.level == "info" {
		l.out.Printf("[INFO] "+l.prefix+msg, args...)
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level == "debug" {
		l.out.Printf("[DEBUG] "+l.prefix+msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level != "error" {
		l.out.Printf("[WARN] "+l.prefix+msg, args...)
	}
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.out.Printf("[ERROR] "+l.prefix+msg, args...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.out.Printf("[FATAL] "+l.prefix+msg, args...)
	os.Exit(1)
}
