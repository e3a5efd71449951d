// Package log wraps logrus with the fields this server always wants on
// a request-path log line, and the rule that no attacker-controlled
// field (method, target, header value) is ever logged unescaped.
package log

import (
	"io"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide structured logger. It is safe for
// concurrent use, same as the *logrus.Logger it wraps.
type Logger struct {
	base *logrus.Logger
}

// New builds a Logger writing to w at the given level. JSON formatting
// matches the teacher's JSONFormatter choice for machine-consumed logs.
func New(w io.Writer, level logrus.Level, json bool) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &Logger{base: l}
}

// ConnectionFields returns the base fields attached to every log line
// for one accepted connection.
func ConnectionFields(remoteAddr string, tlsActive bool) logrus.Fields {
	return logrus.Fields{"remote_addr": remoteAddr, "tls": tlsActive}
}

// Sanitize bounds and escapes a value taken from client input before it
// reaches a log line, so a crafted header value cannot forge extra log
// records or blow up log storage.
func Sanitize(s string) string {
	const max = 128
	trimmed := s
	if len(trimmed) > max {
		trimmed = trimmed[:max]
	}
	return strconv.Quote(trimmed)
}

func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry { return l.base.WithFields(fields) }
func (l *Logger) Infof(format string, args ...interface{})      { l.base.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})      { l.base.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})     { l.base.Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...interface{})     { l.base.Fatalf(format, args...) }
