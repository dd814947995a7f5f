package logx

import (
	"fmt"
	"maps"
)

// Fields is a map of structured data
type Fields map[string]any

// Entry accumulates fields for one log line. With* methods return a new
// entry so a base entry can be shared between goroutines.
type Entry struct {
	logger *Logger
	fields Fields
	err    error
}

func newEntry(logger *Logger) *Entry {
	return &Entry{logger: logger, fields: make(Fields)}
}

func (e *Entry) clone() *Entry {
	return &Entry{logger: e.logger, fields: maps.Clone(e.fields), err: e.err}
}

func (e *Entry) WithField(key string, value any) *Entry {
	n := e.clone()
	n.fields[key] = value
	return n
}

func (e *Entry) WithFields(fields Fields) *Entry {
	n := e.clone()
	maps.Copy(n.fields, fields)
	return n
}

func (e *Entry) WithError(err error) *Entry {
	n := e.clone()
	n.err = err
	return n
}

func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields, e.err) }
func (e *Entry) Info(msg string)  { e.logger.log(LevelInfo, msg, e.fields, e.err) }
func (e *Entry) Warn(msg string)  { e.logger.log(LevelWarn, msg, e.fields, e.err) }
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields, e.err) }

func (e *Entry) Debugf(format string, args ...any) {
	e.logger.log(LevelDebug, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Infof(format string, args ...any) {
	e.logger.log(LevelInfo, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Warnf(format string, args ...any) {
	e.logger.log(LevelWarn, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Errorf(format string, args ...any) {
	e.logger.log(LevelError, fmt.Sprintf(format, args...), e.fields, e.err)
}
