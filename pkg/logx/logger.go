package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Logger writes formatted entries to an output.
type Logger struct {
	config    *Config
	formatter Formatter
	level     atomic.Uint32

	mu     sync.Mutex
	writer io.Writer

	exitFunc func(int)
}

func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var formatter Formatter = &ConsoleFormatter{config: config}
	if config.Format == FormatJSON {
		formatter = &JSONFormatter{config: config}
	}

	writer := config.Output
	if writer == nil {
		writer = os.Stdout
	}

	l := &Logger{
		config:    config,
		formatter: formatter,
		writer:    writer,
		exitFunc:  os.Exit,
	}
	l.level.Store(uint32(config.Level))
	return l
}

func (l *Logger) SetLevel(level Level) {
	l.level.Store(uint32(level))
}

func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	if !l.Level().Enabled(level) {
		return
	}

	entry := &LogEntry{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Error:     err,
		Timestamp: time.Now(),
	}
	if l.config.EnableCaller {
		entry.Caller = caller(3)
	}

	formatted, ferr := l.formatter.Format(entry)
	if ferr != nil {
		fmt.Fprintf(os.Stderr, "logx: format: %v\n", ferr)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, werr := l.writer.Write(formatted); werr != nil {
		fmt.Fprintf(os.Stderr, "logx: write: %v\n", werr)
	}
}

func (l *Logger) WithField(key string, value any) *Entry {
	return newEntry(l).WithField(key, value)
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return newEntry(l).WithFields(fields)
}

func (l *Logger) WithError(err error) *Entry {
	return newEntry(l).WithError(err)
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewLogger(LoadFromEnv()))
}

// SetDefaultLogger replaces the package level logger.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

func GetDefaultLogger() *Logger {
	return defaultLogger.Load()
}

func SetLevel(level Level) {
	GetDefaultLogger().SetLevel(level)
}

func Debug(msg string) { GetDefaultLogger().log(LevelDebug, msg, nil, nil) }
func Info(msg string)  { GetDefaultLogger().log(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { GetDefaultLogger().log(LevelWarn, msg, nil, nil) }
func Error(msg string) { GetDefaultLogger().log(LevelError, msg, nil, nil) }

func Debugf(format string, args ...any) {
	GetDefaultLogger().log(LevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

func Infof(format string, args ...any) {
	GetDefaultLogger().log(LevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

func Warnf(format string, args ...any) {
	GetDefaultLogger().log(LevelWarn, fmt.Sprintf(format, args...), nil, nil)
}

func Errorf(format string, args ...any) {
	GetDefaultLogger().log(LevelError, fmt.Sprintf(format, args...), nil, nil)
}

// Fatalf logs and exits the process.
func Fatalf(format string, args ...any) {
	l := GetDefaultLogger()
	l.log(LevelFatal, fmt.Sprintf(format, args...), nil, nil)
	l.exitFunc(1)
}

func WithFields(fields Fields) *Entry {
	return GetDefaultLogger().WithFields(fields)
}

func WithField(key string, value any) *Entry {
	return GetDefaultLogger().WithField(key, value)
}

func WithError(err error) *Entry {
	return GetDefaultLogger().WithError(err)
}
