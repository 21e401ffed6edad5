package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger emits structured records for one subsystem.
type Logger struct {
	zl zerolog.Logger
}

var (
	mu     sync.Mutex
	root   *Logger
	byName map[string]*Logger
)

// Init builds the root logger from cfg and resets the subsystem cache.
// Loggers fetched after Init derive from the new configuration; loggers
// already held by callers keep the old one.
func Init(cfg Config) {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	mu.Lock()
	defer mu.Unlock()
	root = &Logger{zl: build(cfg)}
	byName = make(map[string]*Logger)
}

// Get returns the logger for a subsystem, tagged with its component name,
// derived from the root logger and cached on first use.
func Get(name string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := byName[name]; ok {
		return l
	}
	if byName == nil {
		byName = make(map[string]*Logger)
	}
	l := &Logger{zl: rootLocked().zl.With().Str(FieldComponent, name).Logger()}
	byName[name] = l
	return l
}

// Debug logs at debug level with optional structured fields.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info logs at info level with optional structured fields.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn logs at warn level with optional structured fields.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error logs at error level with optional structured fields.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.emit(l.zl.Error(), msg, fields)
}

func (l *Logger) emit(ev *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			ev = ev.Interface(k, v)
		}
	}
	ev.Msg(msg)
}

// Package-level helpers log through the root logger.

func Debug(msg string, fields ...map[string]interface{}) { getRoot().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { getRoot().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { getRoot().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { getRoot().Error(msg, fields...) }

func getRoot() *Logger {
	mu.Lock()
	defer mu.Unlock()
	return rootLocked()
}

// rootLocked lazily builds a default root so logging before Init works.
func rootLocked() *Logger {
	if root == nil {
		var cfg Config
		cfg.ApplyDefaults()
		root = &Logger{zl: build(cfg)}
	}
	return root
}

func build(cfg Config) zerolog.Logger {
	var zl zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        writerFor(cfg.Output),
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		})
	} else {
		zl = zerolog.New(writerFor(cfg.Output))
	}

	ctx := zl.With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

func writerFor(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}
