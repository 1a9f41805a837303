// Package common wires the library's leveled logging.
//
// The library logs through dragonboat's logger facade so a co-hosted raft
// node and the access client share one configuration. This package supplies
// the factory behind that facade: every package logger writes through one
// serialized sink, and levels are configured from a compact spec string of
// the form
//
//	info
//	warn,client=debug,raft=error
//
// where the bare entry is the default level and name=level entries override
// individual packages. Selective debugging of the coordinator without raft
// noise is the common case this exists for.
package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Sink
// --------------------------------------------------------------------------

// sink serializes the writes of all package loggers onto one destination,
// so interleaved goroutines never tear a line.
type sink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *sink) write(level, name, msg string) {
	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s %-5s %s: %s\n", ts, level, name, msg)
}

var defaultSink = &sink{out: os.Stderr}

// --------------------------------------------------------------------------
// Package Logger
// --------------------------------------------------------------------------

// pkgLogger is the ILogger implementation handed out by the factory. The
// level may be adjusted at runtime through the facade's SetLevel.
type pkgLogger struct {
	name string
	sink *sink

	mu    sync.Mutex
	level logger.LogLevel
}

func (l *pkgLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *pkgLogger) enabled(level logger.LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level >= level
}

func (l *pkgLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.sink.write("DEBUG", l.name, fmt.Sprintf(format, args...))
	}
}

func (l *pkgLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.sink.write("INFO", l.name, fmt.Sprintf(format, args...))
	}
}

func (l *pkgLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.sink.write("WARN", l.name, fmt.Sprintf(format, args...))
	}
}

func (l *pkgLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.sink.write("ERROR", l.name, fmt.Sprintf(format, args...))
	}
}

// Panicf always writes and panics regardless of level; a critical condition
// must never be filtered away.
func (l *pkgLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.sink.write("PANIC", l.name, msg)
	panic(msg)
}

// CreateLogger builds the logger for one package name. Installed as the
// facade's factory by InitLoggers.
func CreateLogger(name string) logger.ILogger {
	return &pkgLogger{
		name:  name,
		sink:  defaultSink,
		level: logger.INFO,
	}
}

// --------------------------------------------------------------------------
// Level Spec
// --------------------------------------------------------------------------

// ParseLevel converts a level name to the facade's LogLevel.
func ParseLevel(s string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

// parseSpec splits a level spec into the default level and the per-package
// overrides.
func parseSpec(spec string) (logger.LogLevel, map[string]logger.LogLevel, error) {
	def := logger.INFO
	overrides := make(map[string]logger.LogLevel)

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if name, level, ok := strings.Cut(part, "="); ok {
			parsed, err := ParseLevel(level)
			if err != nil {
				return 0, nil, err
			}
			overrides[strings.TrimSpace(name)] = parsed
			continue
		}

		parsed, err := ParseLevel(part)
		if err != nil {
			return 0, nil, err
		}
		def = parsed
	}
	return def, overrides, nil
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// knownLoggers are the packages configured with the default level. Override
// names outside this list are applied as well.
var knownLoggers = []string{
	// library loggers
	"client", "backend", "actor", "cmd",
	// dragonboat loggers, relevant when a NodeHost resolver is co-hosted
	"raft", "rsm", "transport", "dragonboat",
}

// InitLoggers installs the factory and applies the level spec. Returns an
// error on a malformed spec, leaving previously applied levels untouched.
func InitLoggers(spec string) error {
	def, overrides, err := parseSpec(spec)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range knownLoggers {
		level := def
		if o, ok := overrides[name]; ok {
			level = o
		}
		logger.GetLogger(name).SetLevel(level)
	}
	for name, level := range overrides {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
