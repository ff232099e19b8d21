// Package logger provides structured logging for the product component store
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with store-specific helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info
func ParseLevel(name string) zerolog.Level {
	switch name {
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

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "pcstore").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string) *zerolog.Event {
	return l.zlog.Fatal().Str("msg", msg)
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// RepositoryLogger returns a logger for one repository instance
func (l *Logger) RepositoryLogger(name, instanceID string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "repository").
			Str("repository", name).
			Str("instance", instanceID).
			Logger(),
	}
}

// ManagerLogger returns a logger for a repository manager
func (l *Logger) ManagerLogger(name string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "manager").
			Str("manager", name).
			Logger(),
	}
}

// StorageLogger returns a logger for a data source backend
func (l *Logger) StorageLogger(backend string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "storage").
			Str("backend", backend).
			Logger(),
	}
}

// LogMaterialize logs one object factory call
func (l *Logger) LogMaterialize(category, key string, duration time.Duration, err error) {
	event := l.zlog.Debug().
		Str("category", category).
		Str("key", key).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("category", category).
			Str("key", key).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("Object materialized")
}

// LogRebuild logs a repository rebuild done by a manager
func (l *Logger) LogRebuild(instanceID string, upstream int, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("event", "repository_rebuild").
		Str("instance", instanceID).
		Int("upstream", upstream).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("event", "repository_rebuild").
			Int("upstream", upstream).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("Repository rebuild completed")
}

// LogServerStart logs observability server startup
func (l *Logger) LogServerStart(addr string, repositories int) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("addr", addr).
		Int("repositories", repositories).
		Msg("pcstore observability server starting")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("pcstore server shutting down")
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	l := NewLogger(cfg)
	globalMu.Lock()
	globalLogger = l
	log.Logger = *l.GetZerolog()
	globalMu.Unlock()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	// Initialize with defaults if not set
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewLogger(Config{Level: "info", Pretty: true})
		log.Logger = *globalLogger.GetZerolog()
	}
	return globalLogger
}
