package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps both slog and zap loggers
type Logger struct {
	slog   *slog.Logger
	zap    *zap.Logger
	closer io.Closer
}

// Config holds logging configuration
type Config struct {
	Level     string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format    string `yaml:"format" validate:"omitempty,oneof=json console"`
	Output    string `yaml:"output"` // "stdout", "stderr" or a file path
	AddCaller bool   `yaml:"add_caller"`
	AddStack  bool   `yaml:"add_stack"`
}

// DefaultConfig logs info and above as JSON to stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: "stderr"}
}

// NewLogger creates a new structured logger
func NewLogger(config Config) (*Logger, error) {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.Output == "" {
		config.Output = "stderr"
	}

	var out io.Writer
	var closer io.Closer
	switch config.Output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output: %w", err)
		}
		out, closer = f, f
	}

	opts := &slog.HandlerOptions{Level: parseSlogLevel(config.Level), AddSource: config.AddCaller}
	var handler slog.Handler
	if config.Format == "console" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = parseZapLevel(config.Level)
	zapConfig.Encoding = config.Format
	zapConfig.OutputPaths = []string{config.Output}
	zapConfig.ErrorOutputPaths = []string{config.Output}
	zapConfig.DisableCaller = !config.AddCaller
	zapConfig.DisableStacktrace = !config.AddStack
	if config.Format == "console" {
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return &Logger{
		slog:   slog.New(handler),
		zap:    zapLogger,
		closer: closer,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		slog: slog.New(slog.DiscardHandler),
		zap:  zap.NewNop(),
	}
}

// parseSlogLevel parses slog level from string
func parseSlogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseZapLevel parses zap level from string
func parseZapLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// WithRunID adds the run ID to logger context
func (l *Logger) WithRunID(runID string) *Logger {
	return l.with(slog.String("run_id", runID), zap.String("run_id", runID))
}

// WithPolicy adds the acceptance policy to logger context
func (l *Logger) WithPolicy(policy string) *Logger {
	return l.with(slog.String("policy", policy), zap.String("policy", policy))
}

func (l *Logger) with(attr slog.Attr, field zap.Field) *Logger {
	return &Logger{
		slog:   l.slog.With(attr),
		zap:    l.zap.With(field),
		closer: l.closer,
	}
}

// WithFields adds fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	slogAttrs := make([]any, 0, len(fields)*2)
	zapFields := make([]zap.Field, 0, len(fields))

	for key, value := range fields {
		slogAttrs = append(slogAttrs, key, value)
		zapFields = append(zapFields, zap.Any(key, value))
	}

	return &Logger{
		slog:   l.slog.With(slogAttrs...),
		zap:    l.zap.With(zapFields...),
		closer: l.closer,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.slog.Debug(msg, args...)
	l.zap.Debug(msg, convertToZapFields(args)...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.slog.Info(msg, args...)
	l.zap.Info(msg, convertToZapFields(args)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.slog.Warn(msg, args...)
	l.zap.Warn(msg, convertToZapFields(args)...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.slog.Error(msg, args...)
	l.zap.Error(msg, convertToZapFields(args)...)
}

// convertToZapFields converts interface{} args to zap.Field
func convertToZapFields(args []interface{}) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields = append(fields, zap.Any(key, args[i+1]))
		}
	}
	return fields
}

// LogStep logs a finished step at debug level
func (l *Logger) LogStep(ctx context.Context, step int, score string, committed bool, selected, admitted int64, evaluation time.Duration) {
	fields := map[string]interface{}{
		"step":               step,
		"score":              score,
		"committed":          committed,
		"selected":           selected,
		"admitted":           admitted,
		"evaluation_time_ms": float64(evaluation.Nanoseconds()) / 1e6,
	}

	l.WithFields(fields).Debug("Step completed")
}

// LogPhase logs a finished phase
func (l *Logger) LogPhase(ctx context.Context, steps, newSolutions int, best string, reason string, duration time.Duration) {
	fields := map[string]interface{}{
		"steps":         steps,
		"new_solutions": newSolutions,
		"best_score":    best,
		"stop_reason":   reason,
		"duration_ms":   float64(duration.Nanoseconds()) / 1e6,
	}

	l.WithFields(fields).Info("Phase completed")
}

// LogCircuitBreaker logs a circuit breaker state change of an evaluator endpoint
func (l *Logger) LogCircuitBreaker(ctx context.Context, endpoint, state string) {
	fields := map[string]interface{}{
		"endpoint": endpoint,
		"state":    state,
	}

	l.WithFields(fields).Warn("Circuit breaker state changed")
}

// Sync syncs the logger
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Close syncs the logger and closes a file output
func (l *Logger) Close() error {
	// zap returns an error syncing a terminal; there is nothing to flush there
	_ = l.zap.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// GetSlog returns the slog logger
func (l *Logger) GetSlog() *slog.Logger {
	return l.slog
}

// GetZap returns the zap logger
func (l *Logger) GetZap() *zap.Logger {
	return l.zap
}
