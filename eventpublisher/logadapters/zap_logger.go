// Package logadapters provides a go.uber.org/zap implementation of the eventpublisher logging interfaces.
package logadapters

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

const (
	fieldTraceID = "trace_id"
	fieldSpanID  = "span_id"
)

// Config holds the settings for New.
type Config struct {
	Level       string
	Encoding    string
	ServiceName string
	Development bool
}

// New builds a zap logger writing to stdout.
// Level is one of debug, info, warn, error (info by default), Encoding is json (default) or console.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Encoding == "" {
		cfg.Encoding = "json"
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder

	config := zap.Config{
		Level:            ParseLevel(cfg.Level),
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	if cfg.ServiceName != "" {
		logger = logger.With(zap.String("service", cfg.ServiceName))
	}

	return logger, nil
}

// ParseLevel converts a level name to a zap.AtomicLevel, unknown names yield info.
func ParseLevel(level string) zap.AtomicLevel {
	switch strings.ToLower(level) {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn", "warning":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// ZapLogger implements eventpublisher.Logger and eventpublisher.ContextualLogger on top of zap.
// Args are slog-style key-value pairs. The context variants add trace_id and span_id of the
// active OpenTelemetry span, if there is one.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps logger. The caller skip is adjusted so zap reports the publisher's call site.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }

func (l *ZapLogger) Info(msg string, args ...any) { l.sugar.Infow(msg, args...) }

func (l *ZapLogger) Warn(msg string, args ...any) { l.sugar.Warnw(msg, args...) }

func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

func (l *ZapLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Debugw(msg, withTrace(ctx, args)...)
}

func (l *ZapLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Infow(msg, withTrace(ctx, args)...)
}

func (l *ZapLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Warnw(msg, withTrace(ctx, args)...)
}

func (l *ZapLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Errorw(msg, withTrace(ctx, args)...)
}

func withTrace(ctx context.Context, args []any) []any {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return args
	}

	return append(args, fieldTraceID, spanCtx.TraceID().String(), fieldSpanID, spanCtx.SpanID().String())
}

var (
	_ eventpublisher.Logger           = (*ZapLogger)(nil)
	_ eventpublisher.ContextualLogger = (*ZapLogger)(nil)
)
