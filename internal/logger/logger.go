package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"llm-scanner-bot/internal/trace"
)

var (
	// Safe no-op default so packages can log before Init in tests.
	base *zap.SugaredLogger = zap.NewNop().Sugar()

	// Whether detailed (debug) logging is enabled.
	detailed bool
)

// Config holds logging configuration.
type Config struct {
	Level    string // DEBUG, INFO, WARN, ERROR
	Format   string // json or console
	Detailed bool   // enable debug logs and caller info
}

// Init initializes the global logger from environment variables.
func Init() error {
	return InitWithConfig(Config{
		Level:    getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:   getEnvOrDefault("LOG_FORMAT", "json"),
		Detailed: getEnvOrDefault("LOG_DETAILED", "false") == "true",
	})
}

// InitWithConfig initializes the global logger with specific configuration.
func InitWithConfig(cfg Config) error {
	detailed = cfg.Detailed

	zcfg := zap.NewProductionConfig()
	if strings.ToLower(cfg.Format) == "console" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zcfg.DisableStacktrace = true
	zcfg.DisableCaller = !cfg.Detailed
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lg, err := zcfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return err
	}
	base = lg.Sugar()
	return nil
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = base.Sync()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// traceFields extracts trace/span IDs from the context for log correlation.
func traceFields(ctx context.Context) []any {
	traceID, spanID, ok := trace.GetTraceFields(ctx)
	if !ok {
		return nil
	}
	return []any{"trace_id", traceID, "span_id", spanID}
}

// logw writes one entry at the given level with trace correlation. skip is
// the number of additional stack frames between the caller and this function
// beyond the usual wrapper depth; middleware passes 1 to report its caller.
func logw(ctx context.Context, level zapcore.Level, skip int, msg string, args ...any) {
	if tf := traceFields(ctx); tf != nil {
		args = append(tf, args...)
	}
	lg := base
	if skip > 0 {
		lg = base.WithOptions(zap.AddCallerSkip(skip))
	}
	switch level {
	case zapcore.DebugLevel:
		lg.Debugw(msg, args...)
	case zapcore.InfoLevel:
		lg.Infow(msg, args...)
	case zapcore.WarnLevel:
		lg.Warnw(msg, args...)
	default:
		lg.Errorw(msg, args...)
	}
}

// Debug logs a debug message. Suppressed unless detailed logging is enabled.
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailed {
		return
	}
	logw(ctx, zapcore.DebugLevel, 0, msg, args...)
}

// DebugSkip is Debug reporting a caller further up the stack, for middleware.
func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	if !detailed {
		return
	}
	logw(ctx, zapcore.DebugLevel, skip, msg, args...)
}

// Info logs an info message.
func Info(ctx context.Context, msg string, args ...any) {
	logw(ctx, zapcore.InfoLevel, 0, msg, args...)
}

// InfoSkip is Info reporting a caller further up the stack, for middleware.
func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logw(ctx, zapcore.InfoLevel, skip, msg, args...)
}

// Warn logs a warning message.
func Warn(ctx context.Context, msg string, args ...any) {
	logw(ctx, zapcore.WarnLevel, 0, msg, args...)
}

// Error logs an error message.
func Error(ctx context.Context, msg string, args ...any) {
	logw(ctx, zapcore.ErrorLevel, 0, msg, args...)
}

// ErrorWithErr logs an error message with an error object and records the
// error on the active span.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logw(ctx, zapcore.ErrorLevel, 0, msg, append([]any{"error", err}, args...)...)
}

// ErrorWithErrSkip is ErrorWithErr reporting a caller further up the stack.
func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logw(ctx, zapcore.ErrorLevel, skip, msg, append([]any{"error", err}, args...)...)
}

func recordSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// OperationTimer measures an operation's duration inside an OTel span.
type OperationTimer struct {
	ctx    context.Context
	span   oteltrace.Span
	start  time.Time
	fields []any
}

// StartOperation starts timing an operation with an OpenTelemetry span.
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	ctx, span := trace.StartSpan(ctx, operation)
	span.SetAttributes(attrsFromFields(fields)...)

	if detailed {
		Debug(ctx, "Operation started", append([]any{"operation", operation}, fields...)...)
	}

	return &OperationTimer{ctx: ctx, span: span, start: time.Now(), fields: fields}
}

// End completes the operation timer.
func (ot *OperationTimer) End(additionalFields ...any) {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.SetAttributes(attrsFromFields(additionalFields)...)
	ot.span.SetStatus(codes.Ok, "completed")
	ot.span.End()

	if detailed {
		fields := append(ot.fields, "duration_ms", duration.Milliseconds())
		fields = append(fields, additionalFields...)
		Debug(ot.ctx, "Operation completed", fields...)
	}
}

// EndWithError completes the operation timer with an error.
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.RecordError(err)
	ot.span.SetStatus(codes.Error, err.Error())
	ot.span.End()

	fields := append(ot.fields, "duration_ms", duration.Milliseconds(), "error", err)
	fields = append(fields, additionalFields...)
	Error(ot.ctx, "Operation failed", fields...)
}

// GetContext returns the context carrying the operation's span.
func (ot *OperationTimer) GetContext() context.Context {
	return ot.ctx
}

func attrsFromFields(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		}
	}
	return attrs
}

// Decision logs a parsed trading decision (always logged regardless of level).
func Decision(ctx context.Context, symbol, action string, confidence int, reason string, fields ...any) {
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("trading_decision", oteltrace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("action", action),
			attribute.Int("confidence", confidence),
			attribute.String("reason", reason),
		))
	}

	allFields := append([]any{
		"type", "DECISION",
		"symbol", symbol,
		"action", action,
		"confidence", confidence,
		"reason", reason,
	}, fields...)
	logw(ctx, zapcore.InfoLevel, 0, "Trading decision parsed", allFields...)
}

// Order logs an order submission (always logged regardless of level).
func Order(ctx context.Context, symbol, action string, qty int, entry, stop float64, orderID string, fields ...any) {
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("order_submitted", oteltrace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("action", action),
			attribute.Int("quantity", qty),
			attribute.Float64("entry", entry),
			attribute.Float64("stop_loss", stop),
			attribute.String("order_id", orderID),
		))
	}

	allFields := append([]any{
		"type", "ORDER",
		"symbol", symbol,
		"action", action,
		"quantity", qty,
		"entry", entry,
		"stop_loss", stop,
		"order_id", orderID,
	}, fields...)
	logw(ctx, zapcore.InfoLevel, 0, "Order submitted", allFields...)
}

// Suppression logs a gate suppression event (always logged regardless of level).
func Suppression(ctx context.Context, symbol, reason string, fields ...any) {
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("execution_suppressed", oteltrace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("reason", reason),
		))
	}

	allFields := append([]any{
		"type", "SUPPRESSED",
		"symbol", symbol,
		"reason", reason,
	}, fields...)
	logw(ctx, zapcore.WarnLevel, 0, "Execution suppressed", allFields...)
}

// IsDebugEnabled returns whether debug logging is enabled.
func IsDebugEnabled() bool {
	return detailed
}
