package log

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tesserae/tess-jobs/pkg/requestid"
)

// StructuredLogger builds operation tracers which log at debug level on progress and
// success and at error level on failure. Every line carries the request id and the
// operation name when known.
type StructuredLogger struct {
	name string
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *TracerBuilder {
	return &TracerBuilder{name: l.name, ctx: ctx}
}

type TracerBuilder struct {
	name      string
	ctx       context.Context
	operation string
	fields    []any
}

func (b *TracerBuilder) Operation(op string) *TracerBuilder {
	b.operation = op
	return b
}

func (b *TracerBuilder) WithParam(key string, value any) *TracerBuilder {
	b.fields = append(b.fields, key, value)
	return b
}

func (b *TracerBuilder) Build() *OperationTracer {
	fields := []any{"operation", b.operation}
	if b.ctx != nil {
		if id := requestid.FromContext(b.ctx); id != "" {
			fields = append(fields, "request_id", id)
		}
	}
	fields = append(fields, b.fields...)
	return &OperationTracer{
		logger:    zap.S().Named(b.name).WithOptions(zap.AddCallerSkip(1)).With(fields...),
		operation: b.operation,
		start:     time.Now(),
	}
}

// OperationTracer logs the lifecycle of a single operation.
type OperationTracer struct {
	logger    *zap.SugaredLogger
	operation string
	start     time.Time
}

func (t *OperationTracer) Step(name string) *LogEvent {
	return &LogEvent{log: t.logger.Debugw, msg: fmt.Sprintf("%s: %s", t.operation, name)}
}

func (t *OperationTracer) Success() *LogEvent {
	return &LogEvent{
		log:    t.logger.Debugw,
		msg:    fmt.Sprintf("%s succeeded", t.operation),
		fields: []any{"duration", time.Since(t.start)},
	}
}

func (t *OperationTracer) Error(err error) *LogEvent {
	return &LogEvent{
		log:    t.logger.Errorw,
		msg:    fmt.Sprintf("%s failed", t.operation),
		fields: []any{"error", err, "duration", time.Since(t.start)},
	}
}

type LogEvent struct {
	log    func(msg string, keysAndValues ...any)
	msg    string
	fields []any
}

func (e *LogEvent) WithParam(key string, value any) *LogEvent {
	e.fields = append(e.fields, key, value)
	return e
}

func (e *LogEvent) WithString(key, value string) *LogEvent {
	return e.WithParam(key, value)
}

func (e *LogEvent) WithInt(key string, value int) *LogEvent {
	return e.WithParam(key, value)
}

func (e *LogEvent) Log() {
	e.log(e.msg, e.fields...)
}
