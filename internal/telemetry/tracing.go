package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer emits one span per evaluation cycle and a child span per sensor
// evaluated within it, mirroring the orchestrator protocol of §4.8
// (begin_cycle -> evaluate each sensor in order -> end_cycle). Grounded on
// OpenTelemetryTracer in 99souls-ariadne/engine/monitoring/monitoring.go,
// adapted from ad hoc business-event attributes to the fixed cycle/sensor
// shape this engine has.
type Tracer struct {
	tracer      oteltrace.Tracer
	serviceName string
}

// NewTracer creates a Tracer backed by a new SDK tracer provider scoped to
// serviceName, and installs that provider as the global OTel tracer
// provider. Callers that already run their own OTel SDK
// pipeline should instead call NewTracerFrom with their own
// oteltrace.Tracer.
func NewTracer(serviceName string) *Tracer {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return &Tracer{tracer: tp.Tracer(serviceName), serviceName: serviceName}
}

// NewTracerFrom wraps an already-configured oteltrace.Tracer, for callers
// that manage their own TracerProvider and exporter pipeline.
func NewTracerFrom(tracer oteltrace.Tracer, serviceName string) *Tracer {
	return &Tracer{tracer: tracer, serviceName: serviceName}
}

// StartCycle opens the span for one begin_cycle..end_cycle pass.
func (t *Tracer) StartCycle(ctx context.Context, sensorSetName string, cycleID uint64) (context.Context, oteltrace.Span) {
	return t.tracer.Start(ctx, "synthformula.cycle", oteltrace.WithAttributes(
		attribute.String("sensor_set", sensorSetName),
		attribute.Int64("cycle_id", int64(cycleID)),
	))
}

// StartSensor opens a child span for evaluating one sensor within a cycle
// (main formula plus its attribute sub-DAG).
func (t *Tracer) StartSensor(ctx context.Context, sensorKey string) (context.Context, oteltrace.Span) {
	return t.tracer.Start(ctx, "synthformula.sensor", oteltrace.WithAttributes(
		attribute.String("sensor", sensorKey),
	))
}

// EndSensor closes a sensor span, recording success/failure and the
// elapsed evaluation time.
func EndSensor(span oteltrace.Span, start time.Time, err error) {
	span.SetAttributes(attribute.Int64("duration_microseconds", time.Since(start).Microseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// EndCycle closes a cycle span.
func EndCycle(span oteltrace.Span, start time.Time, changedCount int) {
	span.SetAttributes(
		attribute.Int64("duration_microseconds", time.Since(start).Microseconds()),
		attribute.Int("changed_sensors", changedCount),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
}
