package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/datalog-analyzer-go/log"
)

type Telemetry struct {
	ctx    context.Context
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
}

func (t Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
	defer cancel()
	if err := t.tracer.Shutdown(ctx); err != nil {
		log.Warn("could not shutdown tracer", log.ErrorField(err))
	}
	if err := t.meter.Shutdown(ctx); err != nil {
		log.Warn("could not shutdown meter", log.ErrorField(err))
	}
}

// SetupTelemetry registers global trace and meter providers.
// TelemetryEndpoint "stdout" writes to the console instead of an otlp collector.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	var traceExporter sdktrace.SpanExporter
	var metricExporter sdkmetric.Exporter
	var err error
	if TelemetryEndpoint == "stdout" {
		if traceExporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint()); err != nil {
			return nil, err
		}
		if metricExporter, err = stdoutmetric.New(); err != nil {
			return nil, err
		}
	} else {
		if traceExporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(TelemetryEndpoint),
			otlptracegrpc.WithInsecure()); err != nil {
			return nil, err
		}
		if metricExporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure()); err != nil {
			return nil, errors.Join(err, traceExporter.Shutdown(ctx))
		}
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(15*time.Second))))
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return &Telemetry{ctx: ctx, tracer: tp, meter: mp}, nil
}
