// Package metrics records what the grayscale pipeline does using
// OpenTelemetry instruments.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const meterName = "pleasant"

// Config describes OTLP export.
type Config struct {
	Endpoint string
	Insecure bool
	Interval time.Duration
	Service  string
	Version  string
}

// Recorder holds instruments. Nil Recorder is valid and records nothing.
type Recorder struct {
	provider *sdkmetric.MeterProvider

	passes       metric.Int64Counter
	passDuration metric.Float64Histogram
	resolutions  metric.Int64Counter
	writes       metric.Int64Counter
	skipped      metric.Int64Counter
}

// NewNop returns recorder backed by no-op instruments.
func NewNop() *Recorder {
	r, err := newRecorder(noop.NewMeterProvider().Meter(meterName))
	if err != nil {
		// noop instruments never fail
		panic(err)
	}
	return r
}

// New creates recorder exporting over OTLP/gRPC. When endpoint is not
// configured, no-op recorder is returned.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	if cfg.Endpoint == "" {
		return NewNop(), nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlpmetricgrpc.WithInsecure(),
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	return NewWithReader(sdkmetric.NewPeriodicReader(exp, readerOpts...), cfg.Service, cfg.Version)
}

// NewWithReader creates recorder feeding reader.
func NewWithReader(reader sdkmetric.Reader, service, version string) (*Recorder, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", service),
		attribute.String("service.version", version),
	)
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	r, err := newRecorder(provider.Meter(meterName))
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	r.provider = provider
	return r, nil
}

func newRecorder(meter metric.Meter) (*Recorder, error) {
	var (
		r   Recorder
		err error
	)
	if r.passes, err = meter.Int64Counter("pleasant_passes_total",
		metric.WithDescription("Completed stylesheet walks"),
		metric.WithUnit("{pass}")); err != nil {
		return nil, fmt.Errorf("creating passes counter: %w", err)
	}
	if r.passDuration, err = meter.Float64Histogram("pleasant_pass_duration_seconds",
		metric.WithDescription("Duration of synchronous stylesheet walk"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating pass duration histogram: %w", err)
	}
	if r.resolutions, err = meter.Int64Counter("pleasant_resolutions_total",
		metric.WithDescription("Color resolutions by kind and outcome"),
		metric.WithUnit("{resolution}")); err != nil {
		return nil, fmt.Errorf("creating resolutions counter: %w", err)
	}
	if r.writes, err = meter.Int64Counter("pleasant_writes_total",
		metric.WithDescription("Declarations rewritten"),
		metric.WithUnit("{declaration}")); err != nil {
		return nil, fmt.Errorf("creating writes counter: %w", err)
	}
	if r.skipped, err = meter.Int64Counter("pleasant_skipped_sheets_total",
		metric.WithDescription("Stylesheets skipped as cross-origin"),
		metric.WithUnit("{sheet}")); err != nil {
		return nil, fmt.Errorf("creating skipped sheets counter: %w", err)
	}
	return &r, nil
}

// Pass records completed walk.
func (r *Recorder) Pass(ctx context.Context, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.passes.Add(ctx, 1)
	r.passDuration.Record(ctx, elapsed.Seconds())
}

// Resolved records color resolution outcome.
func (r *Recorder) Resolved(ctx context.Context, kind string, ok bool) {
	if r == nil {
		return
	}
	r.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("resolved", ok),
	))
}

// Written records rewritten declaration.
func (r *Recorder) Written(ctx context.Context, kind string) {
	if r == nil {
		return
	}
	r.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// SheetSkipped records stylesheet which was not walked.
func (r *Recorder) SheetSkipped(ctx context.Context) {
	if r == nil {
		return
	}
	r.skipped.Add(ctx, 1)
}

// Close flushes and shuts down export, if any.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Shutdown(ctx)
}
