package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

const (
	serviceName    = "worktimer"
	serviceVersion = "1.0.0"
)

// Recorder exports tracker metrics to an OTEL Collector.
type Recorder struct {
	shutdown         func(context.Context) error
	accruedMs        metric.Int64Counter
	eventsTotal      metric.Int64Counter
	deliveryFailures metric.Int64Counter
}

// NewRecorder creates a recorder that pushes to the configured collector.
func NewRecorder(ctx context.Context, cfg Config) (*Recorder, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return NewRecorderWithProvider(provider, provider.Shutdown)
}

// NewRecorderWithProvider builds the instruments on an existing provider.
// shutdown may be nil when the caller owns the provider.
func NewRecorderWithProvider(provider metric.MeterProvider, shutdown func(context.Context) error) (*Recorder, error) {
	meter := provider.Meter(serviceName)

	accruedMs, err := meter.Int64Counter(
		"worktimer_accrued_ms_total",
		metric.WithDescription("Wall-clock time classified by the accrual engine"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating accrual counter: %w", err)
	}

	eventsTotal, err := meter.Int64Counter(
		"worktimer_events_total",
		metric.WithDescription("Events emitted to the ingestion endpoint"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	deliveryFailures, err := meter.Int64Counter(
		"worktimer_delivery_failures_total",
		metric.WithDescription("Events given up on after the retry budget"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating delivery failures counter: %w", err)
	}

	if shutdown == nil {
		shutdown = func(context.Context) error { return nil }
	}
	return &Recorder{
		shutdown:         shutdown,
		accruedMs:        accruedMs,
		eventsTotal:      eventsTotal,
		deliveryFailures: deliveryFailures,
	}, nil
}

func (r *Recorder) RecordAccrual(ctx context.Context, kind ports.AccrualKind, ms int64) {
	if ms <= 0 {
		return
	}
	r.accruedMs.Add(ctx, ms, metric.WithAttributes(attribute.String("kind", string(kind))))
}

func (r *Recorder) RecordEvent(ctx context.Context, reason domain.Reason, source domain.Source) {
	r.eventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", string(reason)),
		attribute.String("source", string(source)),
	))
}

func (r *Recorder) RecordDeliveryFailure(ctx context.Context, mode ports.DeliveryMode) {
	r.deliveryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(mode))))
}

// Close shuts down the recorder and flushes any pending metrics.
func (r *Recorder) Close(ctx context.Context) error {
	return r.shutdown(ctx)
}
