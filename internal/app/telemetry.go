package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/metinatakli/cinex-booking/internal/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const (
	serviceName = "cinex-booking"

	metricExportInterval  = 15 * time.Second
	telemetryFlushTimeout = 5 * time.Second
)

// NewLogger writes text logs to out and, once a collector is configured, also
// forwards every record to the OpenTelemetry log pipeline.
func NewLogger(cfg config.Config, out io.Writer) *slog.Logger {
	textHandler := slog.NewTextHandler(out, nil)

	if cfg.OtelCollectorUrl == "" {
		return slog.New(textHandler)
	}

	return slog.New(NewMultiHandler(textHandler, otelslog.NewHandler(serviceName)))
}

type shutdownFunc func(context.Context) error

// signalSetup builds the exporter and provider of one telemetry signal, installs the
// provider globally and returns its shutdown.
type signalSetup struct {
	name  string
	setup func(ctx context.Context, endpoint string, res *resource.Resource) (shutdownFunc, error)
}

var telemetrySignals = []signalSetup{
	{name: "trace", setup: setupTracing},
	{name: "metric", setup: setupMetrics},
	{name: "log", setup: setupLogs},
}

// InitTelemetry exports traces, metrics and logs to the configured OTLP collector and
// returns a function that flushes and stops all of them. Without a collector URL it
// does nothing.
func InitTelemetry(ctx context.Context, cfg config.Config, logger *slog.Logger) (func(context.Context), error) {
	if cfg.OtelCollectorUrl == "" {
		logger.Info("OpenTelemetry collector URL not set, skipping initialization")

		return func(context.Context) {}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(cfg.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	shutdowns := make([]shutdownFunc, 0, len(telemetrySignals))
	shutdownAll := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, telemetryFlushTimeout)
		defer cancel()

		errs := make([]error, 0, len(shutdowns))
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}

		return errors.Join(errs...)
	}

	for _, signal := range telemetrySignals {
		shutdown, err := signal.setup(ctx, cfg.OtelCollectorUrl, res)
		if err != nil {
			_ = shutdownAll(context.Background())
			return nil, fmt.Errorf("failed to set up otel %s pipeline: %w", signal.name, err)
		}

		shutdowns = append(shutdowns, shutdown)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		if err := shutdownAll(ctx); err != nil {
			logger.Error("failed to shutdown telemetry providers", "error", err)
		}
	}, nil
}

func setupTracing(ctx context.Context, endpoint string, res *resource.Resource) (shutdownFunc, error) {
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}

	provider := trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithResource(res),
		trace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

func setupMetrics(ctx context.Context, endpoint string, res *resource.Resource) (shutdownFunc, error) {
	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithInsecure(), otlpmetricgrpc.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(metricExportInterval))),
	)
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

func setupLogs(ctx context.Context, endpoint string, res *resource.Resource) (shutdownFunc, error) {
	exporter, err := otlploggrpc.New(ctx, otlploggrpc.WithInsecure(), otlploggrpc.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}

	provider := log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(provider)

	return provider.Shutdown, nil
}

// MultiHandler fans each record out to every handler that accepts its level.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle ignores handler errors so every accepting handler sees the record.
func (h *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			_ = handler.Handle(ctx, record.Clone())
		}
	}

	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	derived := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		derived[i] = fn(handler)
	}

	return &MultiHandler{handlers: derived}
}
