// Package telemetry wires OpenTelemetry tracing and metrics for the
// orchestrator: a span per dispatched plan step and per sentinel step, and
// counters for replans, stalls, dispatches, and sentinel ticks.
// Telemetry is ambient observability, not a product feature (spec §1 lists
// it as an external collaborator) — a Provider built with no exporter
// configured degrades to no-op tracer and meter so the orchestrator runs
// identically with or without a backend attached.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/fieldteam/orchestrator/domain/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ExporterType selects the trace exporter a Provider installs.
type ExporterType string

const (
	ExporterOTLP   ExporterType = "otlp"
	ExporterStdout ExporterType = "stdout"
	ExporterNoop   ExporterType = "noop"
)

// Config configures a Provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	Exporter           ExporterType
	Endpoint           string
	Insecure           bool
	SampleRate         float64
	BatchTimeout       time.Duration
	MaxExportBatchSize int
}

// DefaultConfig returns a disabled (no-op) configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:        "orchestrator",
		ServiceVersion:     "1.0.0",
		Environment:        "development",
		Exporter:           ExporterNoop,
		SampleRate:         1.0,
		BatchTimeout:       5 * time.Second,
		MaxExportBatchSize: 512,
	}
}

// Provider owns the tracer/meter pair and the exporter's shutdown hook.
type Provider struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	tracer         telemetry.Tracer
	meter          telemetry.Meter
}

// New builds a Provider from cfg. An Exporter of ExporterNoop (the zero
// value's effective default) yields a Provider whose Tracer/Meter discard
// everything, so callers can always construct one unconditionally.
func New(cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "orchestrator"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	p := &Provider{config: cfg}

	if cfg.Exporter == "" || cfg.Exporter == ExporterNoop {
		p.tracer = NewNoopTracer()
		p.meter = NewNoopMeter()
		return p, nil
	}

	if err := p.setupTracing(); err != nil {
		return nil, err
	}
	p.meter = NewOTelMeter(cfg.ServiceName)
	return p, nil
}

func (p *Provider) setupTracing() error {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(p.config.ServiceName),
		semconv.ServiceVersion(p.config.ServiceVersion),
		semconv.DeploymentEnvironment(p.config.Environment),
	)

	var exporter sdktrace.SpanExporter
	switch p.config.Exporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.Endpoint)}
		if p.config.Insecure {
			opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return err
		}
		exporter = exp
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return err
		}
		exporter = exp
	default:
		return errors.New("telemetry: unknown trace exporter " + string(p.config.Exporter))
	}

	var sampler sdktrace.Sampler
	switch {
	case p.config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.config.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(p.config.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(p.config.MaxExportBatchSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.tracerProvider = tp
	p.tracer = NewOTelTracer(p.config.ServiceName)
	return nil
}

// Tracer returns the provider's tracer.
func (p *Provider) Tracer() telemetry.Tracer { return p.tracer }

// Meter returns the provider's meter.
func (p *Provider) Meter() telemetry.Meter { return p.meter }

// Shutdown flushes and releases the exporter, a no-op when no exporter was
// installed.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// NewNoopProvider returns a Provider whose tracer and meter discard
// everything, for callers that want telemetry wired but disabled.
func NewNoopProvider() *Provider {
	return &Provider{config: DefaultConfig(), tracer: NewNoopTracer(), meter: NewNoopMeter()}
}
