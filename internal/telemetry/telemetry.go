package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	TracesSampler    string
	SampleRatio      float64
	MetricsInterval  time.Duration
	// Disabled skips exporter setup; instruments then report to the global no-op provider.
	Disabled bool
}

// LoadConfig reads the standard OTEL_* variables with portal defaults.
func LoadConfig() Config {
	cfg := Config{
		ServiceName:      envOr("OTEL_SERVICE_NAME", "care-portal"),
		ServiceNamespace: envOr("OTEL_SERVICE_NAMESPACE", "wailsalutem"),
		ServiceVersion:   envOr("OTEL_SERVICE_VERSION", "1.0.0"),
		Environment:      envOr("ENVIRONMENT", "production"),
		OTLPEndpoint:     envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracesSampler:    envOr("OTEL_TRACES_SAMPLER", "always_on"),
		SampleRatio:      0.1,
		MetricsInterval:  30 * time.Second,
		Disabled:         os.Getenv("OTEL_SDK_DISABLED") == "true",
	}
	if s := os.Getenv("OTEL_METRICS_EXPORT_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.MetricsInterval = d
		}
	}
	if s := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); s != "" {
		var r float64
		if _, err := fmt.Sscanf(s, "%g", &r); err == nil && r >= 0 && r <= 1 {
			cfg.SampleRatio = r
		}
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Provider holds the OpenTelemetry providers
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	config         Config
}

// InitProvider initializes OpenTelemetry tracer and meter providers.
// A missing collector degrades to no export; it never fails startup.
func InitProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Disabled {
		log.Info().Msg("OpenTelemetry export disabled")
		return p, nil
	}

	log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("initializing OpenTelemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp, err := initTracerProvider(ctx, cfg, res)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled: tracer provider unavailable")
	} else {
		otel.SetTracerProvider(tp)
		p.TracerProvider = tp
		log.Info().Msg("✓ OpenTelemetry tracer provider initialized")
	}

	mp, err := initMeterProvider(ctx, cfg, res)
	if err != nil {
		log.Warn().Err(err).Msg("metric export disabled: meter provider unavailable")
	} else {
		otel.SetMeterProvider(mp)
		p.MeterProvider = mp
		log.Info().Msg("✓ OpenTelemetry meter provider initialized")
	}

	return p, nil
}

func sampler(cfg Config) trace.Sampler {
	switch cfg.TracesSampler {
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(cfg.SampleRatio)
	case "parentbased_traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SampleRatio))
	}
	return trace.AlwaysSample()
}

func initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(sampler(cfg)),
		trace.WithBatcher(exp,
			trace.WithBatchTimeout(5*time.Second),
			trace.WithMaxExportBatchSize(512),
		),
	), nil
}

func initMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlpmetricgrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp,
			metric.WithInterval(cfg.MetricsInterval),
		)),
	), nil
}

// Shutdown flushes and stops both providers, returning the first error.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	if p.TracerProvider != nil {
		if e := p.TracerProvider.Shutdown(ctx); e != nil {
			log.Error().Err(e).Msg("tracer provider shutdown")
			err = e
		}
	}
	if p.MeterProvider != nil {
		if e := p.MeterProvider.Shutdown(ctx); e != nil {
			log.Error().Err(e).Msg("meter provider shutdown")
			if err == nil {
				err = e
			}
		}
	}
	return err
}
