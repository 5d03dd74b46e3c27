package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig configures the OpenTelemetry metrics SDK.
type ProviderConfig struct {
	// ServiceName is the service name reported in telemetry. Default:
	// "phondecode".
	ServiceName string

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string
}

// InitProvider initialises the OTel metrics SDK with the given config: a
// [sdkmetric.MeterProvider] backed by a Prometheus exporter, so a batch
// run's counters can be scraped via /metrics if the caller exposes that
// endpoint. Registers the provider as the global OTel meter provider.
//
// Returns a shutdown function that flushes and closes the exporter. Call
// it in a defer from main().
func InitProvider(cfg ProviderConfig) (shutdown func(ctx context.Context) error, err error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "phondecode"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
