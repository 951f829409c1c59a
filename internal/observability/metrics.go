package observability

import (
	"context"
	"sync"

	"ideaboard/internal/config"
	contextutils "ideaboard/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// Metric names recorded by the client
const (
	MetricAPIRequests       = "ideaboard.api.requests"
	MetricReactions         = "ideaboard.reactions"
	MetricNotificationPolls = "ideaboard.notification_polls"
)

type clientInstruments struct {
	apiRequests       otelmetric.Int64Counter
	reactions         otelmetric.Int64Counter
	notificationPolls otelmetric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	instruments     clientInstruments
)

// counters are created lazily against the global meter provider; the global
// delegate forwards to whatever provider SetupObservability installs later.
func clientCounters() *clientInstruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter("ideaboard")
		instruments.apiRequests, _ = meter.Int64Counter(MetricAPIRequests,
			otelmetric.WithDescription("REST calls made by the client, by method, route and status"))
		instruments.reactions, _ = meter.Int64Counter(MetricReactions,
			otelmetric.WithDescription("Like/dislike mutations, by reaction and outcome"))
		instruments.notificationPolls, _ = meter.Int64Counter(MetricNotificationPolls,
			otelmetric.WithDescription("Notification poll ticks, by outcome"))
	})
	return &instruments
}

// RecordAPIRequest counts one REST call
func RecordAPIRequest(ctx context.Context, method, route string, status int) {
	if c := clientCounters().apiRequests; c != nil {
		c.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		))
	}
}

// RecordReaction counts one reaction mutation
func RecordReaction(ctx context.Context, reaction, outcome string) {
	if c := clientCounters().reactions; c != nil {
		c.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("reaction", reaction),
			attribute.String("outcome", outcome),
		))
	}
}

// RecordNotificationPoll counts one poller tick
func RecordNotificationPoll(ctx context.Context, outcome string) {
	if c := clientCounters().notificationPolls; c != nil {
		c.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
