package observability

import (
	"context"
	"errors"
	"os"

	"ideaboard/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// Providers holds whatever SetupObservability installed so it can be flushed on exit
type Providers struct {
	TracerProvider trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Logger         *Logger
}

// Shutdown flushes and stops the installed providers
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if tp, ok := p.TracerProvider.(*sdktrace.TracerProvider); ok {
		errs = append(errs, tp.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	if p.Logger != nil {
		// stderr sync fails on some terminals; nothing useful to do about it
		_ = p.Logger.Sync()
	}
	return errors.Join(errs...)
}

// SetupObservability initializes tracing, metrics, and logging for a command run
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string, level zapcore.Level) (result0 *Providers, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", cfg.ServiceVersion); err != nil {
		return nil, err
	}

	p := &Providers{Logger: NewLoggerWithLevel(cfg, level)}

	if cfg.EnableTracing {
		if cfg.UseAutoSDK {
			p.TracerProvider = autosdk.TracerProvider()
			p.Logger.Debug(context.Background(), "Tracing enabled with Auto SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		} else {
			tp, err := InitStandardTracing(cfg)
			if err != nil {
				return nil, err
			}
			p.TracerProvider = tp
			p.Logger.Debug(context.Background(), "Tracing enabled with standard SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		}
		otel.SetTracerProvider(p.TracerProvider)
		InitPropagation()
		InitGlobalTracer()
	}

	if cfg.EnableMetrics {
		mp, err := InitMetrics(cfg)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		p.MeterProvider = mp
	}

	return p, nil
}
