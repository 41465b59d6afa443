package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/logger"
)

type Config struct {
	Enabled     bool
	ServiceName string            // e.g., "cvm-extrato"
	Exporter    string            // "stdout", "otlp" or "none"
	Endpoint    string            // OTLP endpoint, e.g., "localhost:4317" (required for "otlp")
	Protocol    string            // "grpc" or "http" (default "grpc" for "otlp")
	Insecure    bool              // Disable TLS for OTLP (development only)
	Headers     map[string]string // Custom headers for OTLP, e.g., for auth
	LogFile     string            // Path for JSON logs
	LogLevel    string            // "debug", "info", "warn", "error" (default "info")
	Version     string
}

// Shutdown flushes and stops whatever InitOTEL started.
type Shutdown func(context.Context) error

// InitOTEL sets up providers, tracer, meter, and returns them + bridged logger.
// With telemetry disabled or the "none" exporter, tracer and meter are no-ops
// and the logger only writes to LogFile.
func InitOTEL(
	cfg Config,
) (trace.Tracer, metric.Meter, *zap.SugaredLogger, Shutdown, error) {
	if !cfg.Enabled || cfg.Exporter == "none" {
		return initNoop(cfg)
	}
	ctx := context.Background()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if cfg.Exporter == "otlp" {
		if cfg.Endpoint == "" {
			return nil, nil, nil, nil, fmt.Errorf("OTLP endpoint required")
		}
		if cfg.Protocol == "" {
			cfg.Protocol = "grpc"
		}
	}

	traceExp, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("trace exporter: %w", err)
	}
	logExp, err := newLogExporter(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("log exporter: %w", err)
	}
	metricExp, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
	)
	otel.SetMeterProvider(mp)

	lp := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(logExp)),
		log.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	tracer := otel.Tracer(cfg.ServiceName)
	meter := otel.Meter(cfg.ServiceName)

	var cores []zapcore.Core
	if cfg.LogFile != "" {
		cores = append(cores, logger.FileCore(cfg.LogFile, logger.ParseLevel(cfg.LogLevel)))
	}
	cores = append(cores, otelzap.NewCore(
		cfg.ServiceName,
		otelzap.WithLoggerProvider(global.GetLoggerProvider()),
		otelzap.WithVersion(cfg.Version),
	))

	zapLogger := zap.New(zapcore.NewTee(cores...))

	shutdown := func(ctx context.Context) error {
		var shutdownErr error
		if err := tp.Shutdown(ctx); err != nil {
			shutdownErr = err
		}
		if err := lp.Shutdown(ctx); err != nil {
			shutdownErr = err
		}
		if err := mp.Shutdown(ctx); err != nil {
			shutdownErr = err
		}
		_ = zapLogger.Sync()
		return shutdownErr
	}

	return tracer, meter, zapLogger.Sugar(), shutdown, nil
}

func initNoop(cfg Config) (trace.Tracer, metric.Meter, *zap.SugaredLogger, Shutdown, error) {
	sugar, err := logger.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	tracer := tracenoop.NewTracerProvider().Tracer(cfg.ServiceName)
	meter := metricnoop.NewMeterProvider().Meter(cfg.ServiceName)
	shutdown := func(context.Context) error {
		_ = sugar.Sync()
		return nil
	}
	return tracer, meter, sugar, shutdown, nil
}

func newTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		var client otlptrace.Client
		switch cfg.Protocol {
		case "grpc":
			opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
			if cfg.Insecure {
				opts = append(opts, otlptracegrpc.WithInsecure())
			}
			if len(cfg.Headers) > 0 {
				opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
			}
			client = otlptracegrpc.NewClient(opts...)
		case "http":
			opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
			if cfg.Insecure {
				opts = append(opts, otlptracehttp.WithInsecure())
			}
			if len(cfg.Headers) > 0 {
				opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
			}
			client = otlptracehttp.NewClient(opts...)
		default:
			return nil, fmt.Errorf("invalid protocol: %s", cfg.Protocol)
		}
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}

func newLogExporter(ctx context.Context, cfg Config) (log.Exporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdoutlog.New()
	case "otlp":
		switch cfg.Protocol {
		case "grpc":
			opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
			if cfg.Insecure {
				opts = append(opts, otlploggrpc.WithInsecure())
			}
			if len(cfg.Headers) > 0 {
				opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
			}
			return otlploggrpc.New(ctx, opts...)
		case "http":
			opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
			if cfg.Insecure {
				opts = append(opts, otlploghttp.WithInsecure())
			}
			if len(cfg.Headers) > 0 {
				opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
			}
			return otlploghttp.New(ctx, opts...)
		default:
			return nil, fmt.Errorf("invalid protocol: %s", cfg.Protocol)
		}
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}

func newMetricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	case "otlp":
		switch cfg.Protocol {
		case "grpc":
			opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
			if cfg.Insecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}
			if len(cfg.Headers) > 0 {
				opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
			}
			return otlpmetricgrpc.New(ctx, opts...)
		case "http":
			opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
			if cfg.Insecure {
				opts = append(opts, otlpmetrichttp.WithInsecure())
			}
			if len(cfg.Headers) > 0 {
				opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
			}
			return otlpmetrichttp.New(ctx, opts...)
		default:
			return nil, fmt.Errorf("invalid protocol: %s", cfg.Protocol)
		}
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}
