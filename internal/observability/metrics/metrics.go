package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	departmentsCreated  metric.Int64Counter
	departmentsRemoved  metric.Int64Counter
	cascadeRowsDeleted  metric.Int64Counter
	integrationChanges  metric.Int64Counter
	authorizationDenied metric.Int64Counter
	lockContention      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "missioncontrol"
	}
	meter := provider.Meter(name)

	departmentsCreated, err := meter.Int64Counter("missioncontrol_departments_created_total")
	if err != nil {
		return nil, err
	}
	departmentsRemoved, err := meter.Int64Counter("missioncontrol_departments_removed_total")
	if err != nil {
		return nil, err
	}
	cascadeRowsDeleted, err := meter.Int64Counter("missioncontrol_cascade_rows_deleted_total")
	if err != nil {
		return nil, err
	}
	integrationChanges, err := meter.Int64Counter("missioncontrol_integration_changes_total")
	if err != nil {
		return nil, err
	}
	authorizationDenied, err := meter.Int64Counter("missioncontrol_authorization_denied_total")
	if err != nil {
		return nil, err
	}
	lockContention, err := meter.Int64Counter("missioncontrol_lock_contention_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		departmentsCreated:  departmentsCreated,
		departmentsRemoved:  departmentsRemoved,
		cascadeRowsDeleted:  cascadeRowsDeleted,
		integrationChanges:  integrationChanges,
		authorizationDenied: authorizationDenied,
		lockContention:      lockContention,
	}, nil
}

// RecordDepartmentCreated increments department creation counts.
func (m *Metrics) RecordDepartmentCreated(ctx context.Context, plan string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("plan", strings.TrimSpace(plan)))
	m.departmentsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDepartmentRemoved counts a removal and the rows it cascaded per collection.
func (m *Metrics) RecordDepartmentRemoved(ctx context.Context, deleted map[string]int64) {
	if m == nil {
		return
	}
	m.departmentsRemoved.Add(ctx, 1)
	for collection, count := range deleted {
		if count == 0 {
			continue
		}
		attrs := FilterAttributes(attribute.String("collection", collection))
		m.cascadeRowsDeleted.Add(ctx, count, metric.WithAttributes(attrs...))
	}
}

// RecordIntegrationChange increments integration config changes.
func (m *Metrics) RecordIntegrationChange(ctx context.Context, integrationType, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("integration_type", strings.TrimSpace(integrationType)),
		attribute.String("action", strings.TrimSpace(action)),
	)
	m.integrationChanges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAuthorizationDenied increments denied access checks.
func (m *Metrics) RecordAuthorizationDenied(ctx context.Context, check, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("check", strings.TrimSpace(check)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.authorizationDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLockContention increments failed lock acquisitions.
func (m *Metrics) RecordLockContention(ctx context.Context, resource string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("resource", strings.TrimSpace(resource)))
	m.lockContention.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"org_tier":         {},
	"plan":             {},
	"endpoint":         {},
	"status_code":      {},
	"collection":       {},
	"integration_type": {},
	"action":           {},
	"check":            {},
	"resource":         {},
	"reason":           {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
