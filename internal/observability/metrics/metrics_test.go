package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("collection", "agents"),
		attribute.String("user_id", "456"),
		attribute.String("plan", "free"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "collection" && attrs[1].Key != "collection" {
		t.Fatalf("expected collection to be retained")
	}
	if attrs[0].Key != "plan" && attrs[1].Key != "plan" {
		t.Fatalf("expected plan to be retained")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordDepartmentCreated(context.Background(), "free")
	m.RecordDepartmentRemoved(context.Background(), map[string]int64{"agents": 1})
	m.RecordAuthorizationDenied(context.Background(), "org_admin", "role")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordDepartmentRemoved(context.Background(), map[string]int64{"agents": 2, "tasks": 0})
	m.RecordIntegrationChange(context.Background(), "gmail", "upsert")
	m.RecordLockContention(context.Background(), "department_slug")
}
