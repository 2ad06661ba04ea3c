package observability

import (
	"testing"

	"github.com/smallbiznis/missioncontrol/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigNormalizes(t *testing.T) {
	cfg := config.Config{
		AppName:     " ",
		Environment: "production",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "WARN",
			OTLPProtocol:  "http/protobuf",
			SamplingRatio: 3,
		},
	}

	got := LoadConfig(cfg)

	assert.Equal(t, "missioncontrol", got.ServiceName)
	assert.Equal(t, "warn", got.LogLevel)
	assert.Equal(t, "json", got.LogFormat)
	assert.Equal(t, "http", got.OtelExporterProtocol)
	assert.Equal(t, float64(1), got.OtelSamplingRatio)
	assert.False(t, got.Debug())
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{LogLevel: "debug", Environment: "production"}.Debug())
	assert.True(t, Config{LogLevel: "info", Environment: "Local"}.Debug())
	assert.False(t, Config{LogLevel: "info", Environment: "staging"}.Debug())
}

func TestNormalizeProtocol(t *testing.T) {
	assert.Equal(t, "grpc", normalizeProtocol(""))
	assert.Equal(t, "grpc", normalizeProtocol("kafka"))
	assert.Equal(t, "http", normalizeProtocol("HTTP"))
}
