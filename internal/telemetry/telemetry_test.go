package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelAndExtraCores(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLogger("warn", core)

	log.Info("dropped by json core, kept by observer")
	log.Warn("kept")
	assert.Equal(t, 2, logs.Len())

	assert.True(t, NewLogger("nonsense").Core().Enabled(zapcore.InfoLevel))
	assert.False(t, NewLogger("nonsense").Core().Enabled(zapcore.DebugLevel))
}

func TestSetup_WithoutEndpointUsesNoop(t *testing.T) {
	tel, err := Setup(context.Background(), "test", "", "error")
	require.NoError(t, err)
	require.NotNil(t, tel.Logger)
	require.NotNil(t, tel.Tracer)

	m, err := NewMetrics(tel.Meter)
	require.NoError(t, err)
	m.OrdersCreated.Add(context.Background(), 1)
	tel.Shutdown(context.Background())
}

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics()
	m.Uploads.Add(context.Background(), 1)
	m.OrderTotal.Record(context.Background(), 50)
}
