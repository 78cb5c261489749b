package natsbroker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/four-robots/brokerctl/broker/natsbroker"
	"github.com/four-robots/brokerctl/config"
)

func freshConfig(t *testing.T) *config.BrokerConfiguration {
	t.Helper()
	cfg := config.New("natsbroker-test")
	cfg.Port = -1 // nats-server's RANDOM_PORT: let the OS assign a free port
	cfg.HTTPPort = 0
	return cfg
}

func TestAdapter_StartBecomesReady(t *testing.T) {
	a := natsbroker.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := a.Start(ctx, freshConfig(t))
	require.NoError(t, err)
	assert.NotEmpty(t, result.ClientURL)
	assert.NotEmpty(t, result.BrokerVersion)

	assert.True(t, a.ProbeReady(ctx))

	info, ok := a.ProbeInfo(ctx)
	require.True(t, ok)
	assert.Equal(t, result.BrokerVersion, info.BrokerVersion)

	require.NoError(t, a.Shutdown(ctx))
}

func TestAdapter_ReloadBeforeStartFails(t *testing.T) {
	a := natsbroker.New()
	err := a.Reload(context.Background(), freshConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR:")
}

func TestAdapter_ReloadAppliesHotChange(t *testing.T) {
	a := natsbroker.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := freshConfig(t)
	_, err := a.Start(ctx, cfg)
	require.NoError(t, err)
	defer a.Shutdown(ctx)

	cfg.Debug = !cfg.Debug
	require.NoError(t, a.Reload(ctx, cfg))
}

func TestAdapter_ProbeInfoFalseWhenNotStarted(t *testing.T) {
	a := natsbroker.New()
	_, ok := a.ProbeInfo(context.Background())
	assert.False(t, ok)
}

func TestAdapter_ShutdownWithoutStartIsNoop(t *testing.T) {
	a := natsbroker.New()
	assert.NoError(t, a.Shutdown(context.Background()))
}
