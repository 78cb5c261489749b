package mutate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/four-robots/brokerctl/broker"
	"github.com/four-robots/brokerctl/changebus"
	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/controller"
	"github.com/four-robots/brokerctl/internal/ctlerr"
	"github.com/four-robots/brokerctl/mutate"
	"github.com/four-robots/brokerctl/validate"
	"github.com/four-robots/brokerctl/versionstore"
)

type stubAdapter struct{}

func (stubAdapter) Start(ctx context.Context, cfg *config.BrokerConfiguration) (broker.StartResult, error) {
	return broker.StartResult{ClientURL: "nats://127.0.0.1:4222", BrokerVersion: "test"}, nil
}
func (stubAdapter) Reload(ctx context.Context, cfg *config.BrokerConfiguration) error { return nil }
func (stubAdapter) Shutdown(ctx context.Context) error                               { return nil }
func (stubAdapter) ProbeReady(ctx context.Context) bool                              { return true }
func (stubAdapter) ProbeInfo(ctx context.Context) (broker.Info, bool) {
	return broker.Info{BrokerVersion: "test"}, true
}

func newFacade(t *testing.T) (*mutate.Facade, *controller.Controller) {
	t.Helper()
	ctl := controller.New(stubAdapter{}, versionstore.NewInMemoryStore(), validate.NewPipeline(), changebus.New(nil), nil)
	require.True(t, ctl.Configure(context.Background(), config.New("test")).Success)
	return mutate.New(ctl), ctl
}

func TestFacade_SetDebug_AppliesHotChangeThroughController(t *testing.T) {
	f, ctl := newFacade(t)
	res := f.SetDebug(context.Background(), true)
	require.True(t, res.Success)
	v, ok := ctl.CurrentVersion()
	require.True(t, ok)
	assert.True(t, v.Snapshot.Debug)
}

func TestFacade_SetPort_RequiresRestartBecauseColdField(t *testing.T) {
	f, _ := newFacade(t)
	res := f.SetPort(context.Background(), 4555)
	assert.False(t, res.Success)
	assert.Equal(t, ctlerr.RestartRequired, res.ErrorKind)
}

func TestFacade_RestartPort_AppliesColdChangeViaRestart(t *testing.T) {
	f, ctl := newFacade(t)
	res := f.RestartPort(context.Background(), 4555)
	require.True(t, res.Success)
	v, ok := ctl.CurrentVersion()
	require.True(t, ok)
	assert.Equal(t, 4555, v.Snapshot.Port)
}

func TestFacade_EnablePersistence_RestartsWithStoreDir(t *testing.T) {
	f, ctl := newFacade(t)
	dir := t.TempDir() + "/jetstream"
	res := f.EnablePersistence(context.Background(), dir, 1<<20, 1<<30)
	require.True(t, res.Success)
	v, ok := ctl.CurrentVersion()
	require.True(t, ok)
	assert.True(t, v.Snapshot.Persistence.Enabled)
	assert.Equal(t, dir, v.Snapshot.Persistence.StoreDir)
}
