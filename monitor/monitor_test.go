package monitor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/four-robots/brokerctl/broker"
	"github.com/four-robots/brokerctl/changebus"
	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/controller"
	"github.com/four-robots/brokerctl/monitor"
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
	return broker.Info{BrokerVersion: "test", ConnectionCount: 3, PersistenceActive: false}, true
}

func newSurface(t *testing.T) (*monitor.Surface, *controller.Controller) {
	t.Helper()
	ctl := controller.New(stubAdapter{}, versionstore.NewInMemoryStore(), validate.NewPipeline(), changebus.New(nil), nil)
	require.True(t, ctl.Configure(context.Background(), config.New("test")).Success)
	return monitor.New(ctl, nil), ctl
}

func TestHandleInfo_ReturnsAdapterProbeInfo(t *testing.T) {
	s, _ := newSurface(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var info broker.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "test", info.BrokerVersion)
	assert.Equal(t, 3, info.ConnectionCount)
}

func TestHandleConnections_ReturnsConnectionCount(t *testing.T) {
	s, _ := newSurface(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/connections")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 3, body["connection_count"])
}

func TestHandleVersions_ReturnsAppendedVersions(t *testing.T) {
	s, ctl := newSurface(t)
	require.True(t, ctl.ApplyChanges(context.Background(), func(cfg *config.BrokerConfiguration) {
		cfg.Debug = true
	}).Success)

	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/versions")
	require.NoError(t, err)
	defer resp.Body.Close()

	var versions []versionstore.Version
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&versions))
	assert.Len(t, versions, 2)
}

func TestWebSocketStream_ReceivesConfigurationChangedEvent(t *testing.T) {
	s, ctl := newSurface(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.True(t, ctl.ApplyChanges(context.Background(), func(cfg *config.BrokerConfiguration) {
		cfg.Trace = true
	}).Success)

	var event monitor.ConfigurationChangedEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "configuration_changed", event.Type)
	assert.Equal(t, int64(2), event.VersionID)
}
