// Package natsbroker is the default broker.Adapter, embedding an actual
// NATS server (github.com/nats-io/nats-server/v2/server) in-process. Start
// waits for readiness with the server's own ReadyForConnections(deadline).
// ProbeReady paces its single readiness check through a shared
// golang.org/x/time/rate token-bucket limiter, grounded on the
// alert-history service's RetryExecutor (internal/database/postgres/retry.go)
// but with a fixed interval rather than an escalating backoff.
package natsbroker

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"golang.org/x/time/rate"

	"github.com/four-robots/brokerctl/broker"
	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/internal/platform/metrics"
)

// DefaultReadinessDeadline is used when the caller's context carries no
// deadline of its own.
const DefaultReadinessDeadline = 10 * time.Second

// DefaultDrainDeadline bounds how long Shutdown waits, after calling the
// embedded server's Shutdown, for that shutdown to complete.
const DefaultDrainDeadline = 20 * time.Second

// pollRate limits how often ProbeReady checks the embedded server; a rate
// limiter rather than a sleep so callers polling from several goroutines
// converge on one schedule.
var pollRate = rate.NewLimiter(rate.Every(25*time.Millisecond), 1)

// Adapter embeds a *server.Server and implements broker.Adapter.
type Adapter struct {
	mu  sync.Mutex
	srv *server.Server
}

// New returns an unstarted Adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Start(ctx context.Context, cfg *config.BrokerConfiguration) (broker.StartResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	opts := toOptions(cfg)
	srv, err := server.NewServer(opts)
	if err != nil {
		return broker.StartResult{}, broker.Failf("failed to construct server: %v", err)
	}

	srv.Start()

	deadline := DefaultReadinessDeadline
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining > 0 {
			deadline = remaining
		}
	}
	if !srv.ReadyForConnections(deadline) {
		srv.Shutdown()
		return broker.StartResult{}, broker.Failf("broker did not become ready within %s", deadline)
	}

	a.srv = srv
	return broker.StartResult{
		ClientURL:     srv.ClientURL(),
		BrokerVersion: srv.Version(),
	}, nil
}

func (a *Adapter) Reload(ctx context.Context, cfg *config.BrokerConfiguration) error {
	start := time.Now()
	defer func() { metrics.BrokerReloadDuration.Observe(time.Since(start).Seconds()) }()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.srv == nil {
		return broker.Failf("reload called before start")
	}

	opts := toOptions(cfg)
	if err := a.srv.ReloadOptions(opts); err != nil {
		return broker.Failf("reload failed: %v", err)
	}
	return nil
}

func (a *Adapter) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.srv
	a.mu.Unlock()

	if srv == nil {
		return nil
	}

	srv.Shutdown()

	done := make(chan struct{})
	go func() {
		srv.WaitForShutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(DefaultDrainDeadline):
	}
	return nil
}

func (a *Adapter) ProbeReady(ctx context.Context) bool {
	a.mu.Lock()
	srv := a.srv
	a.mu.Unlock()

	if srv == nil {
		return false
	}
	_ = pollRate.Wait(ctx)
	return srv.ReadyForConnections(0)
}

func (a *Adapter) ProbeInfo(ctx context.Context) (broker.Info, bool) {
	a.mu.Lock()
	srv := a.srv
	a.mu.Unlock()

	if srv == nil || !srv.Running() {
		return broker.Info{}, false
	}

	varz, err := srv.Varz(nil)
	connCount := 0
	if err == nil && varz != nil {
		connCount = varz.Connections
	}

	return broker.Info{
		BrokerVersion:     srv.Version(),
		ClientURL:         srv.ClientURL(),
		ConnectionCount:   connCount,
		PersistenceActive: srv.JetStreamEnabled(),
	}, true
}

// toOptions maps the canonical BrokerConfiguration onto the embedded
// server's own Options type.
func toOptions(cfg *config.BrokerConfiguration) *server.Options {
	opts := &server.Options{
		Host:           cfg.Host,
		Port:           cfg.Port,
		HTTPPort:       cfg.HTTPPort,
		HTTPSPort:      cfg.HTTPSPort,
		MaxPayload:     int32(cfg.MaxPayload),
		MaxControlLine: int32(cfg.MaxControlLine),
		PingInterval:   cfg.PingInterval,
		MaxPingsOut:    cfg.MaxPingsOut,
		WriteDeadline:  cfg.WriteDeadline,
		Debug:          cfg.Debug,
		Trace:          cfg.Trace,
		NoSigs:         true,
	}

	if cfg.Auth.Token != "" {
		opts.Authorization = cfg.Auth.Token
	} else if cfg.Auth.Username != "" {
		opts.Username = cfg.Auth.Username
		opts.Password = cfg.Auth.Password
	}

	if cfg.Cluster.Port != 0 {
		opts.Cluster.Name = cfg.Cluster.Name
		opts.Cluster.Host = cfg.Cluster.Host
		opts.Cluster.Port = cfg.Cluster.Port
		opts.Routes = server.RoutesFromStr(joinRoutes(cfg.Cluster.Routes))
	}

	if cfg.LeafNode.Port != 0 {
		opts.LeafNode.Host = cfg.LeafNode.Host
		opts.LeafNode.Port = cfg.LeafNode.Port
	}

	if cfg.Persistence.Enabled {
		opts.JetStream = true
		opts.StoreDir = cfg.Persistence.StoreDir
		if cfg.Persistence.MaxMemory >= 0 {
			opts.JetStreamMaxMemory = cfg.Persistence.MaxMemory
		}
		if cfg.Persistence.MaxStore >= 0 {
			opts.JetStreamMaxStore = cfg.Persistence.MaxStore
		}
		opts.JetStreamDomain = cfg.Persistence.Domain
		opts.JetStreamUniqueTag = cfg.Persistence.UniqueTag
	}

	return opts
}

func joinRoutes(routes []string) string {
	out := ""
	for i, r := range routes {
		if i > 0 {
			out += ","
		}
		out += r
	}
	return out
}

var _ broker.Adapter = (*Adapter)(nil)
