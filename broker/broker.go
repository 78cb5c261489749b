// Package broker defines the Broker Adapter contract (C5): the only
// component permitted to touch the native message broker. Its shape is
// grounded on the alert-history service's DatabaseConnection interface
// (internal/database/postgres/pool.go) — a narrow lifecycle interface
// (Connect/Disconnect/Health) wrapping a concrete driver — generalized
// here to Start/Reload/Shutdown/ProbeReady/ProbeInfo over an embedded NATS
// server instead of a Postgres connection pool.
package broker

import (
	"context"
	"fmt"

	"github.com/four-robots/brokerctl/config"
)

// Adapter is the opaque interface the Controller uses to drive the native
// broker. Implementations must make Reload atomic from the caller's
// perspective: either the new options are fully in effect afterward, or
// the previous ones remain untouched.
type Adapter interface {
	// Start brings the broker up from a frozen snapshot. On success,
	// ProbeReady will soon report true.
	Start(ctx context.Context, cfg *config.BrokerConfiguration) (StartResult, error)

	// Reload applies a HOT diff to the already-started broker without
	// disconnecting existing clients. Precondition: Start has succeeded.
	Reload(ctx context.Context, cfg *config.BrokerConfiguration) error

	// Shutdown drains and stops the broker. It never fails observably:
	// implementations log internally and return only for the Controller's
	// bookkeeping, never to signal a user-visible failure.
	Shutdown(ctx context.Context) error

	// ProbeReady reports whether the broker is currently accepting client
	// connections.
	ProbeReady(ctx context.Context) bool

	// ProbeInfo returns a snapshot of broker runtime state, or ok=false if
	// the broker is not running.
	ProbeInfo(ctx context.Context) (info Info, ok bool)
}

// StartResult is returned by a successful Start.
type StartResult struct {
	ClientURL     string
	BrokerVersion string
}

// Info is the opaque runtime snapshot returned by ProbeInfo.
type Info struct {
	BrokerVersion     string
	ClientURL         string
	ConnectionCount   int
	PersistenceActive bool
}

// Failure is the adapter's sole failure-reporting channel, following the
// native broker's own "ERROR: <reason>" convention so that opaque reason
// strings surfacing from the underlying process pass through unmodified.
type Failure struct {
	Reason string
}

func (f *Failure) Error() string {
	return "ERROR: " + f.Reason
}

// Failf builds a *Failure with a formatted reason.
func Failf(format string, args ...any) error {
	return &Failure{Reason: fmt.Sprintf(format, args...)}
}
