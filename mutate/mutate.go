// Package mutate implements the Fluent Mutation Facade (C8): a thin
// convenience layer in front of the Controller offering named, pre-built
// mutators ("set port", "enable persistence") instead of hand-written
// closures. It is grounded on the alert-history service's fluent QueryBuilder style
// (pkg/history query construction: chained, named setters building up a
// single object to hand to the real engine) — here the "query" is a
// config.BrokerConfiguration mutation, and the "engine" is the Controller.
// Every helper is pure sugar over Controller.ApplyChanges (or, for COLD
// changes, Controller.RestartWith); none of them touch the broker, the
// store or the bus directly.
package mutate

import (
	"context"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/controller"
	"github.com/four-robots/brokerctl/internal/ctlerr"
)

// Mutator is re-exported for callers that want to write their own, ad hoc
// mutations without reaching into the controller package directly.
type Mutator = controller.Mutator

// Facade wraps a Controller and applies mutator callbacks through it.
type Facade struct {
	ctl *controller.Controller
}

// New wraps ctl in a Facade.
func New(ctl *controller.Controller) *Facade {
	return &Facade{ctl: ctl}
}

// Apply runs an arbitrary mutator against the live configuration. It never
// bypasses the Controller: the mutator receives a private deep clone, and
// the result is handed to Controller.ApplyChanges exactly as if the caller
// had invoked it directly.
func (f *Facade) Apply(ctx context.Context, mutate Mutator) controller.Result {
	return f.ctl.ApplyChanges(ctx, mutate)
}

// SetPort requests a live port change. Since port is COLD, this always
// comes back RESTART_REQUIRED unless the caller restarts separately with
// RestartWith — callers should prefer Facade.RestartPort for an in-place
// restart that actually takes effect.
func (f *Facade) SetPort(ctx context.Context, port int) controller.Result {
	return f.Apply(ctx, func(cfg *config.BrokerConfiguration) {
		cfg.Port = port
	})
}

// RestartPort restarts the broker with a new port, accepting the client
// disconnect that implies.
func (f *Facade) RestartPort(ctx context.Context, port int) controller.Result {
	current, ok := f.ctl.CurrentVersion()
	if !ok {
		return controller.Result{ErrorKind: ctlerr.NotFound, Message: "no current configuration to restart from"}
	}
	candidate := current.Snapshot.DeepClone()
	candidate.Port = port
	return f.ctl.RestartWith(ctx, candidate)
}

// SetDebug toggles verbose protocol logging (HOT).
func (f *Facade) SetDebug(ctx context.Context, enabled bool) controller.Result {
	return f.Apply(ctx, func(cfg *config.BrokerConfiguration) {
		cfg.Debug = enabled
	})
}

// SetTrace toggles raw protocol tracing (HOT).
func (f *Facade) SetTrace(ctx context.Context, enabled bool) controller.Result {
	return f.Apply(ctx, func(cfg *config.BrokerConfiguration) {
		cfg.Trace = enabled
	})
}

// SetMaxPayload adjusts the maximum message payload size in bytes (HOT).
func (f *Facade) SetMaxPayload(ctx context.Context, bytes int64) controller.Result {
	return f.Apply(ctx, func(cfg *config.BrokerConfiguration) {
		cfg.MaxPayload = bytes
	})
}

// SetAuthToken switches authentication to a bare token, clearing any
// username/password pair so the two auth modes stay mutually exclusive
// (HOT).
func (f *Facade) SetAuthToken(ctx context.Context, token string) controller.Result {
	return f.Apply(ctx, func(cfg *config.BrokerConfiguration) {
		cfg.Auth.Token = token
		cfg.Auth.Username = ""
		cfg.Auth.Password = ""
	})
}

// SetAuthUserPass switches authentication to a username/password pair,
// clearing any token (HOT).
func (f *Facade) SetAuthUserPass(ctx context.Context, username, password string) controller.Result {
	return f.Apply(ctx, func(cfg *config.BrokerConfiguration) {
		cfg.Auth.Username = username
		cfg.Auth.Password = password
		cfg.Auth.Token = ""
	})
}

// AddClusterRoute appends a cluster route URL (HOT).
func (f *Facade) AddClusterRoute(ctx context.Context, route string) controller.Result {
	return f.Apply(ctx, func(cfg *config.BrokerConfiguration) {
		cfg.Cluster.Routes = append(cfg.Cluster.Routes, route)
	})
}

// EnablePersistence requests persistence with a store directory and
// capacity limits. Persistence fields are all COLD, so this must be
// applied via restart: it always delegates to RestartWith.
func (f *Facade) EnablePersistence(ctx context.Context, storeDir string, maxMemory, maxStore int64) controller.Result {
	current, ok := f.ctl.CurrentVersion()
	if !ok {
		return controller.Result{ErrorKind: ctlerr.NotFound, Message: "no current configuration to restart from"}
	}
	candidate := current.Snapshot.DeepClone()
	candidate.Persistence.Enabled = true
	candidate.Persistence.StoreDir = storeDir
	candidate.Persistence.MaxMemory = maxMemory
	candidate.Persistence.MaxStore = maxStore
	return f.ctl.RestartWith(ctx, candidate)
}

// DisablePersistence turns persistence back off. Also COLD; restarts.
func (f *Facade) DisablePersistence(ctx context.Context) controller.Result {
	current, ok := f.ctl.CurrentVersion()
	if !ok {
		return controller.Result{ErrorKind: ctlerr.NotFound, Message: "no current configuration to restart from"}
	}
	candidate := current.Snapshot.DeepClone()
	candidate.Persistence.Enabled = false
	return f.ctl.RestartWith(ctx, candidate)
}
