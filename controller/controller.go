// Package controller implements the Controller (C6): the broker's state
// machine and the single critical section through which every mutating
// operation (configure, apply_changes, rollback, restart_with, shutdown)
// is serialized. Its shape — a narrow state enum plus a registry-style
// collaborator set (adapter, store, pipeline, bus) driven through one
// lock — is grounded on the alert-history service's DefaultConfigReloader
// orchestration role (internal/config/update_reloader.go), with the
// reloader's parallel component fan-out replaced by a single opaque
// Broker Adapter and its own FIFO-fair critical section.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/four-robots/brokerctl/broker"
	"github.com/four-robots/brokerctl/changebus"
	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/diff"
	"github.com/four-robots/brokerctl/internal/ctlerr"
	"github.com/four-robots/brokerctl/internal/platform/logger"
	"github.com/four-robots/brokerctl/internal/platform/metrics"
	"github.com/four-robots/brokerctl/validate"
	"github.com/four-robots/brokerctl/versionstore"
)

// State is one of the Controller's lifecycle states.
type State int

const (
	StateUnconfigured State = iota
	StateStarting
	StateRunning
	StateReloading
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "UNCONFIGURED"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateReloading:
		return "RELOADING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Mutator mutates a config snapshot in place (the Facade hands it a
// private deep clone; it never sees the live current config).
type Mutator func(*config.BrokerConfiguration)

// Result is the structured outcome of every mutating operation.
type Result struct {
	Success      bool
	ErrorKind    ctlerr.Kind
	Message      string
	Warnings     []validate.Warning
	Errors       []validate.Error
	NewVersionID int64
}

// snapshot is the read side of the Controller: a value atomically swapped
// in at the end of every successful mutation, so Info()-style reads never
// block on the critical section.
type snapshot struct {
	state         State
	degraded      bool
	current       *config.BrokerConfiguration
	versionID     int64
	clientURL     string
	brokerVersion string
}

// Controller is the broker control-plane state machine (C6).
type Controller struct {
	lock     fifoMutex
	bus      *changebus.Bus
	store    versionstore.Store
	adapter  broker.Adapter
	pipeline *validate.Pipeline
	log      *slog.Logger

	snap     atomic.Pointer[snapshot]
	disposed atomic.Bool
}

// New wires a Controller from its collaborators. log may be nil.
func New(adapter broker.Adapter, store versionstore.Store, pipeline *validate.Pipeline, bus *changebus.Bus, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{adapter: adapter, store: store, pipeline: pipeline, bus: bus, log: log}
	c.snap.Store(&snapshot{state: StateUnconfigured})
	return c
}

// State returns the current lifecycle state without blocking.
func (c *Controller) State() State {
	return c.snap.Load().state
}

// Degraded reports whether the Controller is in the DEGRADED substate of
// RUNNING: an indeterminate reload left the broker's state unclear after a
// timeout.
func (c *Controller) Degraded() bool {
	return c.snap.Load().degraded
}

// CurrentVersion returns the version record backing the live config, or
// ok=false if nothing has been configured yet.
func (c *Controller) CurrentVersion() (versionstore.Version, bool) {
	snap := c.snap.Load()
	if snap.versionID == 0 {
		return versionstore.Version{}, false
	}
	v, err := c.store.Get(snap.versionID)
	if err != nil {
		return versionstore.Version{}, false
	}
	return v, true
}

// ListVersions is a read-only pass-through to the Version Store.
func (c *Controller) ListVersions(limit, offset int) ([]versionstore.Version, error) {
	return c.store.List(limit, offset)
}

// ProbeInfo is a read-only pass-through to the Broker Adapter, for the
// Monitoring Pass-Through Surface (C10). It never touches the critical
// section: callers may invoke it freely even while a mutation is in
// flight.
func (c *Controller) ProbeInfo(ctx context.Context) (broker.Info, bool) {
	if c.snap.Load().state == StateUnconfigured {
		return broker.Info{}, false
	}
	return c.adapter.ProbeInfo(ctx)
}

// Subscribe registers a pre-change subscriber.
func (c *Controller) Subscribe(fn changebus.PreChangeFunc) *changebus.Registration {
	return c.bus.Subscribe(fn)
}

// SubscribePost registers a post-change subscriber.
func (c *Controller) SubscribePost(fn changebus.PostChangeFunc) *changebus.Registration {
	return c.bus.SubscribePost(fn)
}

// Configure performs the UNCONFIGURED (or STOPPED) -> STARTING -> RUNNING
// transition.
func (c *Controller) Configure(ctx context.Context, cfg *config.BrokerConfiguration) (res Result) {
	defer c.instrument("configure", time.Now(), &res)
	return c.configureLocked(ctx, cfg)
}

func (c *Controller) configureLocked(ctx context.Context, cfg *config.BrokerConfiguration) Result {
	if err := c.lock.Lock(ctx); err != nil {
		return Result{ErrorKind: ctlerr.TimedOut, Message: err.Error()}
	}
	defer c.lock.Unlock()

	snap := c.snap.Load()
	if snap.state != StateUnconfigured && snap.state != StateStopped {
		return Result{ErrorKind: ctlerr.NotRunning, Message: "configure is only valid from UNCONFIGURED or STOPPED"}
	}

	errs, warnings := c.pipeline.Validate(cfg)
	if len(errs) > 0 {
		return Result{ErrorKind: ctlerr.ValidationFailed, Message: "configuration failed validation", Errors: errs, Warnings: warnings}
	}

	c.transition(StateStarting, false)

	started, err := c.adapter.Start(ctx, cfg)
	if err != nil {
		c.transition(StateUnconfigured, false)
		return Result{ErrorKind: ctlerr.StartFailed, Message: err.Error(), Warnings: warnings}
	}

	frozen := cfg.DeepClone()
	versionID, err := c.store.Append(versionstore.Version{
		Snapshot:    frozen,
		ParentID:    snap.versionID,
		AppliedAt:   time.Now().UTC(),
		Description: frozen.Description,
		Actor:       logger.OperationID(ctx),
	})
	if err != nil {
		c.adapter.Shutdown(context.Background())
		c.transition(StateUnconfigured, false)
		return Result{ErrorKind: ctlerr.StartFailed, Message: "started but failed to record version 1: " + err.Error(), Warnings: warnings}
	}
	metrics.VersionStoreAppendsTotal.Inc()

	c.bus.FirePostChange(nil, frozen, versionID)
	c.setSnapshot(StateRunning, false, frozen, versionID, started.ClientURL, started.BrokerVersion)

	return Result{Success: true, Warnings: warnings, NewVersionID: versionID}
}

// ApplyChanges performs a HOT-only live reload, or refuses with
// RESTART_REQUIRED if the computed diff touches any COLD field.
func (c *Controller) ApplyChanges(ctx context.Context, mutate Mutator) (res Result) {
	defer c.instrument("apply_changes", time.Now(), &res)
	return c.applyChangesLocked(ctx, mutate)
}

func (c *Controller) applyChangesLocked(ctx context.Context, mutate Mutator) Result {
	if err := c.lock.Lock(ctx); err != nil {
		return Result{ErrorKind: ctlerr.TimedOut, Message: err.Error()}
	}
	defer c.lock.Unlock()

	snap := c.snap.Load()
	if snap.state != StateRunning {
		return Result{ErrorKind: ctlerr.NotRunning, Message: "apply_changes requires a running broker"}
	}

	candidate := snap.current.DeepClone()
	mutate(candidate)

	d := diff.Compute(snap.current, candidate)
	if d.IsEmpty() {
		return Result{Success: true, NewVersionID: snap.versionID}
	}
	if d.HasImmutable() {
		return Result{ErrorKind: ctlerr.ImmutableChange, Message: "candidate changes an immutable field"}
	}

	errs, warnings := c.pipeline.ValidateChange(snap.current, candidate)
	if len(errs) > 0 {
		return Result{ErrorKind: ctlerr.ValidationFailed, Message: "validation failed", Errors: errs, Warnings: warnings}
	}

	if cancelled, reason := c.bus.FirePreChange(snap.current, candidate); cancelled {
		return Result{ErrorKind: ctlerr.CancelledBySubscriber, Message: reason, Warnings: warnings}
	}

	c.transition(StateReloading, snap.degraded)

	if d.HasCold() {
		c.transition(StateRunning, snap.degraded)
		return Result{ErrorKind: ctlerr.RestartRequired, Message: "diff contains COLD fields; use restart_with to apply it", Warnings: warnings}
	}

	if err := c.adapter.Reload(ctx, candidate); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.markDegraded(snap)
			return Result{ErrorKind: ctlerr.TimedOut, Message: err.Error(), Warnings: warnings}
		}
		c.transition(StateRunning, snap.degraded)
		return Result{ErrorKind: ctlerr.ReloadFailed, Message: err.Error(), Warnings: warnings}
	}

	frozen := candidate.DeepClone()
	versionID, err := c.store.Append(versionstore.Version{
		Snapshot:    frozen,
		ParentID:    snap.versionID,
		AppliedAt:   time.Now().UTC(),
		Description: frozen.Description,
		Diff:        d,
		Actor:       logger.OperationID(ctx),
	})
	if err != nil {
		c.transition(StateRunning, snap.degraded)
		return Result{ErrorKind: ctlerr.ReloadFailed, Message: "reloaded but failed to record version: " + err.Error(), Warnings: warnings}
	}
	metrics.VersionStoreAppendsTotal.Inc()

	c.bus.FirePostChange(snap.current, frozen, versionID)
	c.setSnapshot(StateRunning, snap.degraded, frozen, versionID, snap.clientURL, snap.brokerVersion)

	return Result{Success: true, Warnings: warnings, NewVersionID: versionID}
}

// Rollback re-applies a previously recorded version's snapshot, creating
// a new version rather than reverting history. COLD-field differences are
// only honored when allowRestart is true.
func (c *Controller) Rollback(ctx context.Context, targetVersionID int64, allowRestart bool) (res Result) {
	defer c.instrument("rollback", time.Now(), &res)

	target, err := c.store.Get(targetVersionID)
	if err != nil {
		return Result{ErrorKind: ctlerr.NotFound, Message: err.Error()}
	}

	if allowRestart {
		return c.restartWithLocked(ctx, target.Snapshot.DeepClone())
	}
	return c.applyChangesLocked(ctx, func(cfg *config.BrokerConfiguration) {
		*cfg = *target.Snapshot.DeepClone()
	})
}

// RestartWith validates cfg, fires the pre-change event, then shuts the
// broker down and restarts it with cfg — even if the diff contains COLD
// fields. Existing client connections are expected to drop.
func (c *Controller) RestartWith(ctx context.Context, cfg *config.BrokerConfiguration) (res Result) {
	defer c.instrument("restart_with", time.Now(), &res)
	return c.restartWithLocked(ctx, cfg)
}

func (c *Controller) restartWithLocked(ctx context.Context, cfg *config.BrokerConfiguration) Result {
	if err := c.lock.Lock(ctx); err != nil {
		return Result{ErrorKind: ctlerr.TimedOut, Message: err.Error()}
	}
	defer c.lock.Unlock()

	snap := c.snap.Load()
	if snap.state != StateRunning && snap.state != StateReloading {
		return Result{ErrorKind: ctlerr.NotRunning, Message: "restart_with requires a running broker"}
	}

	errs, warnings := c.pipeline.ValidateChange(snap.current, cfg)
	if len(errs) > 0 {
		return Result{ErrorKind: ctlerr.ValidationFailed, Message: "validation failed", Errors: errs, Warnings: warnings}
	}

	d := diff.Compute(snap.current, cfg)
	if d.HasImmutable() {
		return Result{ErrorKind: ctlerr.ImmutableChange, Message: "candidate changes an immutable field"}
	}

	if cancelled, reason := c.bus.FirePreChange(snap.current, cfg); cancelled {
		return Result{ErrorKind: ctlerr.CancelledBySubscriber, Message: reason, Warnings: warnings}
	}

	c.transition(StateReloading, false)

	if err := c.adapter.Shutdown(ctx); err != nil {
		c.log.Warn("adapter shutdown during restart_with reported an error", "error", err)
	}

	started, err := c.adapter.Start(ctx, cfg)
	if err != nil {
		c.transition(StateStopped, false)
		return Result{ErrorKind: ctlerr.StartFailed, Message: err.Error(), Warnings: warnings}
	}

	frozen := cfg.DeepClone()
	versionID, err := c.store.Append(versionstore.Version{
		Snapshot:    frozen,
		ParentID:    snap.versionID,
		AppliedAt:   time.Now().UTC(),
		Description: frozen.Description,
		Diff:        d,
		Actor:       logger.OperationID(ctx),
	})
	if err != nil {
		return Result{ErrorKind: ctlerr.StartFailed, Message: "restarted but failed to record version: " + err.Error(), Warnings: warnings}
	}
	metrics.VersionStoreAppendsTotal.Inc()

	c.bus.FirePostChange(snap.current, frozen, versionID)
	c.setSnapshot(StateRunning, false, frozen, versionID, started.ClientURL, started.BrokerVersion)

	return Result{Success: true, Warnings: warnings, NewVersionID: versionID}
}

// Shutdown drains and stops the broker. Valid from any state except
// STOPPED, where it is a no-op.
func (c *Controller) Shutdown(ctx context.Context) (res Result) {
	defer c.instrument("shutdown", time.Now(), &res)
	return c.shutdownLocked(ctx)
}

func (c *Controller) shutdownLocked(ctx context.Context) Result {
	if err := c.lock.Lock(ctx); err != nil {
		return Result{ErrorKind: ctlerr.TimedOut, Message: err.Error()}
	}
	defer c.lock.Unlock()

	snap := c.snap.Load()
	if snap.state == StateStopped {
		return Result{Success: true}
	}

	c.bus.FirePostChange(snap.current, nil, snap.versionID)
	c.transition(StateStopping, false)
	c.adapter.Shutdown(ctx)
	c.setSnapshot(StateStopped, false, nil, snap.versionID, "", "")

	return Result{Success: true}
}

// Dispose releases the Controller: it waits for any in-flight mutation,
// shuts the broker down if it was RUNNING/RELOADING, and unregisters
// every subscriber. Safe to call more than once.
func (c *Controller) Dispose(ctx context.Context) {
	if c.disposed.Swap(true) {
		return
	}

	if err := c.lock.Lock(ctx); err != nil {
		return
	}
	defer c.lock.Unlock()

	snap := c.snap.Load()
	if snap.state == StateRunning || snap.state == StateReloading {
		c.adapter.Shutdown(ctx)
		c.setSnapshot(StateStopped, false, nil, snap.versionID, "", "")
	}
	c.bus.Clear()
}

func (c *Controller) transition(state State, degraded bool) {
	old := c.snap.Load()
	c.snap.Store(&snapshot{
		state:         state,
		degraded:      degraded,
		current:       old.current,
		versionID:     old.versionID,
		clientURL:     old.clientURL,
		brokerVersion: old.brokerVersion,
	})
}

func (c *Controller) setSnapshot(state State, degraded bool, cfg *config.BrokerConfiguration, versionID int64, clientURL, brokerVersion string) {
	c.snap.Store(&snapshot{
		state:         state,
		degraded:      degraded,
		current:       cfg,
		versionID:     versionID,
		clientURL:     clientURL,
		brokerVersion: brokerVersion,
	})
	metrics.CurrentVersionID.Set(float64(versionID))
	setGauge(metrics.DegradedState, degraded)
}

// markDegraded flags the Controller as DEGRADED after a timed-out reload
// whose outcome on the live broker could not be confirmed, while leaving
// the state machine in RUNNING.
func (c *Controller) markDegraded(snap *snapshot) {
	c.log.Error("reload timed out; adapter state is indeterminate, marking DEGRADED",
		"version_id", snap.versionID)
	c.snap.Store(&snapshot{
		state:         StateRunning,
		degraded:      true,
		current:       snap.current,
		versionID:     snap.versionID,
		clientURL:     snap.clientURL,
		brokerVersion: snap.brokerVersion,
	})
	setGauge(metrics.DegradedState, true)
}

func setGauge(g prometheus.Gauge, on bool) {
	if on {
		g.Set(1)
		return
	}
	g.Set(0)
}

// instrument records the outcome and duration of a mutating operation. It is
// deferred with a named return so it observes the Result the wrapped method
// actually produced, including results returned via an early return.
func (c *Controller) instrument(operation string, start time.Time, res *Result) {
	outcome := "success"
	if !res.Success {
		outcome = string(res.ErrorKind)
		if outcome == "" {
			outcome = "unknown"
		}
	}
	metrics.TransitionsTotal.WithLabelValues(operation, outcome).Inc()
	metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
