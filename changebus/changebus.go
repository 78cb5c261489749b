// Package changebus implements the Change Bus (C7): two ordered,
// synchronous subscriber lists fired from within the Controller's own
// critical section. It is grounded on the alert-history service's DefaultConfigReloader
// (internal/config/update_reloader.go) for the register/unregister/
// registry-list shape, but fan-out here is sequential and order-preserving
// rather than parallel — pre-change subscribers need to be able to cancel
// in registration order, and post-change subscribers need to complete
// strictly before the critical section is released, neither of which a
// fan-out-then-wg.Wait() pattern can express.
package changebus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/internal/platform/metrics"
)

const (
	listPreChange  = "pre_change"
	listPostChange = "post_change"
)

// PreChangeFunc observes a proposed change and may cancel it by returning
// a non-empty reason.
type PreChangeFunc func(current, candidate *config.BrokerConfiguration) (cancelReason string)

// PostChangeFunc observes a change that has already been applied and
// recorded. Any error it returns is logged, never propagated.
type PostChangeFunc func(old, new *config.BrokerConfiguration, versionID int64) error

// Registration is a disposable handle returned by Subscribe/SubscribePost.
type Registration struct {
	unsubscribe func()
}

// Close removes the associated subscriber. Safe to call more than once.
func (r *Registration) Close() {
	if r != nil && r.unsubscribe != nil {
		r.unsubscribe()
	}
}

type preEntry struct {
	id int64
	fn PreChangeFunc
}

type postEntry struct {
	id int64
	fn PostChangeFunc
}

// Bus holds the pre_change and post_change subscriber lists.
type Bus struct {
	mu     sync.Mutex
	pre    []preEntry
	post   []postEntry
	nextID int64
	logger *slog.Logger
}

// New returns an empty Bus. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Clear unregisters every pre-change and post-change subscriber. Used by
// Controller disposal.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pre = nil
	b.post = nil
	metrics.ChangeBusSubscribers.WithLabelValues(listPreChange).Set(0)
	metrics.ChangeBusSubscribers.WithLabelValues(listPostChange).Set(0)
}

// Subscribe registers a pre-change subscriber, appended after any already
// registered. Order of registration is the order of invocation.
func (b *Bus) Subscribe(fn PreChangeFunc) *Registration {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.pre = append(b.pre, preEntry{id: id, fn: fn})
	metrics.ChangeBusSubscribers.WithLabelValues(listPreChange).Set(float64(len(b.pre)))

	return &Registration{unsubscribe: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.pre {
			if e.id == id {
				b.pre = append(b.pre[:i], b.pre[i+1:]...)
				metrics.ChangeBusSubscribers.WithLabelValues(listPreChange).Set(float64(len(b.pre)))
				return
			}
		}
	}}
}

// SubscribePost registers a post-change subscriber.
func (b *Bus) SubscribePost(fn PostChangeFunc) *Registration {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.post = append(b.post, postEntry{id: id, fn: fn})
	metrics.ChangeBusSubscribers.WithLabelValues(listPostChange).Set(float64(len(b.post)))

	return &Registration{unsubscribe: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.post {
			if e.id == id {
				b.post = append(b.post[:i], b.post[i+1:]...)
				metrics.ChangeBusSubscribers.WithLabelValues(listPostChange).Set(float64(len(b.post)))
				return
			}
		}
	}}
}

// FirePreChange invokes every pre-change subscriber, in registration
// order, on the calling goroutine. The first subscriber to report a
// cancellation reason wins: fan-out continues regardless (later
// subscribers may still need to observe the attempt), but the returned
// cancelled/reason reflects only the first one. A subscriber that panics
// is treated as cancelling with the panic value as the reason, the same
// way an explicit cancellation is.
func (b *Bus) FirePreChange(current, candidate *config.BrokerConfiguration) (cancelled bool, reason string) {
	b.mu.Lock()
	subs := append([]preEntry(nil), b.pre...)
	b.mu.Unlock()

	for _, e := range subs {
		r := b.invokePreSafely(e, current, candidate)
		if r != "" && !cancelled {
			cancelled = true
			reason = r
		}
	}
	return cancelled, reason
}

func (b *Bus) invokePreSafely(e preEntry, current, candidate *config.BrokerConfiguration) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("pre-change subscriber panicked; treating as cancellation",
				"subscriber_id", e.id, "panic", r)
			metrics.ChangeBusSubscriberFailures.WithLabelValues(listPreChange).Inc()
			reason = fmt.Sprint(r)
		}
	}()
	return e.fn(current, candidate)
}

// FirePostChange invokes every post-change subscriber, in registration
// order, on the calling goroutine. Subscriber errors and panics are
// caught, logged, and swallowed — a post-change subscriber can never
// un-apply a change.
func (b *Bus) FirePostChange(old, new *config.BrokerConfiguration, versionID int64) {
	b.mu.Lock()
	subs := append([]postEntry(nil), b.post...)
	b.mu.Unlock()

	for _, e := range subs {
		b.invokePostSafely(e, old, new, versionID)
	}
}

func (b *Bus) invokePostSafely(e postEntry, old, new *config.BrokerConfiguration, versionID int64) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("post-change subscriber panicked",
				"subscriber_id", e.id, "version_id", versionID, "panic", r)
			metrics.ChangeBusSubscriberFailures.WithLabelValues(listPostChange).Inc()
		}
	}()
	if err := e.fn(old, new, versionID); err != nil {
		b.logger.Error("post-change subscriber failed",
			"subscriber_id", e.id, "version_id", versionID, "error", err)
		metrics.ChangeBusSubscriberFailures.WithLabelValues(listPostChange).Inc()
	}
}
