// Package metrics exposes the Prometheus instrumentation for the control
// plane, grounded on the alert-history service's internal/metrics/config_reload.go
// (reload counters/histograms) and internal/realtime/metrics.go
// (subscriber gauges), generalized from alert-history's hot-reload
// vocabulary to the Controller's state machine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts Controller state transitions by operation and
	// outcome ("success", or the failed Result's ctlerr.Kind verbatim:
	// VALIDATION_FAILED, IMMUTABLE_CHANGE, CANCELLED_BY_SUBSCRIBER,
	// RESTART_REQUIRED, START_FAILED, RELOAD_FAILED, TIMED_OUT,
	// NOT_RUNNING, NOT_FOUND; "unknown" when a failure carries no kind).
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brokerctl",
			Name:      "controller_transitions_total",
			Help:      "Total Controller operations by name and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// OperationDuration measures end-to-end duration of a mutating
	// Controller operation, from the call's entry (including any wait for
	// the critical section) to its return.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "brokerctl",
			Name:      "controller_operation_duration_seconds",
			Help:      "Duration of Controller mutating operations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// BrokerReloadDuration measures time spent inside BrokerAdapter.Reload.
	BrokerReloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "brokerctl",
			Name:      "broker_reload_duration_seconds",
			Help:      "Duration of BrokerAdapter.Reload calls.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// VersionStoreAppendsTotal counts successful VersionStore.Append calls.
	VersionStoreAppendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "brokerctl",
			Name:      "versionstore_appends_total",
			Help:      "Total versions appended to the version store.",
		},
	)

	// CurrentVersionID exposes the most recently applied version id.
	CurrentVersionID = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "brokerctl",
			Name:      "current_version_id",
			Help:      "The version id of the currently running configuration.",
		},
	)

	// DegradedState is 1 while the Controller is in the DEGRADED substate.
	DegradedState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "brokerctl",
			Name:      "degraded_state",
			Help:      "1 if the Controller is currently in the DEGRADED substate of RUNNING.",
		},
	)

	// ChangeBusSubscribers tracks the live subscriber count per list
	// ("pre_change", "post_change").
	ChangeBusSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "brokerctl",
			Name:      "changebus_subscribers",
			Help:      "Number of currently registered Change Bus subscribers.",
		},
		[]string{"list"},
	)

	// ChangeBusSubscriberFailures counts recovered subscriber panics/errors
	// by list ("pre_change", "post_change").
	ChangeBusSubscriberFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brokerctl",
			Name:      "changebus_subscriber_failures_total",
			Help:      "Subscriber callbacks that panicked or returned an error.",
		},
		[]string{"list"},
	)
)
