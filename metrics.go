package authgate

import "sync/atomic"

// Metric names the in-process counters exposed by [Engine.MetricsSnapshot].
type Metric string

const (
	MetricLoginSuccess           Metric = "login_success"
	MetricLoginFailure           Metric = "login_failure"
	MetricLoginLocked            Metric = "login_locked"
	MetricChallengeIssued        Metric = "challenge_issued"
	MetricChallengeSuccess       Metric = "challenge_success"
	MetricChallengeFailure       Metric = "challenge_failure"
	MetricLockoutTriggered       Metric = "lockout_triggered"
	MetricTrustBypass            Metric = "trust_bypass"
	MetricTrustGranted           Metric = "trust_granted"
	MetricDeliveryFailure        Metric = "delivery_failure"
	MetricSecretIntegrityFailure Metric = "secret_integrity_failure"
	MetricStoreUnavailable       Metric = "store_unavailable"
)

var allMetrics = []Metric{
	MetricLoginSuccess,
	MetricLoginFailure,
	MetricLoginLocked,
	MetricChallengeIssued,
	MetricChallengeSuccess,
	MetricChallengeFailure,
	MetricLockoutTriggered,
	MetricTrustBypass,
	MetricTrustGranted,
	MetricDeliveryFailure,
	MetricSecretIntegrityFailure,
	MetricStoreUnavailable,
}

// metricSet is a fixed group of atomic counters. Counting is lock-free and
// safe from any goroutine.
type metricSet struct {
	counters map[Metric]*atomic.Uint64
}

func newMetricSet() *metricSet {
	m := &metricSet{counters: make(map[Metric]*atomic.Uint64, len(allMetrics))}
	for _, name := range allMetrics {
		m.counters[name] = new(atomic.Uint64)
	}
	return m
}

func (m *metricSet) inc(name Metric) {
	if c, ok := m.counters[name]; ok {
		c.Add(1)
	}
}

func (m *metricSet) snapshot() map[Metric]uint64 {
	out := make(map[Metric]uint64, len(m.counters))
	for name, c := range m.counters {
		out[name] = c.Load()
	}
	return out
}
