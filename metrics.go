package connector

import (
	"errors"
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricVerifySuccess counts requests that passed every check.
	MetricVerifySuccess MetricID = iota
	// MetricVerifyRateLimited counts requests refused by the per-IP window.
	MetricVerifyRateLimited
	// MetricVerifyMissingHeaders counts requests without timestamp or signature.
	MetricVerifyMissingHeaders
	// MetricVerifyInvalidTimestamp counts unparsable or stale timestamps.
	MetricVerifyInvalidTimestamp
	// MetricVerifyInvalidSignature counts signature mismatches.
	MetricVerifyInvalidSignature
	// MetricVerifyNoSecret counts requests that arrived before a secret existed.
	MetricVerifyNoSecret
	// MetricBackendUnavailable counts store failures surfaced to callers.
	MetricBackendUnavailable
	// MetricMarkerWriteFailed counts last-request marker writes that failed.
	MetricMarkerWriteFailed
	// MetricAutologinIssued counts tokens minted.
	MetricAutologinIssued
	// MetricAutologinRejected counts issue requests refused for the target user.
	MetricAutologinRejected
	// MetricAutologinRedeemed counts tokens exchanged for a session.
	MetricAutologinRedeemed
	// MetricAutologinRedeemFailed counts unknown, expired or reused tokens.
	MetricAutologinRedeemFailed
	// MetricSecretRotated counts secret replacements.
	MetricSecretRotated
	// MetricVerifyBadBody counts requests whose body was oversized or unreadable.
	MetricVerifyBadBody
	// MetricVerifyLatency is the verification latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the verification latency histogram.
// A nil or disabled Metrics accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram buckets
// are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram. Only MetricVerifyLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricVerifyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}

// metricForError picks the failure counter for a verification error.
func metricForError(err error) (MetricID, bool) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return MetricVerifyRateLimited, true
	case errors.Is(err, ErrMissingHeaders):
		return MetricVerifyMissingHeaders, true
	case errors.Is(err, ErrInvalidTimestamp):
		return MetricVerifyInvalidTimestamp, true
	case errors.Is(err, ErrInvalidSignature):
		return MetricVerifyInvalidSignature, true
	case errors.Is(err, ErrBodyTooLarge), errors.Is(err, ErrUnreadableBody):
		return MetricVerifyBadBody, true
	case errors.Is(err, ErrNoSecretKey):
		return MetricVerifyNoSecret, true
	case errors.Is(err, ErrBackendUnavailable):
		return MetricBackendUnavailable, true
	default:
		return 0, false
	}
}
