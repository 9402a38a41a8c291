package woosession

import (
	"errors"
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricSessionAccepted counts requests whose session token passed validation.
	MetricSessionAccepted MetricID = iota
	// MetricSessionEstablished counts first tokens issued to fresh customers.
	MetricSessionEstablished
	// MetricSessionRefreshed counts re-issued tokens for returning customers.
	MetricSessionRefreshed
	MetricSessionRejectedMalformed
	MetricSessionRejectedSignature
	MetricSessionRejectedExpired
	MetricSessionRejectedNotYetValid
	MetricSessionRejectedClaims
	// MetricSessionThrottled counts requests refused by a per-IP rate limit.
	MetricSessionThrottled
	MetricCartAddItem
	MetricCartRemoveItems
	MetricCartRestoreItems
	MetricCartUpdateQuantities
	MetricCartEmpty
	MetricCartAddFee
	MetricCartApplyCoupon
	MetricCartRemoveCoupons
	MetricCartQuery
	// MetricOperationFailure counts operations that returned a data-level error.
	MetricOperationFailure
	// MetricStoreFailure counts cart store backend failures.
	MetricStoreFailure
	// MetricOperationLatency is the only histogram: wall time of one cart operation.
	MetricOperationLatency
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

// Metrics holds lock-free counters and the operation latency histogram. A nil or
// disabled Metrics ignores writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only [MetricOperationLatency] has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricOperationLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters, and the histogram when latency is enabled.
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
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricOperationLatency].buckets[i])
		}
		s.Histograms[MetricOperationLatency] = buckets
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

var operationMetrics = map[string]MetricID{
	OpAddToCart:            MetricCartAddItem,
	OpRemoveItemsFromCart:  MetricCartRemoveItems,
	OpRestoreCartItems:     MetricCartRestoreItems,
	OpUpdateItemQuantities: MetricCartUpdateQuantities,
	OpEmptyCart:            MetricCartEmpty,
	OpAddFee:               MetricCartAddFee,
	OpApplyCoupon:          MetricCartApplyCoupon,
	OpRemoveCoupons:        MetricCartRemoveCoupons,
	OpCart:                 MetricCartQuery,
}

// operationMetric returns the counter for a successful operation.
func operationMetric(op string) (MetricID, bool) {
	id, ok := operationMetrics[op]
	return id, ok
}

// rejectionMetric maps a session rejection to its counter.
func rejectionMetric(err error) MetricID {
	switch {
	case errors.Is(err, ErrRateLimited):
		return MetricSessionThrottled
	case errors.Is(err, ErrInvalidSignature):
		return MetricSessionRejectedSignature
	case errors.Is(err, ErrTokenExpired):
		return MetricSessionRejectedExpired
	case errors.Is(err, ErrTokenNotYetValid):
		return MetricSessionRejectedNotYetValid
	case errors.Is(err, ErrInvalidClaims):
		return MetricSessionRejectedClaims
	default:
		return MetricSessionRejectedMalformed
	}
}
