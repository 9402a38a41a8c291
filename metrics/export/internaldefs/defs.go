package internaldefs

import (
	"github.com/hwsiew/woosession"
)

// Label is one name/value pair attached to a sample.
type Label struct {
	Name  string
	Value string
}

// Sample binds an engine counter to its labels within a [CounterFamily].
type Sample struct {
	ID    woosession.MetricID
	Label Label
}

// CounterFamily is one exported counter. Families with a single unlabelled sample
// render as a plain counter; the others carry one sample per label value.
type CounterFamily struct {
	Name    string
	Help    string
	Samples []Sample
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   woosession.MetricID
	Name string
	Help string
}

func operation(id woosession.MetricID, op string) Sample {
	return Sample{ID: id, Label: Label{Name: "operation", Value: op}}
}

func reason(id woosession.MetricID, r string) Sample {
	return Sample{ID: id, Label: Label{Name: "reason", Value: r}}
}

// CounterFamilies lists every exported counter in render order.
var CounterFamilies = []CounterFamily{
	{
		Name:    "woosession_session_accepted_total",
		Help:    "Requests whose session token passed validation.",
		Samples: []Sample{{ID: woosession.MetricSessionAccepted}},
	},
	{
		Name:    "woosession_session_established_total",
		Help:    "First session tokens issued to new customers.",
		Samples: []Sample{{ID: woosession.MetricSessionEstablished}},
	},
	{
		Name:    "woosession_session_refreshed_total",
		Help:    "Session tokens re-issued to returning customers.",
		Samples: []Sample{{ID: woosession.MetricSessionRefreshed}},
	},
	{
		Name: "woosession_session_rejected_total",
		Help: "Rejected session headers by failure class.",
		Samples: []Sample{
			reason(woosession.MetricSessionRejectedMalformed, "malformed"),
			reason(woosession.MetricSessionRejectedSignature, "signature"),
			reason(woosession.MetricSessionRejectedExpired, "expired"),
			reason(woosession.MetricSessionRejectedNotYetValid, "not_yet_valid"),
			reason(woosession.MetricSessionRejectedClaims, "claims"),
		},
	},
	{
		Name:    "woosession_session_throttled_total",
		Help:    "Requests refused by a per-IP rate limit.",
		Samples: []Sample{{ID: woosession.MetricSessionThrottled}},
	},
	{
		Name: "woosession_cart_operations_total",
		Help: "Successful cart operations by GraphQL operation name.",
		Samples: []Sample{
			operation(woosession.MetricCartAddItem, woosession.OpAddToCart),
			operation(woosession.MetricCartRemoveItems, woosession.OpRemoveItemsFromCart),
			operation(woosession.MetricCartRestoreItems, woosession.OpRestoreCartItems),
			operation(woosession.MetricCartUpdateQuantities, woosession.OpUpdateItemQuantities),
			operation(woosession.MetricCartEmpty, woosession.OpEmptyCart),
			operation(woosession.MetricCartAddFee, woosession.OpAddFee),
			operation(woosession.MetricCartApplyCoupon, woosession.OpApplyCoupon),
			operation(woosession.MetricCartRemoveCoupons, woosession.OpRemoveCoupons),
			operation(woosession.MetricCartQuery, woosession.OpCart),
		},
	},
	{
		Name:    "woosession_cart_operation_failures_total",
		Help:    "Cart operations rejected with a data-level error.",
		Samples: []Sample{{ID: woosession.MetricOperationFailure}},
	},
	{
		Name:    "woosession_cart_store_failures_total",
		Help:    "Cart store backend failures.",
		Samples: []Sample{{ID: woosession.MetricStoreFailure}},
	},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: woosession.MetricOperationLatency, Name: "woosession_cart_operation_duration_seconds", Help: "Cart operation latency, token validation excluded."},
}

// AuditDroppedName and AuditDroppedHelp describe the dispatcher backpressure counter.
const (
	AuditDroppedName = "woosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// BucketCount is the number of latency buckets, +Inf included.
const BucketCount = 8

// HistogramBounds are the upper bounds, in seconds, of the engine latency buckets.
var HistogramBounds = [BucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets pads or truncates raw to [BucketCount].
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into the running totals exporters expect.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
