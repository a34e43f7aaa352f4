package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the order placement and handoff lifecycle.
type CheckoutMetrics struct {
	placements    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	pruneFailures prometheus.Counter
	handoff       *prometheus.CounterVec
	cartMutations *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_placements_total",
		Help: "Order placements by outcome and the state they ended in.",
	}, []string{"outcome", "state"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_placement_duration_seconds",
		Help:    "Duration of order placement in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	pruneFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_prune_failures_total",
		Help: "Cart lines that could not be removed after an order was written.",
	})
	handoff := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_handoff_events_total",
		Help: "Checkout staging events (begin, consume, absent, corrupt, clear, discard).",
	}, []string{"event"})
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	reg.MustRegister(placements, duration, pruneFailures, handoff, cartMutations)
	return &CheckoutMetrics{
		placements:    placements,
		duration:      duration,
		pruneFailures: pruneFailures,
		handoff:       handoff,
		cartMutations: cartMutations,
	}
}

// ObservePlacement records one finished placement attempt.
func (c *CheckoutMetrics) ObservePlacement(outcome, state string, elapsed time.Duration) {
	if c == nil || c.placements == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	c.placements.WithLabelValues(outcome, normalizeLabel(state)).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddPruneFailures counts cart lines left behind by a successful order.
func (c *CheckoutMetrics) AddPruneFailures(n int) {
	if c == nil || c.pruneFailures == nil || n <= 0 {
		return
	}
	c.pruneFailures.Add(float64(n))
}

// IncHandoff counts a staging event.
func (c *CheckoutMetrics) IncHandoff(event string) {
	if c == nil || c.handoff == nil {
		return
	}
	c.handoff.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncCartMutation counts a cart write by operation and result.
func (c *CheckoutMetrics) IncCartMutation(op, result string) {
	if c == nil || c.cartMutations == nil {
		return
	}
	c.cartMutations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
