// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers, guards and workers report to.
type Recorder interface {
	RecordGuardRejection(guard, reason string)
	RecordPaymentRecorded()
	RecordCartEntriesRemoved(n int64)
	RecordCartCleanup(outcome string)
	RecordHTTPStatus(status int)
	RecordIntentAmount(minor int64)
}

type Collector struct {
	guardRejections *prometheus.CounterVec
	payments        prometheus.Counter
	cartRemoved     prometheus.Counter
	cartCleanup     *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	intentAmount    prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bistro_guard_rejections_total",
			Help: "Requests rejected by an access guard.",
		}, []string{"guard", "reason"}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bistro_payments_recorded_total",
			Help: "Payment records persisted.",
		}),
		cartRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bistro_cart_entries_removed_total",
			Help: "Cart entries deleted after checkout.",
		}),
		cartCleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bistro_cart_cleanup_total",
			Help: "Deferred cart cleanup outcomes.",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bistro_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status"}),
		intentAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bistro_payment_intent_amount_minor",
			Help:    "Payment intent amounts in minor currency units.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12),
		}),
	}

	reg.MustRegister(
		c.guardRejections,
		c.payments,
		c.cartRemoved,
		c.cartCleanup,
		c.httpStatus,
		c.intentAmount,
	)
	return c
}

func (c *Collector) RecordGuardRejection(guard, reason string) {
	c.guardRejections.WithLabelValues(guard, reason).Inc()
}

func (c *Collector) RecordPaymentRecorded() { c.payments.Inc() }

func (c *Collector) RecordCartEntriesRemoved(n int64) { c.cartRemoved.Add(float64(n)) }

func (c *Collector) RecordCartCleanup(outcome string) {
	c.cartCleanup.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordHTTPStatus(status int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (c *Collector) RecordIntentAmount(minor int64) { c.intentAmount.Observe(float64(minor)) }

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used where no registry is wired.
type Nop struct{}

func (Nop) RecordGuardRejection(string, string) {}
func (Nop) RecordPaymentRecorded()              {}
func (Nop) RecordCartEntriesRemoved(int64)      {}
func (Nop) RecordCartCleanup(string)            {}
func (Nop) RecordHTTPStatus(int)                {}
func (Nop) RecordIntentAmount(int64)            {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
