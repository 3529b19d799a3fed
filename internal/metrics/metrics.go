// Package metrics exposes prometheus collectors describing poll cycle
// outcomes, retry queue depth, and circuit breaker state, on a private
// registry so embedding this poller in a larger process never collides
// with the default global one.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/breaker"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
)

// Outcome labels the result of one poll cycle for the cycles counter.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeError       Outcome = "error"
)

// Collectors holds every metric this poller reports, all registered
// against a dedicated Registry rather than prometheus' package-level
// default.
type Collectors struct {
	Registry *prometheus.Registry

	cyclesTotal       *prometheus.CounterVec
	ordersSentTotal   *prometheus.CounterVec
	ordersFailedTotal *prometheus.CounterVec
	retryQueueDepth   *prometheus.GaugeVec
	circuitState      *prometheus.GaugeVec
}

// New builds and registers every collector.
func New() *Collectors {
	registry := prometheus.NewRegistry()

	c := &Collectors{
		Registry: registry,
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poller_sync_cycles_total",
			Help: "Total poll cycles run, partitioned by connection and outcome.",
		}, []string{"connection_id", "outcome"}),
		ordersSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poller_orders_sent_total",
			Help: "Total orders successfully delivered to a webhook.",
		}, []string{"connection_id"}),
		ordersFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poller_orders_failed_total",
			Help: "Total orders whose webhook delivery failed and were enqueued for retry.",
		}, []string{"connection_id"}),
		retryQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poller_retry_queue_depth",
			Help: "Current count of pending retry queue items, per connection.",
		}, []string{"connection_id"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poller_circuit_state",
			Help: "Current circuit breaker state per connection: 0=closed, 1=half_open, 2=open.",
		}, []string{"connection_id"}),
	}

	registry.MustRegister(c.cyclesTotal, c.ordersSentTotal, c.ordersFailedTotal, c.retryQueueDepth, c.circuitState)
	return c
}

// RecordCycle updates the cycle counter and, when the sync log is
// present, the per-order counters.
func (c *Collectors) RecordCycle(connectionID int, outcome Outcome, log *store.SyncLog) {
	label := connIDLabel(connectionID)
	c.cyclesTotal.WithLabelValues(label, string(outcome)).Inc()
	if log != nil {
		if log.OrdersSent > 0 {
			c.ordersSentTotal.WithLabelValues(label).Add(float64(log.OrdersSent))
		}
		if log.OrdersFailed > 0 {
			c.ordersFailedTotal.WithLabelValues(label).Add(float64(log.OrdersFailed))
		}
	}
}

// SetRetryQueueDepth refreshes the retry depth gauge for connectionID.
func (c *Collectors) SetRetryQueueDepth(connectionID, depth int) {
	c.retryQueueDepth.WithLabelValues(connIDLabel(connectionID)).Set(float64(depth))
}

// SetCircuitState refreshes the circuit state gauge for connectionID.
func (c *Collectors) SetCircuitState(connectionID int, state breaker.State) {
	var value float64
	switch state {
	case breaker.Closed:
		value = 0
	case breaker.HalfOpen:
		value = 1
	case breaker.Open:
		value = 2
	}
	c.circuitState.WithLabelValues(connIDLabel(connectionID)).Set(value)
}

func connIDLabel(connectionID int) string {
	return strconv.Itoa(connectionID)
}
