package executor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Submit breaker settings
const (
	submitMinRequests     = 5                // Minimum requests before tripping
	submitFailureRatio    = 0.6              // Failure ratio threshold (60%)
	submitOpenTimeout     = 30 * time.Second // How long circuit stays open
	submitHalfOpenMaxReqs = 3                // Max requests in half-open state
	submitCountInterval   = 10 * time.Second // Window for counting failures
)

// breakerMetrics holds Prometheus metrics for the submit breaker
type breakerMetrics struct {
	state    *prometheus.GaugeVec
	requests *prometheus.CounterVec
}

var (
	// Global metrics instance (singleton)
	globalBreakerMetrics *breakerMetrics
	breakerMetricsOnce   sync.Once
)

func initBreakerMetrics() *breakerMetrics {
	breakerMetricsOnce.Do(func() {
		globalBreakerMetrics = &breakerMetrics{
			state: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "order_submit_breaker_state",
					Help: "Order submit circuit breaker state (0=closed, 1=open, 2=half_open)",
				},
				[]string{"market"},
			),
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "order_submit_requests_total",
					Help: "Total order submissions through the circuit breaker",
				},
				[]string{"market", "result"},
			),
		}
	})
	return globalBreakerMetrics
}

// newSubmitBreaker creates the circuit breaker guarding the exchange
// submit path for one market.
func newSubmitBreaker(market string) *gobreaker.CircuitBreaker {
	metrics := initBreakerMetrics()

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "order-submit-" + market,
		MaxRequests: submitHalfOpenMaxReqs,
		Interval:    submitCountInterval,
		Timeout:     submitOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= submitMinRequests && failureRatio >= submitFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.state.WithLabelValues(market).Set(breakerStateValue(to))
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Order submit breaker state changed")
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
