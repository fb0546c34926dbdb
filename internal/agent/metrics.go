package agent

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type loopMetrics struct {
	cycles       *prometheus.CounterVec
	decisions    *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	symbolErrors *prometheus.CounterVec
}

var (
	globalLoopMetrics *loopMetrics
	loopMetricsOnce   sync.Once
)

func initLoopMetrics() *loopMetrics {
	loopMetricsOnce.Do(func() {
		globalLoopMetrics = &loopMetrics{
			cycles: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "strategy_cycles_total",
					Help: "Completed strategy loop cycles",
				},
				[]string{"market"},
			),
			decisions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "strategy_decisions_total",
					Help: "Decisions produced by action",
				},
				[]string{"market", "action"},
			),
			outcomes: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "trade_outcomes_total",
					Help: "Execution gate outcomes by status",
				},
				[]string{"market", "status"},
			),
			symbolErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "strategy_symbol_errors_total",
					Help: "Symbols skipped in a cycle due to errors",
				},
				[]string{"market", "symbol"},
			),
		}
	})
	return globalLoopMetrics
}
