// Package metrics счетчики прогонов стратегий для Prometheus
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Виды сигналов для SignalsTotal
const (
	KindEntry = "entry"
	KindExit  = "exit"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bfsignals_signals_total", Help: "Количество сигналов входа и выхода"},
		[]string{"strategy", "kind"},
	)
	RunSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bfsignals_run_seconds",
			Help:    "Длительность прогона стратегии",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"strategy"},
	)
	SymbolsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bfsignals_symbols_skipped_total", Help: "Символы, пропущенные из-за ошибок"},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, RunSeconds, SymbolsSkipped)
}

// ObserveRun учитывает завершенный прогон стратегии
func ObserveRun(strategy string, seconds float64, entries, exits int) {
	RunSeconds.WithLabelValues(strategy).Observe(seconds)
	SignalsTotal.WithLabelValues(strategy, KindEntry).Add(float64(entries))
	SignalsTotal.WithLabelValues(strategy, KindExit).Add(float64(exits))
}

// Serve запускает HTTP сервер с /metrics в отдельной горутине
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
