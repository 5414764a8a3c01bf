package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionLoadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llmd",
		Subsystem: "manager",
		Name:      "session_loads_total",
		Help:      "Total model sessions loaded",
	})

	sessionEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llmd",
		Subsystem: "manager",
		Name:      "session_evictions_total",
		Help:      "Total idle sessions evicted to fit the memory budget",
	})
)

func init() {
	prometheus.MustRegister(sessionLoadsTotal, sessionEvictionsTotal)
}
