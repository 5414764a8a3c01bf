package session

import "github.com/prometheus/client_golang/prometheus"

var (
	promptTokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llmd",
		Subsystem: "session",
		Name:      "prompt_tokens_total",
		Help:      "Total prompt tokens evaluated during prefill",
	})

	generatedTokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llmd",
		Subsystem: "session",
		Name:      "generated_tokens_total",
		Help:      "Total tokens emitted by the decode loop",
	})

	decodeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "llmd",
		Subsystem: "session",
		Name:      "decode_duration_seconds",
		Help:      "Duration of the decode loop per generation call",
		Buckets:   prometheus.DefBuckets,
	})

	outputTruncationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llmd",
		Subsystem: "session",
		Name:      "output_truncations_total",
		Help:      "Generation calls whose accumulated output hit the byte bound",
	})
)

func init() {
	prometheus.MustRegister(promptTokensTotal, generatedTokensTotal, decodeDuration, outputTruncationsTotal)
}
