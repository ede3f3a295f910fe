// Package metrics exposes Prometheus instrumentation for the compression
// pipeline: how long each stage takes, how often compression pays off versus
// falls back to a no-op, and the resulting ratio distribution. None of it
// feeds back into compression decisions; it is pure observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nobletooth/ltsc/pkg/types"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ltsc_pipeline_stage_duration_ms",
		Help:    "Duration in milliseconds of each compression pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 16),
	}, []string{"stage"})

	noCompressionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ltsc_no_compression_total",
		Help: "The number of compress calls that fell back to the identity transform, by reason.",
	}, []string{"reason"})

	compressionRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ltsc_compression_ratio",
		Help:    "Distribution of CompressedLength/OriginalLength for successful compressions.",
		Buckets: prometheus.LinearBuckets(0.0, 0.05, 21),
	})

	tokensSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ltsc_tokens_saved_total",
		Help: "Cumulative tokens saved across all successful compressions.",
	})

	candidatesDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ltsc_candidates_discovered_total",
		Help: "Cumulative count of discovered candidates across all compress calls.",
	})
)

// Now returns the current time. Stage timing calls this at the start and end
// of a stage; isolated so pipeline code never reaches for time.Now directly.
func Now() time.Time {
	return time.Now()
}

// ElapsedMS returns milliseconds elapsed since start.
func ElapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// RecordStage observes a stage's duration in the stageDuration histogram.
func RecordStage(stage string, durationMS float64) {
	stageDuration.WithLabelValues(stage).Observe(durationMS)
}

// ObserveNoCompression records that a compress call fell back to the
// identity transform, tagged with why.
func ObserveNoCompression(reason string) {
	noCompressionTotal.WithLabelValues(reason).Inc()
}

// ObserveCompression records the outcome of a successful compression.
func ObserveCompression(result types.CompressionResult) {
	compressionRatio.Observe(result.CompressionRatio())
	if saved := result.TokensSaved(); saved > 0 {
		tokensSavedTotal.Add(float64(saved))
	}
	if result.Metrics != nil {
		candidatesDiscoveredTotal.Add(float64(result.Metrics.CandidatesDiscovered))
		RecordStage("discovery", result.Metrics.DiscoveryTimeMS)
		RecordStage("selection", result.Metrics.SelectionTimeMS)
		RecordStage("serialization", result.Metrics.SerializationTimeMS)
	}
}
