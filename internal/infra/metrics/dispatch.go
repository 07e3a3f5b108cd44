package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(articlesDispatchedTotal, synthesisChunksTotal, audioBytesTotal) }

var articlesDispatchedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "digest_articles_dispatched_total",
		Help: "Articles included in dispatched output, labeled by bucket.",
	},
	[]string{"workflow", "bucket"}, // 'categorized', 'fallback'
)

var synthesisChunksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "digest_synthesis_chunks_total",
		Help: "Text chunks sent to speech synthesis, labeled by speaker.",
	},
	[]string{"speaker"},
)

var audioBytesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "digest_audio_bytes_total",
		Help: "Total synthesized audio bytes published.",
	},
)

func IncArticlesDispatched(workflow, bucket string, n int) {
	articlesDispatchedTotal.WithLabelValues(norm(workflow), norm(bucket)).Add(float64(n))
}

func IncSynthesisChunk(speaker string) {
	synthesisChunksTotal.WithLabelValues(norm(speaker)).Inc()
}

func AddAudioBytes(n int) {
	audioBytesTotal.Add(float64(n))
}
