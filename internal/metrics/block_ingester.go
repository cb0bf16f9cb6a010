package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestWindowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusglass",
		Subsystem: "block_ingester",
		Name:      "window_total",
		Help:      "Count of processed ingestion windows.",
	}, []string{"chain", "status"})

	ingestWindowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexusglass",
		Subsystem: "block_ingester",
		Name:      "window_duration_seconds",
		Help:      "Duration of one ingestion window (fetch plus decode).",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain", "status"})

	ingestBlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexusglass",
		Subsystem: "block_ingester",
		Name:      "block_duration_seconds",
		Help:      "Duration of decoding and writing a single block.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain", "status"})

	ingestEventErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusglass",
		Subsystem: "block_ingester",
		Name:      "event_errors_total",
		Help:      "Count of events skipped after a decode failure.",
	}, []string{"chain", "kind"})

	chainCheckpoint = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nexusglass",
		Subsystem: "block_ingester",
		Name:      "checkpoint_height",
		Help:      "Highest fully committed block height per chain.",
	}, []string{"chain"})
)

// BlockIngester implements the ingest package's metrics interface.
type BlockIngester struct {
	chain string
}

// NewBlockIngester builds the block ingester metrics recorder.
func NewBlockIngester(chain string) *BlockIngester {
	if chain == "" {
		chain = "unknown"
	}
	return &BlockIngester{chain: chain}
}

// ObserveWindow records one window outcome.
func (m BlockIngester) ObserveWindow(err error, started time.Time) {
	status := statusLabel(err)
	ingestWindowTotal.WithLabelValues(m.chain, status).Inc()
	ingestWindowDuration.WithLabelValues(m.chain, status).Observe(time.Since(started).Seconds())
}

// ObserveBlock records the decode+write of a single block.
func (m BlockIngester) ObserveBlock(err error, started time.Time) {
	ingestBlockDuration.WithLabelValues(m.chain, statusLabel(err)).Observe(time.Since(started).Seconds())
}

// ObserveEventError counts an event skipped after a decode failure.
func (m BlockIngester) ObserveEventError(kind string) {
	ingestEventErrors.WithLabelValues(m.chain, kind).Inc()
}

// SetCheckpoint publishes the committed checkpoint height.
func (m BlockIngester) SetCheckpoint(height uint64) {
	chainCheckpoint.WithLabelValues(m.chain).Set(float64(height))
}
