package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loopIterationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusglass",
		Subsystem: "scheduler",
		Name:      "iteration_total",
		Help:      "Count of worker loop iterations.",
	}, []string{"loop", "status"})

	loopIterationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexusglass",
		Subsystem: "scheduler",
		Name:      "iteration_duration_seconds",
		Help:      "Duration of worker loop iterations.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"loop", "status"})

	reconcileAddresses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusglass",
		Subsystem: "balance_reconciler",
		Name:      "addresses_total",
		Help:      "Count of addresses reconciled.",
	}, []string{"chain", "status"})

	nftBackfillTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusglass",
		Subsystem: "nft_backfill",
		Name:      "nfts_total",
		Help:      "Count of NFT metadata backfill outcomes.",
	}, []string{"symbol", "outcome"})
)

// WorkerLoops records scheduler loop iterations.
type WorkerLoops struct{}

// NewWorkerLoops builds the scheduler metrics recorder.
func NewWorkerLoops() *WorkerLoops {
	return &WorkerLoops{}
}

// ObserveIteration records one loop iteration outcome.
func (WorkerLoops) ObserveIteration(loop string, err error, started time.Time) {
	status := statusLabel(err)
	loopIterationTotal.WithLabelValues(loop, status).Inc()
	loopIterationDuration.WithLabelValues(loop, status).Observe(time.Since(started).Seconds())
}

// BalanceReconciler records reconciliation outcomes.
type BalanceReconciler struct {
	chain string
}

// NewBalanceReconciler builds the balance reconciler metrics recorder.
func NewBalanceReconciler(chain string) *BalanceReconciler {
	if chain == "" {
		chain = "unknown"
	}
	return &BalanceReconciler{chain: chain}
}

// ObserveAddresses counts reconciled addresses by outcome.
func (m BalanceReconciler) ObserveAddresses(err error, count int) {
	reconcileAddresses.WithLabelValues(m.chain, statusLabel(err)).Add(float64(count))
}

// NftBackfill records NFT metadata backfill outcomes.
type NftBackfill struct{}

// NewNftBackfill builds the NFT backfill metrics recorder.
func NewNftBackfill() *NftBackfill {
	return &NftBackfill{}
}

// ObserveNft counts one backfill outcome for a symbol.
func (NftBackfill) ObserveNft(symbol, outcome string) {
	nftBackfillTotal.WithLabelValues(symbol, outcome).Inc()
}
