// Package metrics exposes prometheus instrumentation for the indexer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	nodeCallTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusglass",
		Subsystem: "node_client",
		Name:      "call_total",
		Help:      "Count of node REST calls.",
	}, []string{"operation", "status"})

	nodeCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexusglass",
		Subsystem: "node_client",
		Name:      "call_duration_seconds",
		Help:      "Duration of node REST calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// NodeClient implements nodeclient.Metrics.
type NodeClient struct{}

// NewNodeClient builds the node client metrics recorder.
func NewNodeClient() *NodeClient {
	return &NodeClient{}
}

// Observe records one REST call outcome.
func (NodeClient) Observe(operation string, err error, started time.Time) {
	status := statusLabel(err)
	nodeCallTotal.WithLabelValues(operation, status).Inc()
	nodeCallDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
