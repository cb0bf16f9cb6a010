package ingest

import "time"

const (
	// windowSize is how many heights one ingestion window covers.
	windowSize = 100

	// fetchConcurrency bounds in-flight block requests; the client's rate
	// limiter spaces request starts so each sub-batch of this size takes at
	// least a second.
	fetchConcurrency = 50

	subBatchPause = 1 * time.Second

	// reconcileChunkSize is the batch-account call size handed to the
	// balance reconciler after each window.
	reconcileChunkSize = 100
)
