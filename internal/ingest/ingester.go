// Package ingest contains the block fetch/decode pipeline and the per-event
// dispatch that turns raw node payloads into store records.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/clock"
	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/pkg/workerpool"
)

// Ingestor advances one chain's checkpoint by fetching block windows
// concurrently and decoding them strictly in order. Network I/O is the only
// parallel phase; every store write happens sequentially by height, then
// transaction index, then event index.
type Ingestor struct {
	logger        *zap.Logger
	chainName     string
	client        NodeClient
	store         Store
	dispatcher    *Dispatcher
	reconciler    BalanceReconciler
	metrics       Metrics
	heightCeiling uint64
	sleep         func(context.Context, time.Duration) error
}

// NewIngestor builds an Ingestor for one chain. heightCeiling of zero means
// no ceiling; a non-zero value bounds test runs.
func NewIngestor(
	chainName string,
	client NodeClient,
	st Store,
	dispatcher *Dispatcher,
	reconciler BalanceReconciler,
	metrics Metrics,
	heightCeiling uint64,
	logger *zap.Logger,
) *Ingestor {
	return &Ingestor{
		logger:        logger.With(zap.String("chain", chainName)),
		chainName:     chainName,
		client:        client,
		store:         st,
		dispatcher:    dispatcher,
		reconciler:    reconciler,
		metrics:       metrics,
		heightCeiling: heightCeiling,
		sleep:         clock.SleepWithContext,
	}
}

// Sync runs one ingestion pass from the committed checkpoint to the node's
// current height.
func (s *Ingestor) Sync(ctx context.Context) error {
	chain, err := s.store.GetChain(ctx, s.chainName)
	if err != nil {
		return fmt.Errorf("load chain %s: %w", s.chainName, err)
	}

	nodeHeight, err := s.client.GetBlockHeight(ctx, s.chainName)
	if err != nil {
		return fmt.Errorf("get node height: %w", err)
	}
	if s.heightCeiling > 0 && nodeHeight > s.heightCeiling {
		nodeHeight = s.heightCeiling
	}
	if nodeHeight <= chain.Height {
		return nil
	}
	return s.Ingest(ctx, chain.Height+1, nodeHeight)
}

// Ingest processes heights [from, to] in fixed windows. Processing resumes
// from the checkpoint when it is ahead of from; a failed window aborts the
// pass and the next tick retries from the same checkpoint. All writes are
// idempotent upserts, so re-processing a window is safe.
func (s *Ingestor) Ingest(ctx context.Context, from, to uint64) error {
	chain, err := s.store.GetChain(ctx, s.chainName)
	if err != nil {
		return fmt.Errorf("load chain %s: %w", s.chainName, err)
	}
	start := from
	if chain.Height+1 > start {
		start = chain.Height + 1
	}

	for windowStart := start; windowStart <= to; windowStart += windowSize {
		windowEnd := windowStart + windowSize - 1
		if windowEnd > to {
			windowEnd = to
		}
		if err := s.processWindow(ctx, windowStart, windowEnd); err != nil {
			return fmt.Errorf("window %d-%d: %w", windowStart, windowEnd, err)
		}
	}
	return nil
}

func (s *Ingestor) processWindow(ctx context.Context, windowStart, windowEnd uint64) (err error) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveWindow(err, started)
		}
	}()

	heights := make([]uint64, 0, windowEnd-windowStart+1)
	for h := windowStart; h <= windowEnd; h++ {
		heights = append(heights, h)
	}

	blocks, err := s.fetchBlocks(ctx, heights)
	if err != nil {
		s.logger.Error("block fetch failed, aborting window",
			zap.Uint64("from", windowStart),
			zap.Uint64("to", windowEnd),
			zap.Error(err))
		return err
	}

	// decode is strictly sequential: height, then tx index, then event index
	touched := make(map[string]struct{})
	for _, block := range blocks {
		if err := s.processBlock(ctx, block, touched); err != nil {
			return err
		}
	}

	if s.reconciler != nil && len(touched) > 0 {
		addresses := make([]string, 0, len(touched))
		for a := range touched {
			addresses = append(addresses, a)
		}
		if rerr := s.reconciler.Reconcile(ctx, s.chainName, addresses, reconcileChunkSize); rerr != nil {
			// balances refresh again the next time these addresses move
			s.logger.Warn("post-window balance reconcile failed",
				zap.Int("addresses", len(addresses)),
				zap.Error(rerr))
		}
	}

	if err := s.store.SetChainHeight(ctx, s.chainName, windowEnd); err != nil {
		return fmt.Errorf("advance checkpoint to %d: %w", windowEnd, err)
	}
	if s.metrics != nil {
		s.metrics.SetCheckpoint(windowEnd)
	}
	s.logger.Info("window committed",
		zap.Uint64("from", windowStart),
		zap.Uint64("to", windowEnd),
		zap.Int("blocks", len(blocks)),
		zap.Int("addresses", len(touched)))
	return nil
}

// fetchBlocks retrieves the window concurrently in sub-batches, pausing
// between sub-batches to respect upstream rate limits. Results come back in
// height order.
func (s *Ingestor) fetchBlocks(ctx context.Context, heights []uint64) ([]*nodeclient.BlockResult, error) {
	blocks := make([]*nodeclient.BlockResult, 0, len(heights))
	for offset := 0; offset < len(heights); offset += fetchConcurrency {
		end := offset + fetchConcurrency
		if end > len(heights) {
			end = len(heights)
		}
		batch, err := workerpool.Map(ctx, fetchConcurrency, heights[offset:end],
			func(ctx context.Context, height uint64) (*nodeclient.BlockResult, error) {
				return s.client.GetBlockByHeight(ctx, s.chainName, height)
			})
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, batch...)

		if end < len(heights) {
			if err := s.sleep(ctx, subBatchPause); err != nil {
				return nil, err
			}
		}
	}
	return blocks, nil
}

func (s *Ingestor) processBlock(ctx context.Context, res *nodeclient.BlockResult, touched map[string]struct{}) (err error) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveBlock(err, started)
		}
	}()

	block := &model.Block{
		ChainName:        s.chainName,
		Height:           res.Height,
		Hash:             res.Hash,
		PreviousHash:     res.PreviousHash,
		Protocol:         res.Protocol,
		ChainAddress:     res.ChainAddress,
		ValidatorAddress: res.ValidatorAddress,
		Reward:           res.Reward,
		Timestamp:        res.Timestamp,
	}
	if err := s.store.UpsertBlock(ctx, block); err != nil {
		return fmt.Errorf("write block %d: %w", res.Height, err)
	}
	if len(res.Oracles) > 0 {
		oracles := make([]model.BlockOracle, 0, len(res.Oracles))
		for _, o := range res.Oracles {
			oracles = append(oracles, model.BlockOracle{BlockHash: block.Hash, URL: o.URL, Content: o.Content})
		}
		if err := s.store.ReplaceBlockOracles(ctx, block.Hash, oracles); err != nil {
			return fmt.Errorf("write oracles for block %d: %w", res.Height, err)
		}
	}

	bctx := NewBlockContext(s.chainName, block)
	for txIndex, txRes := range res.Txs {
		if err := s.processTransaction(ctx, bctx, block, txIndex, txRes); err != nil {
			return err
		}
	}

	for _, a := range bctx.Addresses() {
		touched[a] = struct{}{}
	}
	return nil
}

func (s *Ingestor) processTransaction(ctx context.Context, bctx *BlockContext, block *model.Block, txIndex int, res nodeclient.TransactionResult) error {
	timestamp := res.Timestamp
	if timestamp == 0 {
		timestamp = block.Timestamp
	}
	tx := &model.Transaction{
		BlockHash:  block.Hash,
		ChainName:  s.chainName,
		Height:     block.Height,
		Index:      txIndex,
		Hash:       res.Hash,
		Payload:    res.Payload,
		Script:     res.Script,
		Result:     res.Result,
		Fee:        res.Fee,
		Expiration: res.Expiration,
		GasPrice:   res.GasPrice,
		GasLimit:   res.GasLimit,
		Sender:     res.Sender,
		GasPayer:   res.GasPayer,
		GasTarget:  res.GasTarget,
		Timestamp:  timestamp,
	}
	if err := s.store.UpsertTransaction(ctx, tx); err != nil {
		return fmt.Errorf("write tx %s: %w", res.Hash, err)
	}

	if len(res.Signatures) > 0 {
		sigs := make([]model.TransactionSignature, 0, len(res.Signatures))
		for i, sig := range res.Signatures {
			sigs = append(sigs, model.TransactionSignature{
				TransactionHash: tx.Hash,
				Index:           i,
				Kind:            sig.Kind,
				Data:            sig.Data,
			})
		}
		if err := s.store.ReplaceTransactionSignatures(ctx, tx.Hash, sigs); err != nil {
			return fmt.Errorf("write signatures for tx %s: %w", res.Hash, err)
		}
	}

	for _, a := range []string{res.Sender, res.GasPayer, res.GasTarget} {
		bctx.Touch(a)
		if err := s.dispatcher.ensureAddress(ctx, s.chainName, a); err != nil {
			return err
		}
	}

	for evIndex, evRes := range res.Events {
		s.dispatchEvent(ctx, bctx, tx, evIndex, evRes)
	}
	return nil
}

// dispatchEvent isolates failures at event granularity: a broken event is
// logged with its raw payload and skipped, the rest of the transaction
// continues.
func (s *Ingestor) dispatchEvent(ctx context.Context, bctx *BlockContext, tx *model.Transaction, index int, res nodeclient.EventResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logEventFailure(tx, index, res, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := s.dispatcher.Dispatch(ctx, bctx, tx, index, res); err != nil {
		s.logEventFailure(tx, index, res, err)
	}
}

func (s *Ingestor) logEventFailure(tx *model.Transaction, index int, res nodeclient.EventResult, err error) {
	if s.metrics != nil {
		s.metrics.ObserveEventError(res.Kind)
	}
	s.logger.Error("event decode failed, skipping",
		zap.String("tx", tx.Hash),
		zap.Int("event", index),
		zap.String("kind", res.Kind),
		zap.String("payload", res.Data),
		zap.Error(err))
}
