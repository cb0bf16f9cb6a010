// Package consistency repairs rows orphaned by a crash between the block,
// transaction and event writes of an interrupted ingestion window.
package consistency

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/store"
)

// tailScanLimit bounds the orphan scans. An interrupted window leaves at
// most one window's worth of rows, so the tail is short in practice.
const tailScanLimit = 1000

// Store is the persistence surface the checker reads and repairs.
type Store interface {
	Chains(ctx context.Context) ([]model.Chain, error)
	MaxBlockHeight(ctx context.Context, chain string) (uint64, error)
	GetBlock(ctx context.Context, chain string, height uint64) (*model.Block, error)
	GetBlockByHash(ctx context.Context, hash string) (*model.Block, error)
	DeleteBlock(ctx context.Context, chain string, height uint64) error
	TransactionsNewestFirst(ctx context.Context, limit int) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, hash string) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, hash string) error
	EventsNewestFirst(ctx context.Context, limit int) ([]model.Event, error)
	DeleteEvent(ctx context.Context, txHash string, index int) error
}

// Checker deletes the orphaned tail a crash can leave behind. The write path
// deliberately does not wrap a window in one transaction; this is the
// matching repair.
type Checker struct {
	logger *zap.Logger
	store  Store
}

// NewChecker builds a Checker.
func NewChecker(st Store, logger *zap.Logger) *Checker {
	return &Checker{logger: logger, store: st}
}

// Repair runs the three orphan passes: blocks above the checkpoint,
// transactions without a block, events without a transaction.
func (c *Checker) Repair(ctx context.Context) error {
	if err := c.repairBlocks(ctx); err != nil {
		return err
	}
	if err := c.repairTransactions(ctx); err != nil {
		return err
	}
	return c.repairEvents(ctx)
}

// repairBlocks deletes blocks whose height exceeds the chain checkpoint.
// The checkpoint only advances after a window fully commits, so anything
// above it came from an interrupted window.
func (c *Checker) repairBlocks(ctx context.Context) error {
	chains, err := c.store.Chains(ctx)
	if err != nil {
		return fmt.Errorf("list chains: %w", err)
	}
	for _, chain := range chains {
		max, err := c.store.MaxBlockHeight(ctx, chain.Name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("max height of %s: %w", chain.Name, err)
		}
		for h := chain.Height + 1; h <= max; h++ {
			if _, err := c.store.GetBlock(ctx, chain.Name, h); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return fmt.Errorf("load block %s/%d: %w", chain.Name, h, err)
			}
			if err := c.store.DeleteBlock(ctx, chain.Name, h); err != nil {
				return fmt.Errorf("delete orphan block %s/%d: %w", chain.Name, h, err)
			}
			c.logger.Warn("deleted block above checkpoint",
				zap.String("chain", chain.Name),
				zap.Uint64("height", h),
				zap.Uint64("checkpoint", chain.Height))
		}
	}
	return nil
}

// repairTransactions walks the newest transactions and deletes those whose
// block is gone. Writes are ordered, so orphans form a contiguous newest
// tail; the scan stops at the first transaction whose block exists.
func (c *Checker) repairTransactions(ctx context.Context) error {
	txs, err := c.store.TransactionsNewestFirst(ctx, tailScanLimit)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	for i := range txs {
		_, err := c.store.GetBlockByHash(ctx, txs[i].BlockHash)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load block %s: %w", txs[i].BlockHash, err)
		}
		if err := c.store.DeleteTransaction(ctx, txs[i].Hash); err != nil {
			return fmt.Errorf("delete orphan transaction %s: %w", txs[i].Hash, err)
		}
		c.logger.Warn("deleted transaction without block", zap.String("hash", txs[i].Hash))
	}
	return nil
}

// repairEvents is the same tail repair for events against transactions.
func (c *Checker) repairEvents(ctx context.Context) error {
	events, err := c.store.EventsNewestFirst(ctx, tailScanLimit)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	for i := range events {
		_, err := c.store.GetTransaction(ctx, events[i].TransactionHash)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load transaction %s: %w", events[i].TransactionHash, err)
		}
		if err := c.store.DeleteEvent(ctx, events[i].TransactionHash, events[i].Index); err != nil {
			return fmt.Errorf("delete orphan event %s/%d: %w", events[i].TransactionHash, events[i].Index, err)
		}
		c.logger.Warn("deleted event without transaction",
			zap.String("txHash", events[i].TransactionHash),
			zap.Int("index", events[i].Index))
	}
	return nil
}
