// Package contracts refreshes contract ABI metadata, both on a staleness
// sweep and on upgrade events observed during ingestion.
package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/pkg/safe"
)

// Metadata older than this is refreshed by the periodic sweep.
const staleAfter = 30 * time.Minute

const (
	sweepBatchSize = 100
	queueCapacity  = 1024
)

type (
	// NodeClient is the slice of the node API the syncer needs.
	NodeClient interface {
		GetContract(ctx context.Context, chain, name string) (*nodeclient.ContractResult, error)
	}

	// Store is the persistence surface the syncer reads and writes.
	Store interface {
		GetContract(ctx context.Context, chain, hash string) (*model.Contract, error)
		UpsertContract(ctx context.Context, c *model.Contract) error
		ContractsWithStaleMethods(ctx context.Context, before uint32, limit int) ([]model.Contract, error)
	}
)

// queueItem is one pending refresh request from a ContractUpgrade event.
type queueItem struct {
	Hash      string
	ChainName string
	Timestamp uint32
}

// Syncer keeps contract metadata fresh. Upgrade events enqueue targeted
// refreshes; a periodic sweep catches everything else.
type Syncer struct {
	logger *zap.Logger
	client NodeClient
	store  Store
	now    func() time.Time

	mu    sync.Mutex
	seen  map[string]struct{}
	items chan queueItem
}

// NewSyncer builds a Syncer.
func NewSyncer(client NodeClient, st Store, logger *zap.Logger) *Syncer {
	return &Syncer{
		logger: logger,
		client: client,
		store:  st,
		now:    time.Now,
		seen:   make(map[string]struct{}),
		items:  make(chan queueItem, queueCapacity),
	}
}

// Enqueue schedules a refresh for one contract. Duplicate requests for a
// contract already waiting in the queue are dropped; the report value says
// whether the item was accepted.
func (s *Syncer) Enqueue(hash, chainName string, timestamp uint32) bool {
	key := chainName + "/" + hash
	s.mu.Lock()
	if _, dup := s.seen[key]; dup {
		s.mu.Unlock()
		return false
	}
	s.seen[key] = struct{}{}
	s.mu.Unlock()

	select {
	case s.items <- queueItem{Hash: hash, ChainName: chainName, Timestamp: timestamp}:
		return true
	default:
		s.mu.Lock()
		delete(s.seen, key)
		s.mu.Unlock()
		s.logger.Warn("contract refresh queue full, dropping",
			zap.String("hash", hash),
			zap.String("chain", chainName))
		return false
	}
}

// DrainQueue refreshes every contract currently waiting in the queue. A
// failed refresh is dropped, not requeued; the periodic sweep supersedes it.
func (s *Syncer) DrainQueue(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-s.items:
			s.dequeue(item)
			if err := s.refresh(ctx, item.ChainName, item.Hash); err != nil {
				s.logger.Warn("contract refresh from upgrade event failed",
					zap.String("hash", item.Hash),
					zap.String("chain", item.ChainName),
					zap.Error(err))
			}
		default:
			return nil
		}
	}
}

func (s *Syncer) dequeue(item queueItem) {
	s.mu.Lock()
	delete(s.seen, item.ChainName+"/"+item.Hash)
	s.mu.Unlock()
}

// RefreshStale sweeps contracts whose metadata was never fetched or is older
// than the staleness window.
func (s *Syncer) RefreshStale(ctx context.Context) error {
	cutoff, err := safe.Uint32(s.now().Add(-staleAfter).Unix())
	if err != nil {
		return fmt.Errorf("staleness cutoff: %w", err)
	}
	stale, err := s.store.ContractsWithStaleMethods(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("list stale contracts: %w", err)
	}
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.refresh(ctx, stale[i].ChainName, stale[i].Hash); err != nil {
			s.logger.Warn("stale contract refresh failed",
				zap.String("hash", stale[i].Hash),
				zap.String("chain", stale[i].ChainName),
				zap.Error(err))
		}
	}
	return nil
}

func (s *Syncer) refresh(ctx context.Context, chainName, hash string) error {
	result, err := s.client.GetContract(ctx, chainName, hash)
	if err != nil {
		return fmt.Errorf("fetch contract %s: %w", hash, err)
	}

	contract, err := s.store.GetContract(ctx, chainName, hash)
	if err != nil {
		contract = &model.Contract{ChainName: chainName, Hash: hash}
	}
	contract.Name = result.Name
	contract.Address = result.Address
	contract.Script = result.Script

	methods, err := json.Marshal(result.Methods)
	if err != nil {
		return fmt.Errorf("encode methods of %s: %w", hash, err)
	}
	contract.Methods = string(methods)
	fetchedAt, err := safe.Uint32(s.now().Unix())
	if err != nil {
		return fmt.Errorf("refresh timestamp: %w", err)
	}
	contract.MethodsFetchedAt = fetchedAt

	return s.store.UpsertContract(ctx, contract)
}
