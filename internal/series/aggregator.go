// Package series maintains per-series supply aggregates derived from the
// NFT table.
package series

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
)

// Store is the persistence surface the aggregator needs.
type Store interface {
	SeriesList(ctx context.Context) ([]model.Series, error)
	CountNftsInSeries(ctx context.Context, contract, seriesID string) (uint64, error)
	UpsertSeries(ctx context.Context, s *model.Series) error
}

// Aggregator recomputes series supply counts. Mints and burns land on NFT
// rows first; this keeps the denormalized counts in step.
type Aggregator struct {
	logger *zap.Logger
	store  Store
}

// NewAggregator builds an Aggregator.
func NewAggregator(st Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{logger: logger, store: st}
}

// Sync refreshes CurrentSupply for every series whose count drifted.
func (a *Aggregator) Sync(ctx context.Context) error {
	list, err := a.store.SeriesList(ctx)
	if err != nil {
		return fmt.Errorf("list series: %w", err)
	}
	for i := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := list[i]
		count, err := a.store.CountNftsInSeries(ctx, s.ContractHash, s.SeriesID)
		if err != nil {
			return fmt.Errorf("count series %s/%s: %w", s.ContractHash, s.SeriesID, err)
		}
		if count == s.CurrentSupply {
			continue
		}
		s.CurrentSupply = count
		if err := a.store.UpsertSeries(ctx, &s); err != nil {
			return fmt.Errorf("upsert series %s/%s: %w", s.ContractHash, s.SeriesID, err)
		}
		a.logger.Debug("series supply updated",
			zap.String("contract", s.ContractHash),
			zap.String("series", s.SeriesID),
			zap.Uint64("supply", count))
	}
	return nil
}
