// Package infusion resolves pending infusion events into final infusion rows
// once the infused token's fungibility is known.
package infusion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/store"
	"github.com/nexusglass/nexusglass-backend/internal/utils"
)

const batchSize = 1000

// Store is the persistence surface the post-processor needs.
type Store interface {
	UnresolvedInfusionEvents(ctx context.Context, limit int) ([]model.Event, error)
	UpsertEvent(ctx context.Context, e *model.Event) (uint64, error)
	GetToken(ctx context.Context, chain, symbol string) (*model.Token, error)
	GetInfusion(ctx context.Context, nft model.NftKey, key string) (*model.NftInfusion, error)
	UpsertInfusion(ctx context.Context, inf *model.NftInfusion) error
	GetNft(ctx context.Context, key model.NftKey) (*model.Nft, error)
	UpsertNft(ctx context.Context, n *model.Nft) error
}

// Processor drains unresolved infusion events.
type Processor struct {
	logger *zap.Logger
	store  Store
}

// NewProcessor builds a Processor.
func NewProcessor(st Store, logger *zap.Logger) *Processor {
	return &Processor{logger: logger, store: st}
}

// Process resolves up to one batch of pending infusion events. An event whose
// infused token the store has not seen yet is left pending; the ingestion or
// bootstrap loops will land the token definition eventually.
func (p *Processor) Process(ctx context.Context) error {
	events, err := p.store.UnresolvedInfusionEvents(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("list pending infusions: %w", err)
	}

	resolved := 0
	for i := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := p.resolve(ctx, &events[i])
		if err != nil {
			p.logger.Warn("infusion resolve failed",
				zap.String("txHash", events[i].TransactionHash),
				zap.Int("eventIndex", events[i].Index),
				zap.Error(err))
			continue
		}
		if ok {
			resolved++
		}
	}
	if resolved > 0 {
		p.logger.Info("resolved infusions", zap.Int("count", resolved), zap.Int("pending", len(events)-resolved))
	}
	return nil
}

// resolve reports whether the event left the pending set.
func (p *Processor) resolve(ctx context.Context, ev *model.Event) (bool, error) {
	data := ev.InfusionEvent
	target := model.NftKey{ContractHash: ev.Contract, TokenID: data.TokenID}

	token, err := p.store.GetToken(ctx, data.ChainName, data.InfusedSymbol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// fungibility not resolvable yet, retry on a later pass
			return false, nil
		}
		return false, fmt.Errorf("load token %s: %w", data.InfusedSymbol, err)
	}

	var row model.NftInfusion
	if token.Fungible {
		row = model.NftInfusion{
			Key:         data.InfusedSymbol,
			Value:       utils.ToDecimal(data.InfusedValue, token.Decimals),
			NftKey:      target,
			TokenSymbol: data.InfusedSymbol,
		}
		// repeated infusions of the same token accumulate on one row
		if prev, err := p.store.GetInfusion(ctx, target, row.Key); err == nil {
			row.Value = utils.SumDecimals(prev.Value, row.Value)
		}
	} else {
		// the infused value is a token id of another NFT
		row = model.NftInfusion{
			Key:    data.InfusedSymbol + "#" + data.InfusedValue,
			Value:  data.InfusedValue,
			NftKey: target,
		}
		if err := p.linkInfusedNft(ctx, data, target); err != nil {
			return false, err
		}
	}

	if err := p.store.UpsertInfusion(ctx, &row); err != nil {
		return false, fmt.Errorf("upsert infusion: %w", err)
	}

	resolved := *data
	resolved.InfusionKey = fmt.Sprintf("%s/%s:%s", target.ContractHash, target.TokenID, row.Key)
	ev.InfusionEvent = &resolved
	if _, err := p.store.UpsertEvent(ctx, ev); err != nil {
		return false, fmt.Errorf("mark event resolved: %w", err)
	}
	return true, nil
}

// linkInfusedNft points the infused NFT at its holder by key.
func (p *Processor) linkInfusedNft(ctx context.Context, data *model.InfusionEvent, target model.NftKey) error {
	infusedKey := model.NftKey{ContractHash: data.InfusedSymbol, TokenID: data.InfusedValue}
	nft, err := p.store.GetNft(ctx, infusedKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			nft = &model.Nft{
				ChainName:    data.ChainName,
				ContractHash: infusedKey.ContractHash,
				TokenID:      infusedKey.TokenID,
				Symbol:       data.InfusedSymbol,
			}
		} else {
			return fmt.Errorf("load infused nft: %w", err)
		}
	}
	nft.InfusedInto = &target
	if err := p.store.UpsertNft(ctx, nft); err != nil {
		return fmt.Errorf("link infused nft: %w", err)
	}
	return nil
}
