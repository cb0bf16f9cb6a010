// Package nftmeta fills in ROM, RAM and decoded metadata for NFTs that were
// first seen as bare mint or transfer events.
package nftmeta

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/internal/rom"
	"github.com/nexusglass/nexusglass-backend/internal/store"
)

const batchSize = 100

// Outcome labels reported to metrics.
const (
	outcomeFilled  = "filled"
	outcomeBurned  = "burned"
	outcomeSkipped = "skipped"
)

type (
	// NodeClient is the slice of the node API the backfiller needs.
	NodeClient interface {
		GetNFT(ctx context.Context, symbol, tokenID string) (*nodeclient.NFTResult, error)
	}

	// Store is the persistence surface the backfiller reads and writes.
	Store interface {
		NftsWithoutROM(ctx context.Context, limit int) ([]model.Nft, error)
		GetNft(ctx context.Context, key model.NftKey) (*model.Nft, error)
		UpsertNft(ctx context.Context, n *model.Nft) error
		GetSeries(ctx context.Context, contract, seriesID string) (*model.Series, error)
		UpsertSeries(ctx context.Context, s *model.Series) error
	}

	// Metrics counts backfill outcomes per symbol.
	Metrics interface {
		ObserveNft(symbol, outcome string)
	}
)

// Backfiller drains the queue of NFTs missing ROM data.
type Backfiller struct {
	logger  *zap.Logger
	client  NodeClient
	store   Store
	metrics Metrics
}

// NewBackfiller builds a Backfiller.
func NewBackfiller(client NodeClient, st Store, metrics Metrics, logger *zap.Logger) *Backfiller {
	return &Backfiller{
		logger:  logger,
		client:  client,
		store:   st,
		metrics: metrics,
	}
}

// Backfill processes batches of ROM-less NFTs until the queue is empty. An
// NFT the node no longer knows is marked burned; any other per-NFT failure
// is skipped and picked up again on the next pass.
func (b *Backfiller) Backfill(ctx context.Context) error {
	for {
		batch, err := b.store.NftsWithoutROM(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("list nfts without rom: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		progressed := false
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if b.backfillOne(ctx, &batch[i]) {
				progressed = true
			}
		}
		// A batch where every NFT was skipped would loop on the same rows.
		if !progressed {
			return nil
		}
	}
}

// backfillOne reports whether the NFT left the ROM-less queue.
func (b *Backfiller) backfillOne(ctx context.Context, nft *model.Nft) bool {
	result, err := b.client.GetNFT(ctx, nft.Symbol, nft.TokenID)
	if err != nil {
		var apiErr *nodeclient.APIError
		if errors.As(err, &apiErr) && (apiErr.Contains("does not exist") || apiErr.Contains("invalid cast")) {
			return b.markBurned(ctx, nft)
		}
		b.observe(nft.Symbol, outcomeSkipped)
		b.logger.Warn("nft fetch failed, will retry next pass",
			zap.String("symbol", nft.Symbol),
			zap.String("tokenId", nft.TokenID),
			zap.Error(err))
		return false
	}

	if err := b.apply(ctx, nft, result); err != nil {
		b.observe(nft.Symbol, outcomeSkipped)
		b.logger.Warn("nft metadata apply failed",
			zap.String("symbol", nft.Symbol),
			zap.String("tokenId", nft.TokenID),
			zap.Error(err))
		return false
	}
	b.observe(nft.Symbol, outcomeFilled)
	return true
}

func (b *Backfiller) markBurned(ctx context.Context, nft *model.Nft) bool {
	nft.Burned = true
	if err := b.store.UpsertNft(ctx, nft); err != nil {
		b.logger.Error("mark nft burned",
			zap.String("symbol", nft.Symbol),
			zap.String("tokenId", nft.TokenID),
			zap.Error(err))
		return false
	}
	b.observe(nft.Symbol, outcomeBurned)
	b.logger.Info("nft gone from node, marked burned",
		zap.String("symbol", nft.Symbol),
		zap.String("tokenId", nft.TokenID))
	return true
}

func (b *Backfiller) apply(ctx context.Context, nft *model.Nft, result *nodeclient.NFTResult) error {
	raw, err := json.Marshal(result)
	if err == nil {
		nft.MetadataJSON = string(raw)
	}

	romBytes, err := hex.DecodeString(result.ROM)
	if err != nil {
		return fmt.Errorf("decode rom hex: %w", err)
	}
	// An empty ROM would leave the row in the backfill queue forever.
	if len(romBytes) == 0 {
		return fmt.Errorf("node returned empty rom")
	}
	ramBytes, err := hex.DecodeString(result.RAM)
	if err != nil {
		return fmt.Errorf("decode ram hex: %w", err)
	}
	nft.ROM = romBytes
	nft.RAM = ramBytes
	nft.MintNumber = result.Mint
	nft.SeriesID = result.Series
	if result.Creator != "" {
		nft.CreatorAddress = result.Creator
	}
	if len(result.Owners) > 0 {
		nft.OwnerAddress = result.Owners[0].Address
	}

	applyNodeProperties(nft, result.Properties)

	props := rom.ForSymbol(nft.Symbol).Decode(romBytes)
	if nft.Name == "" {
		nft.Name = props.Name
	}
	if nft.Description == "" {
		nft.Description = props.Description
	}
	if nft.MintDate == 0 {
		nft.MintDate = props.MintTimestamp
	}
	// The CROWN layout carries the staker the reward was minted for.
	if nft.CreatorAddress == "" && props.Staker != "" {
		nft.CreatorAddress = props.Staker
	}

	if err := b.store.UpsertNft(ctx, nft); err != nil {
		return fmt.Errorf("upsert nft: %w", err)
	}
	return b.propagateSeries(ctx, nft, props)
}

// applyNodeProperties copies the node's decoded key/value properties onto
// the NFT, preferring them over our own ROM decode.
func applyNodeProperties(nft *model.Nft, props []nodeclient.PropertyResult) {
	for _, p := range props {
		switch p.Key {
		case "Name", "name":
			nft.Name = p.Value
		case "Description", "description":
			nft.Description = p.Value
		case "ImageURL", "imageURL", "image":
			nft.ImageURL = p.Value
		case "InfoURL", "infoURL", "url":
			nft.InfoURL = p.Value
		}
	}
}

// propagateSeries fills series-level fields from the first member NFT that
// carries them. Existing series values are never overwritten.
func (b *Backfiller) propagateSeries(ctx context.Context, nft *model.Nft, props rom.Properties) error {
	if nft.SeriesID == "" {
		return nil
	}
	series, err := b.store.GetSeries(ctx, nft.ContractHash, nft.SeriesID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load series: %w", err)
		}
		series = &model.Series{ContractHash: nft.ContractHash, SeriesID: nft.SeriesID}
	}

	changed := false
	if series.Name == "" && nft.Name != "" {
		series.Name = nft.Name
		changed = true
	}
	if series.Description == "" && nft.Description != "" {
		series.Description = nft.Description
		changed = true
	}
	if series.ImageURL == "" && nft.ImageURL != "" {
		series.ImageURL = nft.ImageURL
		changed = true
	}
	if series.CreatorAddress == "" && nft.CreatorAddress != "" {
		series.CreatorAddress = nft.CreatorAddress
		changed = true
	}
	if series.Type == 0 && props.NftType != 0 {
		series.Type = props.NftType
		changed = true
	}
	if !series.HasLocked && props.HasLocked {
		series.HasLocked = true
		changed = true
	}
	if series.Royalties == "" && props.Royalties != "" {
		series.Royalties = props.Royalties
		changed = true
	}
	if series.AttrType1 == "" && props.AttrType1 != "" {
		series.AttrType1 = props.AttrType1
		series.AttrValue1 = props.AttrValue1
		changed = true
	}
	if series.AttrType2 == "" && props.AttrType2 != "" {
		series.AttrType2 = props.AttrType2
		series.AttrValue2 = props.AttrValue2
		changed = true
	}
	if series.AttrType3 == "" && props.AttrType3 != "" {
		series.AttrType3 = props.AttrType3
		series.AttrValue3 = props.AttrValue3
		changed = true
	}
	if !changed {
		return nil
	}
	if err := b.store.UpsertSeries(ctx, series); err != nil {
		return fmt.Errorf("upsert series: %w", err)
	}
	return nil
}

func (b *Backfiller) observe(symbol, outcome string) {
	if b.metrics != nil {
		b.metrics.ObserveNft(symbol, outcome)
	}
}
