package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/internal/store"
)

// BlockContext carries the state shared by all events of one block: the
// fungibility cache and the set of addresses to reconcile afterwards. Its
// lifetime is exactly one block's processing.
type BlockContext struct {
	ChainName string
	Block     *model.Block

	fungible  map[string]bool
	addresses map[string]struct{}
}

// NewBlockContext builds the per-block dispatch state.
func NewBlockContext(chainName string, block *model.Block) *BlockContext {
	return &BlockContext{
		ChainName: chainName,
		Block:     block,
		fungible:  make(map[string]bool),
		addresses: make(map[string]struct{}),
	}
}

// Touch records an address for post-window balance reconciliation.
func (b *BlockContext) Touch(address string) {
	if address != "" {
		b.addresses[address] = struct{}{}
	}
}

// Addresses returns the distinct addresses touched so far.
func (b *BlockContext) Addresses() []string {
	out := make([]string, 0, len(b.addresses))
	for a := range b.addresses {
		out = append(out, a)
	}
	return out
}

// Dispatcher turns one raw node event into its typed sub-record and side
// effects. Dispatch is exhaustive over the known kinds; unknown kind strings
// fail closed.
type Dispatcher struct {
	store  Store
	queue  ContractQueue
	logger *zap.Logger
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(st Store, queue ContractQueue, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{store: st, queue: queue, logger: logger}
}

// Dispatch decodes and persists one event. The returned error covers this
// event only; callers isolate failures at event granularity.
func (d *Dispatcher) Dispatch(ctx context.Context, bctx *BlockContext, tx *model.Transaction, index int, raw nodeclient.EventResult) error {
	kind := model.EventKind(raw.Kind)
	if !model.KnownEventKind(kind) {
		d.logger.Warn("skipping unknown event kind",
			zap.String("kind", raw.Kind),
			zap.String("tx", tx.Hash))
		return nil
	}

	bctx.Touch(raw.Address)
	if err := d.ensureAddress(ctx, bctx.ChainName, raw.Address); err != nil {
		return err
	}

	ev := &model.Event{
		TransactionHash: tx.Hash,
		ChainName:       bctx.ChainName,
		Height:          bctx.Block.Height,
		TxIndex:         tx.Index,
		Index:           index,
		Kind:            kind,
		Contract:        raw.Contract,
		Address:         raw.Address,
		Timestamp:       bctx.Block.Timestamp,
	}

	switch kind {
	case model.TokenMint, model.TokenClaim, model.TokenBurn, model.TokenSend,
		model.TokenReceive, model.TokenStake, model.CrownRewards, model.Inflation:
		return d.dispatchTokenKind(ctx, bctx, ev, raw)

	case model.OrderCreated, model.OrderClosed, model.OrderCancelled,
		model.OrderFilled, model.OrderBid:
		return d.dispatchMarketKind(ctx, bctx, ev, raw)

	case model.Infusion:
		return d.dispatchInfusion(ctx, bctx, ev, raw)

	case model.ChainCreate, model.TokenCreate, model.ContractDeploy,
		model.ContractUpgrade, model.AddressRegister, model.AddressUnregister,
		model.OrganizationCreate, model.PlatformCreate, model.Log:
		return d.dispatchStringKind(ctx, bctx, ev, raw)

	case model.Crowdsale:
		data, err := decodeSaleEventData(raw.Data)
		if err != nil {
			return err
		}
		ev.SaleEvent = &model.SaleEvent{Hash: data.Hash, SaleKind: fmt.Sprintf("%d", data.SaleKind)}
		_, err = d.store.UpsertEvent(ctx, ev)
		return err

	case model.ChainSwap:
		data, err := decodeTransactionSettleEventData(raw.Data)
		if err != nil {
			return err
		}
		ev.TransactionSettleEvent = &model.TransactionSettleEvent{
			Hash:      data.Hash,
			Platform:  data.Platform,
			ChainName: data.ChainName,
		}
		_, err = d.store.UpsertEvent(ctx, ev)
		return err

	case model.ValidatorElect, model.ValidatorPropose:
		target, err := decodeAddressData(raw.Data)
		if err != nil {
			return err
		}
		ev.TargetAddress = target
		bctx.Touch(target)
		if err := d.ensureAddress(ctx, bctx.ChainName, target); err != nil {
			return err
		}
		_, err = d.store.UpsertEvent(ctx, ev)
		return err

	case model.ValueCreate, model.ValueUpdate:
		data, err := decodeChainValueEventData(raw.Data)
		if err != nil {
			return err
		}
		ev.ChainValueEvent = &model.ChainValueEvent{Name: data.Name, Value: data.Value}
		_, err = d.store.UpsertEvent(ctx, ev)
		return err

	case model.GasEscrow, model.GasPayment:
		data, err := decodeGasEventData(raw.Data)
		if err != nil {
			return err
		}
		ev.GasEvent = &model.GasEvent{Address: data.Address, Price: data.Price, Amount: data.Amount}
		bctx.Touch(data.Address)
		if err := d.ensureAddress(ctx, bctx.ChainName, data.Address); err != nil {
			return err
		}
		_, err = d.store.UpsertEvent(ctx, ev)
		return err

	case model.FileCreate, model.FileDelete:
		hash, err := decodeHashData(raw.Data)
		if err != nil {
			return err
		}
		ev.HashEvent = &model.HashEvent{Hash: hash}
		_, err = d.store.UpsertEvent(ctx, ev)
		return err

	case model.OrganizationAdd, model.OrganizationRemove:
		data, err := decodeOrganizationEventData(raw.Data)
		if err != nil {
			return err
		}
		ev.OrganizationEvent = &model.OrganizationEvent{
			Organization:  data.Organization,
			MemberAddress: data.MemberAddress,
		}
		bctx.Touch(data.MemberAddress)
		if err := d.ensureAddress(ctx, bctx.ChainName, data.MemberAddress); err != nil {
			return err
		}
		_, err = d.store.UpsertEvent(ctx, ev)
		return err

	case model.ValidatorSwitch, model.LeaderboardCreate, model.Custom:
		// recognised but not indexed
		d.logger.Debug("dropping unindexed event kind",
			zap.String("kind", raw.Kind),
			zap.String("tx", tx.Hash))
		return nil
	}

	d.logger.Warn("event kind fell through dispatch", zap.String("kind", raw.Kind))
	return nil
}

func (d *Dispatcher) dispatchTokenKind(ctx context.Context, bctx *BlockContext, ev *model.Event, raw nodeclient.EventResult) error {
	data, err := decodeTokenEventData(raw.Data)
	if err != nil {
		return err
	}
	ev.TokenSymbol = data.Symbol
	ev.TokenEvent = &model.TokenEvent{
		Symbol:    data.Symbol,
		ChainName: data.ChainName,
		Value:     data.Value,
	}

	fungible, err := d.fungibility(ctx, bctx, data.Symbol)
	if err != nil {
		return err
	}
	if !fungible {
		// for non-fungible tokens the event value is the token ID
		ev.TokenID = data.Value
		ev.TokenEvent.Value = "1"
		if err := d.updateNft(ctx, bctx, raw.Contract, data.Value, data.Symbol, ev); err != nil {
			return err
		}
	}
	_, err = d.store.UpsertEvent(ctx, ev)
	return err
}

func (d *Dispatcher) dispatchMarketKind(ctx context.Context, bctx *BlockContext, ev *model.Event, raw nodeclient.EventResult) error {
	data, err := decodeMarketEventData(raw.Data)
	if err != nil {
		return err
	}
	ev.TokenSymbol = data.BaseSymbol
	ev.MarketEvent = &model.MarketEvent{
		BaseSymbol:  data.BaseSymbol,
		QuoteSymbol: data.QuoteSymbol,
		MarketID:    data.MarketID,
		Price:       data.Price,
		EndPrice:    data.EndPrice,
		OrderKind:   fmt.Sprintf("%d", data.OrderKind),
	}

	fungible, err := d.fungibility(ctx, bctx, data.BaseSymbol)
	if err != nil {
		return err
	}
	if !fungible {
		ev.TokenID = data.MarketID
		// ownership moves only when an order actually fills
		if ev.Kind == model.OrderFilled {
			if err := d.updateNft(ctx, bctx, raw.Contract, data.MarketID, data.BaseSymbol, ev); err != nil {
				return err
			}
		}
	}
	_, err = d.store.UpsertEvent(ctx, ev)
	return err
}

func (d *Dispatcher) dispatchInfusion(ctx context.Context, bctx *BlockContext, ev *model.Event, raw nodeclient.EventResult) error {
	data, err := decodeInfusionEventData(raw.Data)
	if err != nil {
		return err
	}
	// resolve now so the post-processor's fungibility lookup is warm; the
	// raw value is kept, decimals are applied later
	if _, err := d.fungibility(ctx, bctx, data.InfusedSymbol); err != nil {
		return err
	}

	ev.TokenSymbol = data.BaseSymbol
	ev.TokenID = data.TokenID
	ev.InfusionEvent = &model.InfusionEvent{
		BaseSymbol:    data.BaseSymbol,
		TokenID:       data.TokenID,
		InfusedSymbol: data.InfusedSymbol,
		InfusedValue:  data.InfusedValue,
		ChainName:     data.ChainName,
	}

	if err := d.ensureNft(ctx, bctx, raw.Contract, data.TokenID, data.BaseSymbol); err != nil {
		return err
	}
	_, err = d.store.UpsertEvent(ctx, ev)
	return err
}

func (d *Dispatcher) dispatchStringKind(ctx context.Context, bctx *BlockContext, ev *model.Event, raw nodeclient.EventResult) error {
	value, err := decodeStringData(raw.Data)
	if err != nil {
		return err
	}
	ev.StringEvent = &model.StringEvent{Value: value}
	id, err := d.store.UpsertEvent(ctx, ev)
	if err != nil {
		return err
	}

	switch ev.Kind {
	case model.ContractDeploy:
		return d.registerContract(ctx, bctx, value, id)
	case model.ContractUpgrade:
		if d.queue != nil {
			d.queue.Enqueue(value, bctx.ChainName, bctx.Block.Timestamp)
		}
	}
	return nil
}

// registerContract writes the skeleton row for a freshly deployed contract.
// Methods stay empty until the metadata syncer fetches them; an existing row
// is left alone so a replayed window cannot clear fetched metadata.
func (d *Dispatcher) registerContract(ctx context.Context, bctx *BlockContext, name string, eventID uint64) error {
	if _, err := d.store.GetContract(ctx, bctx.ChainName, name); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load contract %s: %w", name, err)
	}
	return d.store.UpsertContract(ctx, &model.Contract{
		ChainName:     bctx.ChainName,
		Hash:          name,
		Name:          name,
		CreateEventID: eventID,
	})
}

// fungibility resolves whether a symbol is fungible, caching per block.
// Tokens the store has not seen yet default to fungible; the NFT bookkeeping
// for them happens once the token definition lands.
func (d *Dispatcher) fungibility(ctx context.Context, bctx *BlockContext, symbol string) (bool, error) {
	if v, ok := bctx.fungible[symbol]; ok {
		return v, nil
	}
	token, err := d.store.GetToken(ctx, bctx.ChainName, symbol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			bctx.fungible[symbol] = true
			return true, nil
		}
		return false, fmt.Errorf("resolve fungibility of %s: %w", symbol, err)
	}
	bctx.fungible[symbol] = token.Fungible
	return token.Fungible, nil
}

// updateNft upserts the ghost row for a non-fungible token and applies the
// ownership effect of the triggering event.
func (d *Dispatcher) updateNft(ctx context.Context, bctx *BlockContext, contract, tokenID, symbol string, ev *model.Event) error {
	nft, err := d.getOrCreateNft(ctx, bctx, contract, tokenID, symbol)
	if err != nil {
		return err
	}

	switch ev.Kind {
	case model.TokenBurn:
		nft.Burned = true
	case model.TokenMint:
		nft.OwnerAddress = ev.Address
		if nft.MintDate == 0 {
			nft.MintDate = bctx.Block.Timestamp
		}
		if nft.CreatorAddress == "" {
			nft.CreatorAddress = ev.Address
		}
	default:
		nft.OwnerAddress = ev.Address
	}
	return d.store.UpsertNft(ctx, nft)
}

func (d *Dispatcher) ensureNft(ctx context.Context, bctx *BlockContext, contract, tokenID, symbol string) error {
	nft, err := d.getOrCreateNft(ctx, bctx, contract, tokenID, symbol)
	if err != nil {
		return err
	}
	return d.store.UpsertNft(ctx, nft)
}

func (d *Dispatcher) getOrCreateNft(ctx context.Context, bctx *BlockContext, contract, tokenID, symbol string) (*model.Nft, error) {
	key := model.NftKey{ContractHash: contract, TokenID: tokenID}
	nft, err := d.store.GetNft(ctx, key)
	if err == nil {
		return nft, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load nft %s/%s: %w", contract, tokenID, err)
	}
	return &model.Nft{
		ChainName:    bctx.ChainName,
		ContractHash: contract,
		TokenID:      tokenID,
		Symbol:       symbol,
	}, nil
}

func (d *Dispatcher) ensureAddress(ctx context.Context, chain, address string) error {
	if address == "" {
		return nil
	}
	_, err := d.store.GetAddress(ctx, chain, address)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load address %s: %w", address, err)
	}
	return d.store.UpsertAddress(ctx, &model.Address{ChainName: chain, Address: address})
}
