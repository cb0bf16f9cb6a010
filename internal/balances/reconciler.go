// Package balances keeps address balance, stake and storage state in sync
// with the node.
package balances

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/internal/store"
	"github.com/nexusglass/nexusglass-backend/internal/utils"
)

// FullResyncFlag is the one-shot GlobalVariable marking that the initial
// full balance refetch has completed. It is never re-armed.
const FullResyncFlag = "balance-refetch-completed"

const defaultChunkSize = 100

// anonymousName is the node's sentinel for an address without a registered
// name; it maps to absent.
const anonymousName = "anonymous"

type (
	// NodeClient is the slice of the node API the reconciler needs.
	NodeClient interface {
		GetAccounts(ctx context.Context, addresses []string) ([]nodeclient.AccountResult, error)
	}

	// Store is the persistence surface the reconciler reads and writes.
	Store interface {
		GetChain(ctx context.Context, name string) (*model.Chain, error)
		GetToken(ctx context.Context, chain, symbol string) (*model.Token, error)
		GetAddress(ctx context.Context, chain, address string) (*model.Address, error)
		UpsertAddress(ctx context.Context, a *model.Address) error
		AddressesByChain(ctx context.Context, chain string) ([]model.Address, error)
		GetGlobalVariable(ctx context.Context, name string) (*model.GlobalVariable, error)
		SetGlobalVariable(ctx context.Context, g model.GlobalVariable) error
	}

	// Metrics counts reconciled addresses.
	Metrics interface {
		ObserveAddresses(err error, count int)
	}
)

// Reconciler refreshes address state from the node's batch account endpoint.
type Reconciler struct {
	logger  *zap.Logger
	client  NodeClient
	store   Store
	metrics Metrics
}

// NewReconciler builds a Reconciler.
func NewReconciler(client NodeClient, st Store, metrics Metrics, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		logger:  logger,
		client:  client,
		store:   st,
		metrics: metrics,
	}
}

// Reconcile refreshes the given addresses in chunks. A failed chunk retries
// its addresses one by one, isolating a poisoned address without blocking
// the rest. While the one-shot full-resync flag is unset, every known
// address on the chain is reconciled instead of only the touched set.
func (r *Reconciler) Reconcile(ctx context.Context, chain string, addresses []string, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	fullResync, err := r.needsFullResync(ctx)
	if err != nil {
		return err
	}
	if fullResync {
		known, err := r.store.AddressesByChain(ctx, chain)
		if err != nil {
			return fmt.Errorf("load addresses for full resync: %w", err)
		}
		addresses = make([]string, 0, len(known))
		for _, a := range known {
			addresses = append(addresses, a.Address)
		}
		r.logger.Info("running one-time full balance resync", zap.Int("addresses", len(addresses)))
	}
	if len(addresses) == 0 {
		return r.finishFullResync(ctx, fullResync)
	}

	decimals := r.nativeDecimals(ctx, chain)

	for offset := 0; offset < len(addresses); offset += chunkSize {
		end := offset + chunkSize
		if end > len(addresses) {
			end = len(addresses)
		}
		if err := r.reconcileChunk(ctx, chain, addresses[offset:end], decimals); err != nil {
			return err
		}
	}
	return r.finishFullResync(ctx, fullResync)
}

func (r *Reconciler) needsFullResync(ctx context.Context) (bool, error) {
	_, err := r.store.GetGlobalVariable(ctx, FullResyncFlag)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	return false, fmt.Errorf("check full resync flag: %w", err)
}

func (r *Reconciler) finishFullResync(ctx context.Context, active bool) error {
	if !active {
		return nil
	}
	return r.store.SetGlobalVariable(ctx, model.GlobalVariable{Name: FullResyncFlag, NumberValue: 1})
}

func (r *Reconciler) nativeDecimals(ctx context.Context, chain string) int {
	c, err := r.store.GetChain(ctx, chain)
	if err != nil || c.MainTokenSymbol == "" {
		return 0
	}
	token, err := r.store.GetToken(ctx, chain, c.MainTokenSymbol)
	if err != nil {
		return 0
	}
	return token.Decimals
}

// reconcileChunk queries one batch of accounts. On a failed batch with more
// than one address it degrades to single-address calls; a single failing
// address is logged and skipped, never retried in this pass.
func (r *Reconciler) reconcileChunk(ctx context.Context, chain string, addresses []string, decimals int) error {
	accounts, err := r.client.GetAccounts(ctx, addresses)
	if err != nil || accounts == nil {
		if len(addresses) > 1 {
			r.logger.Warn("account batch failed, retrying addresses individually",
				zap.Int("size", len(addresses)),
				zap.Error(err))
			for _, a := range addresses {
				if err := r.reconcileChunk(ctx, chain, []string{a}, decimals); err != nil {
					return err
				}
			}
			return nil
		}
		if r.metrics != nil {
			r.metrics.ObserveAddresses(err, 1)
		}
		r.logger.Warn("skipping unreconcilable address",
			zap.String("address", addresses[0]),
			zap.Error(err))
		return nil
	}

	for _, account := range accounts {
		if account.Error != "" {
			if r.metrics != nil {
				r.metrics.ObserveAddresses(errors.New(account.Error), 1)
			}
			r.logger.Warn("node reported account error",
				zap.String("address", account.Address),
				zap.String("error", account.Error))
			continue
		}
		if err := r.applyAccount(ctx, chain, account, decimals); err != nil {
			return err
		}
		if r.metrics != nil {
			r.metrics.ObserveAddresses(nil, 1)
		}
	}
	return nil
}

func (r *Reconciler) applyAccount(ctx context.Context, chain string, account nodeclient.AccountResult, decimals int) error {
	addr, err := r.store.GetAddress(ctx, chain, account.Address)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load address %s: %w", account.Address, err)
		}
		addr = &model.Address{ChainName: chain, Address: account.Address}
	}

	if account.Name == anonymousName {
		addr.Name = ""
	} else {
		addr.Name = account.Name
	}
	addr.ValidatorKind = account.Validator

	if account.Stakes != nil {
		addr.Stake = &model.AddressStake{
			Amount:    utils.ToDecimal(account.Stakes.Amount, decimals),
			Time:      account.Stakes.Time,
			Unclaimed: utils.ToDecimal(account.Stakes.Unclaimed, decimals),
		}
	}
	if account.Storage != nil {
		addr.Storage = &model.AddressStorage{
			Available:  account.Storage.Available,
			Used:       account.Storage.Used,
			AvatarName: account.Storage.Avatar,
		}
	}

	addr.Balances = addr.Balances[:0]
	for _, b := range account.Balances {
		addr.Balances = append(addr.Balances, model.AddressBalance{
			TokenSymbol: b.Symbol,
			ChainName:   b.Chain,
			Amount:      b.Amount,
		})
	}
	addr.TotalSoul = r.totalNative(ctx, chain, addr, decimals)

	return r.store.UpsertAddress(ctx, addr)
}

// totalNative aggregates the native-token position: liquid balance plus stake.
func (r *Reconciler) totalNative(ctx context.Context, chain string, addr *model.Address, decimals int) string {
	c, err := r.store.GetChain(ctx, chain)
	if err != nil || c.MainTokenSymbol == "" {
		return ""
	}
	liquid := "0"
	for _, b := range addr.Balances {
		if b.TokenSymbol == c.MainTokenSymbol {
			liquid = utils.ToDecimal(b.Amount, decimals)
			break
		}
	}
	staked := "0"
	if addr.Stake != nil && addr.Stake.Amount != "" {
		staked = addr.Stake.Amount
	}
	return utils.SumDecimals(liquid, staked)
}
