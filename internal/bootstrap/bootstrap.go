// Package bootstrap seeds the store with the node's chain list and the
// nexus-wide token, platform and organization registries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/internal/store"
)

type (
	// NodeClient is the slice of the node API bootstrap needs.
	NodeClient interface {
		GetChains(ctx context.Context) ([]nodeclient.ChainResult, error)
		GetNexus(ctx context.Context) (*nodeclient.NexusResult, error)
		GetOrganization(ctx context.Context, id string) (*nodeclient.OrganizationResult, error)
	}

	// Store is the persistence surface bootstrap writes.
	Store interface {
		GetChain(ctx context.Context, name string) (*model.Chain, error)
		UpsertChain(ctx context.Context, c *model.Chain) error
		GetContract(ctx context.Context, chain, hash string) (*model.Contract, error)
		UpsertContract(ctx context.Context, c *model.Contract) error
		UpsertToken(ctx context.Context, t *model.Token) error
		UpsertPlatform(ctx context.Context, p *model.Platform) error
		GetOrganization(ctx context.Context, id string) (*model.Organization, error)
		UpsertOrganization(ctx context.Context, o *model.Organization) error
	}
)

// Bootstrap syncs nexus-level registries into the store. It runs at startup
// and periodically; everything it writes is an idempotent upsert.
type Bootstrap struct {
	logger       *zap.Logger
	client       NodeClient
	store        Store
	nativeSymbol string
}

// New builds a Bootstrap. nativeSymbol is the chain's staking token, used as
// the main token reference of newly seen chains.
func New(client NodeClient, st Store, nativeSymbol string, logger *zap.Logger) *Bootstrap {
	return &Bootstrap{
		logger:       logger,
		client:       client,
		store:        st,
		nativeSymbol: nativeSymbol,
	}
}

// Sync refreshes chains, tokens, platforms and organizations.
func (b *Bootstrap) Sync(ctx context.Context) error {
	if err := b.syncChains(ctx); err != nil {
		return err
	}
	return b.syncNexus(ctx)
}

// syncChains upserts the chain list. The checkpoint of an already known
// chain is never touched here; only the ingester advances it.
func (b *Bootstrap) syncChains(ctx context.Context) error {
	chains, err := b.client.GetChains(ctx)
	if err != nil {
		return fmt.Errorf("fetch chains: %w", err)
	}
	for _, c := range chains {
		if _, err := b.store.GetChain(ctx, c.Name); errors.Is(err, store.ErrNotFound) {
			if err := b.store.UpsertChain(ctx, &model.Chain{
				Name:            c.Name,
				MainTokenSymbol: b.nativeSymbol,
			}); err != nil {
				return fmt.Errorf("upsert chain %s: %w", c.Name, err)
			}
			b.logger.Info("registered chain", zap.String("chain", c.Name))
		} else if err != nil {
			return fmt.Errorf("load chain %s: %w", c.Name, err)
		}
		if err := b.seedContracts(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// seedContracts registers the chain's deployed contracts so the metadata
// syncer's never-fetched sweep can pick them up. Known rows are left alone;
// only the syncer writes methods.
func (b *Bootstrap) seedContracts(ctx context.Context, c nodeclient.ChainResult) error {
	for _, name := range c.Contracts {
		if _, err := b.store.GetContract(ctx, c.Name, name); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load contract %s: %w", name, err)
		}
		if err := b.store.UpsertContract(ctx, &model.Contract{
			ChainName: c.Name,
			Hash:      name,
			Name:      name,
		}); err != nil {
			return fmt.Errorf("upsert contract %s: %w", name, err)
		}
	}
	return nil
}

func (b *Bootstrap) syncNexus(ctx context.Context) error {
	nexus, err := b.client.GetNexus(ctx)
	if err != nil {
		return fmt.Errorf("fetch nexus: %w", err)
	}

	for _, chain := range nexus.Chains {
		for _, token := range nexus.Tokens {
			if err := b.store.UpsertToken(ctx, tokenFromResult(chain.Name, token)); err != nil {
				return fmt.Errorf("upsert token %s: %w", token.Symbol, err)
			}
		}
	}

	for _, p := range nexus.Platforms {
		platform := &model.Platform{
			Name:       p.Platform,
			ChainHash:  p.Chain,
			FuelSymbol: p.Fuel,
			Tokens:     p.Tokens,
		}
		for _, io := range p.Interop {
			platform.Interops = append(platform.Interops, model.PlatformInterop{
				ExternalAddress: io.External,
				LocalAddress:    io.Local,
			})
		}
		if err := b.store.UpsertPlatform(ctx, platform); err != nil {
			return fmt.Errorf("upsert platform %s: %w", p.Platform, err)
		}
	}

	for _, id := range nexus.Organizations {
		if err := b.syncOrganization(ctx, id); err != nil {
			// organizations are enrichment, a single failure does not
			// block token sync on the next tick
			b.logger.Warn("organization sync failed", zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

func (b *Bootstrap) syncOrganization(ctx context.Context, id string) error {
	result, err := b.client.GetOrganization(ctx, id)
	if err != nil {
		return err
	}
	org, err := b.store.GetOrganization(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		org = &model.Organization{ID: id}
	}
	org.Name = result.Name
	org.Members = result.Members
	return b.store.UpsertOrganization(ctx, org)
}

func tokenFromResult(chain string, t nodeclient.TokenResult) *model.Token {
	return &model.Token{
		ChainName:    chain,
		ContractHash: t.Symbol,
		Symbol:       t.Symbol,

		Fungible:     t.HasFlag("Fungible"),
		Transferable: t.HasFlag("Transferable"),
		Finite:       t.HasFlag("Finite"),
		Divisible:    t.HasFlag("Divisible"),
		Fuel:         t.HasFlag("Fuel"),
		Stakable:     t.HasFlag("Stakable"),
		Fiat:         t.HasFlag("Fiat"),
		Swappable:    t.HasFlag("Swappable"),
		Burnable:     t.HasFlag("Burnable"),
		Mintable:     t.HasFlag("Mintable"),

		Decimals:      t.Decimals,
		CurrentSupply: t.CurrentSupply,
		MaxSupply:     t.MaxSupply,
		BurnedSupply:  t.BurnedSupply,
	}
}
