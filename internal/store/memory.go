package store

import (
	"context"
	"sort"
	"sync"

	"github.com/nexusglass/nexusglass-backend/internal/model"
)

type txKey struct {
	hash string
}

type eventKey struct {
	txHash string
	index  int
}

type blockKey struct {
	chain  string
	height uint64
}

type addressKey struct {
	chain   string
	address string
}

type contractKey struct {
	chain string
	hash  string
}

type tokenKey struct {
	chain  string
	symbol string
}

type seriesKey struct {
	contract string
	seriesID string
}

type infusionKey struct {
	nft model.NftKey
	key string
}

// Memory holds every table in process memory, keyed by natural keys.
// All writes are idempotent upserts; reads return copies.
type Memory struct {
	mu sync.RWMutex

	chains  map[string]*model.Chain
	globals map[string]*model.GlobalVariable

	blocks       map[blockKey]*model.Block
	blocksByHash map[string]*model.Block
	oracles      map[string][]model.BlockOracle

	txs        map[txKey]*model.Transaction
	txOrder    []txKey
	signatures map[string][]model.TransactionSignature

	events      map[eventKey]*model.Event
	eventOrder  []eventKey
	nextEventID uint64

	addresses map[addressKey]*model.Address
	contracts map[contractKey]*model.Contract
	tokens    map[tokenKey]*model.Token
	nfts      map[model.NftKey]*model.Nft
	series    map[seriesKey]*model.Series
	orgs      map[string]*model.Organization
	platforms map[string]*model.Platform
	infusions map[infusionKey]*model.NftInfusion
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		chains:       make(map[string]*model.Chain),
		globals:      make(map[string]*model.GlobalVariable),
		blocks:       make(map[blockKey]*model.Block),
		blocksByHash: make(map[string]*model.Block),
		oracles:      make(map[string][]model.BlockOracle),
		txs:          make(map[txKey]*model.Transaction),
		signatures:   make(map[string][]model.TransactionSignature),
		events:       make(map[eventKey]*model.Event),
		addresses:    make(map[addressKey]*model.Address),
		contracts:    make(map[contractKey]*model.Contract),
		tokens:       make(map[tokenKey]*model.Token),
		nfts:         make(map[model.NftKey]*model.Nft),
		series:       make(map[seriesKey]*model.Series),
		orgs:         make(map[string]*model.Organization),
		platforms:    make(map[string]*model.Platform),
		infusions:    make(map[infusionKey]*model.NftInfusion),
	}
}

// UpsertChain inserts or replaces a chain row. The checkpoint height is kept
// monotonic: a lower incoming height never overwrites a higher stored one.
func (m *Memory) UpsertChain(_ context.Context, c *model.Chain) error {
	if c == nil || c.Name == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	if prev, ok := m.chains[c.Name]; ok && prev.Height > cp.Height {
		cp.Height = prev.Height
	}
	m.chains[c.Name] = &cp
	return nil
}

// GetChain returns the chain row by name.
func (m *Memory) GetChain(_ context.Context, name string) (*model.Chain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.chains[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// Chains returns all chain rows.
func (m *Memory) Chains(_ context.Context) ([]model.Chain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Chain, 0, len(m.chains))
	for _, c := range m.chains {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetChainHeight advances the chain checkpoint. Heights below the current
// checkpoint are ignored; there is no compare-and-swap, a single ingester
// instance per chain is assumed.
func (m *Memory) SetChainHeight(_ context.Context, name string, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chains[name]
	if !ok {
		return ErrNotFound
	}
	if height > c.Height {
		c.Height = height
	}
	return nil
}

// GetGlobalVariable returns a named checkpoint value.
func (m *Memory) GetGlobalVariable(_ context.Context, name string) (*model.GlobalVariable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.globals[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

// SetGlobalVariable inserts or replaces a named checkpoint value.
func (m *Memory) SetGlobalVariable(_ context.Context, g model.GlobalVariable) error {
	if g.Name == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globals[g.Name] = &g
	return nil
}

// UpsertBlock inserts or replaces a block row, keyed by (chain, height).
func (m *Memory) UpsertBlock(_ context.Context, b *model.Block) error {
	if b == nil || b.ChainName == "" || b.Hash == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *b
	m.blocks[blockKey{chain: b.ChainName, height: b.Height}] = &cp
	m.blocksByHash[b.Hash] = &cp
	return nil
}

// GetBlock returns the block at (chain, height).
func (m *Memory) GetBlock(_ context.Context, chain string, height uint64) (*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blocks[blockKey{chain: chain, height: height}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// GetBlockByHash returns the block with the given hash.
func (m *Memory) GetBlockByHash(_ context.Context, hash string) (*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blocksByHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// MaxBlockHeight returns the highest stored height for a chain.
func (m *Memory) MaxBlockHeight(_ context.Context, chain string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var max uint64
	found := false
	for k := range m.blocks {
		if k.chain != chain {
			continue
		}
		if !found || k.height > max {
			max = k.height
		}
		found = true
	}
	if !found {
		return 0, ErrNotFound
	}
	return max, nil
}

// DeleteBlock removes the block at (chain, height) and its oracles.
func (m *Memory) DeleteBlock(_ context.Context, chain string, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := blockKey{chain: chain, height: height}
	b, ok := m.blocks[k]
	if !ok {
		return ErrNotFound
	}
	delete(m.blocks, k)
	delete(m.blocksByHash, b.Hash)
	delete(m.oracles, b.Hash)
	return nil
}

// ReplaceBlockOracles replaces the oracle observations of a block.
func (m *Memory) ReplaceBlockOracles(_ context.Context, blockHash string, oracles []model.BlockOracle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oracles[blockHash] = append([]model.BlockOracle(nil), oracles...)
	return nil
}

// BlockOracles returns the oracle observations of a block.
func (m *Memory) BlockOracles(_ context.Context, blockHash string) ([]model.BlockOracle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.BlockOracle(nil), m.oracles[blockHash]...), nil
}

// UpsertTransaction inserts or replaces a transaction row keyed by hash.
// First insertion order is preserved for the repair tail scans.
func (m *Memory) UpsertTransaction(_ context.Context, t *model.Transaction) error {
	if t == nil || t.Hash == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := txKey{hash: t.Hash}
	cp := *t
	if _, ok := m.txs[k]; !ok {
		m.txOrder = append(m.txOrder, k)
	}
	m.txs[k] = &cp
	return nil
}

// GetTransaction returns the transaction with the given hash.
func (m *Memory) GetTransaction(_ context.Context, hash string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.txs[txKey{hash: hash}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// TransactionsNewestFirst returns up to limit transactions, newest insertions
// first. Used by the consistency repair tail scan.
func (m *Memory) TransactionsNewestFirst(_ context.Context, limit int) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Transaction, 0, limit)
	for i := len(m.txOrder) - 1; i >= 0 && len(out) < limit; i-- {
		if t, ok := m.txs[m.txOrder[i]]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

// DeleteTransaction removes a transaction row and its signatures.
func (m *Memory) DeleteTransaction(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := txKey{hash: hash}
	if _, ok := m.txs[k]; !ok {
		return ErrNotFound
	}
	delete(m.txs, k)
	delete(m.signatures, hash)
	return nil
}

// ReplaceTransactionSignatures replaces the signature rows of a transaction.
func (m *Memory) ReplaceTransactionSignatures(_ context.Context, txHash string, sigs []model.TransactionSignature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signatures[txHash] = append([]model.TransactionSignature(nil), sigs...)
	return nil
}

// TransactionSignatures returns the signature rows of a transaction.
func (m *Memory) TransactionSignatures(_ context.Context, txHash string) ([]model.TransactionSignature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.TransactionSignature(nil), m.signatures[txHash]...), nil
}

// UpsertEvent inserts or replaces an event keyed by (transaction, index) and
// returns its stable row ID. Re-upserting keeps the original ID, so repeated
// ingestion of a height range is byte-identical.
func (m *Memory) UpsertEvent(_ context.Context, e *model.Event) (uint64, error) {
	if e == nil || e.TransactionHash == "" {
		return 0, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := eventKey{txHash: e.TransactionHash, index: e.Index}
	cp := *e
	if prev, ok := m.events[k]; ok {
		cp.ID = prev.ID
	} else {
		m.nextEventID++
		cp.ID = m.nextEventID
		m.eventOrder = append(m.eventOrder, k)
	}
	m.events[k] = &cp
	return cp.ID, nil
}

// GetEvent returns the event at (transaction, index).
func (m *Memory) GetEvent(_ context.Context, txHash string, index int) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[eventKey{txHash: txHash, index: index}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// EventsNewestFirst returns up to limit events, newest insertions first.
func (m *Memory) EventsNewestFirst(_ context.Context, limit int) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Event, 0, limit)
	for i := len(m.eventOrder) - 1; i >= 0 && len(out) < limit; i-- {
		if e, ok := m.events[m.eventOrder[i]]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

// DeleteEvent removes the event at (transaction, index).
func (m *Memory) DeleteEvent(_ context.Context, txHash string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := eventKey{txHash: txHash, index: index}
	if _, ok := m.events[k]; !ok {
		return ErrNotFound
	}
	delete(m.events, k)
	return nil
}

// UnresolvedInfusionEvents returns up to limit infusion events whose final
// Infusion row has not been written yet, oldest first.
func (m *Memory) UnresolvedInfusionEvents(_ context.Context, limit int) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Event, 0, limit)
	for _, k := range m.eventOrder {
		if len(out) >= limit {
			break
		}
		e, ok := m.events[k]
		if !ok || e.Kind != model.Infusion || e.InfusionEvent == nil {
			continue
		}
		if e.InfusionEvent.InfusionKey != "" {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

// UpsertAddress inserts or replaces an address row keyed by (chain, address).
func (m *Memory) UpsertAddress(_ context.Context, a *model.Address) error {
	if a == nil || a.Address == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	cp.Balances = append([]model.AddressBalance(nil), a.Balances...)
	cp.Organizations = append([]string(nil), a.Organizations...)
	m.addresses[addressKey{chain: a.ChainName, address: a.Address}] = &cp
	return nil
}

// GetAddress returns the address row at (chain, address).
func (m *Memory) GetAddress(_ context.Context, chain, address string) (*model.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.addresses[addressKey{chain: chain, address: address}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	cp.Balances = append([]model.AddressBalance(nil), a.Balances...)
	cp.Organizations = append([]string(nil), a.Organizations...)
	return &cp, nil
}

// AddressesByChain returns every address known on a chain, sorted by address.
func (m *Memory) AddressesByChain(_ context.Context, chain string) ([]model.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Address, 0)
	for k, a := range m.addresses {
		if k.chain != chain {
			continue
		}
		cp := *a
		cp.Balances = append([]model.AddressBalance(nil), a.Balances...)
		cp.Organizations = append([]string(nil), a.Organizations...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// UpsertContract inserts or replaces a contract row keyed by (chain, hash).
func (m *Memory) UpsertContract(_ context.Context, c *model.Contract) error {
	if c == nil || c.Hash == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.contracts[contractKey{chain: c.ChainName, hash: c.Hash}] = &cp
	return nil
}

// GetContract returns the contract row at (chain, hash).
func (m *Memory) GetContract(_ context.Context, chain, hash string) (*model.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[contractKey{chain: chain, hash: hash}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ContractsWithStaleMethods returns up to limit contracts whose method
// metadata was fetched before the cutoff (or never), sorted by hash.
func (m *Memory) ContractsWithStaleMethods(_ context.Context, before uint32, limit int) ([]model.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Contract, 0)
	for _, c := range m.contracts {
		if c.MethodsFetchedAt >= before {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertToken inserts or replaces a token row keyed by (chain, symbol).
func (m *Memory) UpsertToken(_ context.Context, t *model.Token) error {
	if t == nil || t.Symbol == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *t
	m.tokens[tokenKey{chain: t.ChainName, symbol: t.Symbol}] = &cp
	return nil
}

// GetToken returns the token row at (chain, symbol).
func (m *Memory) GetToken(_ context.Context, chain, symbol string) (*model.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tokens[tokenKey{chain: chain, symbol: symbol}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// UpsertNft inserts or replaces an NFT row. ROM is write-once: an upsert with
// nil ROM never clears ROM already stored.
func (m *Memory) UpsertNft(_ context.Context, n *model.Nft) error {
	if n == nil || n.TokenID == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *n
	cp.ROM = append([]byte(nil), n.ROM...)
	cp.RAM = append([]byte(nil), n.RAM...)
	if prev, ok := m.nfts[n.Key()]; ok && len(cp.ROM) == 0 {
		cp.ROM = prev.ROM
	}
	m.nfts[n.Key()] = &cp
	return nil
}

// GetNft returns the NFT at the given key.
func (m *Memory) GetNft(_ context.Context, key model.NftKey) (*model.Nft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nfts[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	cp.ROM = append([]byte(nil), n.ROM...)
	cp.RAM = append([]byte(nil), n.RAM...)
	return &cp, nil
}

// NftsWithoutROM returns up to limit non-burned NFTs still missing their ROM,
// sorted by key for a stable backfill order.
func (m *Memory) NftsWithoutROM(_ context.Context, limit int) ([]model.Nft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Nft, 0, limit)
	for _, n := range m.nfts {
		if n.Burned || len(n.ROM) > 0 {
			continue
		}
		cp := *n
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContractHash != out[j].ContractHash {
			return out[i].ContractHash < out[j].ContractHash
		}
		return out[i].TokenID < out[j].TokenID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertSeries inserts or replaces a series row keyed by (contract, series).
func (m *Memory) UpsertSeries(_ context.Context, s *model.Series) error {
	if s == nil || s.SeriesID == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.series[seriesKey{contract: s.ContractHash, seriesID: s.SeriesID}] = &cp
	return nil
}

// SeriesList returns every series row, sorted by key.
func (m *Memory) SeriesList(_ context.Context) ([]model.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Series, 0, len(m.series))
	for _, s := range m.series {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContractHash != out[j].ContractHash {
			return out[i].ContractHash < out[j].ContractHash
		}
		return out[i].SeriesID < out[j].SeriesID
	})
	return out, nil
}

// CountNftsInSeries returns the number of non-burned NFTs minted from the
// series.
func (m *Memory) CountNftsInSeries(_ context.Context, contract, seriesID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count uint64
	for _, n := range m.nfts {
		if n.Burned || n.ContractHash != contract || n.SeriesID != seriesID {
			continue
		}
		count++
	}
	return count, nil
}

// GetSeries returns the series row at (contract, series).
func (m *Memory) GetSeries(_ context.Context, contract, seriesID string) (*model.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.series[seriesKey{contract: contract, seriesID: seriesID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// UpsertOrganization inserts or replaces an organization row keyed by ID.
func (m *Memory) UpsertOrganization(_ context.Context, o *model.Organization) error {
	if o == nil || o.ID == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *o
	cp.Members = append([]string(nil), o.Members...)
	m.orgs[o.ID] = &cp
	return nil
}

// GetOrganization returns the organization row by ID.
func (m *Memory) GetOrganization(_ context.Context, id string) (*model.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Members = append([]string(nil), o.Members...)
	return &cp, nil
}

// UpsertPlatform inserts or replaces a platform row keyed by name.
func (m *Memory) UpsertPlatform(_ context.Context, p *model.Platform) error {
	if p == nil || p.Name == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	cp.Interops = append([]model.PlatformInterop(nil), p.Interops...)
	cp.Tokens = append([]string(nil), p.Tokens...)
	m.platforms[p.Name] = &cp
	return nil
}

// UpsertInfusion inserts or replaces an infusion row keyed by (nft, key).
func (m *Memory) UpsertInfusion(_ context.Context, inf *model.NftInfusion) error {
	if inf == nil || inf.Key == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *inf
	m.infusions[infusionKey{nft: inf.NftKey, key: inf.Key}] = &cp
	return nil
}

// GetInfusion returns the infusion row at (nft, key).
func (m *Memory) GetInfusion(_ context.Context, nft model.NftKey, key string) (*model.NftInfusion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inf, ok := m.infusions[infusionKey{nft: nft, key: key}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inf
	return &cp, nil
}
