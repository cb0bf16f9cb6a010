package ingest

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/internal/rom"
	"github.com/nexusglass/nexusglass-backend/internal/store"
)

type recordingQueue struct {
	items []string
}

func (q *recordingQueue) Enqueue(hash, _ string, _ uint32) bool {
	q.items = append(q.items, hash)
	return true
}

func dispatchFixture(t *testing.T) (*store.Memory, *Dispatcher, *BlockContext, *model.Transaction, *recordingQueue) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertChain(ctx, &model.Chain{Name: "main", MainTokenSymbol: "SOUL"}))
	require.NoError(t, mem.UpsertToken(ctx, &model.Token{
		ChainName: "main", Symbol: "SOUL", Fungible: true, Decimals: 8,
	}))
	require.NoError(t, mem.UpsertToken(ctx, &model.Token{
		ChainName: "main", Symbol: "GHOST", Fungible: false,
	}))

	queue := &recordingQueue{}
	d := NewDispatcher(mem, queue, zap.NewNop())
	block := &model.Block{ChainName: "main", Height: 10, Hash: "0xblock10", Timestamp: 1650000000}
	bctx := NewBlockContext("main", block)
	tx := &model.Transaction{Hash: "0xtx", ChainName: "main", Height: 10, Index: 0}
	return mem, d, bctx, tx, queue
}

func stringEventHex(value string) string {
	return hex.EncodeToString(rom.AppendString(nil, value))
}

func nftEventHex(symbol, tokenID string) string {
	id, _ := new(big.Int).SetString(tokenID, 10)
	buf := rom.AppendString(nil, symbol)
	buf = rom.AppendBigInt(buf, id)
	buf = rom.AppendString(buf, "main")
	return hex.EncodeToString(buf)
}

func TestDispatchFungibleTokenEvent(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, _ := dispatchFixture(t)

	raw := nodeclient.EventResult{
		Address:  "P2KReceiver",
		Contract: "SOUL",
		Kind:     string(model.TokenMint),
		Data:     tokenEventHex("SOUL", "100000000", "main"),
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, raw))

	ev, err := mem.GetEvent(ctx, "0xtx", 0)
	require.NoError(t, err)
	assert.Equal(t, "SOUL", ev.TokenSymbol)
	assert.Empty(t, ev.TokenID, "fungible events carry no token id")
	require.NotNil(t, ev.TokenEvent)
	assert.Equal(t, "100000000", ev.TokenEvent.Value)

	_, err = mem.GetAddress(ctx, "main", "P2KReceiver")
	assert.NoError(t, err, "the actor address is ensured")
	assert.Contains(t, bctx.Addresses(), "P2KReceiver")
}

func TestDispatchNonFungibleMintCreatesNft(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, _ := dispatchFixture(t)

	raw := nodeclient.EventResult{
		Address:  "P2KMinter",
		Contract: "GHOST",
		Kind:     string(model.TokenMint),
		Data:     nftEventHex("GHOST", "4242"),
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, raw))

	ev, err := mem.GetEvent(ctx, "0xtx", 0)
	require.NoError(t, err)
	assert.Equal(t, "4242", ev.TokenID)
	assert.Equal(t, "1", ev.TokenEvent.Value, "nft moves count as one unit")

	nft, err := mem.GetNft(ctx, model.NftKey{ContractHash: "GHOST", TokenID: "4242"})
	require.NoError(t, err)
	assert.Equal(t, "P2KMinter", nft.OwnerAddress)
	assert.Equal(t, "P2KMinter", nft.CreatorAddress)
	assert.EqualValues(t, 1650000000, nft.MintDate)
	assert.Nil(t, nft.ROM, "the ghost row waits for backfill")
}

func TestDispatchBurnMarksNft(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, _ := dispatchFixture(t)

	mintRaw := nodeclient.EventResult{
		Address: "P2KOwner", Contract: "GHOST",
		Kind: string(model.TokenMint),
		Data: nftEventHex("GHOST", "1"),
	}
	burnRaw := nodeclient.EventResult{
		Address: "P2KOwner", Contract: "GHOST",
		Kind: string(model.TokenBurn),
		Data: nftEventHex("GHOST", "1"),
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, mintRaw))
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 1, burnRaw))

	nft, err := mem.GetNft(ctx, model.NftKey{ContractHash: "GHOST", TokenID: "1"})
	require.NoError(t, err)
	assert.True(t, nft.Burned)
}

func TestDispatchOrderFilledMovesOwnership(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, _ := dispatchFixture(t)

	marketHex := func() string {
		id := big.NewInt(9)
		buf := rom.AppendString(nil, "GHOST")
		buf = rom.AppendString(buf, "SOUL")
		buf = rom.AppendBigInt(buf, id)
		buf = rom.AppendBigInt(buf, big.NewInt(150000000))
		return hex.EncodeToString(buf)
	}()

	created := nodeclient.EventResult{
		Address: "P2KSeller", Contract: "market",
		Kind: string(model.OrderCreated), Data: marketHex,
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, created))

	_, err := mem.GetNft(ctx, model.NftKey{ContractHash: "market", TokenID: "9"})
	assert.ErrorIs(t, err, store.ErrNotFound, "listing an order moves nothing")

	filled := nodeclient.EventResult{
		Address: "P2KBuyer", Contract: "market",
		Kind: string(model.OrderFilled), Data: marketHex,
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 1, filled))

	nft, err := mem.GetNft(ctx, model.NftKey{ContractHash: "market", TokenID: "9"})
	require.NoError(t, err)
	assert.Equal(t, "P2KBuyer", nft.OwnerAddress)
}

func TestDispatchInfusionLeavesResolutionPending(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, _ := dispatchFixture(t)

	buf := rom.AppendString(nil, "GHOST")
	buf = rom.AppendBigInt(buf, big.NewInt(77))
	buf = rom.AppendString(buf, "SOUL")
	buf = rom.AppendBigInt(buf, big.NewInt(100000000))
	buf = rom.AppendString(buf, "main")

	raw := nodeclient.EventResult{
		Address: "P2KOwner", Contract: "GHOST",
		Kind: string(model.Infusion),
		Data: hex.EncodeToString(buf),
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, raw))

	pending, err := mem.UnresolvedInfusionEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "SOUL", pending[0].InfusionEvent.InfusedSymbol)
	assert.Equal(t, "100000000", pending[0].InfusionEvent.InfusedValue, "the raw value is kept for the post-processor")
}

func TestDispatchContractUpgradeEnqueues(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, queue := dispatchFixture(t)

	raw := nodeclient.EventResult{
		Address: "P2KDeployer", Contract: "gas",
		Kind: string(model.ContractUpgrade),
		Data: stringEventHex("market"),
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, raw))

	assert.Equal(t, []string{"market"}, queue.items)

	ev, err := mem.GetEvent(ctx, "0xtx", 0)
	require.NoError(t, err)
	require.NotNil(t, ev.StringEvent)
	assert.Equal(t, "market", ev.StringEvent.Value)
}

func TestDispatchContractDeployCreatesSkeleton(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, _ := dispatchFixture(t)

	raw := nodeclient.EventResult{
		Address: "P2KDeployer", Contract: "gas",
		Kind: string(model.ContractDeploy),
		Data: stringEventHex("market"),
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, raw))

	contract, err := mem.GetContract(ctx, "main", "market")
	require.NoError(t, err)
	assert.Equal(t, "market", contract.Name)
	assert.Zero(t, contract.MethodsFetchedAt, "the syncer owns methods")
	assert.NotZero(t, contract.CreateEventID)

	contract.Methods = `[{"name":"buy"}]`
	require.NoError(t, mem.UpsertContract(ctx, contract))
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, raw))

	contract, err = mem.GetContract(ctx, "main", "market")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"buy"}]`, contract.Methods, "a replayed deploy keeps fetched metadata")
}

func TestDispatchUnknownKindWritesNothing(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, _ := dispatchFixture(t)

	raw := nodeclient.EventResult{
		Address: "P2KSomeone", Contract: "SOUL",
		Kind: "TotallyNewKind", Data: "00",
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, raw))

	_, err := mem.GetEvent(ctx, "0xtx", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, bctx.Addresses(), "unknown kinds touch nothing")
}

func TestDispatchUnindexedKindIsDropped(t *testing.T) {
	ctx := context.Background()
	mem, d, bctx, tx, _ := dispatchFixture(t)

	raw := nodeclient.EventResult{
		Address: "P2KSomeone", Contract: "SOUL",
		Kind: string(model.Custom), Data: "00",
	}
	require.NoError(t, d.Dispatch(ctx, bctx, tx, 0, raw))

	_, err := mem.GetEvent(ctx, "0xtx", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, bctx.Addresses(), "P2KSomeone", "the actor still reconciles")
}

func TestFungibilityCachedPerBlock(t *testing.T) {
	ctx := context.Background()
	_, d, bctx, _, _ := dispatchFixture(t)

	fungible, err := d.fungibility(ctx, bctx, "SOUL")
	require.NoError(t, err)
	assert.True(t, fungible)

	// unknown symbols default to fungible and are cached too
	fungible, err = d.fungibility(ctx, bctx, "NEVERSEEN")
	require.NoError(t, err)
	assert.True(t, fungible)
	assert.True(t, bctx.fungible["NEVERSEEN"])

	fungible, err = d.fungibility(ctx, bctx, "GHOST")
	require.NoError(t, err)
	assert.False(t, fungible)
}
