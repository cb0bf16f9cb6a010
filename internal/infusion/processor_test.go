package infusion

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/store"
)

func pendingInfusion(txHash string, index int, infusedSymbol, infusedValue string) *model.Event {
	return &model.Event{
		TransactionHash: txHash,
		ChainName:       "main",
		Index:           index,
		Kind:            model.Infusion,
		Contract:        "GHOST",
		TokenSymbol:     "GHOST",
		TokenID:         "77",
		InfusionEvent: &model.InfusionEvent{
			BaseSymbol:    "GHOST",
			TokenID:       "77",
			InfusedSymbol: infusedSymbol,
			InfusedValue:  infusedValue,
			ChainName:     "main",
		},
	}
}

func TestProcessResolvesFungibleInfusion(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertToken(ctx, &model.Token{
		ChainName: "main", Symbol: "SOUL", Fungible: true, Decimals: 8,
	}))
	_, err := mem.UpsertEvent(ctx, pendingInfusion("0xaa", 0, "SOUL", "250000000"))
	require.NoError(t, err)

	p := NewProcessor(mem, zap.NewNop())
	require.NoError(t, p.Process(ctx))

	target := model.NftKey{ContractHash: "GHOST", TokenID: "77"}
	row, err := mem.GetInfusion(ctx, target, "SOUL")
	require.NoError(t, err)
	assert.Equal(t, "2.5", row.Value)
	assert.Equal(t, "SOUL", row.TokenSymbol)

	pending, err := mem.UnresolvedInfusionEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	ev, err := mem.GetEvent(ctx, "0xaa", 0)
	require.NoError(t, err)
	assert.Equal(t, "GHOST/77:SOUL", ev.InfusionEvent.InfusionKey)
}

func TestProcessLeavesUnknownTokenPending(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.UpsertEvent(ctx, pendingInfusion("0xaa", 0, "MYST", "5"))
	require.NoError(t, err)

	p := NewProcessor(mem, zap.NewNop())
	require.NoError(t, p.Process(ctx))

	pending, err := mem.UnresolvedInfusionEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "unknown token keeps the event pending")
}

func TestProcessLinksNonFungibleInfusion(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertToken(ctx, &model.Token{
		ChainName: "main", Symbol: "GAME", Fungible: false,
	}))
	_, err := mem.UpsertEvent(ctx, pendingInfusion("0xaa", 0, "GAME", "555"))
	require.NoError(t, err)

	p := NewProcessor(mem, zap.NewNop())
	require.NoError(t, p.Process(ctx))

	target := model.NftKey{ContractHash: "GHOST", TokenID: "77"}
	row, err := mem.GetInfusion(ctx, target, "GAME#555")
	require.NoError(t, err)
	assert.Equal(t, "555", row.Value)
	assert.Empty(t, row.TokenSymbol, "non-fungible infusions carry no token symbol")

	infused, err := mem.GetNft(ctx, model.NftKey{ContractHash: "GAME", TokenID: "555"})
	require.NoError(t, err)
	require.NotNil(t, infused.InfusedInto)
	assert.Equal(t, target, *infused.InfusedInto)
}

func TestProcessAccumulatesRepeatedInfusions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertToken(ctx, &model.Token{
		ChainName: "main", Symbol: "SOUL", Fungible: true, Decimals: 8,
	}))
	for i, raw := range []string{"100000000", "50000000"} {
		_, err := mem.UpsertEvent(ctx, pendingInfusion(fmt.Sprintf("0x%02d", i), 0, "SOUL", raw))
		require.NoError(t, err)
	}

	p := NewProcessor(mem, zap.NewNop())
	require.NoError(t, p.Process(ctx))

	row, err := mem.GetInfusion(ctx, model.NftKey{ContractHash: "GHOST", TokenID: "77"}, "SOUL")
	require.NoError(t, err)
	assert.Equal(t, "1.5", row.Value)
}
