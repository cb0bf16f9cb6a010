package consistency

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

func writeBlock(t *testing.T, mem *store.Memory, height uint64, txCount int) {
	t.Helper()
	ctx := context.Background()
	hash := fmt.Sprintf("0xblock%d", height)
	require.NoError(t, mem.UpsertBlock(ctx, &model.Block{
		ChainName: "main",
		Height:    height,
		Hash:      hash,
	}))
	for i := 0; i < txCount; i++ {
		txHash := fmt.Sprintf("0xtx%d-%d", height, i)
		require.NoError(t, mem.UpsertTransaction(ctx, &model.Transaction{
			BlockHash: hash,
			ChainName: "main",
			Height:    height,
			Index:     i,
			Hash:      txHash,
		}))
		_, err := mem.UpsertEvent(ctx, &model.Event{
			TransactionHash: txHash,
			ChainName:       "main",
			Height:          height,
			Index:           0,
			Kind:            model.TokenMint,
		})
		require.NoError(t, err)
	}
}

func TestRepairDeletesCrashTail(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertChain(ctx, &model.Chain{Name: "main", Height: 100}))

	// Committed state up to the checkpoint, plus a stray block from an
	// interrupted window.
	writeBlock(t, mem, 99, 2)
	writeBlock(t, mem, 100, 1)
	writeBlock(t, mem, 105, 2)

	c := NewChecker(mem, zap.NewNop())
	require.NoError(t, c.Repair(ctx))

	_, err := mem.GetBlock(ctx, "main", 105)
	assert.ErrorIs(t, err, store.ErrNotFound, "block above checkpoint removed")
	_, err = mem.GetTransaction(ctx, "0xtx105-0")
	assert.ErrorIs(t, err, store.ErrNotFound, "its transactions removed")
	_, err = mem.GetEvent(ctx, "0xtx105-1", 0)
	assert.ErrorIs(t, err, store.ErrNotFound, "their events removed")

	for _, h := range []uint64{99, 100} {
		_, err := mem.GetBlock(ctx, "main", h)
		assert.NoError(t, err, "committed block %d survives", h)
	}
	_, err = mem.GetTransaction(ctx, "0xtx99-0")
	assert.NoError(t, err)
	_, err = mem.GetEvent(ctx, "0xtx100-0", 0)
	assert.NoError(t, err)
}

func TestRepairOrphanedTransactionsOnly(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertChain(ctx, &model.Chain{Name: "main", Height: 10}))
	writeBlock(t, mem, 10, 1)

	// A transaction whose block write never landed.
	require.NoError(t, mem.UpsertTransaction(ctx, &model.Transaction{
		BlockHash: "0xmissing",
		ChainName: "main",
		Height:    11,
		Hash:      "0xdangling",
	}))

	c := NewChecker(mem, zap.NewNop())
	require.NoError(t, c.Repair(ctx))

	_, err := mem.GetTransaction(ctx, "0xdangling")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = mem.GetTransaction(ctx, "0xtx10-0")
	assert.NoError(t, err)
}

func TestRepairCleanStoreIsNoop(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertChain(ctx, &model.Chain{Name: "main", Height: 5}))
	writeBlock(t, mem, 5, 1)

	c := NewChecker(mem, zap.NewNop())
	require.NoError(t, c.Repair(ctx))

	_, err := mem.GetBlock(ctx, "main", 5)
	assert.NoError(t, err)
	_, err = mem.GetTransaction(ctx, "0xtx5-0")
	assert.NoError(t, err)
}

func TestRepairEmptyStore(t *testing.T) {
	c := NewChecker(store.NewMemory(), zap.NewNop())
	assert.NoError(t, c.Repair(context.Background()))
}
