package ingest

import (
	"context"
	"time"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
)

type (
	// NodeClient is the slice of the node API the ingester needs.
	NodeClient interface {
		GetBlockHeight(ctx context.Context, chain string) (uint64, error)
		GetBlockByHeight(ctx context.Context, chain string, height uint64) (*nodeclient.BlockResult, error)
	}

	// Store is the persistence surface the ingester writes through.
	Store interface {
		GetChain(ctx context.Context, name string) (*model.Chain, error)
		SetChainHeight(ctx context.Context, name string, height uint64) error
		UpsertBlock(ctx context.Context, b *model.Block) error
		ReplaceBlockOracles(ctx context.Context, blockHash string, oracles []model.BlockOracle) error
		UpsertTransaction(ctx context.Context, t *model.Transaction) error
		ReplaceTransactionSignatures(ctx context.Context, txHash string, sigs []model.TransactionSignature) error
		UpsertEvent(ctx context.Context, e *model.Event) (uint64, error)
		GetContract(ctx context.Context, chain, hash string) (*model.Contract, error)
		UpsertContract(ctx context.Context, c *model.Contract) error
		GetToken(ctx context.Context, chain, symbol string) (*model.Token, error)
		GetNft(ctx context.Context, key model.NftKey) (*model.Nft, error)
		UpsertNft(ctx context.Context, n *model.Nft) error
		GetAddress(ctx context.Context, chain, address string) (*model.Address, error)
		UpsertAddress(ctx context.Context, a *model.Address) error
	}

	// BalanceReconciler refreshes the balances of the addresses a window touched.
	BalanceReconciler interface {
		Reconcile(ctx context.Context, chain string, addresses []string, chunkSize int) error
	}

	// ContractQueue receives dedup'd contract refresh requests from
	// ContractUpgrade events.
	ContractQueue interface {
		Enqueue(hash, chainName string, timestamp uint32) bool
	}

	// Metrics records ingestion outcomes.
	Metrics interface {
		ObserveWindow(err error, started time.Time)
		ObserveBlock(err error, started time.Time)
		ObserveEventError(kind string)
		SetCheckpoint(height uint64)
	}
)
