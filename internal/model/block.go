package model

// Block is an ingested block. Immutable once written; only the consistency
// repair pass may delete one.
type Block struct {
	ChainName        string
	Height           uint64
	Hash             string
	PreviousHash     string
	Protocol         uint32
	ChainAddress     string
	ValidatorAddress string
	Reward           string
	Timestamp        uint32
}

// BlockOracle is one oracle observation recorded alongside a block.
type BlockOracle struct {
	BlockHash string
	URL       string
	Content   string
}
