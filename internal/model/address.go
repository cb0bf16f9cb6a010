package model

// Address is one account on a chain, keyed by (ChainName, Address).
type Address struct {
	ChainName     string
	Address       string
	Name          string
	ValidatorKind string
	TotalSoul     string

	Stake    *AddressStake
	Storage  *AddressStorage
	Balances []AddressBalance

	Organizations []string
}

// AddressStake holds staking state returned by the node.
type AddressStake struct {
	Amount    string
	Time      uint32
	Unclaimed string
}

// AddressStorage holds storage quota state returned by the node.
type AddressStorage struct {
	Available  uint64
	Used       uint64
	AvatarName string
}

// AddressBalance is one per-token balance row.
type AddressBalance struct {
	TokenSymbol string
	ChainName   string
	Amount      string
}
