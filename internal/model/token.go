package model

// Contract is a deployed contract, keyed by (ChainName, Hash).
type Contract struct {
	ChainName string
	Hash      string
	Name      string
	Symbol    string
	Address   string
	Script    string

	Methods          string
	MethodsFetchedAt uint32

	CreateEventID uint64
}

// Token is a token definition scoped to its chain and contract.
type Token struct {
	ChainName    string
	ContractHash string
	Symbol       string

	Fungible     bool
	Transferable bool
	Finite       bool
	Divisible    bool
	Fuel         bool
	Stakable     bool
	Fiat         bool
	Swappable    bool
	Burnable     bool
	Mintable     bool

	Decimals      int
	CurrentSupply string
	MaxSupply     string
	BurnedSupply  string

	CreateEventID uint64
}
