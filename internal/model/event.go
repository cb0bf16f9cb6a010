package model

// Event is one event emitted by a transaction. Index defines intra-transaction
// order. Exactly one payload pointer is non-nil when the kind requires one.
type Event struct {
	ID              uint64
	TransactionHash string
	ChainName       string
	Height          uint64
	TxIndex         int
	Index           int
	Kind            EventKind
	Contract        string
	Address         string
	SourceAddress   string
	TargetAddress   string
	TokenSymbol     string
	TokenID         string
	Timestamp       uint32

	Hidden      bool
	Burned      bool
	NSFW        bool
	Blacklisted bool

	TokenEvent             *TokenEvent
	MarketEvent            *MarketEvent
	InfusionEvent          *InfusionEvent
	GasEvent               *GasEvent
	HashEvent              *HashEvent
	OrganizationEvent      *OrganizationEvent
	SaleEvent              *SaleEvent
	StringEvent            *StringEvent
	ChainValueEvent        *ChainValueEvent
	TransactionSettleEvent *TransactionSettleEvent
}

// TokenEvent carries the value moved by a token kind. Value keeps the raw
// chain representation; decimals are applied by readers.
type TokenEvent struct {
	Symbol    string
	ChainName string
	Value     string
}

// MarketEvent describes a market order lifecycle step.
type MarketEvent struct {
	BaseSymbol  string
	QuoteSymbol string
	MarketID    string
	Price       string
	EndPrice    string
	OrderKind   string
}

// InfusionEvent records an asset deposited into an NFT. InfusionKey is empty
// until the post-processor resolves the infused token and writes the final
// Infusion row.
type InfusionEvent struct {
	BaseSymbol    string
	TokenID       string
	InfusedSymbol string
	InfusedValue  string
	ChainName     string
	InfusionKey   string
}

// GasEvent records gas escrowed or paid.
type GasEvent struct {
	Address string
	Price   string
	Amount  string
}

// HashEvent records a content hash, used by file kinds.
type HashEvent struct {
	Hash string
}

// OrganizationEvent records an organization membership change.
type OrganizationEvent struct {
	Organization  string
	MemberAddress string
}

// SaleEvent records a crowdsale lifecycle step.
type SaleEvent struct {
	Hash     string
	SaleKind string
}

// StringEvent carries the bare string payload of registry/log kinds.
type StringEvent struct {
	Value string
}

// ChainValueEvent records a governance value create/update.
type ChainValueEvent struct {
	Name  string
	Value string
}

// TransactionSettleEvent records a cross-chain swap settlement.
type TransactionSettleEvent struct {
	Hash      string
	Platform  string
	ChainName string
}
