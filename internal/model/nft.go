package model

// NftKey is the stable identity of an NFT, usable as a map key and as the
// target of the self-referential infused-into link.
type NftKey struct {
	ContractHash string
	TokenID      string
}

// Nft is one non-fungible token instance. ROM is write-once: nil ROM marks a
// ghost row pending metadata backfill.
type Nft struct {
	ChainName    string
	ContractHash string
	TokenID      string
	Symbol       string

	ROM []byte
	RAM []byte

	// MetadataJSON caches the raw node response the ROM/RAM came from.
	MetadataJSON string

	Name        string
	Description string
	ImageURL    string
	InfoURL     string
	MintDate    uint32
	MintNumber  uint64

	SeriesID       string
	CreatorAddress string
	OwnerAddress   string

	Burned      bool
	Blacklisted bool
	NSFW        bool

	// InfusedInto references the holder NFT by key, never by pointer.
	InfusedInto *NftKey
}

// Key returns the natural key of the NFT.
func (n *Nft) Key() NftKey {
	return NftKey{ContractHash: n.ContractHash, TokenID: n.TokenID}
}

// Series groups NFTs minted from one template, keyed by (ContractHash, SeriesID).
type Series struct {
	ContractHash string
	SeriesID     string

	CurrentSupply uint64
	MaxSupply     uint64
	Mode          string

	Name        string
	Description string
	ImageURL    string
	Royalties   string
	Type        int
	AttrType1   string
	AttrValue1  string
	AttrType2   string
	AttrValue2  string
	AttrType3   string
	AttrValue3  string

	CreatorAddress string
	HasLocked      bool
}

// NftInfusion is one resolved key/value pair attached to an NFT. TokenSymbol is
// set only when the infused asset is a fungible token.
type NftInfusion struct {
	Key         string
	Value       string
	NftKey      NftKey
	TokenSymbol string
}
