package model

// Transaction is one transaction inside a block. Index defines intra-block
// order and is unique per block.
type Transaction struct {
	BlockHash  string
	ChainName  string
	Height     uint64
	Index      int
	Hash       string
	Payload    string
	Script     string
	Result     string
	Fee        string
	Expiration uint32
	GasPrice   string
	GasLimit   string
	Sender     string
	GasPayer   string
	GasTarget  string
	Timestamp  uint32
}

// TransactionSignature is one signature attached to a transaction, kept in
// array order.
type TransactionSignature struct {
	TransactionHash string
	Index           int
	Kind            string
	Data            string
}
