package nodeclient

import "strings"

// APIError is an error the node reported inside an otherwise valid response
// body. The upstream message is preserved verbatim so callers can match known
// patterns ("does not exist", "invalid cast").
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return "node: " + e.Message
}

// Contains reports whether the upstream message contains the given fragment,
// case-insensitively.
func (e *APIError) Contains(fragment string) bool {
	return strings.Contains(strings.ToLower(e.Message), strings.ToLower(fragment))
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// BlockResult is the node's getBlockByHeight payload.
type BlockResult struct {
	Hash             string              `json:"hash"`
	PreviousHash     string              `json:"previousHash"`
	Timestamp        uint32              `json:"timestamp"`
	Height           uint64              `json:"height"`
	ChainAddress     string              `json:"chainAddress"`
	Protocol         uint32              `json:"protocol"`
	ValidatorAddress string              `json:"validatorAddress"`
	Reward           string              `json:"reward"`
	Txs              []TransactionResult `json:"txs"`
	Oracles          []OracleResult      `json:"oracles"`
	Error            string              `json:"error"`
}

// OracleResult is one oracle observation attached to a block.
type OracleResult struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// TransactionResult is one transaction inside a block payload.
type TransactionResult struct {
	Hash         string            `json:"hash"`
	ChainAddress string            `json:"chainAddress"`
	Timestamp    uint32            `json:"timestamp"`
	Payload      string            `json:"payload"`
	Script       string            `json:"script"`
	Result       string            `json:"result"`
	Fee          string            `json:"fee"`
	Expiration   uint32            `json:"expiration"`
	GasPrice     string            `json:"gasPrice"`
	GasLimit     string            `json:"gasLimit"`
	Sender       string            `json:"sender"`
	GasPayer     string            `json:"gasPayer"`
	GasTarget    string            `json:"gasTarget"`
	Signatures   []SignatureResult `json:"signatures"`
	Events       []EventResult     `json:"events"`
}

// SignatureResult is one signature of a transaction.
type SignatureResult struct {
	Kind string `json:"kind"`
	Data string `json:"data"`
}

// EventResult is one raw event: the kind string plus base16 payload bytes.
type EventResult struct {
	Address  string `json:"address"`
	Contract string `json:"contract"`
	Kind     string `json:"kind"`
	Data     string `json:"data"`
}

// AccountResult is one account from getAccount/getAccounts.
type AccountResult struct {
	Address   string          `json:"address"`
	Name      string          `json:"name"`
	Validator string          `json:"validator"`
	Stakes    *StakeResult    `json:"stakes"`
	Storage   *StorageResult  `json:"storage"`
	Balances  []BalanceResult `json:"balances"`
	Error     string          `json:"error"`
}

// StakeResult is the staking block of an account.
type StakeResult struct {
	Amount    string `json:"amount"`
	Time      uint32 `json:"time"`
	Unclaimed string `json:"unclaimed"`
}

// StorageResult is the storage quota block of an account.
type StorageResult struct {
	Available uint64 `json:"available"`
	Used      uint64 `json:"used"`
	Avatar    string `json:"avatar"`
}

// BalanceResult is one per-token balance of an account.
type BalanceResult struct {
	Chain    string `json:"chain"`
	Amount   string `json:"amount"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// TokenResult is one token definition from getTokens/getNexus.
type TokenResult struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Decimals      int    `json:"decimals"`
	CurrentSupply string `json:"currentSupply"`
	MaxSupply     string `json:"maxSupply"`
	BurnedSupply  string `json:"burnedSupply"`
	Address       string `json:"address"`
	Owner         string `json:"owner"`
	Flags         string `json:"flags"`
	Script        string `json:"script"`
	Error         string `json:"error"`
}

// HasFlag reports whether the comma-separated flag list names the flag.
func (t TokenResult) HasFlag(flag string) bool {
	for _, f := range strings.Split(t.Flags, ",") {
		if strings.EqualFold(strings.TrimSpace(f), flag) {
			return true
		}
	}
	return false
}

// NFTResult is the node's getNFT payload.
type NFTResult struct {
	ID         string           `json:"id"`
	Series     string           `json:"series"`
	Mint       uint64           `json:"mint"`
	ChainName  string           `json:"chainName"`
	Symbol     string           `json:"symbol"`
	Creator    string           `json:"creatorAddress"`
	Owners     []NFTOwnerResult `json:"owners"`
	ROM        string           `json:"rom"`
	RAM        string           `json:"ram"`
	Properties []PropertyResult `json:"properties"`
	Error      string           `json:"error"`
}

// NFTOwnerResult is one current owner of an NFT.
type NFTOwnerResult struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// PropertyResult is one decoded key/value property of an NFT.
type PropertyResult struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ContractResult is the node's getContract payload.
type ContractResult struct {
	Name    string         `json:"name"`
	Address string         `json:"address"`
	Owner   string         `json:"owner"`
	Script  string         `json:"script"`
	Methods []MethodResult `json:"methods"`
	Error   string         `json:"error"`
}

// MethodResult is one ABI method of a contract.
type MethodResult struct {
	Name       string            `json:"name"`
	ReturnType string            `json:"returnType"`
	Parameters []ParameterResult `json:"parameters"`
}

// ParameterResult is one ABI method parameter.
type ParameterResult struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ChainResult is one chain from getChains.
type ChainResult struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Height      uint64   `json:"height"`
	Contracts   []string `json:"contracts"`
	DappAddress string   `json:"dappAddress"`
	ParentChain string   `json:"parentChain"`
}

// NexusResult is the node's getNexus payload: the global registry of tokens,
// platforms and organizations.
type NexusResult struct {
	Name          string           `json:"name"`
	Protocol      uint32           `json:"protocol"`
	Platforms     []PlatformResult `json:"platforms"`
	Tokens        []TokenResult    `json:"tokens"`
	Chains        []ChainResult    `json:"chains"`
	Organizations []string         `json:"organizations"`
	Error         string           `json:"error"`
}

// PlatformResult is one interop platform from getNexus.
type PlatformResult struct {
	Platform string          `json:"platform"`
	Chain    string          `json:"chain"`
	Fuel     string          `json:"fuel"`
	Interop  []InteropResult `json:"interop"`
	Tokens   []string        `json:"tokens"`
}

// InteropResult is one external/local address pair of a platform.
type InteropResult struct {
	External string `json:"external"`
	Local    string `json:"local"`
}

// OrganizationResult is the node's getOrganization payload.
type OrganizationResult struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
	Error   string   `json:"error"`
}
