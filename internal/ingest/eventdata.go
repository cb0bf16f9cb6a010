package ingest

import (
	"encoding/hex"
	"fmt"

	"github.com/nexusglass/nexusglass-backend/internal/rom"
)

// Serialized event payloads arrive as base16 strings. Each kind group has a
// fixed field order; values use the same VM encoding as NFT ROM blobs.

type tokenEventData struct {
	Symbol    string
	Value     string
	ChainName string
}

type marketEventData struct {
	BaseSymbol  string
	QuoteSymbol string
	MarketID    string
	Price       string
	EndPrice    string
	OrderKind   byte
}

type infusionEventData struct {
	BaseSymbol    string
	TokenID       string
	InfusedSymbol string
	InfusedValue  string
	ChainName     string
}

type gasEventData struct {
	Address string
	Price   string
	Amount  string
}

type organizationEventData struct {
	Organization  string
	MemberAddress string
}

type chainValueEventData struct {
	Name  string
	Value string
}

type transactionSettleEventData struct {
	Hash      string
	Platform  string
	ChainName string
}

type saleEventData struct {
	Hash     string
	SaleKind byte
}

func payloadReader(data string) (*rom.Reader, error) {
	raw, err := hex.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode event payload hex: %w", err)
	}
	return rom.NewReader(raw), nil
}

func decodeTokenEventData(data string) (*tokenEventData, error) {
	r, err := payloadReader(data)
	if err != nil {
		return nil, err
	}
	symbol, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read symbol: %w", err)
	}
	value, err := r.ReadBigInt()
	if err != nil {
		return nil, fmt.Errorf("read value: %w", err)
	}
	chainName, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", err)
	}
	return &tokenEventData{Symbol: symbol, Value: value.String(), ChainName: chainName}, nil
}

func decodeMarketEventData(data string) (*marketEventData, error) {
	r, err := payloadReader(data)
	if err != nil {
		return nil, err
	}
	base, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read base symbol: %w", err)
	}
	quote, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read quote symbol: %w", err)
	}
	id, err := r.ReadBigInt()
	if err != nil {
		return nil, fmt.Errorf("read market id: %w", err)
	}
	price, err := r.ReadBigInt()
	if err != nil {
		return nil, fmt.Errorf("read price: %w", err)
	}
	out := &marketEventData{
		BaseSymbol:  base,
		QuoteSymbol: quote,
		MarketID:    id.String(),
		Price:       price.String(),
	}
	// end price and order kind were added in a later protocol version
	if r.Remaining() > 0 {
		if endPrice, err := r.ReadBigInt(); err == nil {
			out.EndPrice = endPrice.String()
		}
	}
	if r.Remaining() > 0 {
		if kind, err := r.ReadByte(); err == nil {
			out.OrderKind = kind
		}
	}
	return out, nil
}

func decodeInfusionEventData(data string) (*infusionEventData, error) {
	r, err := payloadReader(data)
	if err != nil {
		return nil, err
	}
	base, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read base symbol: %w", err)
	}
	tokenID, err := r.ReadBigInt()
	if err != nil {
		return nil, fmt.Errorf("read token id: %w", err)
	}
	infusedSymbol, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read infused symbol: %w", err)
	}
	infusedValue, err := r.ReadBigInt()
	if err != nil {
		return nil, fmt.Errorf("read infused value: %w", err)
	}
	chainName, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", err)
	}
	return &infusionEventData{
		BaseSymbol:    base,
		TokenID:       tokenID.String(),
		InfusedSymbol: infusedSymbol,
		InfusedValue:  infusedValue.String(),
		ChainName:     chainName,
	}, nil
}

func decodeGasEventData(data string) (*gasEventData, error) {
	r, err := payloadReader(data)
	if err != nil {
		return nil, err
	}
	address, err := r.ReadAddress()
	if err != nil {
		return nil, fmt.Errorf("read address: %w", err)
	}
	price, err := r.ReadBigInt()
	if err != nil {
		return nil, fmt.Errorf("read price: %w", err)
	}
	amount, err := r.ReadBigInt()
	if err != nil {
		return nil, fmt.Errorf("read amount: %w", err)
	}
	return &gasEventData{Address: address, Price: price.String(), Amount: amount.String()}, nil
}

func decodeOrganizationEventData(data string) (*organizationEventData, error) {
	r, err := payloadReader(data)
	if err != nil {
		return nil, err
	}
	org, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read organization: %w", err)
	}
	member, err := r.ReadAddress()
	if err != nil {
		return nil, fmt.Errorf("read member: %w", err)
	}
	return &organizationEventData{Organization: org, MemberAddress: member}, nil
}

func decodeChainValueEventData(data string) (*chainValueEventData, error) {
	r, err := payloadReader(data)
	if err != nil {
		return nil, err
	}
	name, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	value, err := r.ReadBigInt()
	if err != nil {
		return nil, fmt.Errorf("read value: %w", err)
	}
	return &chainValueEventData{Name: name, Value: value.String()}, nil
}

func decodeTransactionSettleEventData(data string) (*transactionSettleEventData, error) {
	r, err := payloadReader(data)
	if err != nil {
		return nil, err
	}
	hash, err := r.ReadBytes(32)
	if err != nil {
		return nil, fmt.Errorf("read hash: %w", err)
	}
	platform, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read platform: %w", err)
	}
	chainName, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", err)
	}
	return &transactionSettleEventData{
		Hash:      hex.EncodeToString(hash),
		Platform:  platform,
		ChainName: chainName,
	}, nil
}

func decodeSaleEventData(data string) (*saleEventData, error) {
	r, err := payloadReader(data)
	if err != nil {
		return nil, err
	}
	hash, err := r.ReadBytes(32)
	if err != nil {
		return nil, fmt.Errorf("read hash: %w", err)
	}
	kind, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read sale kind: %w", err)
	}
	return &saleEventData{Hash: hex.EncodeToString(hash), SaleKind: kind}, nil
}

func decodeStringData(data string) (string, error) {
	r, err := payloadReader(data)
	if err != nil {
		return "", err
	}
	s, err := r.ReadString()
	if err != nil {
		return "", fmt.Errorf("read string payload: %w", err)
	}
	return s, nil
}

func decodeAddressData(data string) (string, error) {
	r, err := payloadReader(data)
	if err != nil {
		return "", err
	}
	address, err := r.ReadAddress()
	if err != nil {
		return "", fmt.Errorf("read address payload: %w", err)
	}
	return address, nil
}

func decodeHashData(data string) (string, error) {
	r, err := payloadReader(data)
	if err != nil {
		return "", err
	}
	hash, err := r.ReadBytes(32)
	if err != nil {
		return "", fmt.Errorf("read hash payload: %w", err)
	}
	return hex.EncodeToString(hash), nil
}
