// Package nodeclient is the HTTP façade over the chain node's REST API.
package nodeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// Metrics records per-operation call outcomes.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
}

// Config carries the client's connection settings.
type Config struct {
	Endpoints         []string
	RotationInterval  time.Duration
	Timeout           time.Duration
	RequestsPerSecond int
}

// Client talks to the node's REST API. Outbound request starts are rate
// limited; the endpoint pool rotates round-robin on a timer.
type Client struct {
	pool    *endpointPool
	http    *http.Client
	limiter ratelimit.Limiter
	metrics Metrics
	logger  *zap.Logger
}

// NewClient builds a Client from the config.
func NewClient(cfg Config, metrics Metrics, logger *zap.Logger) (*Client, error) {
	pool := newEndpointPool(cfg.Endpoints, cfg.RotationInterval)
	if pool.current() == "" {
		return nil, fmt.Errorf("nodeclient: no endpoints configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 50
	}
	return &Client{
		pool:    pool,
		http:    &http.Client{Timeout: timeout},
		limiter: ratelimit.New(rps),
		metrics: metrics,
		logger:  logger,
	}, nil
}

func (c *Client) get(ctx context.Context, operation string, query url.Values) (body []byte, err error) {
	started := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.Observe(operation, err, started)
		}
	}()

	c.limiter.Take()

	reqURL := c.pool.current() + "/api/" + operation
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", operation, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, operation string, query url.Values, out any) error {
	body, err := c.get(ctx, operation, query)
	if err != nil {
		return err
	}
	if err := apiError(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// apiError extracts an explicit error field from an object body.
func apiError(body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		return &APIError{Message: env.Error}
	}
	return nil
}

// GetBlockHeight returns the node's current height for a chain.
func (c *Client) GetBlockHeight(ctx context.Context, chain string) (uint64, error) {
	body, err := c.get(ctx, "getBlockHeight", url.Values{"chainInput": {chain}})
	if err != nil {
		return 0, err
	}
	if err := apiError(body); err != nil {
		return 0, err
	}
	raw := strings.Trim(strings.TrimSpace(string(body)), `"`)
	height, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block height %q: %w", raw, err)
	}
	return height, nil
}

// GetBlockByHeight returns one block with its transactions and events.
func (c *Client) GetBlockByHeight(ctx context.Context, chain string, height uint64) (*BlockResult, error) {
	var block BlockResult
	err := c.getJSON(ctx, "getBlockByHeight", url.Values{
		"chainInput": {chain},
		"height":     {strconv.FormatUint(height, 10)},
	}, &block)
	if err != nil {
		return nil, err
	}
	if block.Error != "" {
		return nil, &APIError{Message: block.Error}
	}
	return &block, nil
}

// GetAccounts fetches a batch of accounts in one call. Per-account failures
// surface in each element's Error field, not as a call error.
func (c *Client) GetAccounts(ctx context.Context, addresses []string) ([]AccountResult, error) {
	var accounts []AccountResult
	err := c.getJSON(ctx, "getAccounts", url.Values{
		"accountText": {strings.Join(addresses, ",")},
		"extended":    {"false"},
	}, &accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetAccount fetches a single account.
func (c *Client) GetAccount(ctx context.Context, address string) (*AccountResult, error) {
	var account AccountResult
	if err := c.getJSON(ctx, "getAccount", url.Values{"account": {address}}, &account); err != nil {
		return nil, err
	}
	if account.Error != "" {
		return nil, &APIError{Message: account.Error}
	}
	return &account, nil
}

// LookUpName resolves an on-chain name to an address.
func (c *Client) LookUpName(ctx context.Context, name string) (string, error) {
	body, err := c.get(ctx, "lookUpName", url.Values{"name": {name}})
	if err != nil {
		return "", err
	}
	if err := apiError(body); err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(body)), `"`), nil
}

// GetNFT fetches one NFT's metadata. Known corrupt payload patterns for the
// symbol are patched before a re-parse attempt.
func (c *Client) GetNFT(ctx context.Context, symbol, tokenID string) (*NFTResult, error) {
	body, err := c.get(ctx, "getNFT", url.Values{
		"symbol":   {symbol},
		"IDtext":   {tokenID},
		"extended": {"true"},
	})
	if err != nil {
		return nil, err
	}
	return c.parseNFT(symbol, body)
}

// GetNFTs fetches a batch of NFTs for one symbol.
func (c *Client) GetNFTs(ctx context.Context, symbol string, tokenIDs []string) ([]NFTResult, error) {
	body, err := c.get(ctx, "getNFTs", url.Values{
		"symbol":   {symbol},
		"IDtext":   {strings.Join(tokenIDs, ",")},
		"extended": {"true"},
	})
	if err != nil {
		return nil, err
	}
	if err := apiError(body); err != nil {
		return nil, err
	}
	var nfts []NFTResult
	if err := json.Unmarshal(body, &nfts); err != nil {
		repaired := repairJSON(symbol, body)
		if err2 := json.Unmarshal(repaired, &nfts); err2 != nil {
			return nil, fmt.Errorf("decode getNFTs response: %w", err)
		}
		c.logRepair(symbol)
	}
	return nfts, nil
}

func (c *Client) parseNFT(symbol string, body []byte) (*NFTResult, error) {
	if err := apiError(body); err != nil {
		return nil, err
	}
	var nft NFTResult
	if err := json.Unmarshal(body, &nft); err != nil {
		repaired := repairJSON(symbol, body)
		if err2 := json.Unmarshal(repaired, &nft); err2 != nil {
			return nil, fmt.Errorf("decode getNFT response: %w", err)
		}
		c.logRepair(symbol)
	}
	if nft.Error != "" {
		return nil, &APIError{Message: nft.Error}
	}
	return &nft, nil
}

func (c *Client) logRepair(symbol string) {
	if c.logger != nil {
		c.logger.Warn("repaired malformed nft payload", zap.String("symbol", symbol))
	}
}

// GetContract fetches a contract's script, address and ABI.
func (c *Client) GetContract(ctx context.Context, chainAddressOrName, contractName string) (*ContractResult, error) {
	var contract ContractResult
	err := c.getJSON(ctx, "getContract", url.Values{
		"chainAddressOrName": {chainAddressOrName},
		"contractName":       {contractName},
	}, &contract)
	if err != nil {
		return nil, err
	}
	if contract.Error != "" {
		return nil, &APIError{Message: contract.Error}
	}
	return &contract, nil
}

// GetNexus fetches the global registry of tokens, platforms and organizations.
func (c *Client) GetNexus(ctx context.Context) (*NexusResult, error) {
	var nexus NexusResult
	if err := c.getJSON(ctx, "getNexus", url.Values{"extended": {"true"}}, &nexus); err != nil {
		return nil, err
	}
	if nexus.Error != "" {
		return nil, &APIError{Message: nexus.Error}
	}
	return &nexus, nil
}

// GetTokens fetches all token definitions.
func (c *Client) GetTokens(ctx context.Context) ([]TokenResult, error) {
	var tokens []TokenResult
	if err := c.getJSON(ctx, "getTokens", url.Values{"extended": {"false"}}, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// GetOrganization fetches one organization by ID.
func (c *Client) GetOrganization(ctx context.Context, id string) (*OrganizationResult, error) {
	var org OrganizationResult
	if err := c.getJSON(ctx, "getOrganization", url.Values{"ID": {id}}, &org); err != nil {
		return nil, err
	}
	if org.Error != "" {
		return nil, &APIError{Message: org.Error}
	}
	return &org, nil
}

// GetChains fetches the chain list.
func (c *Client) GetChains(ctx context.Context) ([]ChainResult, error) {
	var chains []ChainResult
	if err := c.getJSON(ctx, "getChains", nil, &chains); err != nil {
		return nil, err
	}
	return chains, nil
}
