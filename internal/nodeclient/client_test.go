package nodeclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Endpoints:         []string{srv.URL},
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestGetBlockHeight_ParsesQuotedNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/getBlockHeight", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("chainInput"))
		_, _ = w.Write([]byte(`"12345"`))
	})

	h, err := c.GetBlockHeight(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), h)
}

func TestGetBlockByHeight_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("height"))
		_, _ = w.Write([]byte(`{
			"hash":"B1","previousHash":"B0","height":100,"timestamp":1700000000,
			"txs":[{"hash":"T1","events":[{"kind":"TokenMint","address":"PAddr","contract":"SOUL","data":""}]}]
		}`))
	})

	b, err := c.GetBlockByHeight(context.Background(), "main", 100)
	require.NoError(t, err)
	assert.Equal(t, "B1", b.Hash)
	require.Len(t, b.Txs, 1)
	require.Len(t, b.Txs[0].Events, 1)
	assert.Equal(t, "TokenMint", b.Txs[0].Events[0].Kind)
}

func TestGetBlockByHeight_NodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"block not found"}`))
	})

	_, err := c.GetBlockByHeight(context.Background(), "main", 999)
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Contains("not found"))
}

func TestGetNFT_RepairsKnownCorruptPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		// trailing comma emitted by the GAME minter
		_, _ = w.Write([]byte(`{"id":"42","symbol":"GAME","properties":[{"key":"name","value":"Relic"},],}`))
	})

	nft, err := c.GetNFT(context.Background(), "GAME", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", nft.ID)
	require.Len(t, nft.Properties, 1)
	assert.Equal(t, "Relic", nft.Properties[0].Value)
}

func TestGetNFT_UnrepairableStaysTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": totally broken`))
	})

	_, err := c.GetNFT(context.Background(), "GAME", "42")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestGetNFT_DoesNotExist(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"nft does not exists"}`))
	})

	_, err := c.GetNFT(context.Background(), "TTRS", "42")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Contains("does not exist"))
}

func TestGetAccounts_PerAccountErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "A1,A2", r.URL.Query().Get("accountText"))
		_, _ = w.Write([]byte(`[{"address":"A1","name":"alice"},{"address":"A2","error":"invalid address"}]`))
	})

	accounts, err := c.GetAccounts(context.Background(), []string{"A1", "A2"})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Empty(t, accounts[0].Error)
	assert.Equal(t, "invalid address", accounts[1].Error)
}

func TestGetTokens_FlagParsing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"symbol":"SOUL","decimals":8,"flags":"Fungible, Transferable, Stakable"}]`))
	})

	tokens, err := c.GetTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].HasFlag("Fungible"))
	assert.True(t, tokens[0].HasFlag("stakable"))
	assert.False(t, tokens[0].HasFlag("Burnable"))
}

func TestGetBlockByHeight_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetBlockByHeight(context.Background(), "main", 1)
	assert.Error(t, err)
}

func TestEndpointPool_Rotation(t *testing.T) {
	pool := newEndpointPool([]string{"http://a", "http://b/", " http://c "}, 30*time.Minute)
	now := time.Unix(1700000000, 0)
	pool.now = func() time.Time { return now }

	assert.Equal(t, "http://a", pool.current())
	assert.Equal(t, "http://a", pool.current())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, "http://b", pool.current())
	assert.Equal(t, "http://b", pool.current())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, "http://c", pool.current())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, "http://a", pool.current())
}

func TestEndpointPool_SingleEndpointNeverRotates(t *testing.T) {
	pool := newEndpointPool([]string{"http://only"}, time.Minute)
	now := time.Unix(1700000000, 0)
	pool.now = func() time.Time { return now }

	assert.Equal(t, "http://only", pool.current())
	now = now.Add(time.Hour)
	assert.Equal(t, "http://only", pool.current())
}

func TestRepairJSON_UnknownSymbolUntouched(t *testing.T) {
	body := []byte(`{"a":1,}`)
	assert.Equal(t, body, repairJSON("SOUL", body))
	assert.Equal(t, []byte(`{"a":1}`), repairJSON("GAME", body))
}

func TestRepairJSON_StripsEmbeddedNulBytes(t *testing.T) {
	body := []byte("{\"name\":\"ab\x00cd\"}")
	assert.Equal(t, []byte(`{"name":"abcd"}`), repairJSON("SMNFT", body))
	assert.Equal(t, body, repairJSON("SOUL", body))
}
