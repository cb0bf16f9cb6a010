package nftmeta

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/model"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/internal/rom"
	"github.com/nexusglass/nexusglass-backend/internal/store"
)

type stubNFTClient struct {
	results map[string]*nodeclient.NFTResult
	errs    map[string]error
	calls   int
}

func (s *stubNFTClient) GetNFT(_ context.Context, symbol, tokenID string) (*nodeclient.NFTResult, error) {
	s.calls++
	if err, ok := s.errs[tokenID]; ok {
		return nil, err
	}
	if r, ok := s.results[tokenID]; ok {
		return r, nil
	}
	return nil, errors.New("unexpected token id " + tokenID)
}

// genericROM builds a self-describing field-map ROM with a name and a
// mint timestamp.
func genericROM(name string, created uint32) string {
	buf := rom.AppendVarInt(nil, 2)

	buf = rom.AppendString(buf, "name")
	buf = append(buf, 0) // string tag
	buf = rom.AppendString(buf, name)

	buf = rom.AppendString(buf, "created")
	buf = append(buf, 3) // timestamp tag
	buf = binary.LittleEndian.AppendUint32(buf, created)

	return hex.EncodeToString(buf)
}

// seriesROM builds a field-map ROM carrying series-level traits.
func seriesROM(royalties uint64, attrType, attrValue string) string {
	buf := rom.AppendVarInt(nil, 3)

	buf = rom.AppendString(buf, "royalties")
	buf = append(buf, 1) // number tag
	buf = rom.AppendVarInt(buf, royalties)

	buf = rom.AppendString(buf, "attrType1")
	buf = append(buf, 0) // string tag
	buf = rom.AppendString(buf, attrType)

	buf = rom.AppendString(buf, "attrValue1")
	buf = append(buf, 0)
	buf = rom.AppendString(buf, attrValue)

	return hex.EncodeToString(buf)
}

// crownROM builds the fixed reward layout and returns the blob with the
// staker's base58 text form.
func crownROM(created uint32) (string, string) {
	raw := make([]byte, 34)
	raw[0] = 1
	for i := 1; i < len(raw); i++ {
		raw[i] = byte(i)
	}
	buf := append([]byte(nil), raw...)
	buf = binary.LittleEndian.AppendUint32(buf, created)
	return hex.EncodeToString(buf), base58.Encode(raw)
}

func ghostNft(symbol, tokenID string) *model.Nft {
	return &model.Nft{
		ChainName:    "main",
		ContractHash: symbol,
		TokenID:      tokenID,
		Symbol:       symbol,
	}
}

func TestBackfillFillsMetadata(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertNft(ctx, ghostNft("GAME", "1001")))

	client := &stubNFTClient{results: map[string]*nodeclient.NFTResult{
		"1001": {
			ID:      "1001",
			Series:  "7",
			Mint:    3,
			Symbol:  "GAME",
			Creator: "P2KCreator",
			Owners:  []nodeclient.NFTOwnerResult{{Address: "P2KOwner", Amount: 1}},
			ROM:     genericROM("Sword of Dawn", 1650000000),
			RAM:     "ff01",
			Properties: []nodeclient.PropertyResult{
				{Key: "Name", Value: "Sword of Dawn"},
				{Key: "ImageURL", Value: "https://img.example/1001.png"},
			},
		},
	}}

	b := NewBackfiller(client, mem, nil, zap.NewNop())
	require.NoError(t, b.Backfill(ctx))

	nft, err := mem.GetNft(ctx, model.NftKey{ContractHash: "GAME", TokenID: "1001"})
	require.NoError(t, err)
	assert.Equal(t, "Sword of Dawn", nft.Name)
	assert.Equal(t, "https://img.example/1001.png", nft.ImageURL)
	assert.EqualValues(t, 1650000000, nft.MintDate)
	assert.EqualValues(t, 3, nft.MintNumber)
	assert.Equal(t, "7", nft.SeriesID)
	assert.Equal(t, "P2KCreator", nft.CreatorAddress)
	assert.Equal(t, "P2KOwner", nft.OwnerAddress)
	assert.NotEmpty(t, nft.ROM)
	assert.Equal(t, []byte{0xff, 0x01}, nft.RAM)
	assert.NotEmpty(t, nft.MetadataJSON)

	series, err := mem.GetSeries(ctx, "GAME", "7")
	require.NoError(t, err)
	assert.Equal(t, "Sword of Dawn", series.Name)
	assert.Equal(t, "P2KCreator", series.CreatorAddress)

	// Queue is drained.
	left, err := mem.NftsWithoutROM(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestBackfillPropagatesRoyaltiesAndAttributes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertNft(ctx, ghostNft("GAME", "2002")))

	client := &stubNFTClient{results: map[string]*nodeclient.NFTResult{
		"2002": {
			ID:     "2002",
			Series: "9",
			Symbol: "GAME",
			ROM:    seriesROM(5, "rarity", "legendary"),
			RAM:    "00",
		},
	}}

	b := NewBackfiller(client, mem, nil, zap.NewNop())
	require.NoError(t, b.Backfill(ctx))

	series, err := mem.GetSeries(ctx, "GAME", "9")
	require.NoError(t, err)
	assert.Equal(t, "5", series.Royalties)
	assert.Equal(t, "rarity", series.AttrType1)
	assert.Equal(t, "legendary", series.AttrValue1)
	assert.Empty(t, series.AttrType2)
}

func TestBackfillCrownStakerBecomesCreator(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertNft(ctx, ghostNft("CROWN", "5")))

	blob, staker := crownROM(1650000000)
	client := &stubNFTClient{results: map[string]*nodeclient.NFTResult{
		"5": {ID: "5", Symbol: "CROWN", ROM: blob, RAM: "00"},
	}}

	b := NewBackfiller(client, mem, nil, zap.NewNop())
	require.NoError(t, b.Backfill(ctx))

	nft, err := mem.GetNft(ctx, model.NftKey{ContractHash: "CROWN", TokenID: "5"})
	require.NoError(t, err)
	assert.Equal(t, staker, nft.CreatorAddress)
	assert.EqualValues(t, 1650000000, nft.MintDate)
}

func TestBackfillMarksMissingNftBurned(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertNft(ctx, ghostNft("TTRS", "42")))

	client := &stubNFTClient{errs: map[string]error{
		"42": &nodeclient.APIError{Message: "nft does not exist"},
	}}
	b := NewBackfiller(client, mem, nil, zap.NewNop())
	require.NoError(t, b.Backfill(ctx))

	nft, err := mem.GetNft(ctx, model.NftKey{ContractHash: "TTRS", TokenID: "42"})
	require.NoError(t, err)
	assert.True(t, nft.Burned)

	left, err := mem.NftsWithoutROM(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, left, "burned rows leave the backfill queue")
}

func TestBackfillInvalidCastMarksBurned(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertNft(ctx, ghostNft("GAME", "9")))

	client := &stubNFTClient{errs: map[string]error{
		"9": &nodeclient.APIError{Message: "Invalid cast from BigInteger"},
	}}
	b := NewBackfiller(client, mem, nil, zap.NewNop())
	require.NoError(t, b.Backfill(ctx))

	nft, err := mem.GetNft(ctx, model.NftKey{ContractHash: "GAME", TokenID: "9"})
	require.NoError(t, err)
	assert.True(t, nft.Burned)
}

func TestBackfillTransientErrorRetriesLater(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertNft(ctx, ghostNft("GAME", "1")))

	client := &stubNFTClient{errs: map[string]error{
		"1": errors.New("connection refused"),
	}}
	b := NewBackfiller(client, mem, nil, zap.NewNop())
	require.NoError(t, b.Backfill(ctx))

	nft, err := mem.GetNft(ctx, model.NftKey{ContractHash: "GAME", TokenID: "1"})
	require.NoError(t, err)
	assert.False(t, nft.Burned)

	left, err := mem.NftsWithoutROM(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, left, 1, "transient failures stay queued")
	assert.Equal(t, 1, client.calls, "a fully skipped batch ends the pass")
}

func TestBackfillSeriesValuesNotOverwritten(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertSeries(ctx, &model.Series{
		ContractHash: "GAME",
		SeriesID:     "7",
		Name:         "Original Series Name",
	}))
	require.NoError(t, mem.UpsertNft(ctx, ghostNft("GAME", "2")))

	client := &stubNFTClient{results: map[string]*nodeclient.NFTResult{
		"2": {
			ID:     "2",
			Series: "7",
			Symbol: "GAME",
			ROM:    genericROM("Late Mint", 1650000001),
			RAM:    "",
		},
	}}
	b := NewBackfiller(client, mem, nil, zap.NewNop())
	require.NoError(t, b.Backfill(ctx))

	series, err := mem.GetSeries(ctx, "GAME", "7")
	require.NoError(t, err)
	assert.Equal(t, "Original Series Name", series.Name)
}
