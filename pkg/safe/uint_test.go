package safe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32(t *testing.T) {
	got, err := Uint32(42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), got)

	got, err = Uint32(int64(math.MaxUint32))
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), got)

	_, err = Uint32(-1)
	assert.Error(t, err)

	_, err = Uint32(int64(math.MaxUint32) + 1)
	assert.Error(t, err)

	_, err = Uint32(uint64(math.MaxUint32) + 1)
	assert.Error(t, err)
}

func TestUint64(t *testing.T) {
	got, err := Uint64(int64(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got)

	got, err = Uint64(uint(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)

	_, err = Uint64(int32(-5))
	assert.Error(t, err)
}
