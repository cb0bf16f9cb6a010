package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{5, 3, 9, 1, 7, 2}
	got, err := Map(context.Background(), 3, items, func(_ context.Context, v int) (int, error) {
		return v * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 30, 90, 10, 70, 20}, got)
}

func TestMap_FirstErrorCancels(t *testing.T) {
	var calls atomic.Int32
	wantErr := errors.New("boom")
	_, err := Map(context.Background(), 2, []int{1, 2, 3, 4, 5, 6, 7, 8}, func(ctx context.Context, v int) (int, error) {
		calls.Add(1)
		if v == 2 {
			return 0, wantErr
		}
		return v, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestMap_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Map(ctx, 2, []int{1, 2}, func(_ context.Context, v int) (int, error) {
		return v, nil
	})
	assert.Error(t, err)
}

func TestMap_Empty(t *testing.T) {
	got, err := Map(context.Background(), 4, nil, func(_ context.Context, v int) (int, error) {
		return v, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}
