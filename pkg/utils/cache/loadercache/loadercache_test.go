package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/utils/cache"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func countingLoader(calls map[int]int) LoaderFunc[int, string] {
	return func(_ context.Context, key int) (*string, error) {
		calls[key]++
		if key < 0 {
			return nil, errors.New("negative")
		}
		v := string(rune('a' + key))
		return &v, nil
	}
}

func TestGetLoadsOnce(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(0, 0)}
	calls := map[int]int{}
	c := New(
		WithLoader(countingLoader(calls)),
		WithExpiration[int, string](time.Minute),
		withClock[int, string](clk.now))

	v, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", *v)
	_, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, calls[1])

	clk.t = clk.t.Add(2 * time.Minute)
	_, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls[1], "expired entry is reloaded")

	c.Invalidate(ctx, 1)
	assert.Equal(t, 0, c.Len())
}

func TestLoaderErrorNotCached(t *testing.T) {
	calls := map[int]int{}
	c := New(WithLoader(countingLoader(calls)))
	_, err := c.Get(context.Background(), -1)
	assert.Error(t, err)
	_, err = c.Get(context.Background(), -1)
	assert.Error(t, err)
	assert.Equal(t, 2, calls[-1])
	assert.Equal(t, 0, c.Len())
}

func TestNoLoader(t *testing.T) {
	c := New[int, string]()
	_, err := c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestMaxItems(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(0, 0)}
	calls := map[int]int{}
	c := New(
		WithLoader(countingLoader(calls)),
		WithMaxItems[int, string](2),
		withClock[int, string](clk.now))
	for i := range 3 {
		_, err := c.Get(ctx, i)
		require.NoError(t, err)
		clk.t = clk.t.Add(time.Second)
	}
	assert.Equal(t, 2, c.Len())
	// 0 was closest to expiry and got evicted
	_, err := c.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, calls[0])
	_, err = c.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, calls[2])
}
