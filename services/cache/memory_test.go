package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	type item struct {
		Key   string
		Label string
	}

	var got item
	assert.Equal(t, core.ErrCacheMiss, c.Get(ctx, "missing", &got))

	require.NoError(t, c.Set(ctx, "k", item{Key: "new", Label: "New"}, time.Minute))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, item{Key: "new", Label: "New"}, got)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, core.ErrCacheMiss, c.Get(ctx, "k", &got), "expired entries are misses")

	require.NoError(t, c.Set(ctx, "forever", item{Key: "x"}, 0))
	require.NoError(t, c.Delete(ctx, "forever", "unknown"))
	assert.Equal(t, core.ErrCacheMiss, c.Get(ctx, "forever", &got))
}
