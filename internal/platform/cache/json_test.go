package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestJSONCacheFetchAndBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewJSONCache(client, "settings", time.Minute)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]string{"site_name": "Local News"}, nil
	}

	var first map[string]string
	require.NoError(t, c.Fetch(ctx, &first, loader, "public"))
	var second map[string]string
	require.NoError(t, c.Fetch(ctx, &second, loader, "public"))
	require.Equal(t, 1, calls)
	require.Equal(t, "Local News", second["site_name"])

	require.NoError(t, c.Bump(ctx))
	var third map[string]string
	require.NoError(t, c.Fetch(ctx, &third, loader, "public"))
	require.Equal(t, 2, calls)
}

func TestJSONCacheWithoutClientCallsLoader(t *testing.T) {
	c := NewJSONCache(nil, "settings", time.Minute)
	var out []int
	require.NoError(t, c.Fetch(context.Background(), &out, func(context.Context) (any, error) {
		return []int{1, 2}, nil
	}, "k"))
	require.Equal(t, []int{1, 2}, out)
	require.NoError(t, c.Bump(context.Background()))
}
