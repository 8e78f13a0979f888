package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type listParams struct {
	Term string `json:"term"`
	Page int    `json:"page"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl, nil), mr
}

func loaderReturning(value any, calls *int) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		*calls++
		return value, nil
	}
}

func TestFetchJSONCachesSecondRead(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	params := listParams{Term: "lamp", Page: 1}

	calls := 0
	var got []string
	err := c.FetchJSON(ctx, NamespaceProductLists, params, &got, loaderReturning([]string{"aurora-lamp"}, &calls))
	require.NoError(t, err)
	require.Equal(t, []string{"aurora-lamp"}, got)
	require.Equal(t, 1, calls)

	var again []string
	err = c.FetchJSON(ctx, NamespaceProductLists, params, &again, loaderReturning([]string{"aurora-lamp"}, &calls))
	require.NoError(t, err)
	require.Equal(t, got, again)
	require.Equal(t, 1, calls, "second read must be served from cache")
}

func TestFetchJSONTTLExpiry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	params := listParams{Term: "rug"}

	calls := 0
	var out []string
	require.NoError(t, c.FetchJSON(ctx, NamespaceProductLists, params, &out, loaderReturning([]string{"rug"}, &calls)))
	require.Equal(t, 1, calls)

	mr.FastForward(59 * time.Second)
	require.NoError(t, c.FetchJSON(ctx, NamespaceProductLists, params, &out, loaderReturning([]string{"rug"}, &calls)))
	require.Equal(t, 1, calls, "entry younger than TTL must still hit")

	mr.FastForward(6 * time.Second) // now at t=65s
	require.NoError(t, c.FetchJSON(ctx, NamespaceProductLists, params, &out, loaderReturning([]string{"rug"}, &calls)))
	require.Equal(t, 2, calls, "entry older than TTL must be reloaded")
}

func TestInvalidationScopesAreIndependent(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	listCalls, treeCalls := 0, 0
	var list, tree []string
	require.NoError(t, c.FetchJSON(ctx, NamespaceProductLists, listParams{Term: "x"}, &list, loaderReturning([]string{"p"}, &listCalls)))
	require.NoError(t, c.FetchJSON(ctx, NamespaceCategoryTrees, map[string]int{"depth": 3}, &tree, loaderReturning([]string{"c"}, &treeCalls)))

	// Clearing category trees must leave product lists retrievable.
	c.InvalidateCategoryTrees(ctx)
	require.NoError(t, c.FetchJSON(ctx, NamespaceProductLists, listParams{Term: "x"}, &list, loaderReturning([]string{"p"}, &listCalls)))
	require.Equal(t, 1, listCalls)
	require.NoError(t, c.FetchJSON(ctx, NamespaceCategoryTrees, map[string]int{"depth": 3}, &tree, loaderReturning([]string{"c"}, &treeCalls)))
	require.Equal(t, 2, treeCalls)

	// Clearing product lists must drop the cached list.
	c.InvalidateProductLists(ctx)
	require.NoError(t, c.FetchJSON(ctx, NamespaceProductLists, listParams{Term: "x"}, &list, loaderReturning([]string{"p"}, &listCalls)))
	require.Equal(t, 2, listCalls)
}

func TestCacheFailureDegradesToMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := New(client, time.Minute, nil)
	mr.Close()
	_ = client.Close()

	calls := 0
	var out []string
	err := c.FetchJSON(context.Background(), NamespaceProductLists, listParams{Term: "x"}, &out, loaderReturning([]string{"p"}, &calls))
	require.NoError(t, err, "cache backend failure must not surface")
	require.Equal(t, []string{"p"}, out)
	require.Equal(t, 1, calls)
}

func TestNilClientDelegatesToLoader(t *testing.T) {
	c := New(nil, time.Minute, nil)
	calls := 0
	var out []string
	require.NoError(t, c.FetchJSON(context.Background(), NamespacePopularProducts, nil, &out, loaderReturning([]string{"p"}, &calls)))
	require.Equal(t, 1, calls)
}
