package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type crumb struct {
	Name string `json:"name"`
}

func TestJSONRoundTrip(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "k", []crumb{{Name: "Docs"}}, time.Minute))

	var got []crumb
	found, err := GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []crumb{{Name: "Docs"}}, got)

	found, err = GetJSON(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAside(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]crumb) func() error {
		return func() error {
			calls++
			*dest = []crumb{{Name: "Guide"}}
			return nil
		}
	}

	var first []crumb
	require.NoError(t, Aside(ctx, "test", "aside", &first, time.Minute, fetch(&first)))
	var second []crumb
	require.NoError(t, Aside(ctx, "test", "aside", &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	boom := errors.New("boom")
	var third []crumb
	err := Aside(ctx, "test", "other", &third, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNilClientDisablesCache(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "k", 1, time.Minute))
	var v int
	found, err := GetJSON(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(0), Generation(ctx, 1))
	BumpGeneration(ctx, 1)

	calls := 0
	require.NoError(t, Aside(ctx, "test", "k", &v, time.Minute, func() error { calls++; return nil }))
	require.NoError(t, Aside(ctx, "test", "k", &v, time.Minute, func() error { calls++; return nil }))
	assert.Equal(t, 2, calls)
}

func TestGeneration(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()

	assert.Equal(t, int64(0), Generation(ctx, 1))
	before := BreadcrumbKey(1, Generation(ctx, 1), "/docs/guide/")

	BumpGeneration(ctx, 1)
	assert.Equal(t, int64(1), Generation(ctx, 1))
	assert.Equal(t, int64(0), Generation(ctx, 2))

	after := BreadcrumbKey(1, Generation(ctx, 1), "/docs/guide/")
	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "flatpages:site:1:gen:1:crumbs:")
}
