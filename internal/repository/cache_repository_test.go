package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, "metrics:"), mr
}

type cachedPayload struct {
	Rate float64 `json:"rate"`
}

func TestCacheRepositorySetGet(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "report:a", cachedPayload{Rate: 30}, time.Minute))
	assert.True(t, mr.Exists("metrics:report:a"))

	var got cachedPayload
	require.NoError(t, repo.Get(ctx, "report:a", &got))
	assert.Equal(t, 30.0, got.Rate)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "report:a", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "report:comprehensive:1", cachedPayload{}, time.Minute))
	require.NoError(t, repo.Set(ctx, "report:comprehensive:2", cachedPayload{}, time.Minute))
	require.NoError(t, repo.Set(ctx, "dashboard:ADMIN", cachedPayload{}, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "report:*"))

	assert.False(t, mr.Exists("metrics:report:comprehensive:1"))
	assert.False(t, mr.Exists("metrics:report:comprehensive:2"))
	assert.True(t, mr.Exists("metrics:dashboard:ADMIN"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "")
	var got cachedPayload

	assert.ErrorIs(t, repo.Get(context.Background(), "k", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", got, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
}

func TestCacheRepositoryServerError(t *testing.T) {
	repo, mr := newCacheRepo(t)
	mr.SetError("LOADING")

	var got cachedPayload
	err := repo.Get(context.Background(), "k", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
}
