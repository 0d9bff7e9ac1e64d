package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shepherd-api/internal/domain"
	"shepherd-api/pkg/redis"
)

func setupCacheService(t *testing.T) (*miniredis.Miniredis, *redis.Client, *CacheService) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)

	return mr, client, NewCacheService(client, zap.NewNop())
}

func TestCacheService_GetRequestWithCache_Hit(t *testing.T) {
	_, client, cache := setupCacheService(t)

	cached := &domain.Request{ID: "req-1", Title: "Tổ chức trại hè"}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, client.Set(context.Background(),
		client.KeyBuilder.KeyRequest("req-1"), string(data), redis.TTLRequest))

	calls := 0
	got, err := cache.GetRequestWithCache(context.Background(), "req-1",
		func(ctx context.Context, id string) (*domain.Request, error) {
			calls++
			return nil, errors.New("must not reach the database")
		})
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.ID)
	assert.Equal(t, 0, calls)
}

func TestCacheService_GetRequestWithCache_MissFallsThrough(t *testing.T) {
	_, client, cache := setupCacheService(t)

	fresh := &domain.Request{ID: "req-1", Title: "Tổ chức trại hè"}
	got, err := cache.GetRequestWithCache(context.Background(), "req-1",
		func(ctx context.Context, id string) (*domain.Request, error) {
			return fresh, nil
		})
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)

	// The async write-back lands shortly after the read.
	key := client.KeyBuilder.KeyRequest("req-1")
	assert.Eventually(t, func() bool {
		n, err := client.Exists(context.Background(), key)
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCacheService_GetRequestWithCache_CorruptedFallsThrough(t *testing.T) {
	_, client, cache := setupCacheService(t)

	require.NoError(t, client.Set(context.Background(),
		client.KeyBuilder.KeyRequest("req-1"), "{not json", redis.TTLRequest))

	fresh := &domain.Request{ID: "req-1"}
	got, err := cache.GetRequestWithCache(context.Background(), "req-1",
		func(ctx context.Context, id string) (*domain.Request, error) {
			return fresh, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.ID)
}

func TestCacheService_GetBoardTasksWithCache_ViewsAreSeparate(t *testing.T) {
	_, client, cache := setupCacheService(t)
	ctx := context.Background()

	leaderTasks := []domain.Task{{ID: "t1"}, {ID: "t2"}}
	memberTasks := []domain.Task{{ID: "t1"}}

	leaderData, _ := json.Marshal(leaderTasks)
	memberData, _ := json.Marshal(memberTasks)
	require.NoError(t, client.Set(ctx, client.KeyBuilder.KeyBoard("group-youth", "leader:u1"), string(leaderData), redis.TTLBoard))
	require.NoError(t, client.Set(ctx, client.KeyBuilder.KeyBoard("group-youth", "member:u2"), string(memberData), redis.TTLBoard))

	noFallback := func(ctx context.Context) ([]domain.Task, error) {
		return nil, errors.New("must not reach the database")
	}

	got, err := cache.GetBoardTasksWithCache(ctx, "group-youth", "leader:u1", noFallback)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = cache.GetBoardTasksWithCache(ctx, "group-youth", "member:u2", noFallback)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCacheService_NilRedisReadsDatabase(t *testing.T) {
	cache := NewCacheService(nil, zap.NewNop())

	fresh := &domain.Request{ID: "req-1"}
	got, err := cache.GetRequestWithCache(context.Background(), "req-1",
		func(ctx context.Context, id string) (*domain.Request, error) {
			return fresh, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.ID)

	assert.NoError(t, cache.HealthCheck(context.Background()))
}
