package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	// Create a miniredis server
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Create client with test redis
	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)

	return mr, client
}

func TestNewClient_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "Invalid scheme", url: "invalid://url"},
		{name: "Empty URL", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", zap.NewNop())
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestClient_SetAndGet(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	key := client.KeyBuilder.KeyRequest("req-1")

	require.NoError(t, client.Set(ctx, key, "payload", TTLRequest))

	val, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "payload", val)

	// A missing key surfaces redis.Nil to the caller.
	_, err = client.Get(ctx, client.KeyBuilder.KeyRequest("missing"))
	assert.Error(t, err)
}

func TestClient_SetNX_DecisionLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	key := client.KeyBuilder.KeyDecisionLock("req-1")

	acquired, err := client.SetNX(ctx, key, "1", TTLDecisionLock)
	require.NoError(t, err)
	assert.True(t, acquired)

	// A second submit inside the lock window loses.
	acquired, err = client.SetNX(ctx, key, "1", TTLDecisionLock)
	require.NoError(t, err)
	assert.False(t, acquired)

	// After the lock expires the request can be decided again.
	mr.FastForward(TTLDecisionLock + time.Second)
	acquired, err = client.SetNX(ctx, key, "1", TTLDecisionLock)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestClient_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	k1 := client.KeyBuilder.KeyRequest("req-1")
	k2 := client.KeyBuilder.KeyRequestList("Council")
	require.NoError(t, client.Set(ctx, k1, "a", time.Minute))
	require.NoError(t, client.Set(ctx, k2, "b", time.Minute))

	require.NoError(t, client.Delete(ctx, k1, k2))

	n, err := client.Exists(ctx, k1, k2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestClient_InvalidatePattern(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, client.KeyBuilder.KeyBoard("group-youth", "leader:u1"), "a", time.Minute))
	require.NoError(t, client.Set(ctx, client.KeyBuilder.KeyBoard("group-youth", "member:u2"), "b", time.Minute))
	other := client.KeyBuilder.KeyBoard("group-choir", "leader:u3")
	require.NoError(t, client.Set(ctx, other, "c", time.Minute))

	require.NoError(t, client.InvalidatePattern(ctx, client.KeyBuilder.KeyBoard("group-youth", "*")))

	n, err := client.Exists(ctx,
		client.KeyBuilder.KeyBoard("group-youth", "leader:u1"),
		client.KeyBuilder.KeyBoard("group-youth", "member:u2"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// Other groups' boards are untouched.
	n, err = client.Exists(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)

	require.NoError(t, client.Health(context.Background()))

	mr.Close()
	assert.Error(t, client.Health(context.Background()))
}
