package lease

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient("http://localhost:6379")
	assert.Error(t, err)
}

// Runs against a real server when REDIS_TEST_URL is set.
func TestRedisLease_AcquireRelease(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	rdb, err := NewRedisClient(url)
	require.NoError(t, err)
	defer rdb.Close()

	ctx := context.Background()
	l := NewRedisLease(rdb)
	key := "finance-automation:test:" + uuid.NewString()
	defer rdb.Del(ctx, key)

	token, ok, err := l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	// A stale token must not release the live lease.
	require.NoError(t, l.Release(ctx, key, "stale"))
	_, ok, err = l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, key, token))
	_, ok, err = l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
