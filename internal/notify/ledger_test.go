package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLedger_ClaimReleaseExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	l := NewRedisLedger(rdb, time.Hour)
	ctx := context.Background()

	ok, err := l.Claim(ctx, 5, " Someone@Example.fr")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Claim(ctx, 5, "someone@example.fr")
	require.NoError(t, err)
	assert.False(t, ok, "address is normalised")

	require.NoError(t, l.Release(ctx, 5, "someone@example.fr"))
	ok, err = l.Claim(ctx, 5, "someone@example.fr")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = l.Claim(ctx, 5, "someone@example.fr")
	require.NoError(t, err)
	assert.True(t, ok, "claims expire with the ttl")
}

func TestNewRedisLedger_NilClient(t *testing.T) {
	assert.Nil(t, NewRedisLedger(nil, time.Hour))
}

func TestRedisLedger_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	_, err := NewRedisLedger(rdb, time.Hour).Claim(context.Background(), 1, "a@b.fr")
	assert.Error(t, err)
}
