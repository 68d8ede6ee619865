package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
)

func TestSetNXKeepsFirstWriter(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommander()
	client := &Client{cmd: fake}
	key := client.IdempotencyKey("POST|/api/v1/orders|7", "abc")

	stored, err := client.SetNX(ctx, key, "first", time.Hour)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = client.SetNX(ctx, key, "second", time.Hour)
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", got)
	assert.Equal(t, time.Hour, fake.ttls[key])
}

func TestSetReplacesValue(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommander()
	client := &Client{cmd: fake}

	_, err := client.SetNX(ctx, "k", "pending", time.Minute)
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, "k", "done", time.Hour))

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, time.Hour, fake.ttls["k"])
}

func TestReleaseOwnedOnlyDeletesForOwner(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommander()}
	key := client.LockKey("dev", "maintenance")

	_, err := client.SetNX(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)

	released, err := client.ReleaseOwned(ctx, key, "owner-b")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = client.ReleaseOwned(ctx, key, "owner-a")
	require.NoError(t, err)
	assert.True(t, released)

	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestDelRemovesKeys(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommander()}

	_, err := client.SetNX(ctx, "k", "v", 0)
	require.NoError(t, err)
	require.NoError(t, client.Del(ctx, "k"))

	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestKeys(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "hwinv:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "hwinv:idempotency:id", client.IdempotencyKey(" ", "id"))
	assert.Equal(t, "hwinv:lock:prod:maintenance", client.LockKey("prod", "maintenance"))
	assert.Equal(t, "hwinv", key())
}

func TestDisconnectedClient(t *testing.T) {
	ctx := context.Background()
	client := &Client{}

	assert.ErrorIs(t, client.Ping(ctx), errNotConnected)
	_, err := client.Get(ctx, "k")
	assert.ErrorIs(t, err, errNotConnected)
	_, err = client.SetNX(ctx, "k", "v", time.Second)
	assert.ErrorIs(t, err, errNotConnected)
	_, err = client.ReleaseOwned(ctx, "k", "o")
	assert.ErrorIs(t, err, errNotConnected)
	assert.NoError(t, client.Close())
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		Address:     "localhost:6379",
		DB:          2,
		PoolSize:    7,
		DialTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:secret@cache:6380/3", PoolSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)

	_, err = optionsFromConfig(config.RedisConfig{URL: "://bad"})
	assert.Error(t, err)
}

type fakeCommander struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeCommander() *fakeCommander {
	return &fakeCommander{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCommander) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommander) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommander) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommander) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommander) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Eval only understands the compare-and-delete script.
func (f *fakeCommander) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != releaseOwnedScript || len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
	}
	if f.data[keys[0]] != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(f.data, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}
