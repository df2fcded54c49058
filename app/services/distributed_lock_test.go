package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRedis keeps string keys in memory and runs the release script as
// compare-and-delete.
type scriptedRedis struct {
	mu     sync.Mutex
	keys   map[string]string
	ttls   map[string]time.Duration
	shas   []string
	setErr error
}

func newScriptedRedis() *scriptedRedis {
	return &scriptedRedis{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (r *scriptedRedis) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return redis.NewBoolResult(false, r.setErr)
	}
	if _, held := r.keys[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	r.keys[key] = fmt.Sprint(value)
	r.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (r *scriptedRedis) compareAndDelete(keys []string, args []interface{}) *redis.Cmd {
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("ERR wrong number of arguments"))
	}
	if v, ok := r.keys[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(r.keys, keys[0])
		delete(r.ttls, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (r *scriptedRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.compareAndDelete(keys, args)
}

func (r *scriptedRedis) EvalSha(_ context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shas = append(r.shas, sha1)
	return r.compareAndDelete(keys, args)
}

func (r *scriptedRedis) EvalRO(context.Context, string, []string, ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, errors.New("ERR read-only scripts unused"))
}

func (r *scriptedRedis) EvalShaRO(context.Context, string, []string, ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, errors.New("ERR read-only scripts unused"))
}

func (r *scriptedRedis) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (r *scriptedRedis) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult(releaseScript.Hash(), nil)
}

func (r *scriptedRedis) value(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.keys[key]
	return v, ok
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("AcquireSetsPrefixedKeyWithTTL", func(t *testing.T) {
		rdb := newScriptedRedis()
		locker := NewRedisLocker(rdb, "smm:lock:")

		release, ok, err := locker.TryLock(ctx, "sms-poller", 30*time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		token, held := rdb.value("smm:lock:sms-poller")
		require.True(t, held)
		assert.NotEmpty(t, token)
		assert.Equal(t, 30*time.Second, rdb.ttls["smm:lock:sms-poller"])

		release()
		_, held = rdb.value("smm:lock:sms-poller")
		assert.False(t, held)
		require.Len(t, rdb.shas, 1)
		assert.Equal(t, releaseScript.Hash(), rdb.shas[0])
	})

	t.Run("SecondHolderRefused", func(t *testing.T) {
		rdb := newScriptedRedis()
		locker := NewRedisLocker(rdb, "smm:lock:")

		release, ok, err := locker.TryLock(ctx, "smm-poller", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		again, ok, err := locker.TryLock(ctx, "smm-poller", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
		again()
		_, held := rdb.value("smm:lock:smm-poller")
		assert.True(t, held, "a refused caller must not free the lease")

		other, ok, err := locker.TryLock(ctx, "sms-poller", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		other()

		release()
		relock, ok, err := locker.TryLock(ctx, "smm-poller", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		relock()
	})

	t.Run("StaleReleaseKeepsNewOwner", func(t *testing.T) {
		rdb := newScriptedRedis()
		locker := NewRedisLocker(rdb, "smm:lock:")

		release, ok, err := locker.TryLock(ctx, "sms-poller", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		// the lease expired and another instance took it
		rdb.mu.Lock()
		rdb.keys["smm:lock:sms-poller"] = "other-instance"
		rdb.mu.Unlock()

		release()
		token, held := rdb.value("smm:lock:sms-poller")
		assert.True(t, held)
		assert.Equal(t, "other-instance", token)
	})

	t.Run("SetNXError", func(t *testing.T) {
		rdb := newScriptedRedis()
		rdb.setErr = errors.New("connection refused")
		locker := NewRedisLocker(rdb, "smm:lock:")

		release, ok, err := locker.TryLock(ctx, "sms-poller", time.Minute)
		assert.Error(t, err)
		assert.False(t, ok)
		require.NotNil(t, release)
		release()
		assert.Empty(t, rdb.shas)
	})
}
