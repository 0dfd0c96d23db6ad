package repo

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sticks-bot/internal/domain"
)

type fakeKV struct {
	data map[string][]byte
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{data: map[string][]byte{}}
	store := NewRedisStore(kv, "sticks:subscribers")

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, domain.ErrStoreMissing)

	require.NoError(t, store.Save(ctx, []int64{5, 7}))
	assert.JSONEq(t, `[5,7]`, string(kv.data["sticks:subscribers"]))

	ids, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7}, ids)

	kv.data["sticks:subscribers"] = []byte("nope")
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, domain.ErrStoreCorrupt)
}
