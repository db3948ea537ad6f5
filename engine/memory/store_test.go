package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/docrag/engine/llm"
	appconfig "github.com/compozy/docrag/pkg/config"
)

func userMessages(n int) []llm.Message {
	msgs := make([]llm.Message, n)
	for i := range msgs {
		msgs[i] = llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("message %d", i)}
	}
	return msgs
}

func newRedisStore(t *testing.T, opts Options) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, opts), mr
}

// storeContract runs the behavior every driver shares.
func storeContract(t *testing.T, build func(t *testing.T, opts Options) Store) {
	ctx := context.Background()

	t.Run("Should return an empty history for unknown sessions", func(t *testing.T) {
		store := build(t, Options{})
		msgs, err := store.Read(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("Should keep messages in order", func(t *testing.T) {
		store := build(t, Options{})
		require.NoError(t, store.Append(ctx, "s1", llm.Message{Role: llm.RoleUser, Content: "hi"}))
		require.NoError(t, store.Append(ctx, "s1", llm.Message{Role: llm.RoleAssistant, Content: "hello"}))
		msgs, err := store.Read(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, llm.RoleUser, msgs[0].Role)
		assert.Equal(t, "hello", msgs[1].Content)
	})

	t.Run("Should drop the oldest messages past the window", func(t *testing.T) {
		store := build(t, Options{MaxMessages: 3})
		require.NoError(t, store.Append(ctx, "s1", userMessages(5)...))
		msgs, err := store.Read(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "message 2", msgs[0].Content)
		assert.Equal(t, "message 4", msgs[2].Content)
	})

	t.Run("Should use a window of twenty by default", func(t *testing.T) {
		store := build(t, Options{})
		for _, msg := range userMessages(25) {
			require.NoError(t, store.Append(ctx, "s1", msg))
		}
		msgs, err := store.Read(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, msgs, DefaultMaxMessages)
		assert.Equal(t, "message 5", msgs[0].Content)
	})

	t.Run("Should replace and trim the history", func(t *testing.T) {
		store := build(t, Options{MaxMessages: 2})
		require.NoError(t, store.Append(ctx, "s1", userMessages(2)...))
		require.NoError(t, store.Replace(ctx, "s1", userMessages(4)))
		msgs, err := store.Read(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "message 2", msgs[0].Content)
	})

	t.Run("Should isolate sessions and delete them", func(t *testing.T) {
		store := build(t, Options{})
		require.NoError(t, store.Append(ctx, "a", userMessages(1)...))
		require.NoError(t, store.Append(ctx, "b", userMessages(2)...))
		require.NoError(t, store.Delete(ctx, "a"))
		a, err := store.Read(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, a)
		b, err := store.Read(ctx, "b")
		require.NoError(t, err)
		assert.Len(t, b, 2)
	})

	t.Run("Should reject blank session ids", func(t *testing.T) {
		store := build(t, Options{})
		_, err := store.Read(ctx, "  ")
		assert.ErrorIs(t, err, ErrInvalidSession)
		assert.ErrorIs(t, store.Append(ctx, "", userMessages(1)...), ErrInvalidSession)
		assert.ErrorIs(t, store.Delete(ctx, ""), ErrInvalidSession)
	})
}

func TestInMemoryStore(t *testing.T) {
	storeContract(t, func(_ *testing.T, opts Options) Store { return NewInMemoryStore(opts) })

	t.Run("Should not share slices with callers", func(t *testing.T) {
		ctx := context.Background()
		store := NewInMemoryStore(Options{})
		require.NoError(t, store.Append(ctx, "s1", userMessages(1)...))
		msgs, err := store.Read(ctx, "s1")
		require.NoError(t, err)
		msgs[0].Content = "mutated"
		again, err := store.Read(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "message 0", again[0].Content)
	})
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(t *testing.T, opts Options) Store {
		store, _ := newRedisStore(t, opts)
		return store
	})

	t.Run("Should store sessions under the prefixed key with a TTL", func(t *testing.T) {
		ctx := context.Background()
		store, mr := newRedisStore(t, Options{TTL: time.Hour})
		require.NoError(t, store.Append(ctx, "s1", userMessages(2)...))
		assert.True(t, mr.Exists("chat:memory:s1"))
		assert.Equal(t, time.Hour, mr.TTL("chat:memory:s1"))
		items, err := mr.List("chat:memory:s1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"role":"user","content":"message 0"}`, items[0])
	})

	t.Run("Should expire idle sessions", func(t *testing.T) {
		ctx := context.Background()
		store, mr := newRedisStore(t, Options{TTL: time.Minute})
		require.NoError(t, store.Replace(ctx, "s1", userMessages(1)))
		mr.FastForward(2 * time.Minute)
		msgs, err := store.Read(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("Should clear the key when replacing with nothing", func(t *testing.T) {
		ctx := context.Background()
		store, mr := newRedisStore(t, Options{})
		require.NoError(t, store.Append(ctx, "s1", userMessages(1)...))
		require.NoError(t, store.Replace(ctx, "s1", nil))
		assert.False(t, mr.Exists("chat:memory:s1"))
	})

	t.Run("Should report corrupt entries", func(t *testing.T) {
		ctx := context.Background()
		store, mr := newRedisStore(t, Options{Prefix: "test:"})
		_, err := mr.Push("test:s1", "not json")
		require.NoError(t, err)
		_, err = store.Read(ctx, "s1")
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})
}

func TestNewStore(t *testing.T) {
	t.Run("Should build the in-process store by default", func(t *testing.T) {
		store, err := NewStore(&appconfig.MemoryConfig{Driver: DriverMemory}, nil)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryStore{}, store)
	})

	t.Run("Should require a client for the redis driver", func(t *testing.T) {
		_, err := NewStore(&appconfig.MemoryConfig{Driver: DriverRedis}, nil)
		assert.ErrorContains(t, err, "requires a redis connection")
	})

	t.Run("Should reject unknown drivers", func(t *testing.T) {
		_, err := NewStore(&appconfig.MemoryConfig{Driver: "etcd"}, nil)
		assert.ErrorContains(t, err, "not supported")
	})
}
