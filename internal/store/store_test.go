package store

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/mediguide/assistant/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// runContract exercises the behavior every backend must share
func runContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, SessionsKey("a@example.com"), `[{"id":"1"}]`))
		v, err := s.Get(ctx, SessionsKey("a@example.com"))
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"1"}]`, v)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", "one"))
		require.NoError(t, s.Set(ctx, "k", "two"))
		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", v)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "gone", "x"))
		require.NoError(t, s.Remove(ctx, "gone"))
		_, err := s.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, s.Remove(ctx, "gone"))
	})

	t.Run("set if absent", func(t *testing.T) {
		wrote, err := SetIfAbsent(ctx, s, "once", "first")
		require.NoError(t, err)
		assert.True(t, wrote)

		wrote, err = SetIfAbsent(ctx, s, "once", "second")
		require.NoError(t, err)
		assert.False(t, wrote)

		v, err := s.Get(ctx, "once")
		require.NoError(t, err)
		assert.Equal(t, "first", v)
	})

	t.Run("json helpers", func(t *testing.T) {
		type profile struct {
			Name string `json:"name"`
		}
		require.NoError(t, SetJSON(ctx, s, UsersKey, map[string]profile{"a": {Name: "Asha"}}))

		var got map[string]profile
		require.NoError(t, GetJSON(ctx, s, UsersKey, &got))
		assert.Equal(t, "Asha", got["a"].Name)

		require.NoError(t, s.Set(ctx, "bad", "{not json"))
		assert.Error(t, GetJSON(ctx, s, "bad", &got))
	})
}

func TestMemoryStore(t *testing.T) {
	runContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "mediguide.db")
	s, err := NewSQLiteStore(ctx, path, zap.NewNop())
	require.NoError(t, err)

	runContract(t, s)
	require.NoError(t, s.Close())

	// A fresh instance sees everything written by the first one
	reopened, err := NewSQLiteStore(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()
	v, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestSQLiteStore_RejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediguide.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a database file at all, just text"), 0o600))

	_, err := NewSQLiteStore(context.Background(), path, zap.NewNop())
	assert.Error(t, err)
}

func TestSQLiteStore_ConcurrentSetIfAbsent(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "mediguide.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wrote, err := s.SetIfAbsent(context.Background(), "seed", "v")
			if err == nil && wrote {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, "mediguide", zap.NewNop())
	runContract(t, s)

	assert.True(t, mr.Exists("mediguide:k"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := NewRedisStore(client, "", zap.NewNop())

	mr.Close()

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestEncryptedStore(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	encryptor, err := security.NewEncryptor(key)
	require.NoError(t, err)

	inner := NewMemoryStore()
	s := NewEncryptedStore(inner, encryptor)
	runContract(t, s)

	raw, err := inner.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.NotEqual(t, "two", raw)
}

func TestSetIfAbsent_ConcurrentWriters(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wrote, err := SetIfAbsent(context.Background(), s, "seed", "v")
			if err == nil && wrote {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
