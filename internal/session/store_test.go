package session_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZuzannaKurillova/trAIvel/internal/explorer"
	"github.com/ZuzannaKurillova/trAIvel/internal/recommend"
	"github.com/ZuzannaKurillova/trAIvel/internal/session"
)

func newRedisStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return session.NewRedisStore(client, time.Hour), mr
}

func stores(t *testing.T) map[string]explorer.Store {
	t.Helper()
	rs, _ := newRedisStore(t)
	return map[string]explorer.Store{
		"memory": session.NewMemoryStore(time.Hour),
		"redis":  rs,
	}
}

func activities(t *testing.T, raw string) []recommend.Activity {
	t.Helper()
	var out []recommend.Activity
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func okResult(t *testing.T) recommend.Result {
	t.Helper()
	var w recommend.Weather
	require.NoError(t, json.Unmarshal([]byte(`{"temperature":21,"description":"sunny"}`), &w))
	return recommend.Result{
		Kind:       recommend.KindOK,
		Activities: activities(t, `[{"name":"Hike","difficulty":"easy"}]`),
		Weather:    &w,
	}
}

func TestStore_UnknownSessionIsIdle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			st, err := s.Load(context.Background(), "nobody")
			require.NoError(t, err)
			assert.Equal(t, explorer.PhaseIdle, st.Normalize().Phase)
			assert.False(t, st.Loading)
			assert.Zero(t, st.Seq)
		})
	}
}

func TestStore_BeginThenSettle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			begun, err := s.Begin(ctx, "abc", "Zakopane")
			require.NoError(t, err)
			assert.True(t, begun.Loading)
			assert.Equal(t, uint64(1), begun.Seq)

			loaded, err := s.Load(ctx, "abc")
			require.NoError(t, err)
			assert.True(t, loaded.Loading)
			assert.Empty(t, loaded.Activities)
			assert.Nil(t, loaded.Weather)

			settled, applied, err := s.Settle(ctx, "abc", begun.Seq, okResult(t))
			require.NoError(t, err)
			assert.True(t, applied)
			assert.False(t, settled.Loading)

			loaded, err = s.Load(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, explorer.PhaseSettled, loaded.Phase)
			assert.Equal(t, recommend.KindOK, loaded.Outcome)
			assert.Equal(t, "Zakopane", loaded.Destination)
			require.Len(t, loaded.Activities, 1)
			assert.Equal(t, "Hike", loaded.Activities[0].Name)
			require.NotNil(t, loaded.Weather)
			assert.Equal(t, "sunny", loaded.Weather.Description)
		})
	}
}

func TestStore_StaleSettleDiscarded(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := s.Begin(ctx, "abc", "Rome")
			require.NoError(t, err)
			second, err := s.Begin(ctx, "abc", "Oslo")
			require.NoError(t, err)
			assert.Greater(t, second.Seq, first.Seq)

			st, applied, err := s.Settle(ctx, "abc", first.Seq, okResult(t))
			require.NoError(t, err)
			assert.False(t, applied)
			assert.True(t, st.Loading)
			assert.Equal(t, "Oslo", st.Destination)

			loaded, err := s.Load(ctx, "abc")
			require.NoError(t, err)
			assert.True(t, loaded.Loading)
			assert.Empty(t, loaded.Activities)
		})
	}
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Begin(ctx, "alice", "Rome")
			require.NoError(t, err)

			other, err := s.Load(ctx, "bob")
			require.NoError(t, err)
			assert.False(t, other.Loading)
			assert.Zero(t, other.Seq)
		})
	}
}

func TestStore_Ping(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Ping(context.Background()))
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := session.NewMemoryStore(20 * time.Millisecond)
	ctx := context.Background()

	_, err := s.Begin(ctx, "abc", "Rome")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	st, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Zero(t, st.Seq, "expired session should read back idle")
}

func TestRedisStore_TTL(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := s.Begin(ctx, "abc", "Rome")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	st, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Zero(t, st.Seq, "entry should be expired after TTL")
}

func TestRedisStore_CorruptState(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, mr.Set("search:abc", "{not json"))

	_, err := s.Load(context.Background(), "abc")
	require.Error(t, err)
}

func TestRedisStore_PingDown(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	require.Error(t, s.Ping(context.Background()))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := session.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := session.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
}

func TestConnect_OK(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := session.Connect(context.Background(), "redis://"+mr.Addr()+"/2")
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.Options().ContextTimeoutEnabled)
	assert.Equal(t, 2, client.Options().DB)
}

func TestConnect_UnreachableNamesAddress(t *testing.T) {
	_, err := session.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localhost:19999")
}
