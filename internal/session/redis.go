// Package session provides the stores that hold each browser session's
// search state between requests.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZuzannaKurillova/trAIvel/internal/explorer"
	"github.com/ZuzannaKurillova/trAIvel/internal/recommend"
)

const (
	maxTxAttempts  = 5
	connectTimeout = 5 * time.Second
)

// ErrContention is returned when a transition keeps losing optimistic
// transactions to concurrent writers.
var ErrContention = errors.New("session state changed concurrently")

// Connect opens the Redis client behind RedisStore. Commands honour the
// caller's context deadline, so a slow Redis cannot hold an HTTP request
// past its own timeout. The initial ping is bounded by connectTimeout.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.ContextTimeoutEnabled = true

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session store at %s unreachable: %w", opts.Addr, err)
	}

	return client, nil
}

// RedisStore keeps session state in Redis so several shell replicas can
// serve the same session. Each transition is a WATCH/MULTI/EXEC round.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore whose keys expire after ttl of inactivity.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// key returns the Redis key for the given session.
func key(session string) string {
	return "search:" + strings.TrimSpace(session)
}

// Begin starts a search for session.
func (s *RedisStore) Begin(ctx context.Context, session, destination string) (explorer.State, error) {
	var next explorer.State
	err := s.update(ctx, session, func(cur explorer.State) (explorer.State, bool) {
		next = cur.Begin(destination)
		return next, true
	})
	if err != nil {
		return explorer.State{}, fmt.Errorf("begin search for session %s: %w", session, err)
	}
	return next, nil
}

// Settle applies res if seq is still the session's latest search.
func (s *RedisStore) Settle(ctx context.Context, session string, seq uint64, res recommend.Result) (explorer.State, bool, error) {
	var (
		next    explorer.State
		applied bool
	)
	err := s.update(ctx, session, func(cur explorer.State) (explorer.State, bool) {
		next, applied = cur.Settle(seq, res)
		return next, applied
	})
	if err != nil {
		return explorer.State{}, false, fmt.Errorf("settle search %d for session %s: %w", seq, session, err)
	}
	return next, applied, nil
}

// Load returns the session's state; unknown or expired sessions are idle.
func (s *RedisStore) Load(ctx context.Context, session string) (explorer.State, error) {
	st, err := s.read(ctx, s.client, session)
	if err != nil {
		return explorer.State{}, fmt.Errorf("load session %s: %w", session, err)
	}
	return st, nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// update runs fn against the stored state inside an optimistic transaction,
// writing the result back when fn asks for it.
func (s *RedisStore) update(ctx context.Context, session string, fn func(explorer.State) (explorer.State, bool)) error {
	k := key(session)

	txf := func(tx *redis.Tx) error {
		cur, err := s.read(ctx, tx, session)
		if err != nil {
			return err
		}

		next, write := fn(cur)
		if !write {
			return nil
		}

		b, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshaling state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, b, s.ttl)
			return nil
		})
		return err
	}

	for range maxTxAttempts {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

// getter is the part of *redis.Client and *redis.Tx that read needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, c getter, session string) (explorer.State, error) {
	val, err := c.Get(ctx, key(session)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return explorer.State{}, nil
		}
		return explorer.State{}, fmt.Errorf("reading state: %w", err)
	}

	var st explorer.State
	if err := json.Unmarshal(val, &st); err != nil {
		return explorer.State{}, fmt.Errorf("unmarshaling state: %w", err)
	}
	return st, nil
}
