// Package explorer holds the search state machine behind the UI:
// Idle → Loading on explore, Loading → Settled when the latest call returns.
package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ZuzannaKurillova/trAIvel/internal/metrics"
	"github.com/ZuzannaKurillova/trAIvel/internal/recommend"
)

// A failed Settle leaves the session in Loading until its TTL runs out, so
// it is retried a few times before giving up.
const (
	settleAttempts = 3
	settleBackoff  = 50 * time.Millisecond
)

// Recommender is the interface satisfied by recommend.Client.
type Recommender interface {
	GetRecommendations(ctx context.Context, destination string) recommend.Result
}

// Controller drives searches for any number of sessions over a shared Store.
type Controller struct {
	recommender Recommender
	store       Store
	metrics     *metrics.Instruments
	log         *slog.Logger
	inflight    sync.WaitGroup
}

// NewController wires a Controller. A nil inst records nothing.
func NewController(r Recommender, store Store, inst *metrics.Instruments, log *slog.Logger) *Controller {
	if inst == nil {
		inst = metrics.Noop()
	}
	return &Controller{recommender: r, store: store, metrics: inst, log: log}
}

// Explore runs one search to settlement and returns the session's state
// afterwards. If a newer search began meanwhile, its state is returned and
// this search's result is dropped.
func (c *Controller) Explore(ctx context.Context, session, destination string) (State, error) {
	begun, err := c.store.Begin(ctx, session, destination)
	if err != nil {
		return State{}, fmt.Errorf("starting search for %q: %w", destination, err)
	}
	return c.settle(ctx, session, begun, time.Now())
}

// Start begins a search and settles it in the background. It returns the
// loading state as soon as it is stored. The background half is detached
// from ctx's cancellation so a closed request does not strand the session
// in Loading; the recommender's own timeout bounds it.
func (c *Controller) Start(ctx context.Context, session, destination string) (State, error) {
	begun, err := c.store.Begin(ctx, session, destination)
	if err != nil {
		return State{}, fmt.Errorf("starting search for %q: %w", destination, err)
	}

	started := time.Now()
	bg := context.WithoutCancel(ctx)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("search goroutine panicked", "session", session, "recover", r)
			}
		}()
		if _, err := c.settle(bg, session, begun, started); err != nil {
			c.log.Error("settling search failed", "session", session, "seq", begun.Seq, "err", err)
		}
	}()

	return begun.Normalize(), nil
}

// Snapshot returns the session's current state.
func (c *Controller) Snapshot(ctx context.Context, session string) (State, error) {
	st, err := c.store.Load(ctx, session)
	if err != nil {
		return State{}, fmt.Errorf("loading state: %w", err)
	}
	return st.Normalize(), nil
}

// Wait blocks until every search started with Start has settled.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) settle(ctx context.Context, session string, begun State, started time.Time) (State, error) {
	res := c.recommender.GetRecommendations(ctx, begun.Destination)

	st, applied, err := c.storeResult(ctx, session, begun.Seq, res)
	if err != nil {
		return State{}, fmt.Errorf("settling search %d: %w", begun.Seq, err)
	}

	if !applied {
		c.metrics.RecordStale(ctx)
		c.log.Debug("discarding stale result",
			"session", session,
			"seq", begun.Seq,
			"latest_seq", st.Seq,
			"destination", begun.Destination,
		)
		return st.Normalize(), nil
	}

	c.metrics.RecordSearch(ctx, string(res.Kind), time.Since(started))
	c.log.Info("search settled",
		"session", session,
		"seq", begun.Seq,
		"destination", begun.Destination,
		"outcome", res.Kind,
		"activities", len(res.Activities),
	)
	return st.Normalize(), nil
}

func (c *Controller) storeResult(ctx context.Context, session string, seq uint64, res recommend.Result) (State, bool, error) {
	for attempt := 1; ; attempt++ {
		st, applied, err := c.store.Settle(ctx, session, seq, res)
		if err == nil {
			return st, applied, nil
		}
		if attempt == settleAttempts {
			return State{}, false, fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		c.log.Warn("storing search result failed, retrying",
			"session", session,
			"seq", seq,
			"attempt", attempt,
			"err", err,
		)
		select {
		case <-ctx.Done():
			return State{}, false, ctx.Err()
		case <-time.After(time.Duration(attempt) * settleBackoff):
		}
	}
}
