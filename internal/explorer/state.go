package explorer

import (
	"context"

	"github.com/ZuzannaKurillova/trAIvel/internal/recommend"
)

// Phase is where a session sits in the search lifecycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSettled Phase = "settled"
)

// State is the read-only projection handed to the presentation layer.
// The zero value is the idle state of a session that never searched.
type State struct {
	Destination string               `json:"destination"`
	Activities  []recommend.Activity `json:"activities"`
	Weather     *recommend.Weather   `json:"weather"`
	Loading     bool                 `json:"loading"`
	Phase       Phase                `json:"phase"`
	Outcome     recommend.Kind       `json:"outcome,omitempty"`
	Message     string               `json:"message,omitempty"`
	Seq         uint64               `json:"seq"`
}

// Normalize fills the zero value's phase and keeps Activities non-nil so the
// projection always renders as a list.
func (s State) Normalize() State {
	if s.Phase == "" {
		s.Phase = PhaseIdle
	}
	if s.Activities == nil {
		s.Activities = []recommend.Activity{}
	}
	return s
}

// Begin starts a new search. Prior results are dropped in the same value
// that raises the loading flag, so no snapshot pairs old results with it.
func (s State) Begin(destination string) State {
	return State{
		Destination: destination,
		Activities:  []recommend.Activity{},
		Loading:     true,
		Phase:       PhaseLoading,
		Seq:         s.Seq + 1,
	}
}

// Settle applies res to the search numbered seq. It reports false and leaves
// the state untouched when a newer search has begun since.
func (s State) Settle(seq uint64, res recommend.Result) (State, bool) {
	if seq != s.Seq || s.Phase != PhaseLoading {
		return s, false
	}

	activities := res.Activities
	if activities == nil {
		activities = []recommend.Activity{}
	}

	return State{
		Destination: s.Destination,
		Activities:  activities,
		Weather:     res.Weather,
		Loading:     false,
		Phase:       PhaseSettled,
		Outcome:     res.Kind,
		Message:     res.Message,
		Seq:         s.Seq,
	}, true
}

// Store keeps one State per session and applies transitions atomically.
type Store interface {
	// Begin applies State.Begin and returns the new state.
	Begin(ctx context.Context, session, destination string) (State, error)
	// Settle applies State.Settle and returns the resulting state and
	// whether the result was applied.
	Settle(ctx context.Context, session string, seq uint64, res recommend.Result) (State, bool, error)
	// Load returns the current state, idle for unknown sessions.
	Load(ctx context.Context, session string) (State, error)
	Ping(ctx context.Context) error
}
