package api

import (
	"context"

	"github.com/ZuzannaKurillova/trAIvel/internal/explorer"
)

// SearchController defines the explorer operations needed by handlers.
type SearchController interface {
	Start(ctx context.Context, session, destination string) (explorer.State, error)
	Snapshot(ctx context.Context, session string) (explorer.State, error)
}

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
