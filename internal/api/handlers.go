package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const maxExploreBody = 16 << 10

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	searches SearchController
	log      *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(searches SearchController, log *slog.Logger) *Handlers {
	return &Handlers{searches: searches, log: log}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type exploreRequest struct {
	Destination string `json:"destination"`
}

// Explore handles POST /api/explore.
// Starts a search for the caller's session and answers 202 with the loading state.
func (h *Handlers) Explore(w http.ResponseWriter, r *http.Request) {
	destination, err := readDestination(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	session := SessionFrom(r.Context())
	st, err := h.searches.Start(r.Context(), session, destination)
	if err != nil {
		h.log.Error("starting search failed", "session", session, "destination", destination, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start search"})
		return
	}

	writeJSON(w, http.StatusAccepted, st)
}

// State handles GET /api/state.
// Returns the caller's current search state; idle if it never searched.
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	session := SessionFrom(r.Context())
	st, err := h.searches.Snapshot(r.Context(), session)
	if err != nil {
		h.log.Error("loading search state failed", "session", session, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load search state"})
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// readDestination takes the destination from a JSON body, or from form or
// query values for plain HTML forms. Any string, empty included, is accepted.
func readDestination(w http.ResponseWriter, r *http.Request) (string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var req exploreRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxExploreBody)).Decode(&req); err != nil {
			return "", errors.New("request body must be a JSON object with a destination")
		}
		return req.Destination, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxExploreBody)
	if err := r.ParseForm(); err != nil {
		return "", errors.New("malformed form body")
	}
	return r.FormValue("destination"), nil
}

// healthTimeout bounds the whole health check. Dependencies are pinged in
// parallel, so a slow backend does not eat the store's share.
const healthTimeout = 3 * time.Second

// HealthHandlerFunc returns an http.HandlerFunc reporting on the session
// store and the recommendation backend. Any failed dependency makes the
// answer 503 "degraded" with that dependency marked "error".
func HealthHandlerFunc(store, backend Pinger, log *slog.Logger) http.HandlerFunc {
	deps := map[string]Pinger{"store": store, "backend": backend}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			g      errgroup.Group
			report = map[string]string{"status": "ok"}
		)
		for name, dep := range deps {
			g.Go(func() error {
				result := "ok"
				if err := dep.Ping(ctx); err != nil {
					log.Error("health check failed", "dependency", name, "err", err)
					result = "error"
				}
				mu.Lock()
				report[name] = result
				if result != "ok" {
					report["status"] = "degraded"
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		if report["status"] != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}
