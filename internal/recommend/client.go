package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	recommendPath  = "/api/recommend"
	healthPath     = "/api/health"
	maxBodyBytes   = 4 << 20
)

// Client calls the trAIvel recommendation backend.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The client is used
// as given and never modified; nil keeps the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout bounds each call to the backend, body included. Zero
// disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient constructs a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: defaultTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRecommendations asks the backend what to do in destination.
// It never fails: transport, backend and decode failures all come back as a
// Result of the matching Kind with no activities and no weather.
func (c *Client) GetRecommendations(ctx context.Context, destination string) Result {
	log := c.log.With("destination", destination)

	env, err := c.fetch(ctx, destination)
	if err != nil {
		return failed(log, err)
	}

	if truthy(env.Error) {
		msg := text(env.Error)
		raw := text(env.RawResponse)
		if !truthy(env.RawResponse) {
			raw = text(env.Recommendation)
		}
		log.Error("backend reported an error", "err", msg, "raw_response", raw)
		return Result{Kind: KindBackendError, Message: msg}
	}

	activities, err := decodeActivities(env.Recommendation)
	if err != nil {
		return failed(log, err)
	}

	return Result{
		Kind:       KindOK,
		Activities: activities,
		Weather:    decodeWeather(log, env.Weather),
	}
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", healthPath, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s returned status %d", healthPath, resp.StatusCode)
	}
	return nil
}

// fetch performs the GET and decodes the outer envelope.
func (c *Client) fetch(ctx context.Context, destination string) (*envelope, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	endpoint := c.baseURL + recommendPath + "?destination=" + url.QueryEscape(destination)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("creating request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("GET %s: %v", recommendPath, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("reading response body: %v", err)}
	}
	if len(body) > maxBodyBytes {
		return nil, &TransportError{Message: fmt.Sprintf("response too large: more than %d bytes", maxBodyBytes)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Message: fmt.Sprintf("GET %s returned status %d", recommendPath, resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &DecodeError{Message: fmt.Sprintf("response body is not a JSON object: %v", err)}
	}
	return &env, nil
}

// decodeActivities is the second decoding stage: the recommendation field is
// a JSON string whose contents are themselves a JSON array of activities.
func decodeActivities(field json.RawMessage) ([]Activity, error) {
	field = bytes.TrimSpace(field)
	if t := jsonType(field); t != "string" {
		return nil, &DecodeError{Message: fmt.Sprintf("recommendation must be a string, got %s", t)}
	}

	var inner string
	if err := json.Unmarshal(field, &inner); err != nil {
		return nil, &DecodeError{Message: fmt.Sprintf("recommendation string: %v", err)}
	}

	payload := bytes.TrimSpace([]byte(inner))
	if !json.Valid(payload) {
		return nil, &DecodeError{Message: "recommendation is not valid JSON"}
	}
	if t := jsonType(payload); t != "array" {
		return nil, &DecodeError{Message: fmt.Sprintf("expected an array of activities, got %s", t)}
	}

	activities := []Activity{}
	if err := json.Unmarshal(payload, &activities); err != nil {
		return nil, &DecodeError{Message: fmt.Sprintf("decoding activities: %v", err)}
	}
	return activities, nil
}

// decodeWeather passes the weather object through. Absent, null, non-object
// and error-carrying weather all yield nil.
func decodeWeather(log *slog.Logger, raw json.RawMessage) *Weather {
	raw = bytes.TrimSpace(raw)
	if t := jsonType(raw); t == "nothing" || t == "null" {
		return nil
	}

	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && truthy(probe.Error) {
		log.Warn("backend could not fetch weather", "err", text(probe.Error))
		return nil
	}

	var w Weather
	if err := json.Unmarshal(raw, &w); err != nil {
		log.Warn("dropping malformed weather", "err", err)
		return nil
	}
	return &w
}

// failed logs err and maps it onto an empty Result of the matching Kind.
func failed(log *slog.Logger, err error) Result {
	var (
		decodeErr    *DecodeError
		transportErr *TransportError
	)
	switch {
	case errors.As(err, &decodeErr):
		log.Error("decoding recommendations failed", "err", err)
		return Result{Kind: KindDecodeError, Message: decodeErr.Message}
	case errors.As(err, &transportErr):
		log.Error("fetching recommendations failed", "err", err)
		return Result{Kind: KindTransportError, Message: transportErr.Message}
	default:
		log.Error("recommendation call failed", "err", err)
		return Result{Kind: KindTransportError, Message: err.Error()}
	}
}

// bound applies the client's timeout to ctx.
func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
