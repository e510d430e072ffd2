package recommend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Activity is one recommended thing to do at a destination.
// Raw holds the element exactly as the backend sent it and is what gets
// marshaled back out, so fields this client does not know about survive.
type Activity struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

type activityFields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// UnmarshalJSON keeps any JSON value as Raw. A bare string becomes the
// name; for objects each known field is filled only when it is a string.
func (a *Activity) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return fmt.Errorf("activity is not valid JSON")
	}

	*a = Activity{Raw: append(json.RawMessage(nil), trimmed...)}

	switch jsonType(trimmed) {
	case "string":
		_ = json.Unmarshal(trimmed, &a.Name)
	case "object":
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return fmt.Errorf("decoding activity: %w", err)
		}
		a.Name = stringField(fields, "name")
		a.Description = stringField(fields, "description")
		a.ImageURL = stringField(fields, "image_url")
	}
	return nil
}

// stringField returns fields[name] when it holds a JSON string.
func stringField(fields map[string]json.RawMessage, name string) string {
	var s string
	if err := json.Unmarshal(fields[name], &s); err != nil {
		return ""
	}
	return s
}

// MarshalJSON re-emits the backend's original element when available.
func (a Activity) MarshalJSON() ([]byte, error) {
	if len(a.Raw) > 0 {
		return a.Raw, nil
	}
	return json.Marshal(activityFields{Name: a.Name, Description: a.Description, ImageURL: a.ImageURL})
}

// Weather is the backend's current-conditions snapshot for a destination.
// Its shape is owned by the backend; the known fields are filled when they
// decode cleanly and Raw is always passed through to the UI.
type Weather struct {
	Temperature *float64        `json:"temperature,omitempty"`
	Description string          `json:"description,omitempty"`
	Humidity    *float64        `json:"humidity,omitempty"`
	WindSpeed   *float64        `json:"wind_speed,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

type weatherFields struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Description string   `json:"description,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	WindSpeed   *float64 `json:"wind_speed,omitempty"`
}

// MarshalJSON re-emits the backend's original object when available.
func (w Weather) MarshalJSON() ([]byte, error) {
	if len(w.Raw) > 0 {
		return w.Raw, nil
	}
	return json.Marshal(weatherFields{
		Temperature: w.Temperature,
		Description: w.Description,
		Humidity:    w.Humidity,
		WindSpeed:   w.WindSpeed,
	})
}

// UnmarshalJSON keeps any JSON object. Known fields with unexpected types
// leave the typed view empty; Raw still carries them.
func (w *Weather) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if t := jsonType(trimmed); t != "object" {
		return fmt.Errorf("weather must be an object, got %s", t)
	}

	*w = Weather{Raw: append(json.RawMessage(nil), trimmed...)}

	var f weatherFields
	if err := json.Unmarshal(trimmed, &f); err == nil {
		w.Temperature = f.Temperature
		w.Description = f.Description
		w.Humidity = f.Humidity
		w.WindSpeed = f.WindSpeed
	}
	return nil
}

// Kind tags how a recommendation call ended.
type Kind string

const (
	KindOK             Kind = "ok"
	KindBackendError   Kind = "backend_error"
	KindDecodeError    Kind = "decode_error"
	KindTransportError Kind = "transport_error"
)

// Result is the outcome of one recommendation call. Only KindOK results
// carry activities or weather; every failure kind has both empty.
type Result struct {
	Kind       Kind
	Activities []Activity
	Weather    *Weather
	Message    string
}

// Empty reports whether the result has no activities to show.
func (r Result) Empty() bool {
	return len(r.Activities) == 0
}

// Err returns the typed error behind a failed result, or nil for KindOK.
func (r Result) Err() error {
	switch r.Kind {
	case KindBackendError:
		return &BackendError{Message: r.Message}
	case KindDecodeError:
		return &DecodeError{Message: r.Message}
	case KindTransportError:
		return &TransportError{Message: r.Message}
	default:
		return nil
	}
}

// envelope is the outer JSON object returned by /api/recommend. Only
// recommendation has a fixed type; the rest are read leniently.
type envelope struct {
	Recommendation json.RawMessage `json:"recommendation"`
	Weather        json.RawMessage `json:"weather"`
	Error          json.RawMessage `json:"error"`
	RawResponse    json.RawMessage `json:"raw_response"`
}

// truthy reports whether a JSON value counts as set: anything except
// absent, null, false, 0 and "".
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return false
	}
	if jsonType(raw) == "number" {
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil && f == 0 {
			return false
		}
	}
	return true
}

// text renders a JSON value for messages and logs: strings unquoted,
// everything else as compact JSON.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

// jsonType names the JSON type of an already-trimmed value by its first byte.
func jsonType(data []byte) string {
	if len(data) == 0 {
		return "nothing"
	}
	switch data[0] {
	case '[':
		return "array"
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
