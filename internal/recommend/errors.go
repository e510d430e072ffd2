package recommend

import "errors"

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrBackend   = errors.New("backend reported an error")
	ErrDecode    = errors.New("recommendation payload could not be decoded")
	ErrTransport = errors.New("recommendation request failed")
)

// BackendError means the backend answered but flagged a failure in its payload.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string { return "backend error: " + e.Message }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// DecodeError means the payload or its embedded recommendation was not the expected JSON.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string { return "decode error: " + e.Message }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// TransportError covers network failures and non-2xx responses.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string { return "transport error: " + e.Message }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
