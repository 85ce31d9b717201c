package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNetworkUnavailable  ErrorKind = "network_unavailable"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindMalformedResponse   ErrorKind = "malformed_response"
)

const NetworkUnavailableMessage = "Network error. Please check your connection."

var (
	ErrNetworkUnavailable  = errors.New("network unavailable")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedResponse   = errors.New("malformed upstream response")
	ErrNotFound            = errors.New("not found")
	ErrUnauthenticated     = errors.New("authentication required")
)

// UpstreamError is the normalized failure of a single upstream call.
// errors.Is matches it against the sentinel for its Kind, and against
// ErrNotFound / ErrUnauthenticated for 404 / 401 responses.
type UpstreamError struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrNetworkUnavailable:
		return e.Kind == KindNetworkUnavailable
	case ErrUpstreamUnavailable:
		return e.Kind == KindUpstreamUnavailable
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	case ErrNotFound:
		return e.Status == 404
	case ErrUnauthenticated:
		return e.Status == 401
	default:
		return false
	}
}

// KindOf reports the upstream error kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Kind, true
	}
	return "", false
}
