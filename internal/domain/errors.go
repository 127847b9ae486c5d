package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure that aborts a sync run wraps exactly one of
// these so callers can branch with errors.Is.
var (
	// ErrConfig indicates missing or invalid configuration. Not retried.
	ErrConfig = errors.New("config error")
	// ErrPersistence indicates a token store read or write failure.
	ErrPersistence = errors.New("persistence error")
	// ErrUpstream indicates a non-success response from a provider.
	ErrUpstream = errors.New("upstream error")
	// ErrProtocol indicates a provider response missing expected fields.
	ErrProtocol = errors.New("protocol error")
	// ErrData indicates source data the normalizer does not understand.
	ErrData = errors.New("data error")
	// ErrNotFound is returned by a BlobStore when the key does not exist.
	ErrNotFound = errors.New("not found")
)

// UpstreamError describes a non-success provider response.
type UpstreamError struct {
	Provider string
	Op       string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Provider, e.Op, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.Status, e.Body)
}

// Unwrap makes errors.Is(err, ErrUpstream) hold.
func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// KindOf returns a short label for the error kind, or "internal" when err
// carries none of the known kinds.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrData):
		return "data"
	default:
		return "internal"
	}
}
