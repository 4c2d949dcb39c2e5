// internal/types/errors.go
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced directly as structured API failures.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// UpstreamKind classifies failures of external collaborators reached
// through the model router.
type UpstreamKind string

const (
	UpstreamTimeout     UpstreamKind = "timeout"
	UpstreamRateLimited UpstreamKind = "rate_limited"
	UpstreamNetwork     UpstreamKind = "network"
	UpstreamBadResponse UpstreamKind = "bad_response"
)

// UpstreamError wraps a failure from a provider, corpus, or web-fetch
// collaborator. The orchestrator converts these into error-flagged
// assistant messages rather than HTTP-level failures.
type UpstreamError struct {
	Kind UpstreamKind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed store write. Op names the operation
// that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
