package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrNoUsableProvider = fmt.Errorf("no usable provider configured")
)

// ParseError reports a malformed keyword rule string.
// Index is the position of the rule inside its source list (-1 when unknown).
type ParseError struct {
	Rule   string
	Index  int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("rule %d %q: %s", e.Index, e.Rule, e.Reason)
	}
	return fmt.Sprintf("rule %q: %s", e.Rule, e.Reason)
}

// FailureKind classifies a provider call failure.
// Only transport failures are worth retrying.
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureAuth
	FailureProtocol
	FailureTimeout
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureAuth:
		return "auth"
	case FailureProtocol:
		return "protocol"
	case FailureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ProviderError wraps a failure from one moderation backend.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s failure: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Retryable() bool { return e.Kind == FailureTransport }

func NewProviderError(provider string, kind FailureKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// AsProviderError unwraps err down to a ProviderError when there is one.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := stderrors.As(err, &pe)
	return pe, ok
}
