// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// The tool server surfaces every failure as one of the typed kinds below.
// Callers see kind + short reason; raw response bodies and stack detail go
// to the stderr log only.

// ValidationError reports bad caller input. It is raised before any
// network call is made.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: parameter %q: %s", e.Param, e.Reason)
}

// AuthError reports a missing or rejected credential for a provider.
type AuthError struct {
	Provider string
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s: %s", e.Provider, e.Reason)
}

// NetworkError reports a transport failure, a non-2xx status, or a timeout.
type NetworkError struct {
	Source  string
	Status  int // 0 when no HTTP response was received
	Timeout bool
	Reason  string
}

func (e *NetworkError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("network: %s: request timed out", e.Source)
	case e.Status != 0:
		return fmt.Sprintf("network: %s: HTTP %d: %s", e.Source, e.Status, e.Reason)
	default:
		return fmt.Sprintf("network: %s: %s", e.Source, e.Reason)
	}
}

// ParseError reports a malformed response body from an external source.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s: %s", e.Source, e.Reason)
}

// ProviderError reports a semantically unusable result from an LLM
// provider: a content-safety refusal, a truncated completion, or an
// empty envelope.
type ProviderError struct {
	Provider string
	Reason   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider: %s: %s", e.Provider, e.Reason)
}

// NotFoundError reports that a format-valid identifier matched nothing
// at the source.
type NotFoundError struct {
	Source string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s: %s", e.Source, e.ID)
}

// UnknownOperationError reports an operation name with no registered
// handler. Names are case-sensitive, exact match.
type UnknownOperationError struct {
	Op string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %q", e.Op)
}

// HandlerError wraps an unexpected failure raised inside a handler so the
// dispatcher returns a structured failure instead of propagating raw.
type HandlerError struct {
	Op    string
	Cause error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Op, e.Cause)
}

func (e *HandlerError) Unwrap() error { return e.Cause }
