// Package domain holds cross-cutting domain errors and shared value types.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnknownFilter signals a selection referencing a filter id absent from the active registry.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrUnsupportedOperator signals a query clause built with an operator outside the fixed set.
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrInsufficientCredits signals a denied paid operation.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrLedgerConsistency signals a failed balance/ledger transaction that was rolled back.
	ErrLedgerConsistency = errors.New("credit ledger transaction failed")
	// ErrCacheMiss signals a cache key with no live entry.
	ErrCacheMiss = errors.New("cache miss")
)

// UnknownFilterError wraps ErrUnknownFilter with the offending filter id.
type UnknownFilterError struct {
	FilterID string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q", e.FilterID)
}

func (e *UnknownFilterError) Unwrap() error { return ErrUnknownFilter }

// UnsupportedOperatorError wraps ErrUnsupportedOperator with the operator.
// This is a programming error, never surfaced to end users.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported clause operator %q", e.Operator)
}

func (e *UnsupportedOperatorError) Unwrap() error { return ErrUnsupportedOperator }

// InsufficientCreditsError is the structured denial for a paid operation.
type InsufficientCreditsError struct {
	Balance  int64
	Required int64
}

// Shortfall returns how many credits are missing.
func (e *InsufficientCreditsError) Shortfall() int64 { return e.Required - e.Balance }

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance %d, required %d, shortfall %d",
		e.Balance, e.Required, e.Shortfall())
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// ParseError signals malformed DSL or free-text grammar input.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Msg)
}

// ValidationError aggregates every violation found in a request.
// It is never raised for a partial subset: callers collect all field
// messages first and report them together.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an empty aggregate.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a violation message for a field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// HasErrors reports whether any violation was recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Fields[k], ", "))
	}
	return b.String()
}
