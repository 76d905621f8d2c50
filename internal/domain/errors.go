package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error types for consistent error handling across the entry service.

var (
	// ErrSubmitInFlight is returned when a session is asked to change while a submit is running.
	ErrSubmitInFlight = errors.New("submission already in progress")

	// ErrSessionClosed is returned by operations on a closed wizard session.
	ErrSessionClosed = errors.New("wizard session is closed")

	// ErrNoPendingConfirmation is returned when resolving with an empty confirmation queue.
	ErrNoPendingConfirmation = errors.New("no pending confirmation")

	// ErrBrokerClosed is returned when the confirmation broker has been shut down.
	ErrBrokerClosed = errors.New("confirmation broker closed")
)

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a single rejected input (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidDraft carries every failing field of a draft checked at submit time.
// It is rendered inline next to the fields, never as a toast.
type ErrInvalidDraft struct {
	Fields map[Field]string
}

func (e *ErrInvalidDraft) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid draft: %s", strings.Join(names, ", "))
}

// ErrStaleReference indicates a previously valid selection no longer resolves.
// The user did nothing wrong, so it is surfaced as a toast.
type ErrStaleReference struct {
	Resource string
	ID       int64
}

func (e *ErrStaleReference) Error() string {
	return fmt.Sprintf("%s %d is no longer available", e.Resource, e.ID)
}

// ErrPersistence indicates the ledger rejected or failed a create/update/delete.
// Message holds the server-provided text when there is one.
type ErrPersistence struct {
	Operation string
	Message   string
	Err       error
}

func (e *ErrPersistence) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrConflict indicates the request conflicts with current state.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnauthorized indicates an invalid or missing token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
