// Package service holds the subscription, broadcast and operator workflows.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Service errors. Handlers map these to status codes with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrStorage       = errors.New("storage failure")
	ErrEmailDelivery = errors.New("email delivery failed")
	ErrUsernameTaken = errors.New("username already exists")
)

// ValidationError lists every failed rule, keyed by input field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.Fields[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Has reports whether field failed at least one rule.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], reason)
}

// orNil returns e only if it carries at least one failure.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// DeliveryError reports a broadcast that stopped at a failed send.
type DeliveryError struct {
	// Sent counts recipients reached before the failure.
	Sent int
	// Remaining counts recipients that were never attempted, including the failed one.
	Remaining int
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("newsletter delivery stopped after %d sends (%d remaining): %v", e.Sent, e.Remaining, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrEmailDelivery, e.Err}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
