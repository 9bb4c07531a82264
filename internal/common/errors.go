// Package common defines shared constants and sentinel errors used across
// the client, the relay and the store adapters. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrRemoteWrite marks a create/replace/delete rejected by the remote
	// store. The local optimistic state is kept and the write is not retried.
	ErrRemoteWrite = errors.New("remote write failed")

	// ErrReferenceNotFound is returned when an operation targets an id that is
	// absent from the current mirror snapshot. Nothing is mutated.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrValidation is returned for input rejected before it reaches the store.
	ErrValidation = errors.New("validation failed")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized")
)
