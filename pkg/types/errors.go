// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Route-level errors. A stage records these against the route and moves on.
var (
	// ErrMalformedInput marks an input that is not a readable document or
	// image, or an expected file that is missing.
	ErrMalformedInput = errors.New("malformed input")

	// ErrAnchor is the class of self-check anchor lookup failures.
	ErrAnchor = errors.New("self-check anchor")

	ErrMissingAnchor   = fmt.Errorf("%w: not found", ErrAnchor)
	ErrAmbiguousAnchor = fmt.Errorf("%w: ambiguous", ErrAnchor)
)

// Batch-level errors. A stage returns these and stops.
var (
	ErrConfiguration = errors.New("configuration error")

	ErrEmptyRouteSet  = fmt.Errorf("%w: no routes to partition", ErrConfiguration)
	ErrTooManyVolumes = fmt.Errorf("%w: more volumes than routes", ErrConfiguration)
	ErrInvalidPolicy  = fmt.Errorf("%w: invalid partition policy", ErrConfiguration)

	// ErrIO marks a failure to write stage output. It is never recovered
	// per route.
	ErrIO = errors.New("i/o failure")
)

// IOError wraps err so that errors.Is(err, ErrIO) holds.
func IOError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

// Malformed wraps err so that errors.Is(err, ErrMalformedInput) holds.
func Malformed(what string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrMalformedInput, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformedInput, what, err)
}
