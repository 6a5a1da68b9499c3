package repository

import "errors"

var (
	// ErrVideoNotFound is returned when the upstream answers with a
	// success transport status but an application-level error code.
	// Wrapping errors carry the upstream-supplied message when present.
	ErrVideoNotFound = errors.New("video not found")

	// ErrUpstreamMalformed is returned when an upstream body cannot be
	// decoded or is missing required fields. Never retryable.
	ErrUpstreamMalformed = errors.New("upstream response malformed")

	// ErrUpstreamUnavailable is returned on transport errors, timeouts and
	// non-2xx upstream statuses. Transport-level occurrences are eligible
	// for bounded retry on the stream-URL path.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
