package polyglot

import "errors"

// Sentinel errors for polyglot orchestration. Format-level failures carry
// the sentinels of their format packages; these cover the seams between
// formats.
var (
	// ErrPayloadNotFound is returned when no embedded payload signature
	// can be located past the outer format's header.
	ErrPayloadNotFound = errors.New("polyglot: embedded payload not found")

	// ErrUnknownStrategy is returned for a strategy name Create does not
	// implement.
	ErrUnknownStrategy = errors.New("polyglot: unknown strategy")

	// ErrUnknownFormat is returned when a buffer starts with no known
	// format signature.
	ErrUnknownFormat = errors.New("polyglot: unrecognized format")
)
