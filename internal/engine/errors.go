package engine

import "errors"

var (
	// ErrMalformedEvent is fatal for the event: nothing is written.
	ErrMalformedEvent = errors.New("malformed event")

	// Drop reasons. Dropped events are not errors for the caller.
	ErrUnmappedContract = errors.New("contract not in registry")
	ErrUnsupportedEvent = errors.New("event type not supported for asset kind")

	// errNoop aborts the unit of work without writing anything.
	errNoop      = errors.New("no-op event")
	errDuplicate = errors.New("event already processed")
)
