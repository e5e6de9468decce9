package datasets

import "errors"

var (
	// ErrUnknownFile is returned when an index row names a filename that is
	// not present in the instance lookup.
	ErrUnknownFile = errors.New("unknown filename")

	// ErrShape is returned when a window slice does not fit the declared
	// output row shape.
	ErrShape = errors.New("shape mismatch")

	// ErrPrecondition is returned when instances violate the window-index
	// invariants (row counts, window sizes, bounds).
	ErrPrecondition = errors.New("precondition violated")

	// ErrNoInstances is returned by Stream when called with no instances.
	ErrNoInstances = errors.New("no instances provided")
)
