package filter

import "errors"

var (
	// ErrUnknownPredicateKind is returned when a kind identifier is not registered,
	// typically from stale persisted data.
	ErrUnknownPredicateKind = errors.New("unknown predicate kind")

	// ErrReferenceResolution marks a portable reference that does not exist in
	// the context it is being bound to. The field is reset to no selection.
	ErrReferenceResolution = errors.New("reference resolution failed")

	// ErrEmptySourceContext is reported when a contextual evaluation has no context.
	ErrEmptySourceContext = errors.New("no context for evaluation")

	// ErrDuplicateKind is returned by Register for an identifier already in use.
	ErrDuplicateKind = errors.New("predicate kind already registered")
)
