package labels

import "errors"

// Sentinel kinds for label resolution errors.
var (
	// ErrUnresolvedLabel means a raw token has no mapping into the canonical
	// space. Callers drop the affected challenge for all miners rather than
	// coercing the label to a default class.
	ErrUnresolvedLabel = errors.New("unresolved label")
)
