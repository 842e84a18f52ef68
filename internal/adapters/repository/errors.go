package repository

import "errors"

// Sentinel kinds for dataset store errors.
var (
	ErrNotFound      = errors.New("challenge not found")
	ErrDuplicate     = errors.New("duplicate challenge id")
	ErrInvalidRecord = errors.New("structurally invalid record")
)
