package domain

import "errors"

// Error taxonomy shared by the store, workflow and HTTP layers. Handlers map
// these onto 404, 400 and 409 responses respectively.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)
