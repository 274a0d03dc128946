package types

import "errors"

// Domain specific errors shared across repositories and services.
var (
	ErrNotFound   = errors.New("requested item not found")
	ErrConflict   = errors.New("item already exists or conflict")
	ErrBadRequest = errors.New("bad request")
	ErrValidation = errors.New("validation failed")
	ErrGeneration = errors.New("trip generation failed")
)
