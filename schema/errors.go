package schema

import "errors"

var (
	ErrNilArgument     = errors.New("required argument is nil")
	ErrDuplicateObject = errors.New("object already exists")
	ErrColumnNotFound  = errors.New("column not found")
	ErrNoColumns       = errors.New("constraint has no columns")
	ErrNotFound        = errors.New("object not found")
)
