package types

import "errors"

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrValidation     = errors.New("validation failed")
)
