package models

import "errors"

// Custom errors
var (
	ErrInvalidRule   = errors.New("invalid trading rule")
	ErrInvalidConfig = errors.New("invalid simulation config")
)
