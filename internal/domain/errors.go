package domain

import "errors"

var (
	// ErrInsufficientData is returned when a history window holds no observations.
	ErrInsufficientData = errors.New("insufficient demand history")
	// ErrInvalidParameters is returned when a supplied parameter is outside its domain.
	ErrInvalidParameters = errors.New("invalid optimization parameters")
	// ErrNotFound is returned when no record exists for a product/location pair.
	ErrNotFound = errors.New("not found")
	// ErrPoolExhausted is returned when no history source connection could be acquired in time.
	ErrPoolExhausted = errors.New("connection pool exhausted")
)
