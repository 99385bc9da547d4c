package model

import "errors"

// Sentinel error kinds shared by the generators. These allow errors.Is/As from callers.
var (
	// ErrInvalidArgument marks a caller supplied size, proportion or
	// probability that no generator can honor.
	ErrInvalidArgument = errors.New("invalid argument")
)
