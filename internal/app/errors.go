package service

import "errors"

// Sentinel error kinds for the generator service.
var (
	ErrUnknownPolicy = errors.New("unknown labeling policy")
)
