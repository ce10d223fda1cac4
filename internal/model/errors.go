package model

import "errors"

var (
	// ErrInvalidArgument is returned for requests that can never succeed,
	// such as a non-positive interval or an empty time range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDecodeFailure is returned when the packet source fails mid-stream.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrNotFound is returned when a capture is not known to a store.
	ErrNotFound = errors.New("not found")
)
