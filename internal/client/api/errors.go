package api

import "errors"

var (
	// ErrUnavailable marks transport failures that survived the retry
	// budget.
	ErrUnavailable = errors.New("server unavailable")

	// ErrBadResponse marks a 2xx reply whose body could not be decoded.
	ErrBadResponse = errors.New("malformed server response")
)
