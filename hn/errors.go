package hn

import "errors"

// Fetch failures are classified so callers can decide what to do with each
// one: NotFound items are gone for good, Timeouts may be worth retrying,
// Transport failures mean the API never answered, and Malformed means it
// answered with something undecodable.
var (
	ErrNotFound  = errors.New("hn: item not found")
	ErrTimeout   = errors.New("hn: request timed out")
	ErrTransport = errors.New("hn: transport failure")
	ErrMalformed = errors.New("hn: malformed response")
)
