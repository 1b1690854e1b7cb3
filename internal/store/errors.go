package store

import "errors"

var (
	// ErrProviderClosed is returned by providers used after Close.
	ErrProviderClosed = errors.New("feedback provider closed")

	// ErrNoRecordID is returned when a provider acknowledged a write without an id.
	ErrNoRecordID = errors.New("provider returned no record id")
)
