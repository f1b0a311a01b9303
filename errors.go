package trystero

import "errors"

// Join-time errors. Both are fatal and returned synchronously from Join.
var (
	// ErrEmptyTrackers is returned when a Config has no usable tracker URLs
	// after trimming to TrackerRedundancy (or the default of 2).
	ErrEmptyTrackers = errors.New("trystero: no tracker urls configured")
	// ErrAlreadyJoined is returned when Join is called twice for the same
	// namespace in this process without an intervening Leave.
	ErrAlreadyJoined = errors.New("trystero: namespace already joined")
)

// Non-fatal conditions. These are logged and the offending frame or offer is
// dropped; they never terminate the announce loop or the join. Verification
// failures surface as sdpcrypto.ErrBadEnvelope / sdpcrypto.ErrUnverified
// rather than being duplicated here.
var (
	// ErrBadFrame means a tracker sent a frame that was not valid JSON.
	ErrBadFrame = errors.New("trystero: malformed tracker frame")
	// ErrTrackerFailure means a tracker replied with a "failure reason".
	ErrTrackerFailure = errors.New("trystero: tracker reported failure")
)
