package session

import "errors"

// Sentinel errors returned by the session layer. Callers match them with
// errors.Is and translate them into protocol error codes or HTTP statuses.
var (
	// ErrSessionLimitExceeded is returned by Registry.Create when admission
	// would push the active session count over the configured maximum.
	ErrSessionLimitExceeded = errors.New("session: limit exceeded")

	// ErrSessionNotFound is returned by Registry.Get for unknown ids.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrSessionClosing is returned by Session.ProcessChunk when audio
	// arrives after the session has started closing.
	ErrSessionClosing = errors.New("session: closing")
)
