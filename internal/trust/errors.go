package trust

import "errors"

var (
	// ErrNotFound is returned by a Registry when a key has no record. It is a
	// genuine miss and never signals an outage.
	ErrNotFound = errors.New("registry record not found")

	// ErrRegistryUnavailable wraps any registry failure other than a miss.
	ErrRegistryUnavailable = errors.New("registry unavailable")

	// ErrRegistryConflict reports a key present in both registries.
	ErrRegistryConflict = errors.New("url present in both verified and malicious registries")

	// ErrReputationUnavailable wraps reputation collaborator failures and timeouts.
	ErrReputationUnavailable = errors.New("reputation unavailable")

	// ErrBackendUnreachable is returned when neither the registry nor the
	// reputation collaborator could be reached and the fallback is disabled.
	ErrBackendUnreachable = errors.New("verification backend unreachable")
)
