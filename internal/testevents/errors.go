package testevents

import "errors"

var (
	// ErrUnknownScenario indicates that no scripted tour has the requested name.
	ErrUnknownScenario = errors.New("unknown scenario")

	// ErrUnhealthy indicates that the service did not answer its health check.
	ErrUnhealthy = errors.New("service unhealthy")

	// ErrDirtyInstallation indicates that the target installation already has
	// events, so scripted expectations cannot hold.
	ErrDirtyInstallation = errors.New("installation already has events")

	// ErrUnexpectedUnlock indicates that a step reported a different unlock than scripted.
	ErrUnexpectedUnlock = errors.New("unexpected unlock")

	// ErrVerification indicates that the final state disagrees with the played tour.
	ErrVerification = errors.New("verification failed")
)
