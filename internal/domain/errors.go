package domain

import "errors"

// Domain errors represent the pipeline's failure taxonomy.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAuthorizationRevoked is returned when the backend reports that the
	// account capability required for bulk delivery has been withdrawn.
	ErrAuthorizationRevoked = errors.New("cardpile: authorization revoked")

	// ErrCapabilityMissing is returned when bulk delivery is rejected because
	// the account has never been linked. A policy rejection, not a failure.
	ErrCapabilityMissing = errors.New("cardpile: account link required for bulk mode")

	// ErrMalformedResponse is returned when the server replied with a success
	// status but an unparsable body.
	ErrMalformedResponse = errors.New("cardpile: malformed server response")

	// ErrConfirmRequired is returned when a mode switch would destroy a
	// pending front half and the caller has not confirmed.
	ErrConfirmRequired = errors.New("cardpile: confirmation required, pending front side would be discarded")

	// ErrNotAccumulating is returned when a bulk session operation is invoked
	// while accumulation is off.
	ErrNotAccumulating = errors.New("cardpile: bulk accumulation is not active")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("cardpile: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("cardpile: not running")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("cardpile: invalid configuration")
)
