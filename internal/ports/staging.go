package ports

import (
	"context"

	"github.com/cardpile/cardpile/internal/domain"
)

// Capability is the outcome of a bulk-capability check.
type Capability struct {
	// Granted reports whether the account may use bulk delivery.
	Granted bool

	// DeniedReason carries the backend's notice when Granted is false
	// (e.g. the account was never linked).
	DeniedReason string
}

// StagingService is the scanner backend's bulk staging API.
// Implementations handle transport, serialization, and authentication;
// they map authorization-revoked responses to domain.ErrAuthorizationRevoked
// so the permission-loss handler can classify them.
type StagingService interface {
	// CheckCapability verifies that the account holds the external capability
	// required for bulk delivery. A connectivity failure is returned as an
	// error; a policy denial is reported in the Capability value.
	CheckCapability(ctx context.Context, id domain.Identity) (Capability, error)

	// Stage uploads one image into the current bulk session and returns the
	// server's authoritative staged count.
	Stage(ctx context.Context, id domain.Identity, image []byte) (int, error)

	// ScanNow processes one image immediately (non-bulk path) and returns
	// the scan result.
	ScanNow(ctx context.Context, id domain.Identity, image []byte) (domain.ScanResult, error)

	// Commit finalizes the server-side staged batch and returns the number
	// of items committed.
	Commit(ctx context.Context, id domain.Identity) (int, error)

	// Cancel discards all server-staged items in the current session.
	Cancel(ctx context.Context, id domain.Identity) error

	// StagedCount returns the number of items currently staged on the server.
	StagedCount(ctx context.Context, id domain.Identity) (int, error)

	// RelinkURL returns the URL that starts the external re-link flow.
	RelinkURL(ctx context.Context, id domain.Identity) (string, error)
}
