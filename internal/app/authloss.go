package app

import (
	"context"
	"errors"

	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/internal/ports"
)

// AuthLossHandler is the single entry point for authorization-revoked
// detection. Every pipeline network call routes its error through Handle so
// that a revoked credential always produces the re-authorization prompt
// instead of a generic failure.
type AuthLossHandler struct {
	pipe     *Pipeline
	staging  ports.StagingService
	identity domain.Identity
	emitter  EventEmitter
	logger   ports.Logger
}

// NewAuthLossHandler creates the handler over a shared pipeline.
func NewAuthLossHandler(
	pipe *Pipeline,
	staging ports.StagingService,
	identity domain.Identity,
	emitter EventEmitter,
	logger ports.Logger,
) *AuthLossHandler {
	return &AuthLossHandler{
		pipe:     pipe,
		staging:  staging,
		identity: identity,
		emitter:  emitter,
		logger:   logger,
	}
}

// Handle classifies err. If it signals authorization-revoked it downgrades
// the tracked capability to missing, surfaces the re-authorization prompt,
// and on confirmation starts the external re-link flow. Returns true exactly
// when err was an authorization failure, so callers can short-circuit their
// own error handling.
func (h *AuthLossHandler) Handle(ctx context.Context, err error) bool {
	if err == nil || !errors.Is(err, domain.ErrAuthorizationRevoked) {
		return false
	}

	h.pipe.setCapability(false)
	h.logger.Warn("bulk authorization revoked, halting uploads")

	if h.emitter != nil && h.emitter.OnReauthRequired() {
		url, uerr := h.staging.RelinkURL(ctx, h.identity)
		if uerr != nil {
			h.logger.Error("failed to fetch re-link URL", ports.Err(uerr))
			return true
		}
		h.emitter.OnRelinkFlow(url)
	}
	return true
}
