package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/internal/ports"
)

// DefaultSubmitPollInterval is how often Submit re-checks local counts while
// waiting for the processor to finish draining.
const DefaultSubmitPollInterval = 500 * time.Millisecond

// Session is the bulk session lifecycle: enable accumulation, submit
// (drain-then-commit), cancel (drain-then-discard), and startup recovery
// against the server-held staged count.
type Session struct {
	pipe         *Pipeline
	processor    *Processor
	staging      ports.StagingService
	identity     domain.Identity
	authloss     *AuthLossHandler
	emitter      EventEmitter
	logger       ports.Logger
	pollInterval time.Duration
}

// NewSession creates the session lifecycle over a shared pipeline.
// A non-positive pollInterval falls back to DefaultSubmitPollInterval.
func NewSession(
	pipe *Pipeline,
	processor *Processor,
	staging ports.StagingService,
	identity domain.Identity,
	authloss *AuthLossHandler,
	emitter EventEmitter,
	logger ports.Logger,
	pollInterval time.Duration,
) *Session {
	if pollInterval <= 0 {
		pollInterval = DefaultSubmitPollInterval
	}
	return &Session{
		pipe:         pipe,
		processor:    processor,
		staging:      staging,
		identity:     identity,
		authloss:     authloss,
		emitter:      emitter,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// EnableAccumulation verifies the bulk capability and turns accumulation on.
// Three outcomes: capability confirmed (enabled), capability missing
// (ErrCapabilityMissing, left disabled), or the check itself failed
// (connectivity error, left disabled).
func (s *Session) EnableAccumulation(ctx context.Context) error {
	capab, err := s.staging.CheckCapability(ctx, s.identity)
	if err != nil {
		if s.authloss.Handle(ctx, err) {
			return err
		}
		return fmt.Errorf("bulk capability check: %w", err)
	}
	if !capab.Granted {
		if capab.DeniedReason != "" {
			return fmt.Errorf("%w: %s", domain.ErrCapabilityMissing, capab.DeniedReason)
		}
		return domain.ErrCapabilityMissing
	}

	s.pipe.setCapability(true)
	s.pipe.setAccumulating(true)
	s.logger.Info("bulk accumulation enabled")
	return nil
}

// Submit drains all local work, then issues a single commit call and resets
// the pipeline. While local counts are non-zero it polls at a fixed interval,
// re-kicking the processor whenever it has gone idle with work still queued,
// and reports progress on each tick. With nothing outstanding locally the
// commit is issued immediately.
func (s *Session) Submit(ctx context.Context) (int, error) {
	if !s.pipe.Accumulating() {
		return 0, domain.ErrNotAccumulating
	}
	if s.pipe.LocalOutstanding() > 0 {
		if err := s.awaitDrain(ctx); err != nil {
			return 0, err
		}
	}

	count, err := s.staging.Commit(ctx, s.identity)
	if err != nil {
		if s.authloss.Handle(ctx, err) {
			return 0, err
		}
		return 0, fmt.Errorf("commit bulk session: %w", err)
	}

	s.pipe.resetAll()
	s.logger.Info("bulk session committed", ports.Int("count", count))
	return count, nil
}

// awaitDrain polls until merge queue, upload queue, and in-flight all reach
// zero. The poll stops exactly when pending reaches zero.
func (s *Session) awaitDrain(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		outstanding := s.pipe.LocalOutstanding()
		if outstanding == 0 {
			return nil
		}
		if !s.pipe.Capability() {
			// The drain halted on a revoked credential; polling would spin
			// against it forever.
			return domain.ErrAuthorizationRevoked
		}
		if s.pipe.ProcessorState() == ProcessorIdle {
			s.processor.Run(ctx)
		}

		status := fmt.Sprintf("uploading, %d item(s) remaining", outstanding)
		if s.emitter != nil {
			s.emitter.OnSubmitProgress(outstanding, status)
		}
		s.logger.Info("submit waiting for drain", ports.Int("outstanding", outstanding))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cancel discards the whole session: local queues and the in-flight count
// are cleared immediately, then the server-staged items are discarded with a
// server cancel call. When that call fails the server still holds its items,
// so the staged count stays visible and the session stays active for a retry;
// only a confirmed cancel resets everything.
func (s *Session) Cancel(ctx context.Context) error {
	s.pipe.clearLocal()

	err := s.staging.Cancel(ctx, s.identity)
	if err != nil {
		if !s.authloss.Handle(ctx, err) {
			s.logger.Error("server cancel failed", ports.Err(err))
		}
		return err
	}

	s.pipe.resetAll()
	s.logger.Info("bulk session canceled")
	return nil
}

// Recover reconciles against server-held state after identity is
// established. A non-zero staged count restores ServerStagedCount, turns
// accumulation on, and prompts the user to submit or leave the batch
// pending. Local queues are never reconstructed: the image bytes did not
// survive the previous process, only the server count did.
func (s *Session) Recover(ctx context.Context) (int, error) {
	count, err := s.staging.StagedCount(ctx, s.identity)
	if err != nil {
		if s.authloss.Handle(ctx, err) {
			return 0, err
		}
		return 0, fmt.Errorf("query staged count: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	s.pipe.setServerStaged(count)
	s.pipe.setCapability(true)
	s.pipe.setAccumulating(true)
	s.logger.Info("recovered staged bulk session", ports.Int("staged_count", count))
	if s.emitter != nil {
		s.emitter.OnRecoveredSession(count)
	}
	return count, nil
}
