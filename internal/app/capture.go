package app

import (
	"context"
	"fmt"

	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/internal/ports"
)

// Capture is the capture state machine. It turns raw capture events into
// either a single finished item or a matched front/back pair, tracking the
// transient "waiting for back side" state in two-sided mode.
//
// Finished work is routed by accumulation state: while accumulating, pairs
// go to the merge queue and singles to the upload queue, and the background
// processor is kicked; otherwise the capture is processed immediately
// (synchronous merge, then the non-bulk scan call).
type Capture struct {
	pipe      *Pipeline
	processor *Processor
	staging   ports.StagingService
	merger    ports.ImageMerger
	identity  domain.Identity
	authloss  *AuthLossHandler
	logger    ports.Logger
}

// NewCapture creates the capture state machine over a shared pipeline.
func NewCapture(
	pipe *Pipeline,
	processor *Processor,
	staging ports.StagingService,
	merger ports.ImageMerger,
	identity domain.Identity,
	authloss *AuthLossHandler,
	logger ports.Logger,
) *Capture {
	return &Capture{
		pipe:      pipe,
		processor: processor,
		staging:   staging,
		merger:    merger,
		identity:  identity,
		authloss:  authloss,
		logger:    logger,
	}
}

// SetMode switches the capture mode. Switching away while a front half is
// pending destroys it, so that switch requires confirm=true; switching while
// idle is unconditional. The pending front is cleared on any mode change.
func (c *Capture) SetMode(mode domain.CaptureMode, confirm bool) error {
	if c.pipe.Mode() == mode {
		return nil
	}
	if c.pipe.Snapshot().HalfPair && !confirm {
		return domain.ErrConfirmRequired
	}
	c.pipe.setMode(mode)
	c.logger.Info("capture mode changed", ports.String("mode", mode.String()))
	return nil
}

// Retake discards the pending front half and returns to idle.
// No-op when no front half is pending.
func (c *Capture) Retake() {
	if _, ok := c.pipe.takePendingFront(); ok {
		c.logger.Info("pending front side discarded")
	}
}

// Event feeds one capture event into the state machine.
//
// The returned ScanResult is non-nil only on the immediate (non-queued)
// path. A nil result with nil error means the capture was queued for bulk
// delivery or stored as a pending front half.
func (c *Capture) Event(ctx context.Context, image []byte) (*domain.ScanResult, error) {
	item := c.pipe.nextItem(image)

	if c.pipe.Mode() == domain.SingleSided {
		return c.routeItem(ctx, item)
	}

	// Two-sided: first event stores the front, second completes the pair.
	// Pairing and storing share one critical section; capture events may
	// arrive from concurrent source goroutines.
	pair, ok := c.pipe.pairOrStorePending(item)
	if !ok {
		return nil, nil
	}
	return c.routePair(ctx, pair)
}

// routeItem delivers a finished single item.
func (c *Capture) routeItem(ctx context.Context, item domain.CaptureItem) (*domain.ScanResult, error) {
	if c.pipe.Accumulating() {
		c.pipe.pushUpload(item)
		c.processor.Run(ctx)
		return nil, nil
	}
	return c.scanNow(ctx, item.Bytes)
}

// routePair delivers a completed front/back pair. While accumulating the
// pair is merged later by the processor; otherwise it is merged here and
// handed straight to the immediate path.
func (c *Capture) routePair(ctx context.Context, pair domain.CapturePair) (*domain.ScanResult, error) {
	if c.pipe.Accumulating() {
		c.pipe.pushMerge(pair)
		c.processor.Run(ctx)
		return nil, nil
	}
	merged, err := c.merger.Merge(ctx, pair.Front.Bytes, pair.Back.Bytes)
	if err != nil {
		return nil, fmt.Errorf("merge pair: %w", err)
	}
	return c.scanNow(ctx, merged)
}

func (c *Capture) scanNow(ctx context.Context, image []byte) (*domain.ScanResult, error) {
	result, err := c.staging.ScanNow(ctx, c.identity, image)
	if err != nil {
		if c.authloss.Handle(ctx, err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	return &result, nil
}
