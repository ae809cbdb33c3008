package app

import (
	"context"

	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/internal/ports"
)

// Processor is the background queue processor: it drains the merge queue and
// the upload queue to completion under a single-flight guarantee.
//
// Priority is merge before upload. Merging shrinks two outstanding items into
// one, which keeps the pending count honest and avoids ever uploading a lone
// front or back half.
type Processor struct {
	pipe     *Pipeline
	merger   ports.ImageMerger
	staging  ports.StagingService
	identity domain.Identity
	authloss *AuthLossHandler
	emitter  EventEmitter
	logger   ports.Logger
}

// NewProcessor creates the background processor over a shared pipeline.
func NewProcessor(
	pipe *Pipeline,
	merger ports.ImageMerger,
	staging ports.StagingService,
	identity domain.Identity,
	authloss *AuthLossHandler,
	emitter EventEmitter,
	logger ports.Logger,
) *Processor {
	return &Processor{
		pipe:     pipe,
		merger:   merger,
		staging:  staging,
		identity: identity,
		authloss: authloss,
		emitter:  emitter,
		logger:   logger,
	}
}

// Run starts the drain loop in the background. Idempotent: if a drain is
// already active this is a no-op, so producers may call it after every
// enqueue without ever starting a second concurrent drain.
func (pr *Processor) Run(ctx context.Context) {
	if !pr.pipe.beginDrain() {
		return
	}
	go pr.drain(ctx)
}

// drain loops while either queue is non-empty, re-checking queue lengths on
// each iteration so work enqueued mid-drain is not missed. The single-flight
// guard is released on every exit path.
func (pr *Processor) drain(ctx context.Context) {
	defer pr.pipe.endDrain()

	for {
		if ctx.Err() != nil {
			return
		}

		// Priority 1: merge.
		if pair, ok := pr.pipe.popMergeInFlight(); ok {
			merged, err := pr.merger.Merge(ctx, pair.Front.Bytes, pair.Back.Bytes)
			if err != nil {
				// Source images are already consumed; the pair is
				// unrecoverable. Drop it and keep draining.
				pr.pipe.decInFlight()
				pr.logger.Error("merge failed, pair dropped", ports.Err(err))
				if pr.emitter != nil {
					pr.emitter.OnItemDropped("merge", err)
				}
				continue
			}
			// Enqueue before decrementing so the outstanding count
			// never dips between the two updates.
			pr.pipe.pushUpload(domain.CaptureItem{Bytes: merged, Seq: pair.Front.Seq})
			pr.pipe.decInFlight()
			continue
		}

		// Priority 2: upload.
		item, ok := pr.pipe.popUploadInFlight()
		if !ok {
			return
		}

		count, err := pr.staging.Stage(ctx, pr.identity, item.Bytes)

		if err != nil {
			if pr.authloss.Handle(ctx, err) {
				// Undo the pop and stop draining entirely; continuing
				// would burn the remaining items against a dead credential.
				pr.pipe.pushUploadFront(item)
				pr.pipe.decInFlight()
				return
			}
			pr.pipe.decInFlight()
			pr.logger.Error("upload failed, item dropped", ports.Err(err))
			if pr.emitter != nil {
				pr.emitter.OnItemDropped("upload", err)
			}
			continue
		}

		pr.pipe.setServerStaged(count)
		pr.pipe.decInFlight()
		pr.logger.Info("item staged", ports.Int("staged_count", count))
	}
}
