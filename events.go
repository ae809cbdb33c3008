package cardpile

import "github.com/cardpile/cardpile/internal/app"

// SubmitProgressEvent is emitted on each submit poll tick.
type SubmitProgressEvent struct {
	// Outstanding is the number of local items still draining.
	Outstanding int

	// Status is a short, user-presentable progress string.
	Status string
}

// SessionRecoveredEvent is emitted when startup recovery finds staged items
// on the server. The user should be prompted to submit now or leave the
// batch pending for a later capture session.
type SessionRecoveredEvent struct {
	// StagedCount is the server-confirmed staged count that was restored.
	StagedCount int
}

// RelinkEvent delivers the external re-link URL after the user confirmed
// re-authorization.
type RelinkEvent struct {
	AuthURL string
}

// ItemDroppedEvent is emitted when a merge failure or a non-authorization
// upload failure discards an item. The pipeline never retries these.
type ItemDroppedEvent struct {
	// Stage is "merge" or "upload".
	Stage string

	Err error
}

// EventHandler receives agent events. All methods are called synchronously
// from pipeline goroutines and must not block.
type EventHandler interface {
	// OnPendingChanged delivers a fresh pending snapshot after every
	// state-changing event.
	OnPendingChanged(snap Snapshot)

	// OnSubmitProgress reports submit drain progress.
	OnSubmitProgress(event SubmitProgressEvent)

	// OnSessionRecovered reports a recovered staged session.
	OnSessionRecovered(event SessionRecoveredEvent)

	// OnReauthRequired surfaces the re-authorization modal. Return true if
	// the user confirmed re-linking.
	OnReauthRequired() bool

	// OnRelinkFlow delivers the external re-link URL.
	OnRelinkFlow(event RelinkEvent)

	// OnItemDropped reports a silently dropped item.
	OnItemDropped(event ItemDroppedEvent)
}

// emitterWrapper adapts EventHandler to the internal emitter interface,
// tolerating a nil handler.
type emitterWrapper struct {
	handler EventHandler
}

var _ app.EventEmitter = (*emitterWrapper)(nil)

func (e *emitterWrapper) pendingChanged(snap app.Snapshot) {
	e.OnPendingChanged(snap)
}

func (e *emitterWrapper) OnPendingChanged(snap app.Snapshot) {
	if e.handler == nil {
		return
	}
	e.handler.OnPendingChanged(snap)
}

func (e *emitterWrapper) OnSubmitProgress(outstanding int, status string) {
	if e.handler == nil {
		return
	}
	e.handler.OnSubmitProgress(SubmitProgressEvent{Outstanding: outstanding, Status: status})
}

func (e *emitterWrapper) OnRecoveredSession(stagedCount int) {
	if e.handler == nil {
		return
	}
	e.handler.OnSessionRecovered(SessionRecoveredEvent{StagedCount: stagedCount})
}

func (e *emitterWrapper) OnReauthRequired() bool {
	if e.handler == nil {
		return false
	}
	return e.handler.OnReauthRequired()
}

func (e *emitterWrapper) OnRelinkFlow(authURL string) {
	if e.handler == nil {
		return
	}
	e.handler.OnRelinkFlow(RelinkEvent{AuthURL: authURL})
}

func (e *emitterWrapper) OnItemDropped(stage string, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnItemDropped(ItemDroppedEvent{Stage: stage, Err: err})
}
