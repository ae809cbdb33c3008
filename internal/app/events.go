package app

// EventEmitter receives pipeline events. All methods are called synchronously
// from pipeline goroutines and must not block; none are called with the
// pipeline lock held.
type EventEmitter interface {
	// OnPendingChanged delivers a fresh pending-counter snapshot after every
	// state-changing event.
	OnPendingChanged(snap Snapshot)

	// OnSubmitProgress is called on each submit poll tick with the number of
	// items still outstanding and a short status string.
	OnSubmitProgress(outstanding int, status string)

	// OnRecoveredSession is called when startup recovery finds staged items
	// on the server. The user should be prompted to submit or leave pending.
	OnRecoveredSession(stagedCount int)

	// OnReauthRequired surfaces the re-authorization modal. The return value
	// reports whether the user confirmed re-linking.
	OnReauthRequired() bool

	// OnRelinkFlow delivers the external re-link URL after the user confirmed.
	OnRelinkFlow(authURL string)

	// OnItemDropped is called when a merge failure or a non-authorization
	// upload failure discards an item. The pipeline never retries these.
	OnItemDropped(stage string, err error)
}
