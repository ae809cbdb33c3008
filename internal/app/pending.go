package app

import "strconv"

// Snapshot is the pending counter: a pure projection over pipeline state,
// recomputed after every state-changing event. UI layers render it directly.
type Snapshot struct {
	// ServerStaged is the last server-confirmed staged count.
	ServerStaged int

	// MergeQueued is the number of front/back pairs awaiting merge.
	MergeQueued int

	// UploadQueued is the number of items awaiting upload.
	UploadQueued int

	// InFlight is the number of items currently being transmitted.
	InFlight int

	// HalfPair reports a captured front side still waiting for its back.
	HalfPair bool

	// Accumulating reports whether bulk accumulation is active.
	Accumulating bool

	// Draining reports whether the background processor is active.
	Draining bool
}

// Total is the derived pending-work count:
// server-staged + merge queue + upload queue + in-flight.
func (s Snapshot) Total() int {
	return s.ServerStaged + s.MergeQueued + s.UploadQueued + s.InFlight
}

// LocalOutstanding is the not-yet-staged portion of Total.
func (s Snapshot) LocalOutstanding() int {
	return s.MergeQueued + s.UploadQueued + s.InFlight
}

// Display formats the counter for presentation. An outstanding half-pair
// appends ".5" ("0.5" when nothing else is pending) to signal one side
// captured and waiting for the other. At most one half is ever pending.
func (s Snapshot) Display() string {
	total := s.Total()
	if s.HalfPair {
		return strconv.Itoa(total) + ".5"
	}
	return strconv.Itoa(total)
}

// ToggleAction is the affordance of the accumulation toggle control.
type ToggleAction int

const (
	// ToggleStart offers to begin bulk accumulation.
	ToggleStart ToggleAction = iota

	// ToggleSubmit offers to submit the pending batch.
	ToggleSubmit
)

// String returns a human-readable representation of the action.
func (a ToggleAction) String() string {
	if a == ToggleSubmit {
		return "Submit"
	}
	return "Start"
}

// Toggle returns the accumulation toggle's current affordance: it switches
// from "start accumulating" to "submit" once any work is pending.
func (s Snapshot) Toggle() ToggleAction {
	if s.Total() > 0 {
		return ToggleSubmit
	}
	return ToggleStart
}

// ToggleEnabled reports whether the toggle control is usable.
// Disabled while a half-pair is outstanding.
func (s Snapshot) ToggleEnabled() bool {
	return !s.HalfPair
}

// CancelAction is the affordance of the cancel/retake control.
type CancelAction int

const (
	// CancelHidden hides the control: nothing to discard.
	CancelHidden CancelAction = iota

	// CancelRetake offers to discard only the pending front half.
	CancelRetake

	// CancelDiscard offers to discard the whole session.
	CancelDiscard
)

// String returns a human-readable representation of the action.
func (a CancelAction) String() string {
	switch a {
	case CancelRetake:
		return "Retake"
	case CancelDiscard:
		return "Discard"
	default:
		return "Hidden"
	}
}

// Cancel returns the cancel/retake control's current affordance: "retake"
// while a half-pair is outstanding, "discard session" while work is pending,
// hidden otherwise.
func (s Snapshot) Cancel() CancelAction {
	switch {
	case s.HalfPair:
		return CancelRetake
	case s.Total() > 0:
		return CancelDiscard
	default:
		return CancelHidden
	}
}
