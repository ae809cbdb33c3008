package app

import (
	"sync"

	"github.com/cardpile/cardpile/internal/domain"
)

// ProcessorState is the single-flight guard for the background drain loop.
// Modeled as an explicit enum rather than a bare bool so the stop-on-
// authorization-failure transition is auditable.
type ProcessorState int

const (
	// ProcessorIdle means no drain loop is active.
	ProcessorIdle ProcessorState = iota

	// ProcessorDraining means exactly one drain loop is active.
	ProcessorDraining
)

// String returns a human-readable representation of the state.
func (s ProcessorState) String() string {
	switch s {
	case ProcessorIdle:
		return "Idle"
	case ProcessorDraining:
		return "Draining"
	default:
		return "Unknown"
	}
}

// Pipeline holds all mutable pipeline state: the two queues, the counters,
// the half-pair slot, and the mode/capability flags. A single mutex guards
// every mutation; the behavior components (Capture, Processor, Session)
// operate through the methods below and never touch fields directly.
//
// Every mutation stamps a versioned snapshot inside its critical section and
// delivers it to the change callback afterwards; stale snapshots are
// suppressed, so the last snapshot an observer receives always reflects the
// latest mutation.
type Pipeline struct {
	mu sync.Mutex

	mode         domain.CaptureMode
	pendingFront *domain.CaptureItem

	mergeQ  domain.PairQueue
	uploadQ domain.ItemQueue

	inFlight     int
	serverStaged int

	accumulating bool
	capability   bool
	procState    ProcessorState

	seq     uint64
	version uint64

	onChange func(Snapshot)

	emitMu  sync.Mutex
	emitted uint64
}

// NewPipeline creates an empty pipeline in single-sided mode.
func NewPipeline() *Pipeline {
	return &Pipeline{mode: domain.SingleSided}
}

// SetOnChange registers a callback invoked with a fresh snapshot after every
// state-changing operation. Must be set before the pipeline is shared across
// goroutines. The callback runs without the pipeline lock held.
func (p *Pipeline) SetOnChange(fn func(Snapshot)) {
	p.onChange = fn
}

// Snapshot returns the current derived pending-counter projection.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pipeline) snapshotLocked() Snapshot {
	return Snapshot{
		ServerStaged: p.serverStaged,
		MergeQueued:  p.mergeQ.Len(),
		UploadQueued: p.uploadQ.Len(),
		InFlight:     p.inFlight,
		HalfPair:     p.pendingFront != nil,
		Accumulating: p.accumulating,
		Draining:     p.procState == ProcessorDraining,
	}
}

// versioned pairs a snapshot with its position in the mutation order.
type versioned struct {
	snap Snapshot
	ver  uint64
}

// changedLocked stamps the state reached by the current mutation.
// The caller hands the result to emit after releasing the lock.
func (p *Pipeline) changedLocked() versioned {
	p.version++
	return versioned{snap: p.snapshotLocked(), ver: p.version}
}

// emit delivers a snapshot to the change callback. Snapshots overtaken by a
// newer mutation are dropped, so racing mutators can never leave a stale
// total as the last one delivered.
func (p *Pipeline) emit(v versioned) {
	if p.onChange == nil {
		return
	}
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	if v.ver <= p.emitted {
		return
	}
	p.emitted = v.ver
	p.onChange(v.snap)
}

// Mode returns the current capture mode.
func (p *Pipeline) Mode() domain.CaptureMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// setMode switches the capture mode and discards any pending front half.
func (p *Pipeline) setMode(mode domain.CaptureMode) {
	p.mu.Lock()
	p.mode = mode
	p.pendingFront = nil
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

// Accumulating reports whether bulk accumulation is active.
func (p *Pipeline) Accumulating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accumulating
}

// Capability reports the last known bulk-capability state.
func (p *Pipeline) Capability() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capability
}

// ProcessorState returns the drain loop's single-flight state.
func (p *Pipeline) ProcessorState() ProcessorState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.procState
}

// LocalOutstanding returns merge queue + upload queue + in-flight.
func (p *Pipeline) LocalOutstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mergeQ.Len() + p.uploadQ.Len() + p.inFlight
}

// nextItem wraps an image payload into a CaptureItem with the next sequence
// position.
func (p *Pipeline) nextItem(image []byte) domain.CaptureItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return domain.CaptureItem{Bytes: image, Seq: p.seq}
}

// beginDrain transitions Idle -> Draining. Returns false if a drain loop is
// already active, making Processor.Run idempotent.
func (p *Pipeline) beginDrain() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.procState != ProcessorIdle {
		return false
	}
	p.procState = ProcessorDraining
	return true
}

// endDrain clears the single-flight guard. Deferred by the drain loop so the
// guard is released on every exit path, including a panic.
func (p *Pipeline) endDrain() {
	p.mu.Lock()
	p.procState = ProcessorIdle
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

func (p *Pipeline) pushMerge(pair domain.CapturePair) {
	p.mu.Lock()
	p.mergeQ.Push(pair)
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

// popMergeInFlight pops a pair and marks it in flight in one critical
// section. A popped-but-unmarked pair would make the outstanding count dip
// while the merge runs, letting a concurrent Submit commit too early.
func (p *Pipeline) popMergeInFlight() (domain.CapturePair, bool) {
	p.mu.Lock()
	pair, ok := p.mergeQ.Pop()
	if !ok {
		p.mu.Unlock()
		return domain.CapturePair{}, false
	}
	p.inFlight++
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
	return pair, true
}

func (p *Pipeline) pushUpload(item domain.CaptureItem) {
	p.mu.Lock()
	p.uploadQ.Push(item)
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

// pushUploadFront restores an item to the head of the upload queue,
// undoing a pop after an authorization failure.
func (p *Pipeline) pushUploadFront(item domain.CaptureItem) {
	p.mu.Lock()
	p.uploadQ.PushFront(item)
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

func (p *Pipeline) popUpload() (domain.CaptureItem, bool) {
	p.mu.Lock()
	item, ok := p.uploadQ.Pop()
	if !ok {
		p.mu.Unlock()
		return domain.CaptureItem{}, false
	}
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
	return item, true
}

// popUploadInFlight pops an item and marks it in flight in one critical
// section, for the same reason as popMergeInFlight.
func (p *Pipeline) popUploadInFlight() (domain.CaptureItem, bool) {
	p.mu.Lock()
	item, ok := p.uploadQ.Pop()
	if !ok {
		p.mu.Unlock()
		return domain.CaptureItem{}, false
	}
	p.inFlight++
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
	return item, true
}

func (p *Pipeline) incInFlight() {
	p.mu.Lock()
	p.inFlight++
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

// decInFlight clamps at zero: a whole-session cancel may have already zeroed
// the counter while an upload was still in flight.
func (p *Pipeline) decInFlight() {
	p.mu.Lock()
	if p.inFlight > 0 {
		p.inFlight--
	}
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

// setServerStaged overwrites (never increments) the server-confirmed count.
func (p *Pipeline) setServerStaged(count int) {
	p.mu.Lock()
	p.serverStaged = count
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

func (p *Pipeline) setAccumulating(on bool) {
	p.mu.Lock()
	p.accumulating = on
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

func (p *Pipeline) setCapability(ok bool) {
	p.mu.Lock()
	p.capability = ok
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

// takePendingFront removes and returns the stored front half, if any.
func (p *Pipeline) takePendingFront() (domain.CaptureItem, bool) {
	p.mu.Lock()
	front := p.pendingFront
	p.pendingFront = nil
	if front == nil {
		p.mu.Unlock()
		return domain.CaptureItem{}, false
	}
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
	return *front, true
}

// pairOrStorePending either completes a pair with the stored front half or
// stores item as the new pending front, in one critical section. Capture
// deliveries can race; with separate take and store steps two of them could
// both observe an empty slot and the overwritten front would be lost.
func (p *Pipeline) pairOrStorePending(item domain.CaptureItem) (domain.CapturePair, bool) {
	p.mu.Lock()
	if p.pendingFront == nil {
		p.pendingFront = &item
		v := p.changedLocked()
		p.mu.Unlock()
		p.emit(v)
		return domain.CapturePair{}, false
	}
	pair := domain.CapturePair{Front: *p.pendingFront, Back: item}
	p.pendingFront = nil
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
	return pair, true
}

// clearLocal discards unsent local work: both queues and the in-flight count.
func (p *Pipeline) clearLocal() {
	p.mu.Lock()
	p.mergeQ.Reset()
	p.uploadQ.Reset()
	p.inFlight = 0
	p.pendingFront = nil
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}

// resetAll returns the pipeline to the empty post-commit state.
func (p *Pipeline) resetAll() {
	p.mu.Lock()
	p.mergeQ.Reset()
	p.uploadQ.Reset()
	p.inFlight = 0
	p.serverStaged = 0
	p.pendingFront = nil
	p.accumulating = false
	v := p.changedLocked()
	p.mu.Unlock()
	p.emit(v)
}
