package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockStaging implements ports.StagingService with overridable functions.
type mockStaging struct {
	mu sync.Mutex

	checkFn  func(ctx context.Context, id domain.Identity) (ports.Capability, error)
	stageFn  func(ctx context.Context, id domain.Identity, image []byte) (int, error)
	scanFn   func(ctx context.Context, id domain.Identity, image []byte) (domain.ScanResult, error)
	commitFn func(ctx context.Context, id domain.Identity) (int, error)
	cancelFn func(ctx context.Context, id domain.Identity) error
	countFn  func(ctx context.Context, id domain.Identity) (int, error)
	relinkFn func(ctx context.Context, id domain.Identity) (string, error)

	stageCalls  int
	scanCalls   int
	commitCalls int
	cancelCalls int
	relinkCalls int
}

func (m *mockStaging) CheckCapability(ctx context.Context, id domain.Identity) (ports.Capability, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, id)
	}
	return ports.Capability{Granted: true}, nil
}

func (m *mockStaging) Stage(ctx context.Context, id domain.Identity, image []byte) (int, error) {
	m.mu.Lock()
	m.stageCalls++
	n := m.stageCalls
	m.mu.Unlock()
	if m.stageFn != nil {
		return m.stageFn(ctx, id, image)
	}
	return n, nil
}

func (m *mockStaging) ScanNow(ctx context.Context, id domain.Identity, image []byte) (domain.ScanResult, error) {
	m.mu.Lock()
	m.scanCalls++
	m.mu.Unlock()
	if m.scanFn != nil {
		return m.scanFn(ctx, id, image)
	}
	return domain.ScanResult{RawText: "ok"}, nil
}

func (m *mockStaging) Commit(ctx context.Context, id domain.Identity) (int, error) {
	m.mu.Lock()
	m.commitCalls++
	m.mu.Unlock()
	if m.commitFn != nil {
		return m.commitFn(ctx, id)
	}
	return 0, nil
}

func (m *mockStaging) Cancel(ctx context.Context, id domain.Identity) error {
	m.mu.Lock()
	m.cancelCalls++
	m.mu.Unlock()
	if m.cancelFn != nil {
		return m.cancelFn(ctx, id)
	}
	return nil
}

func (m *mockStaging) StagedCount(ctx context.Context, id domain.Identity) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, id)
	}
	return 0, nil
}

func (m *mockStaging) RelinkURL(ctx context.Context, id domain.Identity) (string, error) {
	m.mu.Lock()
	m.relinkCalls++
	m.mu.Unlock()
	if m.relinkFn != nil {
		return m.relinkFn(ctx, id)
	}
	return "https://accounts.example.com/relink", nil
}

func (m *mockStaging) calls() (stage, scan, commit, cancel, relink int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stageCalls, m.scanCalls, m.commitCalls, m.cancelCalls, m.relinkCalls
}

// mockMerger implements ports.ImageMerger by concatenating the inputs.
type mockMerger struct {
	mu      sync.Mutex
	calls   int
	mergeFn func(ctx context.Context, front, back []byte) ([]byte, error)
}

func (m *mockMerger) Merge(ctx context.Context, front, back []byte) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.mergeFn != nil {
		return m.mergeFn(ctx, front, back)
	}
	return append(append([]byte{}, front...), back...), nil
}

func (m *mockMerger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEmitter records emitted events.
type mockEmitter struct {
	mu            sync.Mutex
	pending       []Snapshot
	progress      []int
	recovered     []int
	reauthCalls   int
	reauthConfirm bool
	relinkURLs    []string
	dropped       []string
}

func (m *mockEmitter) OnPendingChanged(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, snap)
}

func (m *mockEmitter) OnSubmitProgress(outstanding int, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, outstanding)
}

func (m *mockEmitter) OnRecoveredSession(stagedCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovered = append(m.recovered, stagedCount)
}

func (m *mockEmitter) OnReauthRequired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reauthCalls++
	return m.reauthConfirm
}

func (m *mockEmitter) OnRelinkFlow(authURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relinkURLs = append(m.relinkURLs, authURL)
}

func (m *mockEmitter) OnItemDropped(stage string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, stage)
}

func (m *mockEmitter) reauthCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reauthCalls
}

func (m *mockEmitter) droppedStages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.dropped...)
}

// fixture wires a full pipeline over mocks.
type fixture struct {
	pipe      *Pipeline
	staging   *mockStaging
	merger    *mockMerger
	emitter   *mockEmitter
	authloss  *AuthLossHandler
	processor *Processor
	capture   *Capture
	session   *Session
}

func newFixture() *fixture {
	pipe := NewPipeline()
	staging := &mockStaging{}
	merger := &mockMerger{}
	emitter := &mockEmitter{}
	id := domain.Identity{Token: "test-token"}
	logger := mockLogger{}

	pipe.SetOnChange(emitter.OnPendingChanged)
	authloss := NewAuthLossHandler(pipe, staging, id, emitter, logger)
	processor := NewProcessor(pipe, merger, staging, id, authloss, emitter, logger)
	capture := NewCapture(pipe, processor, staging, merger, id, authloss, logger)
	session := NewSession(pipe, processor, staging, id, authloss, emitter, logger, 10*time.Millisecond)

	return &fixture{
		pipe:      pipe,
		staging:   staging,
		merger:    merger,
		emitter:   emitter,
		authloss:  authloss,
		processor: processor,
		capture:   capture,
		session:   session,
	}
}

// waitIdle polls until the processor goes idle with both queues empty.
func waitIdle(t *testing.T, pipe *Pipeline) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := pipe.Snapshot()
		if !snap.Draining && snap.LocalOutstanding() == 0 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("processor did not drain: %+v", pipe.Snapshot())
}

// waitProcessorIdle polls until the single-flight guard is released,
// regardless of queue contents.
func waitProcessorIdle(t *testing.T, pipe *Pipeline) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pipe.ProcessorState() == ProcessorIdle {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("processor still draining: %+v", pipe.Snapshot())
}
