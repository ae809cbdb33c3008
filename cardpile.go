// Package cardpile provides an embeddable bulk card-capture staging agent.
//
// Captured card images (single- or two-sided) are paired, merged, queued,
// and uploaded to the scanner backend's bulk staging API by a single
// background drain loop. A live pending counter, the bulk session lifecycle
// (enable, submit, cancel, startup recovery), and authorization-loss
// handling are exposed through this package.
//
// Example usage:
//
//	cfg := cardpile.DefaultConfig()
//	cfg.ServiceURL = "https://api.example.com"
//	cfg.AuthToken = "session-token"
//	agent, err := cardpile.New(cfg, cardpile.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := agent.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer agent.Stop()
package cardpile

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cardpile/cardpile/internal/adapters/httpapi"
	"github.com/cardpile/cardpile/internal/adapters/imaging"
	"github.com/cardpile/cardpile/internal/app"
	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/internal/ports"
	"github.com/cardpile/cardpile/pkg/log"
)

// Re-exported pipeline types for embedders.
type (
	// Snapshot is the live pending-counter projection.
	Snapshot = app.Snapshot

	// ToggleAction is the accumulation toggle affordance.
	ToggleAction = app.ToggleAction

	// CancelAction is the cancel/retake affordance.
	CancelAction = app.CancelAction

	// CaptureMode selects single- or two-sided capture.
	CaptureMode = domain.CaptureMode

	// ScanResult is the immediate-path scan response.
	ScanResult = domain.ScanResult
)

// Re-exported constants.
const (
	SingleSided = domain.SingleSided
	TwoSided    = domain.TwoSided

	ToggleStart  = app.ToggleStart
	ToggleSubmit = app.ToggleSubmit

	CancelHidden  = app.CancelHidden
	CancelRetake  = app.CancelRetake
	CancelDiscard = app.CancelDiscard
)

// Re-exported sentinel errors, checked with errors.Is.
var (
	ErrAuthorizationRevoked = domain.ErrAuthorizationRevoked
	ErrCapabilityMissing    = domain.ErrCapabilityMissing
	ErrMalformedResponse    = domain.ErrMalformedResponse
	ErrConfirmRequired      = domain.ErrConfirmRequired
	ErrNotAccumulating      = domain.ErrNotAccumulating
	ErrAlreadyRunning       = domain.ErrAlreadyRunning
	ErrNotRunning           = domain.ErrNotRunning
	ErrInvalidConfig        = domain.ErrInvalidConfig
)

// Config holds the configuration for a cardpile agent.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// ServiceURL is the scanner backend base URL.
	ServiceURL string

	// AuthToken is the bearer session token identifying the account.
	AuthToken string

	// Mode is the initial capture mode.
	Mode CaptureMode

	// SubmitPollInterval is the fixed interval Submit polls at while local
	// work drains.
	SubmitPollInterval time.Duration

	// HTTPTimeout bounds each staging API call.
	HTTPTimeout time.Duration

	// JPEGQuality is the quality of merged two-sided output.
	JPEGQuality int
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, set ServiceURL and AuthToken before calling New.
func DefaultConfig() Config {
	return Config{
		Mode:               SingleSided,
		SubmitPollInterval: app.DefaultSubmitPollInterval,
		HTTPTimeout:        30 * time.Second,
		JPEGQuality:        imaging.DefaultQuality,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ServiceURL == "" {
		return errInvalid("service URL is required")
	}
	if c.AuthToken == "" {
		return errInvalid("auth token is required")
	}
	return nil
}

// Agent is the bulk capture staging agent. Create with New, then Start; all
// other methods are safe to call concurrently while the agent runs.
type Agent struct {
	config Config
	opts   options

	pipe      *app.Pipeline
	capture   *app.Capture
	processor *app.Processor
	session   *app.Session
	authloss  *app.AuthLossHandler
	staging   ports.StagingService
	source    ports.CaptureSource
	logger    ports.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New creates an agent in the stopped state. Returns an error if the
// configuration is invalid.
func New(cfg Config, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions(&http.Client{Timeout: cfg.HTTPTimeout})
	for _, opt := range opts {
		opt(&o)
	}

	var logger ports.Logger = log.NewNoopLogger()
	if o.logger != nil {
		logger = o.logger
	}

	identity := domain.Identity{Token: cfg.AuthToken}

	staging := o.staging
	if staging == nil {
		staging = httpapi.NewClient(o.httpClient, cfg.ServiceURL, logger)
	}
	merger := o.merger
	if merger == nil {
		merger = imaging.NewMerger(cfg.JPEGQuality)
	}

	emitter := &emitterWrapper{handler: o.eventHandler}

	pipe := app.NewPipeline()
	pipe.SetOnChange(emitter.pendingChanged)

	authloss := app.NewAuthLossHandler(pipe, staging, identity, emitter, logger)
	processor := app.NewProcessor(pipe, merger, staging, identity, authloss, emitter, logger)
	capture := app.NewCapture(pipe, processor, staging, merger, identity, authloss, logger)
	session := app.NewSession(pipe, processor, staging, identity, authloss, emitter, logger, cfg.SubmitPollInterval)

	agent := &Agent{
		config:    cfg,
		opts:      o,
		pipe:      pipe,
		capture:   capture,
		processor: processor,
		session:   session,
		authloss:  authloss,
		staging:   staging,
		source:    o.source,
		logger:    logger,
	}

	if cfg.Mode != SingleSided {
		// No half-pair can exist yet, so this cannot fail.
		_ = capture.SetMode(cfg.Mode, false)
	}
	return agent, nil
}

// Start runs startup recovery against the server-held staged count and, if a
// capture source is configured, begins consuming capture events. Returns
// ErrAlreadyRunning if the agent is already started.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)

	// Recovery is best-effort: a failed query must not keep the agent from
	// capturing; the session simply starts empty.
	if _, err := a.session.Recover(runCtx); err != nil {
		a.logger.Warn("startup recovery failed", ports.Err(err))
	}

	if a.source != nil {
		if err := a.source.Start(runCtx, func(image []byte) {
			if _, err := a.capture.Event(runCtx, image); err != nil {
				a.logger.Error("capture event failed", ports.Err(err))
			}
		}); err != nil {
			cancel()
			return err
		}
	}

	a.cancel = cancel
	a.started = true
	return nil
}

// Stop halts capture delivery and the background processor.
// Returns ErrNotRunning if the agent is not started.
func (a *Agent) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return ErrNotRunning
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Error("capture source close failed", ports.Err(err))
		}
	}
	a.cancel()
	a.started = false
	return nil
}

// Capture feeds one capture event directly into the pipeline, for embedders
// that do not use a CaptureSource. The returned ScanResult is non-nil only
// on the immediate (non-bulk) path.
func (a *Agent) Capture(ctx context.Context, image []byte) (*ScanResult, error) {
	return a.capture.Event(ctx, image)
}

// Mode returns the current capture mode.
func (a *Agent) Mode() CaptureMode {
	return a.pipe.Mode()
}

// SetMode switches the capture mode. Switching away from two-sided while a
// front half is pending returns ErrConfirmRequired unless confirm is true;
// confirming destroys the pending front side.
func (a *Agent) SetMode(mode CaptureMode, confirm bool) error {
	return a.capture.SetMode(mode, confirm)
}

// Retake discards the pending front half, if any.
func (a *Agent) Retake() {
	a.capture.Retake()
}

// Pending returns the live pending-counter snapshot.
func (a *Agent) Pending() Snapshot {
	return a.pipe.Snapshot()
}

// EnableBulk verifies the account's bulk capability and turns accumulation
// on. Returns ErrCapabilityMissing when the account needs linking, or a
// connectivity error when the check itself failed; accumulation stays off in
// both cases.
func (a *Agent) EnableBulk(ctx context.Context) error {
	return a.session.EnableAccumulation(ctx)
}

// Submit drains all local work, commits the server-side batch, and resets
// the session. Returns the committed count, or ErrNotAccumulating when no
// bulk session is active.
func (a *Agent) Submit(ctx context.Context) (int, error) {
	return a.session.Submit(ctx)
}

// CancelSession discards local and server-staged work for the current bulk
// session. Local queues clear regardless of the server call's outcome; the
// server-staged count resets only once the server confirms the cancel.
func (a *Agent) CancelSession(ctx context.Context) error {
	return a.session.Cancel(ctx)
}

// RelinkURL returns the URL that starts the external re-link flow.
func (a *Agent) RelinkURL(ctx context.Context) (string, error) {
	return a.staging.RelinkURL(ctx, domain.Identity{Token: a.config.AuthToken})
}

func errInvalid(msg string) error {
	return &invalidConfigError{msg: msg}
}

// invalidConfigError wraps ErrInvalidConfig with a specific message.
type invalidConfigError struct {
	msg string
}

func (e *invalidConfigError) Error() string {
	return ErrInvalidConfig.Error() + ": " + e.msg
}

func (e *invalidConfigError) Unwrap() error {
	return ErrInvalidConfig
}
