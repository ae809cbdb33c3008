package cardpile

import (
	"github.com/cardpile/cardpile/internal/adapters/httpapi"
	"github.com/cardpile/cardpile/internal/ports"
	"github.com/cardpile/cardpile/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = httpapi.HTTPClient

// Logger is the structured logging interface from pkg/log.
type Logger = log.Logger

// CaptureSource delivers raw capture events to the agent.
type CaptureSource = ports.CaptureSource

// ImageMerger composites a front/back pair into one image.
type ImageMerger = ports.ImageMerger

// StagingService is the scanner backend's bulk staging API.
type StagingService = ports.StagingService

// Option configures optional behavior of an Agent.
type Option func(*options)

// options holds the optional configuration for an Agent.
type options struct {
	httpClient   HTTPClient
	logger       Logger
	eventHandler EventHandler
	source       CaptureSource
	merger       ImageMerger
	staging      StagingService
}

// defaultOptions returns options with sensible defaults.
func defaultOptions(client HTTPClient) options {
	return options{
		httpClient: client,
	}
}

// WithHTTPClient sets a custom HTTP client for staging API communication.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for pipeline events.
// Events are called synchronously from pipeline goroutines.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithCaptureSource binds a capture source started and stopped with the
// agent. Without one, captures are fed through Agent.Capture.
func WithCaptureSource(source CaptureSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithMerger sets a custom front/back merger.
// If not provided, the built-in JPEG compositor is used.
func WithMerger(merger ImageMerger) Option {
	return func(o *options) {
		o.merger = merger
	}
}

// WithStaging sets a custom staging service implementation.
// If not provided, the HTTP client against Config.ServiceURL is used.
func WithStaging(staging StagingService) Option {
	return func(o *options) {
		o.staging = staging
	}
}
