package ports

import "context"

// CaptureSource delivers raw capture events to the pipeline.
// The CLI binds this to a watched drop directory; embedding applications
// may implement it over a camera, scanner SDK, or any other device.
type CaptureSource interface {
	// Start begins delivering captured images through deliver.
	// It returns after the source is established; delivery continues in the
	// background until the context is canceled or Close is called.
	Start(ctx context.Context, deliver func(image []byte)) error

	// Close releases all resources held by the source.
	Close() error
}
