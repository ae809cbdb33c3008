package log

// NoopLogger is the Logger installed when an embedder configures none of its
// own: every level drops its message.
type NoopLogger struct{}

// NewNoopLogger returns the drop-everything logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// Debug drops the message.
func (NoopLogger) Debug(msg string, fields ...Field) {}

// Info drops the message.
func (NoopLogger) Info(msg string, fields ...Field) {}

// Warn drops the message.
func (NoopLogger) Warn(msg string, fields ...Field) {}

// Error drops the message.
func (NoopLogger) Error(msg string, fields ...Field) {}
