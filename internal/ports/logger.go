package ports

import "github.com/cardpile/cardpile/pkg/log"

// Logger is the structured logging abstraction used by the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Re-exported field constructors so app code reads ports.Err(err) without a
// second import.
var (
	String   = log.String
	Int      = log.Int
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
