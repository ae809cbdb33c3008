// Package log defines the structured logging facade used throughout cardpile.
//
// The library core logs through the [Logger] interface so that embedding
// applications can plug in their own logger. Two implementations ship with
// the module:
//
//   - [ZerologAdapter]: console logging via rs/zerolog (used by the CLI)
//   - [NoopLogger]: discards everything (the library default)
package log
