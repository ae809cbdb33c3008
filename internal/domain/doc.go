// Package domain contains the core entities and value objects for the bulk
// capture pipeline.
//
// This is the innermost layer: it has no dependencies on transport, file
// system, or logging concerns and holds only the data shapes and invariants
// the pipeline is built on.
//
// # Entities
//
//   - [CaptureItem]: one captured image payload awaiting merge or upload
//   - [CapturePair]: a matched front/back pair awaiting merge
//   - [Identity]: the bearer token identifying the capturing account
//   - [ItemQueue] / [PairQueue]: the FIFO queues drained by the processor
//
// Sentinel errors for the pipeline's failure taxonomy live in errors.go and
// are checked with errors.Is.
package domain
