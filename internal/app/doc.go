// Package app implements the bulk capture queue pipeline.
//
// All mutable pipeline state (queues, counters, flags) lives in [Pipeline],
// guarded by a single mutex. The behavior components share one Pipeline:
//
//   - [Capture]: turns capture events into items or front/back pairs
//   - [Processor]: the single-flight background drain loop
//   - [Session]: bulk session lifecycle (enable, submit, cancel, recover)
//   - [AuthLossHandler]: authorization-revoked interception
//
// The pending counter is a pure projection over Pipeline state, exposed as
// [Snapshot]; every state-changing method re-derives it and pushes it to the
// registered change callback.
package app
