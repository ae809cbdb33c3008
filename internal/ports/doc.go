// Package ports defines the interfaces that connect the pipeline core to
// infrastructure adapters.
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) provide the concrete implementations: the
// HTTP staging client, the hotfolder capture source, and the image merger.
//
// # Port Interfaces
//
//   - [StagingService]: the scanner backend's bulk staging API
//   - [CaptureSource]: delivers raw capture events (acquired images)
//   - [ImageMerger]: composites a front/back pair into one image
//   - [Logger]: structured logging abstraction (alias of pkg/log)
//
// Keeping the core behind ports lets the pipeline be tested with mock
// implementations and lets embedders swap the capture source or transport
// without touching queue semantics.
package ports
