// Package hotfolder implements the CaptureSource port over a watched drop
// directory.
//
// Each image file that appears in the directory is one capture event. Writes
// are debounced until the file stops growing, the file is moved into a
// processed/ subdirectory, and its bytes are delivered to the pipeline. A
// broken watch is re-established with exponential backoff.
package hotfolder
