package ports

import "context"

// ImageMerger composites a front and back image into a single image.
// Pure transform: no network, no pipeline state.
type ImageMerger interface {
	// Merge returns the composite of front over back.
	// The source images are consumed; a merge failure is unrecoverable for
	// that pair.
	Merge(ctx context.Context, front, back []byte) ([]byte, error)
}
