// Package imaging implements the ImageMerger port: a pure local composite of
// a card's front and back into one image.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	// Registered so hotfolder PNG drops decode too.
	_ "image/png"
)

// DefaultQuality is the JPEG quality of the merged output.
const DefaultQuality = 90

// Merger composites the front image above the back image on a shared white
// canvas, centered horizontally, and encodes the result as JPEG.
type Merger struct {
	quality int
}

// NewMerger creates a merger. A non-positive quality falls back to
// DefaultQuality.
func NewMerger(quality int) *Merger {
	if quality <= 0 {
		quality = DefaultQuality
	}
	return &Merger{quality: quality}
}

// Merge composites front over back into a single JPEG.
func (m *Merger) Merge(ctx context.Context, front, back []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frontImg, _, err := image.Decode(bytes.NewReader(front))
	if err != nil {
		return nil, fmt.Errorf("decode front: %w", err)
	}
	backImg, _, err := image.Decode(bytes.NewReader(back))
	if err != nil {
		return nil, fmt.Errorf("decode back: %w", err)
	}

	fb := frontImg.Bounds()
	bb := backImg.Bounds()

	width := fb.Dx()
	if bb.Dx() > width {
		width = bb.Dx()
	}
	height := fb.Dy() + bb.Dy()

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	frontRect := image.Rect((width-fb.Dx())/2, 0, (width-fb.Dx())/2+fb.Dx(), fb.Dy())
	draw.Draw(canvas, frontRect, frontImg, fb.Min, draw.Src)

	backRect := image.Rect((width-bb.Dx())/2, fb.Dy(), (width-bb.Dx())/2+bb.Dx(), height)
	draw.Draw(canvas, backRect, backImg, bb.Min, draw.Src)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: m.quality}); err != nil {
		return nil, fmt.Errorf("encode merged image: %w", err)
	}
	return out.Bytes(), nil
}
