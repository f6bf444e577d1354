// Package frame models captured pixel buffers and the fractional regions cut from them.
package frame

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// MaskColor is the sentinel painted over overlay areas. It is fully saturated, so
// Normalize always drops it.
var MaskColor = color.NRGBA{R: 0, G: 0, B: 255, A: 255}

// Buffer is an owned NRGBA pixel buffer. Its bounds always start at (0,0).
type Buffer struct {
	img *image.NRGBA
}

// FromImage copies img into a new Buffer.
func FromImage(img image.Image) *Buffer {
	return &Buffer{img: imaging.Clone(img)}
}

// Image exposes the underlying pixels. Callers must not mutate them.
func (b *Buffer) Image() *image.NRGBA { return b.img }

func (b *Buffer) Width() int  { return b.img.Bounds().Dx() }
func (b *Buffer) Height() int { return b.img.Bounds().Dy() }

// PNG encodes the buffer for engines and diagnostics that take encoded images.
func (b *Buffer) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, b.img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Region is a rectangle in fractions of a buffer's height (Top, Bottom) and width (Left, Right).
type Region struct {
	Top, Bottom, Left, Right float64
}

// Full covers the whole buffer.
var Full = Region{Top: 0, Bottom: 1, Left: 0, Right: 1}

// Validate rejects bounds outside [0,1] (NaN included) and empty or inverted rectangles.
func (r Region) Validate() error {
	for _, v := range [...]float64{r.Top, r.Bottom, r.Left, r.Right} {
		if !(v >= 0 && v <= 1) {
			return apperrors.Newf(apperrors.CodeInvalidRegion, "bound %v outside [0,1] in %+v", v, r)
		}
	}
	if r.Bottom <= r.Top || r.Right <= r.Left {
		return apperrors.Newf(apperrors.CodeInvalidRegion, "region %+v is empty or inverted", r)
	}
	return nil
}

// Rect converts the region to pixel bounds, truncating toward zero on every edge
// so regions sharing a bound tile without gaps.
func (r Region) Rect(width, height int) image.Rectangle {
	return image.Rect(
		int(float64(width)*r.Left),
		int(float64(height)*r.Top),
		int(float64(width)*r.Right),
		int(float64(height)*r.Bottom),
	)
}

// CropByFraction returns a new buffer holding region r of b.
func CropByFraction(b *Buffer, r Region) (*Buffer, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Buffer{img: imaging.Crop(b.img, r.Rect(b.Width(), b.Height()))}, nil
}

// MaskRegion returns a copy of b with region r painted MaskColor.
func MaskRegion(b *Buffer, r Region) (*Buffer, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rect := r.Rect(b.Width(), b.Height())
	patch := imaging.New(rect.Dx(), rect.Dy(), MaskColor)
	return &Buffer{img: imaging.Paste(b.img, patch, rect.Min)}, nil
}

// MaskRegions applies each mask in order. Overlaps are allowed.
func MaskRegions(b *Buffer, regions ...Region) (*Buffer, error) {
	out := b
	for _, r := range regions {
		masked, err := MaskRegion(out, r)
		if err != nil {
			return nil, err
		}
		out = masked
	}
	return out, nil
}
