package frame

import (
	"image"
	"math"
)

// keepAbove is the inverted-saturation cutoff. On 8-bit values everything up to 253
// is zeroed, so inverted saturation 254 and 255 survive.
const keepAbove = 254 * 0.999

// Normalize isolates light, unsaturated UI text on a black background.
//
// Per pixel: HLS saturation (8-bit scale), inverted, thresholded at keepAbove. The result
// acts as an alpha mask; masked-out pixels become black and the output is opaque.
func Normalize(b *Buffer) *Buffer {
	src := b.img
	w, h := b.Width(), b.Height()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+w*4]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			r, g, bl := srcRow[i], srcRow[i+1], srcRow[i+2]
			inv := 255 - saturation(r, g, bl)
			if float64(inv) > keepAbove {
				dstRow[i], dstRow[i+1], dstRow[i+2] = r, g, bl
			}
			dstRow[i+3] = 255
		}
	}
	return &Buffer{img: dst}
}

// saturation returns the HLS saturation scaled to 0..255, rounded like OpenCV.
func saturation(r, g, b uint8) uint8 {
	vmax := max(r, g, b)
	vmin := min(r, g, b)
	if vmax == vmin {
		return 0
	}
	hi, lo := float64(vmax)/255, float64(vmin)/255
	diff := hi - lo
	l := (hi + lo) / 2
	var s float64
	if l < 0.5 {
		s = diff / (hi + lo)
	} else {
		s = diff / (2 - hi - lo)
	}
	return uint8(math.Round(s * 255))
}
