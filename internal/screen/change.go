package screen

import (
	"image"
	"log/slog"
	"sync"

	"github.com/corona10/goimagehash"
)

// DefaultMaxHashDistance treats frames within ~95% pHash similarity as unchanged.
const DefaultMaxHashDistance = 3

// ChangeDetector remembers the perceptual hash of the last changed frame.
type ChangeDetector struct {
	maxDistance int

	mu   sync.Mutex
	last *goimagehash.ImageHash
}

func NewChangeDetector(maxDistance int) *ChangeDetector {
	if maxDistance < 0 {
		maxDistance = DefaultMaxHashDistance
	}
	return &ChangeDetector{maxDistance: maxDistance}
}

// Changed reports whether img differs from the last changed frame.
// Hashing errors count as a change.
func (d *ChangeDetector) Changed(img image.Image) bool {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.last == nil {
		d.last = hash
		return true
	}

	dist, err := d.last.Distance(hash)
	if err != nil {
		d.last = hash
		return true
	}
	if dist <= d.maxDistance {
		slog.Debug("frame unchanged", "distance", dist)
		return false
	}

	d.last = hash
	return true
}

// Reset forgets the last frame.
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	d.last = nil
	d.mu.Unlock()
}
