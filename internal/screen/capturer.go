// Package screen grabs frames of the game window and detects unchanged frames.
package screen

import (
	"context"
	"image"
	"sync"

	"github.com/kbinani/screenshot"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
)

// Capturer produces one frame per call.
type Capturer interface {
	Capture(ctx context.Context) (*frame.Buffer, error)
}

// Locator finds the on-screen rectangle to capture.
type Locator interface {
	Locate(ctx context.Context) (image.Rectangle, error)
}

// DisplayCapturer captures a display, or the part of it a Locator points at.
type DisplayCapturer struct {
	display int
	locator Locator

	mu      sync.Mutex
	grab    func(image.Rectangle) (*image.RGBA, error)
	bounds  func(int) image.Rectangle
	screens func() int
}

// NewDisplayCapturer captures display index; locator may be nil to grab the whole display.
func NewDisplayCapturer(display int, locator Locator) *DisplayCapturer {
	return &DisplayCapturer{
		display: display,
		locator: locator,
		grab:    screenshot.CaptureRect,
		bounds:  screenshot.GetDisplayBounds,
		screens: screenshot.NumActiveDisplays,
	}
}

func (c *DisplayCapturer) Capture(ctx context.Context) (*frame.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.screens()
	if n == 0 {
		return nil, apperrors.New(apperrors.CodeCaptureUnavailable, "no active displays")
	}
	if c.display < 0 || c.display >= n {
		return nil, apperrors.Newf(apperrors.CodeCaptureUnavailable, "display %d not found (%d active)", c.display, n)
	}

	rect := c.bounds(c.display)
	if c.locator != nil {
		win, err := c.locator.Locate(ctx)
		if err != nil {
			return nil, err
		}
		rect = win
	}
	if rect.Empty() {
		return nil, apperrors.New(apperrors.CodeCaptureUnavailable, "capture area is empty")
	}

	img, err := c.grab(rect)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureUnavailable, "capture screen")
	}
	return frame.FromImage(img), nil
}
