package screen

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/go-vgo/robotgo"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PokeMMO", "pokemmo"},
		{"РокеММO", "pokemmo"}, // Cyrillic Р о к е М М
		{"Рokemmо Client", "pokemmo client"},
		{"Firefox", "firefox"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchTitle(t *testing.T) {
	if !MatchTitle("РokeMMO", "pokemmo") {
		t.Error("Cyrillic title should match")
	}
	if MatchTitle("Notepad", "pokemmo") {
		t.Error("unrelated title matched")
	}
	if MatchTitle("anything", "") {
		t.Error("empty wanted title should never match")
	}
}

func fakeLocator(titles map[int]string, bounds map[int]image.Rectangle) *WindowLocator {
	l := NewWindowLocator("pokemmo")
	l.procs = func() ([]robotgo.Nps, error) {
		var out []robotgo.Nps
		for pid := range titles {
			out = append(out, robotgo.Nps{Pid: pid, Name: "java"})
		}
		return out, nil
	}
	l.titles = func(pid int) string { return titles[pid] }
	l.bounds = func(pid int) (int, int, int, int) {
		r := bounds[pid]
		return r.Min.X, r.Min.Y, r.Dx(), r.Dy()
	}
	return l
}

func TestWindowLocatorFindsAndCaches(t *testing.T) {
	titles := map[int]string{10: "Terminal", 20: "РokeMMO"}
	bounds := map[int]image.Rectangle{20: image.Rect(100, 50, 900, 650)}
	l := fakeLocator(titles, bounds)

	r, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if r != bounds[20] {
		t.Errorf("Locate() = %v, want %v", r, bounds[20])
	}
	if l.pid != 20 {
		t.Errorf("cached pid = %d, want 20", l.pid)
	}

	// window closed: cached pid must be dropped
	titles[20] = ""
	if _, err := l.Locate(context.Background()); !apperrors.IsCode(err, apperrors.CodeCaptureUnavailable) {
		t.Errorf("Locate() error = %v, want CAPTURE_UNAVAILABLE", err)
	}
	if l.pid != 0 {
		t.Errorf("cached pid = %d, want 0", l.pid)
	}
}

func TestWindowLocatorSkipsMinimized(t *testing.T) {
	l := fakeLocator(map[int]string{5: "PokeMMO"}, map[int]image.Rectangle{})

	if _, err := l.Locate(context.Background()); !apperrors.IsCode(err, apperrors.CodeCaptureUnavailable) {
		t.Errorf("Locate() error = %v, want CAPTURE_UNAVAILABLE", err)
	}
}

type staticLocator struct {
	r   image.Rectangle
	err error
}

func (s staticLocator) Locate(context.Context) (image.Rectangle, error) { return s.r, s.err }

func newFakeCapturer(displays int, loc Locator) (*DisplayCapturer, *image.Rectangle) {
	c := NewDisplayCapturer(0, loc)
	var grabbed image.Rectangle
	c.screens = func() int { return displays }
	c.bounds = func(int) image.Rectangle { return image.Rect(0, 0, 1920, 1080) }
	c.grab = func(r image.Rectangle) (*image.RGBA, error) {
		grabbed = r
		return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
	}
	return c, &grabbed
}

func TestDisplayCapturer(t *testing.T) {
	t.Run("whole display", func(t *testing.T) {
		c, grabbed := newFakeCapturer(1, nil)
		buf, err := c.Capture(context.Background())
		if err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if buf.Width() != 1920 || buf.Height() != 1080 {
			t.Errorf("size = %dx%d", buf.Width(), buf.Height())
		}
		if *grabbed != image.Rect(0, 0, 1920, 1080) {
			t.Errorf("grabbed %v", *grabbed)
		}
	})

	t.Run("located window", func(t *testing.T) {
		win := image.Rect(10, 20, 810, 620)
		c, grabbed := newFakeCapturer(1, staticLocator{r: win})
		buf, err := c.Capture(context.Background())
		if err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if *grabbed != win || buf.Width() != 800 || buf.Height() != 600 {
			t.Errorf("grabbed %v, size %dx%d", *grabbed, buf.Width(), buf.Height())
		}
	})

	t.Run("no display", func(t *testing.T) {
		c, _ := newFakeCapturer(0, nil)
		if _, err := c.Capture(context.Background()); !apperrors.IsCode(err, apperrors.CodeCaptureUnavailable) {
			t.Errorf("Capture() error = %v, want CAPTURE_UNAVAILABLE", err)
		}
	})

	t.Run("locator failure", func(t *testing.T) {
		c, _ := newFakeCapturer(1, staticLocator{err: apperrors.New(apperrors.CodeCaptureUnavailable, "gone")})
		if _, err := c.Capture(context.Background()); !apperrors.IsCode(err, apperrors.CodeCaptureUnavailable) {
			t.Errorf("Capture() error = %v, want CAPTURE_UNAVAILABLE", err)
		}
	})

	t.Run("grab failure", func(t *testing.T) {
		c, _ := newFakeCapturer(1, nil)
		c.grab = func(image.Rectangle) (*image.RGBA, error) { return nil, errors.New("x11 gone") }
		if _, err := c.Capture(context.Background()); !apperrors.IsCode(err, apperrors.CodeCaptureUnavailable) {
			t.Errorf("Capture() error = %v, want CAPTURE_UNAVAILABLE", err)
		}
	})
}

func halves(vertical bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			v := uint8(255)
			if (vertical && x < 32) || (!vertical && y < 32) {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestChangeDetector(t *testing.T) {
	d := NewChangeDetector(DefaultMaxHashDistance)

	if !d.Changed(halves(true)) {
		t.Error("first frame should count as changed")
	}
	if d.Changed(halves(true)) {
		t.Error("identical frame should be unchanged")
	}
	if !d.Changed(halves(false)) {
		t.Error("different frame should be changed")
	}

	d.Reset()
	if !d.Changed(halves(false)) {
		t.Error("frame after Reset should count as changed")
	}
}
