package screen

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/go-vgo/robotgo"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// Some clients put Cyrillic look-alikes in their window title.
var titleReplacer = strings.NewReplacer(
	"Р", "P", "О", "O", "К", "K", "М", "M", "Е", "E",
	"р", "p", "о", "o", "к", "k", "м", "m", "е", "e",
)

// NormalizeTitle maps look-alike letters to Latin and lowercases.
func NormalizeTitle(title string) string {
	return strings.ToLower(titleReplacer.Replace(title))
}

// MatchTitle reports whether a window title contains want once normalized.
func MatchTitle(title, want string) bool {
	want = NormalizeTitle(want)
	return want != "" && strings.Contains(NormalizeTitle(title), want)
}

// WindowLocator finds a window by title through the process list.
type WindowLocator struct {
	title string

	mu  sync.Mutex
	pid int

	procs  func() ([]robotgo.Nps, error)
	titles func(pid int) string
	bounds func(pid int) (x, y, w, h int)
}

func NewWindowLocator(title string) *WindowLocator {
	return &WindowLocator{
		title:  title,
		procs:  robotgo.Process,
		titles: func(pid int) string { return robotgo.GetTitle(pid) },
		bounds: func(pid int) (int, int, int, int) { return robotgo.GetBounds(pid) },
	}
}

// Locate returns the window rectangle. The last matching pid is tried first.
func (l *WindowLocator) Locate(ctx context.Context) (image.Rectangle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pid != 0 {
		if r, ok := l.rectFor(l.pid); ok {
			return r, nil
		}
		l.pid = 0
	}

	procs, err := l.procs()
	if err != nil {
		return image.Rectangle{}, apperrors.Wrap(err, apperrors.CodeCaptureUnavailable, "list processes")
	}
	for _, p := range procs {
		if ctx.Err() != nil {
			return image.Rectangle{}, ctx.Err()
		}
		if r, ok := l.rectFor(p.Pid); ok {
			l.pid = p.Pid
			return r, nil
		}
	}
	return image.Rectangle{}, apperrors.Newf(apperrors.CodeCaptureUnavailable, "no window titled %q", l.title)
}

func (l *WindowLocator) rectFor(pid int) (image.Rectangle, bool) {
	if !MatchTitle(l.titles(pid), l.title) {
		return image.Rectangle{}, false
	}
	x, y, w, h := l.bounds(pid)
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}
