// Package diag holds the debug mode and the per-process session directory
// where the session log and scan image dumps are written.
package diag

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// LogFileName is the session log inside the session directory.
const LogFileName = "0_0_session.log"

// Mode selects how much the tracker logs and dumps.
type Mode int

const (
	ModeOff Mode = iota
	ModeSoftLog
	ModeFullLog
	ModeSoftDebug
	ModeFullDebug
)

var modeNames = [...]string{"off", "soft-log", "full-log", "soft-debug", "full-debug"}

// ParseMode validates a numeric debug mode.
func ParseMode(n int) (Mode, error) {
	if n < int(ModeOff) || n > int(ModeFullDebug) {
		return ModeOff, apperrors.Newf(apperrors.CodeInvalidArgument, "debug mode %d out of range 0-4", n)
	}
	return Mode(n), nil
}

func (m Mode) String() string {
	if m < ModeOff || m > ModeFullDebug {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Logging reports whether a session log is written at all.
func (m Mode) Logging() bool { return m > ModeOff }

// Verbose adds battle-check results and store queries to the log.
func (m Mode) Verbose() bool { return m == ModeFullLog || m == ModeFullDebug }

// DumpImages enables per-scan screenshot dumps.
func (m Mode) DumpImages() bool { return m >= ModeSoftDebug }

// DryRun makes encounter writes log instead of execute.
func (m Mode) DryRun() bool { return m >= ModeSoftDebug }

// LogLevel is the minimum slog level for this mode.
func (m Mode) LogLevel() slog.Level {
	if m.Verbose() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Session is one tracker run. Its directory is created lazily on first use.
type Session struct {
	ID   string
	Dir  string
	Mode Mode

	mu    sync.Mutex
	dumps int
	made  bool
}

// NewSession allocates a session id under root.
func NewSession(root string, mode Mode) *Session {
	id := uuid.NewString()
	return &Session{ID: id, Dir: filepath.Join(root, id), Mode: mode}
}

func (s *Session) ensureDir() error {
	if s.made {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInternal, "create session dir %s", s.Dir)
	}
	s.made = true
	return nil
}

// OpenLog opens the append-only session log.
func (s *Session) OpenLog() (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(s.Dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "open session log")
	}
	return f, nil
}

// Dump saves the screenshot, the crop and the OCR input of one scan as
// {n}_1_ss.png, {n}_2_crop.png and {n}_3_ocr.png. It is a no-op unless the
// mode dumps images.
func (s *Session) Dump(ss, crop, ocr image.Image) error {
	if !s.Mode.DumpImages() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureDir(); err != nil {
		return err
	}

	n := s.dumps
	s.dumps++
	for i, img := range []image.Image{ss, crop, ocr} {
		if img == nil {
			continue
		}
		name := fmt.Sprintf("%d_%d_%s.png", n, i+1, dumpSuffix[i])
		if err := imaging.Save(img, filepath.Join(s.Dir, name)); err != nil {
			return apperrors.Wrapf(err, apperrors.CodeInternal, "save %s", name)
		}
	}
	return nil
}

var dumpSuffix = [...]string{"ss", "crop", "ocr"}
