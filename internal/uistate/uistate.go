// Package uistate persists the presentation preferences and the active hunt
// between runs.
package uistate

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/resilience"
)

// DefaultSize is the list size shown when the file carries none.
const DefaultSize = 3

// AllowedSizes are the list sizes the presentation layer offers.
var AllowedSizes = []int{0, 1, 3, 5}

// State mirrors the JSON file. Cols toggles the Recent and Top columns.
type State struct {
	Size           int     `json:"size"`
	Cols           [2]bool `json:"cols"`
	ShowAlphaShiny bool    `json:"as"`
	ActiveHuntID   *int64  `json:"active_hunt_id,omitempty"`
}

// Default returns the state used for missing keys.
func Default() State {
	return State{Size: DefaultSize, Cols: [2]bool{true, true}, ShowAlphaShiny: true}
}

// Validate rejects sizes the presentation layer does not offer.
func (s State) Validate() error {
	if !slices.Contains(AllowedSizes, s.Size) {
		return apperrors.Newf(apperrors.CodeInvalidArgument, "size %d not in %v", s.Size, AllowedSizes)
	}
	return nil
}

// File reads and writes the state with a bounded retry.
type File struct {
	path  string
	retry resilience.RetryConfig
	mu    sync.Mutex
}

func NewFile(path string, retry resilience.RetryConfig) *File {
	return &File{path: path, retry: retry}
}

func (f *File) Path() string { return f.path }

// Load returns the saved state merged over the defaults. A missing file is
// created as "{}". After the retries run out the defaults are returned with
// the error.
func (f *File) Load(ctx context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := resilience.Do(ctx, f.retry, func() (State, error) {
		data, err := os.ReadFile(f.path)
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), f.writeRaw([]byte("{}"))
		}
		if err != nil {
			return State{}, err
		}
		st := Default()
		if err := json.Unmarshal(data, &st); err != nil {
			return State{}, err
		}
		return st, nil
	})
	if err != nil {
		return Default(), apperrors.Wrapf(err, apperrors.CodeInternal, "read %s", f.path)
	}
	if st.Validate() != nil {
		st.Size = DefaultSize
	}
	return st, nil
}

// Save writes st in full.
func (f *File) Save(ctx context.Context, st State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "encode ui state")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := resilience.Retry(ctx, f.retry, func() error { return f.writeRaw(data) }); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInternal, "write %s", f.path)
	}
	return nil
}

func (f *File) writeRaw(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}
