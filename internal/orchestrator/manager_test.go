package orchestrator

import (
	"context"
	"slices"
	"sync"
	"testing"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/events"
	"github.com/GriffinCanCode/encounter-tracker/internal/store"
	"github.com/GriffinCanCode/encounter-tracker/internal/uistate"
)

// memCatalog keeps hunts in insertion order; profiles exist while they own hunts.
type memCatalog struct {
	fakeSink
	hunts []store.Hunt
}

func (c *memCatalog) GetHunt(_ context.Context, id int64) (store.Hunt, error) {
	for _, h := range c.hunts {
		if h.ID == id {
			return h, nil
		}
	}
	return store.Hunt{}, apperrors.Newf(apperrors.CodeNotFound, "hunt %d", id)
}

func (c *memCatalog) FirstHunt(context.Context) (store.Hunt, error) {
	if len(c.hunts) == 0 {
		return store.Hunt{}, apperrors.New(apperrors.CodeNotFound, "no hunts")
	}
	return c.hunts[0], nil
}

func (c *memCatalog) ListHunts(_ context.Context, profileID int64) ([]store.Hunt, error) {
	var out []store.Hunt
	for _, h := range c.hunts {
		if h.ProfileID == profileID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (c *memCatalog) DeleteHunt(_ context.Context, id int64) error {
	c.hunts = slices.DeleteFunc(c.hunts, func(h store.Hunt) bool { return h.ID == id })
	return nil
}

func (c *memCatalog) DeleteProfile(_ context.Context, id int64) error {
	c.hunts = slices.DeleteFunc(c.hunts, func(h store.Hunt) bool { return h.ProfileID == id })
	return nil
}

type memStateFile struct {
	mu    sync.Mutex
	state uistate.State
	saves int
}

func (f *memStateFile) Load(context.Context) (uistate.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *memStateFile) Save(_ context.Context, st uistate.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = st
	f.saves++
	return nil
}

func (f *memStateFile) ActiveID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.ActiveHuntID == nil {
		return 0
	}
	return *f.state.ActiveHuntID
}

func newTestManager(t *testing.T, saved *int64) (*Manager, *memCatalog, *memStateFile, *recordingBus) {
	t.Helper()
	catalog := &memCatalog{hunts: []store.Hunt{
		{ID: 1, Name: "Hunt 1", ProfileID: 1},
		{ID: 2, Name: "Zubat", ProfileID: 1},
		{ID: 3, Name: "Hunt 1", ProfileID: 2},
	}}
	st := uistate.Default()
	st.ActiveHuntID = saved
	file := &memStateFile{state: st}
	bus := &recordingBus{}
	p := NewPipeline(&fakeCapturer{}, &scriptedEngine{}, nil, nil)
	m := New(catalog, file, bus, p, testExtractor(), SchedulerConfig{})
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	return m, catalog, file, bus
}

func ptr(v int64) *int64 { return &v }

func TestInitSelectsSavedHunt(t *testing.T) {
	m, _, file, bus := newTestManager(t, ptr(2))

	if got := m.ActiveHuntID(); got != 2 {
		t.Errorf("ActiveHuntID() = %d, want 2", got)
	}
	if file.ActiveID() != 2 {
		t.Errorf("saved active = %d, want 2", file.ActiveID())
	}
	if kinds := bus.Kinds(); !slices.Equal(kinds, []events.Kind{events.KindHuntChanged}) {
		t.Errorf("events = %v, want [hunt_changed]", kinds)
	}
}

func TestInitFallsBackToFirstHunt(t *testing.T) {
	tests := []struct {
		name  string
		saved *int64
	}{
		{"nothing saved", nil},
		{"saved hunt deleted", ptr(99)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, file, _ := newTestManager(t, tt.saved)
			if got := m.ActiveHuntID(); got != 1 {
				t.Errorf("ActiveHuntID() = %d, want 1", got)
			}
			if file.ActiveID() != 1 {
				t.Errorf("saved active = %d, want 1", file.ActiveID())
			}
		})
	}
}

func TestSelectHunt(t *testing.T) {
	m, _, file, bus := newTestManager(t, nil)
	ctx := context.Background()

	h, err := m.SelectHunt(ctx, 3)
	if err != nil {
		t.Fatalf("SelectHunt() = %v", err)
	}
	if h.ProfileID != 2 || m.ActiveHuntID() != 3 || file.ActiveID() != 3 {
		t.Errorf("hunt %+v active %d saved %d, want hunt 3 everywhere", h, m.ActiveHuntID(), file.ActiveID())
	}
	if kinds := bus.Kinds(); len(kinds) != 2 || kinds[1] != events.KindHuntChanged {
		t.Errorf("events = %v, want a second hunt_changed", kinds)
	}

	if _, err := m.SelectHunt(ctx, 42); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("SelectHunt(42) = %v, want NOT_FOUND", err)
	}
	if m.ActiveHuntID() != 3 {
		t.Errorf("failed selection changed the active hunt to %d", m.ActiveHuntID())
	}
}

func TestDeleteActiveHuntReselectsInProfile(t *testing.T) {
	m, _, file, _ := newTestManager(t, ptr(1))

	if err := m.DeleteHunt(context.Background(), 1); err != nil {
		t.Fatalf("DeleteHunt() = %v", err)
	}
	if m.ActiveHuntID() != 2 || file.ActiveID() != 2 {
		t.Errorf("active = %d saved = %d, want 2", m.ActiveHuntID(), file.ActiveID())
	}
}

func TestDeleteInactiveHuntKeepsSelection(t *testing.T) {
	m, _, _, bus := newTestManager(t, ptr(1))
	before := len(bus.Kinds())

	if err := m.DeleteHunt(context.Background(), 3); err != nil {
		t.Fatalf("DeleteHunt() = %v", err)
	}
	if m.ActiveHuntID() != 1 {
		t.Errorf("active = %d, want 1", m.ActiveHuntID())
	}
	if len(bus.Kinds()) != before {
		t.Error("deleting an inactive hunt should not publish hunt_changed")
	}
}

func TestDeleteActiveProfileReselects(t *testing.T) {
	m, _, _, _ := newTestManager(t, ptr(2))

	if err := m.DeleteProfile(context.Background(), 1); err != nil {
		t.Fatalf("DeleteProfile() = %v", err)
	}
	if m.ActiveHuntID() != 3 {
		t.Errorf("active = %d, want 3", m.ActiveHuntID())
	}
}

func TestSetPreferences(t *testing.T) {
	m, _, file, bus := newTestManager(t, ptr(2))
	ctx := context.Background()

	got, err := m.SetPreferences(ctx, uistate.State{Size: 5, Cols: [2]bool{true, false}, ShowAlphaShiny: false})
	if err != nil {
		t.Fatalf("SetPreferences() = %v", err)
	}
	if got.Size != 5 || got.Cols != [2]bool{true, false} || got.ShowAlphaShiny {
		t.Errorf("preferences = %+v", got)
	}
	if got.ActiveHuntID == nil || *got.ActiveHuntID != 2 || file.ActiveID() != 2 {
		t.Error("preferences should keep the active hunt")
	}
	if kinds := bus.Kinds(); kinds[len(kinds)-1] != events.KindViewPreferenceChanged {
		t.Errorf("events = %v, want view_preference_changed last", kinds)
	}

	if _, err := m.SetPreferences(ctx, uistate.State{Size: 4}); !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
		t.Errorf("SetPreferences(size 4) = %v, want INVALID_ARGUMENT", err)
	}
	if m.Preferences().Size != 5 {
		t.Error("rejected preferences were applied")
	}
}
