package orchestrator

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
	"github.com/GriffinCanCode/encounter-tracker/internal/events"
	"github.com/GriffinCanCode/encounter-tracker/internal/store"
	"github.com/GriffinCanCode/encounter-tracker/internal/syncx"
	"github.com/GriffinCanCode/encounter-tracker/internal/trace"
	"github.com/GriffinCanCode/encounter-tracker/internal/uistate"
)

// Catalog is the part of the store the manager needs.
type Catalog interface {
	RecordSink
	GetHunt(ctx context.Context, id int64) (store.Hunt, error)
	FirstHunt(ctx context.Context) (store.Hunt, error)
	ListHunts(ctx context.Context, profileID int64) ([]store.Hunt, error)
	DeleteHunt(ctx context.Context, id int64) error
	DeleteProfile(ctx context.Context, id int64) error
}

// StateFile persists view preferences and the active hunt.
type StateFile interface {
	Load(ctx context.Context) (uistate.State, error)
	Save(ctx context.Context, st uistate.State) error
}

// Manager owns the active hunt and the scan scheduler.
type Manager struct {
	catalog   Catalog
	stateFile StateFile
	bus       Publisher
	hunt      *syncx.Guard[int64]
	scheduler *Scheduler

	mu    sync.Mutex
	prefs uistate.State
}

// New creates a manager. Call Init before Start.
func New(catalog Catalog, stateFile StateFile, bus Publisher, p *Pipeline, x *encounter.Extractor, cfg SchedulerConfig) *Manager {
	hunt := syncx.NewGuard[int64](0)
	return &Manager{
		catalog:   catalog,
		stateFile: stateFile,
		bus:       bus,
		hunt:      hunt,
		scheduler: NewScheduler(p, x, catalog, bus, hunt, cfg),
		prefs:     uistate.Default(),
	}
}

// Init loads the saved preferences and selects the saved hunt, or the first
// hunt of the first profile when the saved one no longer exists.
func (m *Manager) Init(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "manager.Init")
	defer span.End()
	log := trace.Logger(ctx)

	st, err := m.stateFile.Load(ctx)
	if err != nil {
		log.Warn("using default view state", "error", err)
	}
	m.mu.Lock()
	m.prefs = st
	m.mu.Unlock()

	if st.ActiveHuntID != nil {
		h, err := m.catalog.GetHunt(ctx, *st.ActiveHuntID)
		if err == nil {
			m.activate(ctx, h)
			return nil
		}
		log.Info("saved hunt is gone, selecting first hunt", "hunt_id", *st.ActiveHuntID, "error", err)
	}
	return m.selectFirst(ctx)
}

// Start launches the scan loop.
func (m *Manager) Start(ctx context.Context) { m.scheduler.Start(ctx) }

// Stop stops the scan loop and waits for it.
func (m *Manager) Stop() { m.scheduler.Stop() }

// ScanState returns the scheduler's current state.
func (m *Manager) ScanState() WorkItem { return m.scheduler.State() }

// ActiveHuntID returns the hunt new encounters are recorded under.
func (m *Manager) ActiveHuntID() int64 { return m.hunt.Get() }

// ActiveHunt returns the active hunt row.
func (m *Manager) ActiveHunt(ctx context.Context) (store.Hunt, error) {
	return m.catalog.GetHunt(ctx, m.hunt.Get())
}

// SelectHunt makes id the active hunt.
func (m *Manager) SelectHunt(ctx context.Context, id int64) (store.Hunt, error) {
	ctx, span := trace.StartSpan(ctx, "manager.SelectHunt")
	span.SetAttr("hunt_id", id)
	defer span.End()

	h, err := m.catalog.GetHunt(ctx, id)
	if err != nil {
		return store.Hunt{}, err
	}
	m.activate(ctx, h)
	return h, nil
}

// DeleteHunt deletes a hunt. When it was active, the first remaining hunt of
// the same profile becomes active.
func (m *Manager) DeleteHunt(ctx context.Context, id int64) error {
	ctx, span := trace.StartSpan(ctx, "manager.DeleteHunt")
	span.SetAttr("hunt_id", id)
	defer span.End()

	h, err := m.catalog.GetHunt(ctx, id)
	if err != nil {
		return err
	}
	if err := m.catalog.DeleteHunt(ctx, id); err != nil {
		return err
	}
	if id != m.hunt.Get() {
		return nil
	}

	hunts, err := m.catalog.ListHunts(ctx, h.ProfileID)
	if err != nil || len(hunts) == 0 {
		return m.selectFirst(ctx)
	}
	m.activate(ctx, hunts[0])
	return nil
}

// DeleteProfile deletes a profile and its hunts. When the active hunt was
// among them, the first hunt of the first remaining profile becomes active.
func (m *Manager) DeleteProfile(ctx context.Context, id int64) error {
	ctx, span := trace.StartSpan(ctx, "manager.DeleteProfile")
	span.SetAttr("profile_id", id)
	defer span.End()

	active, err := m.catalog.GetHunt(ctx, m.hunt.Get())
	owned := err != nil || active.ProfileID == id

	if err := m.catalog.DeleteProfile(ctx, id); err != nil {
		return err
	}
	if !owned {
		return nil
	}
	return m.selectFirst(ctx)
}

// Preferences returns the current view preferences.
func (m *Manager) Preferences() uistate.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

// SetPreferences saves the view fields of p and publishes the change. The
// active hunt is not touched; use SelectHunt.
func (m *Manager) SetPreferences(ctx context.Context, p uistate.State) (uistate.State, error) {
	if err := p.Validate(); err != nil {
		return uistate.State{}, err
	}

	m.mu.Lock()
	next := m.prefs
	next.Size, next.Cols, next.ShowAlphaShiny = p.Size, p.Cols, p.ShowAlphaShiny
	if err := m.stateFile.Save(ctx, next); err != nil {
		m.mu.Unlock()
		return uistate.State{}, err
	}
	m.prefs = next
	m.mu.Unlock()

	m.bus.Publish(events.Event{Kind: events.KindViewPreferenceChanged, HuntID: m.hunt.Get()})
	return next, nil
}

func (m *Manager) selectFirst(ctx context.Context) error {
	h, err := m.catalog.FirstHunt(ctx)
	if err != nil {
		return err
	}
	m.activate(ctx, h)
	return nil
}

// activate stores h as the active hunt, writes it to the state file and
// publishes HuntChanged. A failed state write is logged; the selection stands.
func (m *Manager) activate(ctx context.Context, h store.Hunt) {
	prev := m.hunt.Swap(h.ID)

	m.mu.Lock()
	id := h.ID
	m.prefs.ActiveHuntID = &id
	st := m.prefs
	err := m.stateFile.Save(ctx, st)
	m.mu.Unlock()

	if err != nil {
		trace.Logger(ctx).Warn("failed to save active hunt", "hunt_id", h.ID, "error", err)
	}
	trace.Logger(ctx).Info("active hunt selected", "hunt_id", h.ID, "hunt", h.Name, "profile_id", h.ProfileID, "previous_hunt_id", prev)
	m.bus.Publish(events.Event{Kind: events.KindHuntChanged, HuntID: h.ID})
}
