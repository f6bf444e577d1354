package orchestrator

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
	"github.com/GriffinCanCode/encounter-tracker/internal/events"
	"github.com/GriffinCanCode/encounter-tracker/internal/syncx"
	"github.com/GriffinCanCode/encounter-tracker/internal/trace"
)

// RecordSink persists parsed encounters.
type RecordSink interface {
	InsertEncounters(ctx context.Context, records []encounter.Record) error
}

// Publisher receives domain events.
type Publisher interface {
	Publish(e events.Event)
}

// SchedulerConfig tunes the scan loop.
type SchedulerConfig struct {
	PacingDelay time.Duration // zero disables pacing, negative selects the default
	MaxAttempts int
	Verbose     bool
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.PacingDelay < 0 {
		c.PacingDelay = DefaultPacingDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Scheduler runs the encounter state machine on a single worker goroutine.
// Each processed item yields exactly one successor, which is queued back.
type Scheduler struct {
	pipeline  *Pipeline
	extractor *encounter.Extractor
	sink      RecordSink
	bus       Publisher
	hunt      *syncx.Guard[int64]
	cfg       SchedulerConfig

	queue chan WorkItem
	quit  chan struct{}
	done  chan struct{}
	state *syncx.Guard[WorkItem]

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewScheduler wires a scheduler. hunt holds the active hunt id stamped on
// every persisted record.
func NewScheduler(p *Pipeline, x *encounter.Extractor, sink RecordSink, bus Publisher, hunt *syncx.Guard[int64], cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		pipeline:  p,
		extractor: x,
		sink:      sink,
		bus:       bus,
		hunt:      hunt,
		cfg:       cfg.withDefaults(),
		queue:     make(chan WorkItem, WorkQueueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		state:     syncx.NewGuard(CheckBattleStart()),
	}
}

// State returns the item the worker will process next.
func (s *Scheduler) State() WorkItem { return s.state.Get() }

// Start launches the worker in AwaitingBattle. Later calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.queue <- CheckBattleStart()
		go s.run(ctx)
	})
}

// Stop enqueues Shutdown and waits for the worker to exit. Pending pacing
// waits are cut short.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.queue <- Shutdown()
	})
	s.startOnce.Do(func() { close(s.done) })
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	log := trace.Logger(ctx)
	log.Info("scan worker started", "pacing", s.cfg.PacingDelay, "max_attempts", s.cfg.MaxAttempts)

	for {
		var item WorkItem
		select {
		case <-ctx.Done():
			log.Info("scan worker stopped", "reason", ctx.Err())
			return
		case item = <-s.queue:
		}

		switch item.Kind {
		case KindShutdown:
			log.Info("scan worker stopped", "reason", "shutdown")
			return
		case KindCheckBattleStart, KindScanEncounter:
			next := s.step(ctx, item)
			if next.Kind != item.Kind {
				s.pipeline.ResetDedup()
			}
			s.state.Set(next)
			s.queue <- next
		}
	}
}

// step processes one item and returns its successor. A panic anywhere in
// the tick falls back to AwaitingBattle.
func (s *Scheduler) step(ctx context.Context, item WorkItem) (next WorkItem) {
	ctx, span := trace.StartSpan(ctx, "scheduler.step")
	span.SetAttr("state", item.String())
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			trace.Logger(ctx).Error("scan tick panicked", "state", item.String(), "panic", r, "stack", string(debug.Stack()))
			next = CheckBattleStart()
		}
	}()

	switch item.Kind {
	case KindScanEncounter:
		return s.scanEncounter(ctx, item)
	default:
		return s.checkBattleStart(ctx)
	}
}

func (s *Scheduler) checkBattleStart(ctx context.Context) WorkItem {
	log := trace.Logger(ctx)
	if !s.pace(ctx) {
		return CheckBattleStart()
	}

	text, skipped, err := s.pipeline.Read(ctx, BattleRegion, nil, true)
	if err != nil {
		log.Warn("battle check failed", "error", err)
		return CheckBattleStart()
	}
	if skipped {
		return CheckBattleStart()
	}
	if s.cfg.Verbose {
		log.Debug("battle region text", "text", text)
	}

	if !encounter.IsBattleStart(text) {
		return CheckBattleStart()
	}
	phase := encounter.ClassifyBattleType(text)
	log.Info("battle started", "phase", phase)
	return ScanEncounter(phase, 0)
}

func (s *Scheduler) scanEncounter(ctx context.Context, item WorkItem) WorkItem {
	log := trace.Logger(ctx)
	if item.Attempt >= s.cfg.MaxAttempts {
		log.Info("no encounter found, giving up", "phase", item.Phase, "attempts", item.Attempt)
		return CheckBattleStart()
	}
	if !s.pace(ctx) {
		return item
	}

	regions := RegionsFor(item.Phase)
	text, _, err := s.pipeline.Read(ctx, regions.Name, regions.Masks(), false)
	if err != nil {
		log.Warn("encounter scan failed", "phase", item.Phase, "attempt", item.Attempt, "error", err)
		return ScanEncounter(item.Phase, item.Attempt+1)
	}
	if s.cfg.Verbose {
		log.Debug("encounter region text", "phase", item.Phase, "attempt", item.Attempt, "text", text)
	}

	records := s.extractor.Extract(text)
	if len(records) == 0 {
		return ScanEncounter(item.Phase, item.Attempt+1)
	}

	s.persist(ctx, records)
	return CheckBattleStart()
}

func (s *Scheduler) persist(ctx context.Context, records []encounter.Record) {
	log := trace.Logger(ctx)
	huntID := s.hunt.Get()
	for i := range records {
		records[i].HuntID = huntID
	}

	if err := s.sink.InsertEncounters(ctx, records); err != nil {
		log.Error("failed to persist encounters", "hunt_id", huntID, "count", len(records), "error", err)
		s.bus.Publish(events.Event{Kind: events.KindPersistenceFailed, HuntID: huntID, Error: err.Error()})
		return
	}
	log.Info("encounters recorded", "hunt_id", huntID, "count", len(records))
	s.bus.Publish(events.Event{Kind: events.KindRecordsInserted, HuntID: huntID, Records: records})
}

// pace waits the pacing delay. It returns false when the wait was cut short.
func (s *Scheduler) pace(ctx context.Context) bool {
	if s.cfg.PacingDelay == 0 {
		select {
		case <-s.quit:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(s.cfg.PacingDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.quit:
		return false
	case <-ctx.Done():
		return false
	}
}
