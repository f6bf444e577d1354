package orchestrator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
	"github.com/GriffinCanCode/encounter-tracker/internal/events"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
	"github.com/GriffinCanCode/encounter-tracker/internal/species"
	"github.com/GriffinCanCode/encounter-tracker/internal/syncx"
)

var errNoWindow = errors.New("window not found")

type fakeCapturer struct {
	mu    sync.Mutex
	calls int
	err   error
	panic bool
}

func (c *fakeCapturer) Capture(context.Context) (*frame.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.panic {
		panic("capture exploded")
	}
	if c.err != nil {
		return nil, c.err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return frame.FromImage(img), nil
}

// scriptedEngine returns script entries in order, then empty text.
type scriptedEngine struct {
	mu     sync.Mutex
	script []string
	calls  int
	err    error
}

func (e *scriptedEngine) Recognize(context.Context, *frame.Buffer) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.calls
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	if i < len(e.script) {
		return e.script[i], nil
	}
	return "", nil
}

func (e *scriptedEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]encounter.Record
	err     error
}

func (s *fakeSink) InsertEncounters(_ context.Context, records []encounter.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]encounter.Record(nil), records...))
	return nil
}

func (s *fakeSink) Batches() [][]encounter.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) Kinds() []events.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	kinds := make([]events.Kind, len(b.events))
	for i, e := range b.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func testExtractor() *encounter.Extractor {
	dict := species.New(map[int]string{16: "pidgey", 25: "pikachu", 41: "zubat"})
	return encounter.NewExtractor(dict, species.DefaultCutoff)
}

type schedulerFixture struct {
	capturer *fakeCapturer
	engine   *scriptedEngine
	sink     *fakeSink
	bus      *recordingBus
	hunt     *syncx.Guard[int64]
	sched    *Scheduler
}

func newSchedulerFixture(script ...string) *schedulerFixture {
	f := &schedulerFixture{
		capturer: &fakeCapturer{},
		engine:   &scriptedEngine{script: script},
		sink:     &fakeSink{},
		bus:      &recordingBus{},
		hunt:     syncx.NewGuard[int64](7),
	}
	p := NewPipeline(f.capturer, f.engine, nil, nil)
	f.sched = NewScheduler(p, testExtractor(), f.sink, f.bus, f.hunt, SchedulerConfig{MaxAttempts: 3})
	return f
}
