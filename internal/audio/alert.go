// Package audio plays the shiny-encounter alert tone.
package audio

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/GriffinCanCode/encounter-tracker/internal/events"
)

// Alert tone defaults.
const (
	DefaultSampleRate = 44100
	DefaultFreq       = 880.0
	DefaultDuration   = 400 * time.Millisecond
	DefaultVolume     = 0.3
	framesPerBuf      = 1024
	fadeSamples       = 441 // ~10ms at 44100Hz
)

// Tone is a sine beep with short fades so it does not click.
type Tone struct {
	Freq       float64
	SampleRate int
	Duration   time.Duration
	Volume     float32
}

func DefaultTone() Tone {
	return Tone{Freq: DefaultFreq, SampleRate: DefaultSampleRate, Duration: DefaultDuration, Volume: DefaultVolume}
}

// Samples renders the tone as mono float32 PCM.
func (t Tone) Samples() []float32 {
	n := int(t.Duration.Seconds() * float64(t.SampleRate))
	out := make([]float32, n)
	fade := min(fadeSamples, n/2)
	for i := range out {
		gain := t.Volume
		if i < fade {
			gain *= float32(i) / float32(fade)
		} else if i >= n-fade {
			gain *= float32(n-1-i) / float32(fade)
		}
		out[i] = gain * float32(math.Sin(2*math.Pi*t.Freq*float64(i)/float64(t.SampleRate)))
	}
	return out
}

// Player writes PCM to an output device.
type Player interface {
	Play(samples []float32, sampleRate int) error
}

type devicePlayer struct{}

// Play opens a blocking stream on the default output device and writes
// samples one buffer at a time.
func (devicePlayer) Play(samples []float32, sampleRate int) error {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return err
	}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuf,
	}

	buf := make([]float32, framesPerBuf)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for pos := 0; pos < len(samples); pos += framesPerBuf {
		n := copy(buf, samples[pos:])
		clear(buf[n:])
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

// ShinyAlert beeps whenever an inserted batch contains a shiny.
type ShinyAlert struct {
	player  Player
	samples []float32
	rate    int
	mu      sync.Mutex
	closed  bool
}

// NewShinyAlert initialises portaudio. Close must be called to release it.
func NewShinyAlert(tone Tone) (*ShinyAlert, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return newShinyAlert(devicePlayer{}, tone), nil
}

func newShinyAlert(p Player, tone Tone) *ShinyAlert {
	return &ShinyAlert{player: p, samples: tone.Samples(), rate: tone.SampleRate}
}

// Run consumes events until the channel closes or ctx is done.
func (a *ShinyAlert) Run(ctx context.Context, in <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-in:
			if !ok {
				return
			}
			if e.Kind != events.KindRecordsInserted || !hasShiny(e) {
				continue
			}
			a.mu.Lock()
			if !a.closed {
				if err := a.player.Play(a.samples, a.rate); err != nil {
					slog.Warn("shiny alert failed", "error", err)
				}
			}
			a.mu.Unlock()
		}
	}
}

// Close releases portaudio.
func (a *ShinyAlert) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if _, ok := a.player.(devicePlayer); ok {
		return portaudio.Terminate()
	}
	return nil
}

func hasShiny(e events.Event) bool {
	for _, r := range e.Records {
		if r.Shiny {
			return true
		}
	}
	return false
}
