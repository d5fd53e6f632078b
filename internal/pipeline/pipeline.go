// Package pipeline runs the single consumer that drains the frame
// queue and drives composition, power limiting and the driver sink.
// The queue is the only synchronization point with the receivers; the
// composer's buffers are touched by this goroutine alone.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/panelgrid/internal/frame"
	"github.com/example/panelgrid/internal/led"
	"github.com/example/panelgrid/internal/panel"
	"github.com/example/panelgrid/internal/power"
)

// popTimeout bounds the queue wait so the loop observes Stop promptly.
const popTimeout = 250 * time.Millisecond

// Stats is the read-only monitoring view of the consumer.
type Stats struct {
	FramesShown    uint64 `json:"frames_shown"`
	FramesRejected uint64 `json:"frames_rejected"`
	SinkErrors     uint64 `json:"sink_errors"`
	LastBrightness uint8  `json:"last_brightness"`
}

// Pipeline connects queue -> composer -> limiter -> driver sink.
type Pipeline struct {
	queue    *frame.Queue
	composer *panel.Composer
	limiter  *power.Limiter
	driver   led.Driver
	log      zerolog.Logger

	brightness atomic.Uint32

	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup

	shown      atomic.Uint64
	rejected   atomic.Uint64
	sinkErrors atomic.Uint64
	lastSent   atomic.Uint32

	// OnFrame, when set before Start, receives the combined canvas
	// frame after each successful sink write (used by the monitoring
	// surface for previews).
	OnFrame func(*frame.Frame)
}

// New wires the pipeline stages together.
func New(q *frame.Queue, c *panel.Composer, lim *power.Limiter, drv led.Driver,
	brightness uint8, log zerolog.Logger) *Pipeline {
	p := &Pipeline{
		queue:    q,
		composer: c,
		limiter:  lim,
		driver:   drv,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
	p.brightness.Store(uint32(brightness))
	return p
}

// Start spawns the consumer goroutine. Starting a running pipeline is a
// logged no-op.
func (p *Pipeline) Start() {
	if !p.running.CompareAndSwap(false, true) {
		p.log.Warn().Msg("pipeline already running")
		return
	}
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.run()
	p.log.Info().Msg("pipeline started")
}

// Stop signals the consumer and joins it.
func (p *Pipeline) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stop)
	p.wg.Wait()
	p.log.Info().Msg("pipeline stopped")
}

// SetBrightness replaces the requested global brightness.
func (p *Pipeline) SetBrightness(b uint8) { p.brightness.Store(uint32(b)) }

// Brightness returns the requested global brightness.
func (p *Pipeline) Brightness() uint8 { return uint8(p.brightness.Load()) }

// Stats returns a snapshot for the monitoring surface.
func (p *Pipeline) Stats() Stats {
	return Stats{
		FramesShown:    p.shown.Load(),
		FramesRejected: p.rejected.Load(),
		SinkErrors:     p.sinkErrors.Load(),
		LastBrightness: uint8(p.lastSent.Load()),
	}
}

func (p *Pipeline) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		f, ok := p.queue.Pop(popTimeout)
		if !ok {
			continue
		}
		p.show(f)
	}
}

// show composes one frame, clamps brightness and hands it to the sink.
// A sink failure only costs the current frame.
func (p *Pipeline) show(f *frame.Frame) {
	if err := p.composer.ApplyFrame(f); err != nil {
		p.rejected.Add(1)
		p.log.Warn().Err(err).Msg("frame rejected by composer")
		return
	}

	rgb := p.composer.LEDBuffer()
	requested := uint8(p.brightness.Load())
	safe, limited := p.limiter.Clamp(f, requested)
	if limited {
		p.log.Debug().Uint8("requested", requested).Uint8("safe", safe).
			Msg("brightness limited")
	}

	if err := p.driver.Write(rgb, safe); err != nil {
		p.sinkErrors.Add(1)
		p.log.Error().Err(err).Msg("driver sink write failed")
		return
	}
	p.shown.Add(1)
	p.lastSent.Store(uint32(safe))

	if p.OnFrame != nil {
		p.OnFrame(p.composer.CombinedBuffer())
	}
}
