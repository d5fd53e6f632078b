package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/panelgrid/internal/frame"
	"github.com/example/panelgrid/internal/led"
	"github.com/example/panelgrid/internal/layout"
	"github.com/example/panelgrid/internal/panel"
	"github.com/example/panelgrid/internal/power"
)

func buildComposer(t *testing.T) *panel.Composer {
	t.Helper()
	l := &layout.Layout{
		Grid: layout.Grid{GridWidth: 2, GridHeight: 1, PanelWidth: 16, PanelHeight: 16},
		Panels: []layout.PanelSpec{
			{ID: 0, Position: [2]int{0, 0}, Rotation: 0},
			{ID: 1, Position: [2]int{1, 0}, Rotation: 0},
		},
	}
	require.NoError(t, l.Validate())
	return panel.NewComposer(l)
}

// Solid red at full brightness across 512 LEDs draws 512*20mA = 10.24A;
// a 2A ceiling forces the limiter to clamp.
func TestEndToEndRedFrameClamped(t *testing.T) {
	comp := buildComposer(t)
	q := frame.NewQueue(4)
	lim := power.NewLimiter(comp.LEDCount(), 2.0, true, zerolog.Nop())
	sink := led.NewSim()

	p := New(q, comp, lim, sink, 255, zerolog.Nop())
	p.Start()
	defer p.Stop()

	require.True(t, q.TryPush(frame.Solid(32, 16, 255, 0, 0)))

	assert.Eventually(t, func() bool { return sink.Writes() == 1 },
		2*time.Second, 5*time.Millisecond)

	rgb, brightness := sink.Last()
	require.Len(t, rgb, comp.LEDCount()*3)
	for i := 0; i < len(rgb); i += 3 {
		require.EqualValues(t, 255, rgb[i], "pure red everywhere")
		require.EqualValues(t, 0, rgb[i+1])
		require.EqualValues(t, 0, rgb[i+2])
	}
	assert.Less(t, int(brightness), 255, "brightness clamped")
	assert.LessOrEqual(t, lim.EstimateCurrent(frame.Solid(32, 16, 255, 0, 0), brightness), 2.0+0.02)

	st := lim.Stats()
	assert.EqualValues(t, 1, st.LimitAppliedCount)
	assert.Equal(t, int(brightness), st.LastLimitedBrightness)
	assert.EqualValues(t, brightness, p.Stats().LastBrightness)
}

func TestMismatchedFrameRejected(t *testing.T) {
	comp := buildComposer(t)
	q := frame.NewQueue(4)
	lim := power.NewLimiter(comp.LEDCount(), 8.5, true, zerolog.Nop())
	sink := led.NewSim()

	p := New(q, comp, lim, sink, 128, zerolog.Nop())
	p.Start()
	defer p.Stop()

	q.TryPush(frame.New(16, 16)) // wrong dimensions
	q.TryPush(frame.Solid(32, 16, 0, 255, 0))

	assert.Eventually(t, func() bool { return p.Stats().FramesShown == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, p.Stats().FramesRejected)
	assert.EqualValues(t, 1, sink.Writes())
}

type failingSink struct{}

func (failingSink) Write([]byte, uint8) error { return errors.New("boom") }
func (failingSink) Close() error              { return nil }

func TestSinkErrorDoesNotStopPipeline(t *testing.T) {
	comp := buildComposer(t)
	q := frame.NewQueue(4)
	lim := power.NewLimiter(comp.LEDCount(), 8.5, false, zerolog.Nop())

	p := New(q, comp, lim, failingSink{}, 128, zerolog.Nop())
	p.Start()
	defer p.Stop()

	q.TryPush(frame.Solid(32, 16, 1, 1, 1))
	q.TryPush(frame.Solid(32, 16, 2, 2, 2))

	assert.Eventually(t, func() bool { return p.Stats().SinkErrors == 2 },
		2*time.Second, 5*time.Millisecond)
	assert.Zero(t, p.Stats().FramesShown)
}

func TestOnFrameTap(t *testing.T) {
	comp := buildComposer(t)
	q := frame.NewQueue(4)
	lim := power.NewLimiter(comp.LEDCount(), 8.5, false, zerolog.Nop())
	sink := led.NewSim()

	var mu sync.Mutex
	var got *frame.Frame
	p := New(q, comp, lim, sink, 255, zerolog.Nop())
	p.OnFrame = func(f *frame.Frame) {
		mu.Lock()
		got = f
		mu.Unlock()
	}
	p.Start()
	defer p.Stop()

	q.TryPush(frame.Solid(32, 16, 0, 0, 255))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 32, got.Width)
	_, _, b := got.At(20, 8)
	assert.EqualValues(t, 255, b)
}

func TestStartTwiceAndStopTwice(t *testing.T) {
	comp := buildComposer(t)
	q := frame.NewQueue(1)
	lim := power.NewLimiter(comp.LEDCount(), 8.5, false, zerolog.Nop())
	p := New(q, comp, lim, led.NewSim(), 128, zerolog.Nop())

	p.Start()
	p.Start()
	p.Stop()
	p.Stop()
}
