// Package power estimates the electrical current a frame would draw
// and clamps the global brightness to keep the draw under a configured
// ceiling, protecting the supply from full-white worst cases.
package power

import (
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/panelgrid/internal/frame"
)

// WS2812B draw model. Current scales linearly with both per-channel
// intensity and global brightness.
const (
	// CurrentFullWhiteMA is the worst-case draw of one LED at full
	// white, in milliamps.
	CurrentFullWhiteMA = 60.0
)

// Stats is the read-only monitoring view of the limiter.
type Stats struct {
	Enabled               bool    `json:"enabled"`
	MaxCurrentAmps        float64 `json:"max_current_amps"`
	LimitAppliedCount     uint64  `json:"limit_applied_count"`
	LastLimitedBrightness int     `json:"last_limited_brightness"`
	MaxTheoreticalAmps    float64 `json:"max_theoretical_current_a"`
}

// Limiter clamps brightness so the estimated frame current stays under
// MaxCurrentAmps. It performs no I/O; Clamp is a single pass over the
// frame bytes.
type Limiter struct {
	mu       sync.Mutex
	ledCount int
	maxAmps  float64
	enabled  bool

	limitApplied uint64
	lastLimited  int // -1 until a limit has been applied
	log          zerolog.Logger
}

// NewLimiter builds a limiter for ledCount LEDs with a ceiling in amps.
func NewLimiter(ledCount int, maxCurrentAmps float64, enabled bool, log zerolog.Logger) *Limiter {
	l := &Limiter{
		ledCount:    ledCount,
		maxAmps:     maxCurrentAmps,
		enabled:     enabled,
		lastLimited: -1,
		log:         log,
	}
	l.log.Info().
		Float64("limit_amps", maxCurrentAmps).
		Int("led_count", ledCount).
		Float64("max_theoretical_amps", l.maxTheoreticalAmps()).
		Bool("enabled", enabled).
		Msg("power limiter initialized")
	return l
}

func (l *Limiter) maxTheoreticalAmps() float64 {
	return float64(l.ledCount) * CurrentFullWhiteMA / 1000.0
}

// EstimateCurrent returns the expected draw in amps for a frame at the
// given global brightness.
func (l *Limiter) EstimateCurrent(f *frame.Frame, brightness uint8) float64 {
	if f == nil || len(f.Pix) == 0 || l.ledCount == 0 {
		return 0
	}
	var sum float64
	for _, v := range f.Pix {
		sum += float64(v)
	}
	maxSum := float64(l.ledCount) * 3 * 255
	intensity := sum / maxSum
	perLEDmA := CurrentFullWhiteMA * intensity * float64(brightness) / 255.0
	return perLEDmA * float64(l.ledCount) / 1000.0
}

// Clamp returns a brightness that keeps the frame's estimated draw
// under the configured ceiling, and whether the requested brightness
// was reduced.
func (l *Limiter) Clamp(f *frame.Frame, requested uint8) (uint8, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || f == nil || len(f.Pix) == 0 {
		return requested, false
	}

	atRequested := l.EstimateCurrent(f, requested)
	if atRequested <= l.maxAmps {
		return requested, false
	}

	atFull := l.EstimateCurrent(f, 255)
	if atFull <= 0 {
		// All-black frame draws nothing at any brightness; no scale
		// factor can be derived.
		return requested, false
	}

	safe := math.Round(255 * l.maxAmps / atFull)
	if safe < 0 {
		safe = 0
	}
	if safe > 255 {
		safe = 255
	}
	safeB := uint8(safe)

	if safeB < requested {
		l.limitApplied++
		l.lastLimited = int(safeB)
		if l.limitApplied%100 == 1 {
			l.log.Info().
				Uint8("requested", requested).
				Uint8("safe", safeB).
				Float64("current_amps", atRequested).
				Float64("limit_amps", l.maxAmps).
				Msg("power limit active")
		}
		return safeB, true
	}
	return requested, false
}

// SetEnabled toggles limiting. Disabling resets the applied statistics.
func (l *Limiter) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
	if !enabled {
		l.limitApplied = 0
		l.lastLimited = -1
	}
	l.log.Info().Bool("enabled", enabled).Msg("power limiting toggled")
}

// SetMaxCurrent replaces the current ceiling. Non-positive values are
// rejected with a warning.
func (l *Limiter) SetMaxCurrent(amps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amps <= 0 {
		l.log.Warn().Float64("limit_amps", amps).Msg("invalid current limit ignored")
		return
	}
	l.maxAmps = amps
	l.log.Info().Float64("limit_amps", amps).Msg("power limit set")
}

// Stats returns a snapshot for the monitoring surface.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Enabled:               l.enabled,
		MaxCurrentAmps:        l.maxAmps,
		LimitAppliedCount:     l.limitApplied,
		LastLimitedBrightness: l.lastLimited,
		MaxTheoreticalAmps:    l.maxTheoreticalAmps(),
	}
}
