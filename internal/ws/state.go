// Package ws exposes the read-only monitoring surface: frame counters,
// limiter state and live frame previews over HTTP and websockets.
// Nothing here is persisted.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/example/panelgrid/internal/frame"
	"github.com/example/panelgrid/internal/ingest"
	"github.com/example/panelgrid/internal/pipeline"
	"github.com/example/panelgrid/internal/power"
)

// writeWait bounds a broadcast write to one slow client.
const writeWait = 200 * time.Millisecond

// State aggregates the pipeline's statistics for external monitoring.
type State struct {
	mu sync.RWMutex

	width    int
	height   int
	ledCount int
	driver   string

	receivers map[string]ingest.Receiver
	limiter   *power.Limiter
	pipeline  *pipeline.Pipeline
	queue     *frame.Queue

	frameID      uint64
	startTime    time.Time
	frameClients map[*websocket.Conn]bool
	statsClients map[*websocket.Conn]bool

	stop      chan struct{}
	closeOnce sync.Once
}

// NewState wires the monitoring surface to its stat sources.
func NewState(width, height, ledCount int, driver string,
	receivers map[string]ingest.Receiver, lim *power.Limiter,
	p *pipeline.Pipeline, q *frame.Queue) *State {
	return &State{
		width:        width,
		height:       height,
		ledCount:     ledCount,
		driver:       driver,
		receivers:    receivers,
		limiter:      lim,
		pipeline:     p,
		queue:        q,
		startTime:    time.Now(),
		frameClients: map[*websocket.Conn]bool{},
		statsClients: map[*websocket.Conn]bool{},
		stop:         make(chan struct{}),
	}
}

// RunStatsBroadcast pushes a stats snapshot to subscribed clients at
// the given interval until Close is called.
func (s *State) RunStatsBroadcast(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			b, err := json.Marshal(s.snapshot())
			if err != nil {
				continue
			}
			s.mu.RLock()
			for c := range s.statsClients {
				c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
					log.Debug().Err(err).Msg("write stats")
				}
			}
			s.mu.RUnlock()
		}
	}
}

// Close stops the stats broadcast loop and disconnects any subscribed
// clients. Safe to call more than once.
func (s *State) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		defer s.mu.Unlock()
		for c := range s.frameClients {
			c.Close()
			delete(s.frameClients, c)
		}
		for c := range s.statsClients {
			c.Close()
			delete(s.statsClients, c)
		}
	})
}

// PublishFrame broadcasts a composed canvas frame to preview clients.
// Intended as the pipeline's OnFrame hook.
func (s *State) PublishFrame(f *frame.Frame) {
	s.mu.Lock()
	s.frameID++
	id := s.frameID
	s.mu.Unlock()

	type msg struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
		RGB     []byte `json:"rgb"`
	}
	b, _ := json.Marshal(msg{
		T: time.Now().UnixNano(), FrameID: id,
		Width: f.Width, Height: f.Height, RGB: f.Pix,
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.frameClients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

// HandleFramesWS subscribes a websocket client to frame previews.
func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, s.frameClients)
}

// HandleStatsWS subscribes a websocket client to periodic stats.
func (s *State) HandleStatsWS(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, s.statsClients)
}

func (s *State) subscribe(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	set[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleHealth serves the stats snapshot as plain JSON.
func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshot())
}

func (s *State) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := map[string]ingest.Stats{}
	for name, r := range s.receivers {
		adapters[name] = r.Stats()
	}
	return map[string]any{
		"uptime_s":    time.Since(s.startTime).Seconds(),
		"width":       s.width,
		"height":      s.height,
		"led_count":   s.ledCount,
		"driver":      s.driver,
		"frame_id":    s.frameID,
		"queue_len":   s.queue.Len(),
		"queue_drops": s.queue.Dropped(),
		"receivers":   adapters,
		"power":       s.limiter.Stats(),
		"pipeline":    s.pipeline.Stats(),
	}
}
