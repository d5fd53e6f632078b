//go:build linux

package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/panelgrid/internal/frame"
)

// settleDelay spaces out reopen attempts after the writer side closes
// the pipe or a read fails.
const settleDelay = 100 * time.Millisecond

// PipeReceiver reads raw RGB frames from a named pipe. There is no
// framing on this transport: one frame is exactly width*height*3 bytes,
// and each read call is its own decode attempt. A short, non-zero read
// is discarded rather than buffered for completion.
type PipeReceiver struct {
	path      string
	queue     *frame.Queue
	width     int
	height    int
	frameSize int
	log       zerolog.Logger

	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup

	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewPipeReceiver builds a receiver over the FIFO at path.
func NewPipeReceiver(path string, q *frame.Queue, width, height int, log zerolog.Logger) *PipeReceiver {
	return &PipeReceiver{
		path:      path,
		queue:     q,
		width:     width,
		height:    height,
		frameSize: width * height * 3,
		log:       log.With().Str("receiver", "pipe").Logger(),
	}
}

// Start creates the FIFO if needed and spawns the receive loop.
func (r *PipeReceiver) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Warn().Msg("pipe receiver already running")
		return nil
	}
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		if err := syscall.Mkfifo(r.path, 0o666); err != nil {
			r.running.Store(false)
			return fmt.Errorf("create fifo %s: %w", r.path, err)
		}
		r.log.Info().Str("path", r.path).Msg("created named pipe")
	}
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.run()
	r.log.Info().Str("path", r.path).Msg("pipe frame receiver started")
	return nil
}

// Stop signals the loop and joins it with a bounded wait.
func (r *PipeReceiver) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	r.log.Info().Msg("stopping pipe frame receiver")
	close(r.stop)
	if !waitTimeout(&r.wg, joinTimeout) {
		r.log.Warn().Msg("pipe receive loop did not exit in time")
	}
	r.log.Info().Msg("pipe frame receiver stopped")
}

// Stats returns the adapter's frame counters.
func (r *PipeReceiver) Stats() Stats {
	return Stats{Received: r.received.Load(), Dropped: r.dropped.Load()}
}

func (r *PipeReceiver) run() {
	defer r.wg.Done()
	r.log.Debug().Msg("pipe receive loop started")
	for {
		if r.stopped() {
			r.log.Debug().Msg("pipe receive loop ended")
			return
		}
		// O_NONBLOCK lets the open succeed with no writer attached and
		// makes the file pollable so read deadlines work.
		f, err := os.OpenFile(r.path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
		if err != nil {
			r.log.Error().Err(err).Msg("error opening pipe")
			r.sleep(settleDelay)
			continue
		}
		r.readFrames(f)
		f.Close()
		r.sleep(settleDelay)
	}
}

// readFrames reads frames until a hard error or stop. EOF on a FIFO
// only means no writer is currently attached; the descriptor stays
// valid for the next writer, so the loop waits it out in place.
func (r *PipeReceiver) readFrames(f *os.File) {
	buf := make([]byte, r.frameSize)
	for {
		if r.stopped() {
			return
		}
		f.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := f.Read(buf)
		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			continue
		case err == io.EOF || (err == nil && n == 0):
			r.sleep(settleDelay)
			continue
		case err != nil:
			if r.running.Load() {
				r.log.Error().Err(err).Msg("error receiving pipe frame")
			}
			return
		}

		if n != r.frameSize {
			r.log.Warn().Int("bytes", n).Int("expected", r.frameSize).
				Msg("incomplete frame discarded")
			continue
		}
		fr, err := frame.FromBytes(buf, r.width, r.height)
		if err != nil {
			r.log.Warn().Err(err).Msg("rejected pipe frame")
			continue
		}
		if r.queue.TryPush(fr) {
			r.received.Add(1)
		} else {
			r.dropped.Add(1)
			r.log.Warn().Msg("frame queue full, dropping frame")
		}
	}
}

func (r *PipeReceiver) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

func (r *PipeReceiver) sleep(d time.Duration) {
	select {
	case <-r.stop:
	case <-time.After(d):
	}
}
