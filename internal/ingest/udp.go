package ingest

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/panelgrid/internal/frame"
)

// maxDatagram is the largest packet the receiver will accept. One
// datagram is exactly one frame.
const maxDatagram = 65536

// UDPReceiver decodes "LEDF" datagrams from a UDP socket.
type UDPReceiver struct {
	port   int
	queue  *frame.Queue
	width  int
	height int
	log    zerolog.Logger

	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
	conn    *net.UDPConn

	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewUDPReceiver builds a receiver for the given canonical dimensions.
// Port 0 binds an ephemeral port, see Addr.
func NewUDPReceiver(port int, q *frame.Queue, width, height int, log zerolog.Logger) *UDPReceiver {
	return &UDPReceiver{
		port:   port,
		queue:  q,
		width:  width,
		height: height,
		log:    log.With().Str("receiver", "udp").Logger(),
	}
}

// Start binds the socket and spawns the receive loop.
func (r *UDPReceiver) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Warn().Msg("UDP receiver already running")
		return nil
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: r.port})
	if err != nil {
		r.running.Store(false)
		return fmt.Errorf("bind udp port %d: %w", r.port, err)
	}
	r.conn = conn
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.run()
	r.log.Info().Stringer("addr", conn.LocalAddr()).Msg("UDP frame receiver started")
	return nil
}

// Stop signals the loop, joins it and closes the socket.
func (r *UDPReceiver) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	r.log.Info().Msg("stopping UDP frame receiver")
	close(r.stop)
	if !waitTimeout(&r.wg, joinTimeout) {
		r.log.Warn().Msg("UDP receive loop did not exit in time")
	}
	r.conn.Close()
	r.conn = nil
	r.log.Info().Msg("UDP frame receiver stopped")
}

// Addr returns the bound address, or nil when not running.
func (r *UDPReceiver) Addr() net.Addr {
	if c := r.conn; c != nil {
		return c.LocalAddr()
	}
	return nil
}

// Stats returns the adapter's frame counters.
func (r *UDPReceiver) Stats() Stats {
	return Stats{Received: r.received.Load(), Dropped: r.dropped.Load()}
}

func (r *UDPReceiver) run() {
	defer r.wg.Done()
	r.log.Debug().Msg("UDP receive loop started")
	conn := r.conn
	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-r.stop:
			r.log.Debug().Msg("UDP receive loop ended")
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if r.running.Load() {
				r.log.Error().Err(err).Msg("error receiving UDP frame")
			}
			continue
		}

		f, err := frame.DecodeDatagram(buf[:n], r.width, r.height)
		if err != nil {
			r.log.Warn().Err(err).Int("bytes", n).Msg("rejected UDP frame")
			continue
		}
		if r.queue.TryPush(f) {
			r.received.Add(1)
		} else {
			r.dropped.Add(1)
			r.log.Warn().Msg("frame queue full, dropping frame")
		}
	}
}
