// Package ingest receives externally-produced frames over UDP or a
// named pipe, validates them against the canonical display dimensions
// and hands them to the bounded frame queue. Each receiver runs its own
// goroutine; a malformed packet or transport hiccup never stops a
// receive loop, only Stop does.
package ingest

import (
	"sync"
	"time"
)

// How long a blocking transport read may last before the loop polls its
// stop signal, and how long Stop waits for the loop to exit.
const (
	readTimeout = 1 * time.Second
	joinTimeout = 2 * time.Second
)

// Receiver is one transport adapter feeding the frame queue.
type Receiver interface {
	// Start binds the transport resource and spawns the receive loop.
	// Starting a running receiver is a logged no-op.
	Start() error
	// Stop signals the loop, joins it with a bounded wait and releases
	// the resource.
	Stop()
	// Stats returns the adapter's frame counters.
	Stats() Stats
}

// Stats counts well-formed frames per adapter. Malformed input is
// counted in neither field.
type Stats struct {
	Received uint64 `json:"frames_received"`
	Dropped  uint64 `json:"frames_dropped"`
}

// waitTimeout joins wg but gives up after d. Returns false on timeout.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
