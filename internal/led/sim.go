package led

import "sync"

// Sim is a buffer-recording sink for headless runs and tests: it keeps
// the last frame and brightness it was handed and counts writes.
type Sim struct {
	mu         sync.Mutex
	last       []byte
	brightness uint8
	writes     uint64
}

// NewSim returns an empty recording sink.
func NewSim() *Sim { return &Sim{} }

func (s *Sim) Write(rgb []byte, brightness uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = append(s.last[:0], rgb...)
	s.brightness = brightness
	s.writes++
	return nil
}

func (s *Sim) Close() error { return nil }

// Last returns a copy of the most recent frame and its brightness.
func (s *Sim) Last() ([]byte, uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.last))
	copy(out, s.last)
	return out, s.brightness
}

// Writes returns the number of frames received.
func (s *Sim) Writes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
