//go:build !linux

package ingest

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/panelgrid/internal/frame"
)

// PipeReceiver requires FIFO support and is only available on Linux.
type PipeReceiver struct{}

func NewPipeReceiver(path string, q *frame.Queue, width, height int, log zerolog.Logger) *PipeReceiver {
	return &PipeReceiver{}
}

func (r *PipeReceiver) Start() error {
	return fmt.Errorf("pipe receiver not supported on this platform")
}

func (r *PipeReceiver) Stop() {}

func (r *PipeReceiver) Stats() Stats { return Stats{} }
