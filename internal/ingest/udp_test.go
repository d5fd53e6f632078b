package ingest

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/panelgrid/internal/frame"
)

func startUDP(t *testing.T, q *frame.Queue, w, h int) (*UDPReceiver, net.Conn) {
	t.Helper()
	r := NewUDPReceiver(0, q, w, h, zerolog.Nop())
	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)

	conn, err := net.Dial("udp", r.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return r, conn
}

func TestUDPReceiveFrame(t *testing.T) {
	q := frame.NewQueue(4)
	r, conn := startUDP(t, q, 4, 3)

	want := frame.Solid(4, 3, 1, 2, 3)
	_, err := conn.Write(frame.EncodeDatagram(want))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return r.Stats().Received == 1 },
		2*time.Second, 5*time.Millisecond)

	got, ok := q.Pop(time.Second)
	require.True(t, ok)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestUDPRejectsMalformed(t *testing.T) {
	q := frame.NewQueue(4)
	r, conn := startUDP(t, q, 4, 3)

	bad := [][]byte{
		[]byte("LE"), // truncated
		append([]byte("LEDX"), frame.EncodeDatagram(frame.New(4, 3))[4:]...), // bad magic
		frame.EncodeDatagram(frame.New(5, 3)),                                // wrong dimensions
		frame.EncodeDatagram(frame.New(4, 3))[:20],                           // wrong length
	}
	for _, pkt := range bad {
		_, err := conn.Write(pkt)
		require.NoError(t, err)
	}
	_, err := conn.Write(frame.EncodeDatagram(frame.Solid(4, 3, 9, 9, 9)))
	require.NoError(t, err)

	// Only the trailing well-formed frame is counted.
	assert.Eventually(t, func() bool { return r.Stats().Received == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 0, r.Stats().Dropped)
	assert.Equal(t, 1, q.Len())
}

func TestUDPDropOnFull(t *testing.T) {
	q := frame.NewQueue(2)
	r, conn := startUDP(t, q, 4, 3)

	const sent = 8
	pkt := frame.EncodeDatagram(frame.Solid(4, 3, 7, 7, 7))
	for i := 0; i < sent; i++ {
		_, err := conn.Write(pkt)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	// No consumer drains the queue: every well-formed packet is either
	// accepted or dropped, nothing blocks.
	assert.Eventually(t, func() bool {
		st := r.Stats()
		return st.Received+st.Dropped == sent
	}, 2*time.Second, 5*time.Millisecond)
	st := r.Stats()
	assert.EqualValues(t, 2, st.Received)
	assert.Greater(t, st.Dropped, uint64(0))
}

func TestUDPStartTwiceIsNoop(t *testing.T) {
	q := frame.NewQueue(1)
	r, _ := startUDP(t, q, 4, 3)
	addr := r.Addr().String()
	require.NoError(t, r.Start())
	assert.Equal(t, addr, r.Addr().String(), "second start does not rebind")
}

func TestUDPStopIsPrompt(t *testing.T) {
	q := frame.NewQueue(1)
	r := NewUDPReceiver(0, q, 4, 3, zerolog.Nop())
	require.NoError(t, r.Start())

	start := time.Now()
	r.Stop()
	assert.Less(t, time.Since(start), joinTimeout)
	// Stopping again is harmless.
	r.Stop()
}
