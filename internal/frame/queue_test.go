package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDropOnFull(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.TryPush(Solid(1, 1, 1, 0, 0)))
	assert.True(t, q.TryPush(Solid(1, 1, 2, 0, 0)))
	// Full: the newest frame is dropped, the producer never blocks.
	assert.False(t, q.TryPush(Solid(1, 1, 3, 0, 0)))

	assert.EqualValues(t, 2, q.Accepted())
	assert.EqualValues(t, 1, q.Dropped())

	f, ok := q.Pop(time.Millisecond)
	require.True(t, ok)
	assert.EqualValues(t, 1, f.Pix[0], "oldest frame is delivered first")
}

func TestQueuePopTimeout(t *testing.T) {
	q := NewQueue(1)
	start := time.Now()
	f, ok := q.Pop(20 * time.Millisecond)
	assert.False(t, ok)
	assert.Nil(t, f)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueueOrdering(t *testing.T) {
	q := NewQueue(8)
	for i := byte(0); i < 5; i++ {
		q.TryPush(Solid(1, 1, i, 0, 0))
	}
	for i := byte(0); i < 5; i++ {
		f, ok := q.Pop(time.Millisecond)
		require.True(t, ok)
		assert.Equal(t, i, f.Pix[0])
	}
}
