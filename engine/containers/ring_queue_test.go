package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](4)
	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	require.NoError(t, rq.Enqueue(3))

	assert.Equal(t, 3, rq.Len())

	v, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestRingQueueFull(t *testing.T) {
	rq := NewRingQueue[string](2)
	require.NoError(t, rq.Enqueue("a"))
	require.NoError(t, rq.Enqueue("b"))
	assert.True(t, rq.IsFull())
	assert.ErrorIs(t, rq.Enqueue("c"), ErrQueueFull)
}

func TestRingQueueEmpty(t *testing.T) {
	rq := NewRingQueue[int](2)
	assert.True(t, rq.IsEmpty())
	_, err := rq.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
	_, err = rq.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingQueueWrapAround(t *testing.T) {
	rq := NewRingQueue[int](3)
	for round := 0; round < 5; round++ {
		require.NoError(t, rq.Enqueue(round))
		v, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, round, v)
	}
	assert.True(t, rq.IsEmpty())
}

func TestRingQueuePeekDoesNotRemove(t *testing.T) {
	rq := NewRingQueue[int](2)
	require.NoError(t, rq.Enqueue(7))
	v, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, rq.Len())
}
