package dqueue_test

import (
	"sync"
	"testing"

	"github.com/flowforge/dagmanager/pkg/dqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := dqueue.New[int]()
	for i := 0; i < 5; i++ {
		require.True(t, q.Offer(i))
	}
	for i := 0; i < 5; i++ {
		v, ok := q.TryPoll()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.TryPoll()
	assert.False(t, ok)
}

func TestQueue_DrainAll(t *testing.T) {
	q := dqueue.New[string]()
	q.Offer("a")
	q.Offer("b")
	q.Offer("c")

	assert.Equal(t, []string{"a", "b", "c"}, q.DrainAll())
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.DrainAll())
}

func TestQueue_ConcurrentOffer(t *testing.T) {
	q := dqueue.New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			q.Offer(v)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, q.Len())
	assert.Len(t, q.DrainAll(), 100)
}

func TestConcurrentSet_AddRemoveContains(t *testing.T) {
	s := dqueue.NewConcurrentSet[string]()
	assert.True(t, s.Add("x"))
	assert.False(t, s.Add("x"))
	assert.True(t, s.Contains("x"))

	assert.True(t, s.Remove("x"))
	assert.False(t, s.Remove("x"))
	assert.False(t, s.Contains("x"))
}

func TestConcurrentSet_Snapshot(t *testing.T) {
	s := dqueue.NewConcurrentSet[int]()
	s.Add(1)
	s.Add(2)
	s.Add(3)

	assert.ElementsMatch(t, []int{1, 2, 3}, s.Snapshot())
	assert.Equal(t, 3, s.Len())
}
