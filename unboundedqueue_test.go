package ensemble

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnboundedQueuePushPop(t *testing.T) {
	q := newUnboundedQueue()

	q.Push(1)
	q.Push(2)
	q.Push(3)

	assert.Equal(t, 3, q.Len())

	v, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestUnboundedQueuePopBlocksUntilPush(t *testing.T) {
	q := newUnboundedQueue()

	done := make(chan any, 1)
	go func() {
		v, ok := q.Pop()
		if ok {
			done <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push("hello")

	select {
	case v := <-done:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Push")
	}
}

func TestUnboundedQueueCloseWakesWaiters(t *testing.T) {
	q := newUnboundedQueue()

	var wg sync.WaitGroup
	results := make([]bool, 4)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok := q.Pop()
			results[i] = ok
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()

	wg.Wait()
	for _, ok := range results {
		assert.False(t, ok)
	}
}

func TestUnboundedQueuePushAfterCloseIsDropped(t *testing.T) {
	q := newUnboundedQueue()
	q.Close()
	q.Push("ignored")
	assert.Equal(t, 0, q.Len())
}
