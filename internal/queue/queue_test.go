package queue_test

import (
	"testing"

	"github.com/lnp-node/lnpnode/internal/queue"
)

func TestQueueFIFOOrdering(t *testing.T) {
	q := queue.New(100)
	q.Start()
	defer q.Stop()

	for i := 0; i < 1000; i++ {
		q.ChanIn() <- i
	}

	for i := 0; i < 1000; i++ {
		item := <-q.ChanOut()
		if i != item.(int) {
			t.Fatalf("dequeued wrong value: expected %d, got %d", i, item)
		}
	}
}
