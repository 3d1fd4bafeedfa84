// Package queue provides the non-blocking, FIFO-ordered send buffer that
// backs every connection of the enterprise service bus (spec.md §5:
// "send_to is non-blocking (queue-backed); if the transport queue is full,
// the send fails with a transport error"). It is adapted from the teacher's
// own queue package (github.com/breez/lightninglib/queue), whose contract
// is pinned by queue/queue_test.go in the retrieved pack: push many items
// without blocking the sender, pop them later in the order they arrived.
package queue

// Queue is an unbounded, FIFO, channel-backed buffer. A background
// goroutine shuttles items from ChanIn to ChanOut so that producers never
// block on a slow or absent consumer, matching the "sends are fire-and-
// forget" requirement of the ESB.
type Queue struct {
	chanIn  chan interface{}
	chanOut chan interface{}
	quit    chan struct{}
	done    chan struct{}
}

// New constructs a Queue. initialCapacity is clamped to at least 1 and
// otherwise unused: the backing buffer starts empty and grows without
// bound.
func New(initialCapacity int) *Queue {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Queue{
		chanIn:  make(chan interface{}),
		chanOut: make(chan interface{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ChanIn returns the channel producers send items on.
func (q *Queue) ChanIn() chan<- interface{} {
	return q.chanIn
}

// ChanOut returns the channel consumers receive items from, in FIFO order.
func (q *Queue) ChanOut() <-chan interface{} {
	return q.chanOut
}

// Start launches the background forwarding goroutine. Must be called once
// before use.
func (q *Queue) Start() {
	go q.run()
}

// Stop shuts the queue down. Any items still buffered are dropped.
func (q *Queue) Stop() {
	close(q.quit)
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)

	var buffer []interface{}

	for {
		if len(buffer) == 0 {
			select {
			case item := <-q.chanIn:
				buffer = append(buffer, item)
			case <-q.quit:
				return
			}
			continue
		}

		select {
		case item := <-q.chanIn:
			buffer = append(buffer, item)
		case q.chanOut <- buffer[0]:
			buffer = buffer[1:]
		case <-q.quit:
			return
		}
	}
}
