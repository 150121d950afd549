package library

import (
	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/slices"
)

// NewEventQueue returns a FIFO queue of events with the given initial size.
func NewEventQueue(size int) *EventQueue {
	if size < 1 {
		size = 1
	}
	return &EventQueue{
		nodes: make([]*nostr.Event, size),
		size:  size,
	}
}

// EventQueue is a ring buffer that grows as needed.
type EventQueue struct {
	nodes []*nostr.Event
	size  int
	head  int
	tail  int
	count int
}

// Push adds an Event to the back of the queue.
func (q *EventQueue) Push(n *nostr.Event) {
	if q.head == q.tail && q.count > 0 {
		nodes := make([]*nostr.Event, len(q.nodes)+q.size)
		copy(nodes, q.nodes[q.head:])
		copy(nodes[len(q.nodes)-q.head:], q.nodes[:q.head])
		q.head = 0
		q.tail = len(q.nodes)
		q.nodes = nodes
	}
	q.nodes[q.tail] = n
	q.tail = (q.tail + 1) % len(q.nodes)
	q.count++
}

// Pop removes and returns the oldest Event.
func (q *EventQueue) Pop() (*nostr.Event, bool) {
	if q.count == 0 {
		return nil, false
	}
	node := q.nodes[q.head]
	q.nodes[q.head] = nil
	q.head = (q.head + 1) % len(q.nodes)
	q.count--
	return node, true
}

func (q *EventQueue) Len() int {
	return q.count
}

// PushChronological adds a batch of events ordered by CreatedAt, keeping the batch order for ties.
func (q *EventQueue) PushChronological(events []nostr.Event) {
	batch := slices.Clone(events)
	slices.SortStableFunc(batch, func(a, b nostr.Event) bool {
		return a.CreatedAt < b.CreatedAt
	})
	for i := range batch {
		q.Push(&batch[i])
	}
}
