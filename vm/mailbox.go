package vm

import (
	"sync"

	"deskvm.dev/deskvm/gen"
	"deskvm.dev/deskvm/lib"
)

// mailbox keeps one FIFO queue per message type. Values are moved out on
// dequeue, never shared between readers.
type mailbox struct {
	mu     sync.Mutex
	limit  int64
	queues map[gen.Type]lib.QueueMPSC
}

func newMailbox(limit int64) *mailbox {
	return &mailbox{
		limit:  limit,
		queues: make(map[gen.Type]lib.QueueMPSC),
	}
}

// push returns false if the queue of the type is full.
func (m *mailbox) push(ty gen.Type, message gen.Value) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue, found := m.queues[ty]
	if found == false {
		queue = lib.NewQueueLimitMPSC(m.limit)
		m.queues[ty] = queue
	}
	return queue.Push(message)
}

func (m *mailbox) pop(ty gen.Type) (gen.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue, found := m.queues[ty]
	if found == false {
		return nil, false
	}
	return queue.Pop()
}

// drain returns every queued message of the type in FIFO order. The result
// is never nil.
func (m *mailbox) drain(ty gen.Type) gen.Vector {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := gen.Vector{}
	queue, found := m.queues[ty]
	if found == false {
		return messages
	}
	for _, v := range queue.Drain() {
		messages = append(messages, v)
	}
	return messages
}

func (m *mailbox) len(ty gen.Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if queue, found := m.queues[ty]; found {
		return int(queue.Len())
	}
	return 0
}

func (m *mailbox) lens() map[gen.Type]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	lens := make(map[gen.Type]int, len(m.queues))
	for ty, queue := range m.queues {
		if l := queue.Len(); l > 0 {
			lens[ty] = int(l)
		}
	}
	return lens
}
