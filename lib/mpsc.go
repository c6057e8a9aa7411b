// Lock-free FIFO queue (Multiple Producers Single Consumer) used for mailbox queues

package lib

import (
	"math"
	"sync/atomic"
	"unsafe"
)

type QueueMPSC interface {
	// Push appends the value. Returns false if the limit has been reached.
	Push(value any) bool
	// Pop removes the oldest value.
	Pop() (any, bool)
	// Drain pops every queued value in FIFO order.
	Drain() []any
	// Item returns the oldest item. Returns nil if queue is empty.
	Item() ItemMPSC
	// Len returns the number of items in the queue
	Len() int64
	// Size returns the limit for the queue. -1 - for unlimited
	Size() int64
}

type ItemMPSC interface {
	Next() ItemMPSC
	Value() any
}

type queueMPSC struct {
	head   *itemMPSC
	tail   *itemMPSC
	length int64
	limit  int64
}

type itemMPSC struct {
	value any
	next  *itemMPSC
}

// NewQueueMPSC creates unlimited MPSC queue.
func NewQueueMPSC() QueueMPSC {
	return NewQueueLimitMPSC(-1)
}

// NewQueueLimitMPSC creates MPSC queue with limited length. Values less than 1
// make the queue unlimited.
func NewQueueLimitMPSC(limit int64) QueueMPSC {
	if limit < 1 {
		limit = math.MaxInt64
	}
	emptyItem := &itemMPSC{}
	return &queueMPSC{
		head:  emptyItem,
		tail:  emptyItem,
		limit: limit,
	}
}

func (q *queueMPSC) Push(value any) bool {
	if atomic.AddInt64(&q.length, 1) > q.limit {
		atomic.AddInt64(&q.length, -1)
		return false
	}

	i := &itemMPSC{
		value: value,
	}
	old_head := (*itemMPSC)(atomic.SwapPointer((*unsafe.Pointer)(unsafe.Pointer(&q.head)), unsafe.Pointer(i)))
	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(&old_head.next)), unsafe.Pointer(i))
	return true
}

func (q *queueMPSC) Pop() (any, bool) {
	tail_next := (*itemMPSC)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&q.tail.next))))
	if tail_next == nil {
		return nil, false
	}

	value := tail_next.value
	tail_next.value = nil // let the GC free this item

	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(&q.tail)), unsafe.Pointer(tail_next))
	atomic.AddInt64(&q.length, -1)
	return value, true
}

func (q *queueMPSC) Drain() []any {
	values := make([]any, 0, q.Len())
	for {
		v, ok := q.Pop()
		if ok == false {
			return values
		}
		values = append(values, v)
	}
}

func (q *queueMPSC) Len() int64 {
	return atomic.LoadInt64(&q.length)
}

func (q *queueMPSC) Size() int64 {
	if q.limit == math.MaxInt64 {
		return -1 // unlimited
	}
	return q.limit
}

func (q *queueMPSC) Item() ItemMPSC {
	tail := (*itemMPSC)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&q.tail))))
	item := (*itemMPSC)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&tail.next))))
	if item == nil {
		return nil
	}
	return item
}

//
// ItemMPSC interface implementation
//

// Next provides walking through the queue. Returns nil if the last item is reached.
func (i *itemMPSC) Next() ItemMPSC {
	next := (*itemMPSC)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&i.next))))
	if next == nil {
		return nil
	}
	return next
}

// Value returns stored value of the queue item
func (i *itemMPSC) Value() any {
	return i.value
}
