package vm

import (
	"sync"

	"deskvm.dev/deskvm/gen"
)

// target is the subscription index: message type -> subscribers. Every
// entry has its own lock, there is no table-wide lock.
type target struct {
	c sync.Map // gen.Type -> *consumers
}

type consumers struct {
	sync.RWMutex
	list []gen.ProcessID
}

func createTarget() *target {
	return &target{}
}

// registerConsumer returns false if the consumer was already subscribed.
func (t *target) registerConsumer(ty gen.Type, consumer gen.ProcessID) bool {
	value, _ := t.c.LoadOrStore(ty, &consumers{})
	pc := value.(*consumers)

	pc.Lock()
	defer pc.Unlock()
	for _, id := range pc.list {
		if id == consumer {
			return false
		}
	}
	pc.list = append(pc.list, consumer)
	return true
}

// unregisterConsumer returns true if the consumer was subscribed.
func (t *target) unregisterConsumer(ty gen.Type, consumer gen.ProcessID) bool {
	value, exist := t.c.Load(ty)
	if exist == false {
		return false
	}

	pc := value.(*consumers)
	pc.Lock()
	defer pc.Unlock()

	for i, id := range pc.list {
		if id != consumer {
			continue
		}
		pc.list = append(pc.list[:i:i], pc.list[i+1:]...)
		return true
	}
	return false
}

// unregisterAll removes the consumer from every type.
func (t *target) unregisterAll(consumer gen.ProcessID) {
	t.c.Range(func(k, _ any) bool {
		t.unregisterConsumer(k.(gen.Type), consumer)
		return true
	})
}

// consumers returns a copy of the subscriber list, so the caller can
// deliver without holding the entry lock.
func (t *target) consumers(ty gen.Type) []gen.ProcessID {
	value, exist := t.c.Load(ty)
	if exist == false {
		return nil
	}
	pc := value.(*consumers)

	pc.RLock()
	defer pc.RUnlock()

	list := make([]gen.ProcessID, len(pc.list))
	copy(list, pc.list)
	return list
}

// count returns the number of (type, subscriber) pairs.
func (t *target) count() int {
	n := 0
	t.c.Range(func(_, v any) bool {
		pc := v.(*consumers)
		pc.RLock()
		n += len(pc.list)
		pc.RUnlock()
		return true
	})
	return n
}
