package vm

import (
	"sync"

	"deskvm.dev/deskvm/gen"
)

//
// Lock order
//
// Every process has one primary critical section made of two mutexes,
// interpreter and status, always acquired in this order (lockPrimary). All
// other per-process resources (mailbox, kv, timers, flags, links, monitors,
// attachment) are secondary.
//
//  1. the primary lock of a process is never acquired while any secondary
//     resource of any process is held;
//  2. at most one secondary resource is held at a time;
//  3. a handler that calls back into the VM in a way that may reach the
//     primary lock of its own process releases its primary lock first.
//
// Secondary resources are only reachable through locked.read/locked.write,
// lib.Map and the mailbox methods. Their callbacks get the resource value and
// nothing else, so rules 1 and 2 hold as long as the callbacks do not reach
// the VM.
//

// primaryLock is the held (interpreter, status) section of a process.
// Releasing is idempotent, so the owner can defer release() and still drop
// the locks earlier when a handler requires it.
type primaryLock struct {
	p           *process
	interpreter bool
	status      bool
}

func (p *process) lockPrimary() *primaryLock {
	p.interpreterMu.Lock()
	p.statusMu.Lock()
	return &primaryLock{p: p, interpreter: true, status: true}
}

// lockInterpreter takes the interpreter half only. Used to deliver an
// output after the primary section has been released.
func (p *process) lockInterpreter() *primaryLock {
	p.interpreterMu.Lock()
	return &primaryLock{p: p, interpreter: true}
}

// lockStatus takes the status half only. Used to change the status of a
// process from outside of its reduction (Halt).
func (p *process) lockStatus() *primaryLock {
	p.statusMu.Lock()
	return &primaryLock{p: p, status: true}
}

func (l *primaryLock) releaseStatus() {
	if l.status == false {
		return
	}
	l.status = false
	l.p.statusMu.Unlock()
}

func (l *primaryLock) release() {
	l.releaseStatus()
	if l.interpreter == false {
		return
	}
	l.interpreter = false
	l.p.interpreterMu.Unlock()
}

func (l *primaryLock) effectOutput(output gen.Value) {
	if l.interpreter == false {
		panic("effect output without interpreter lock")
	}
	l.p.interpreter.EffectOutput(output)
}

// updateStatus applies the new status unless the current one is terminal.
// Returns false if the status was not changed.
func (l *primaryLock) updateStatus(next *gen.Status) bool {
	if l.status == false {
		panic("status update without status lock")
	}
	current := l.p.status.Load()
	if current.IsTerminal() {
		return false
	}
	l.p.status.Store(next)
	if next.IsTerminal() {
		l.p.terminated(next)
	}
	return true
}

// locked is a secondary resource guarded by its own RWMutex.
type locked[T any] struct {
	mu sync.RWMutex
	v  T
}

func (l *locked[T]) read(f func(v T)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f(l.v)
}

func (l *locked[T]) write(f func(v *T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f(&l.v)
}

func (l *locked[T]) load() T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v
}

func (l *locked[T]) store(v T) {
	l.mu.Lock()
	l.v = v
	l.mu.Unlock()
}
