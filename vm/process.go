package vm

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"deskvm.dev/deskvm/gen"
	"deskvm.dev/deskvm/lib"
)

type process struct {
	vm       *VM
	id       gen.ProcessID
	creation int64

	// primary section, see lock.go
	interpreterMu sync.Mutex
	interpreter   gen.Interpreter
	deferred      *gen.ProcessOutput // pending HandlerDefer effect
	statusMu      sync.Mutex
	status        atomic.Pointer[gen.Status]

	handlers gen.EffectHandlers

	// secondary resources
	mailbox    *mailbox
	kv         locked[map[gen.Type]gen.Value]
	timers     lib.Map[string, gen.Timer]
	flags      locked[gen.Flags]
	links      locked[map[gen.ProcessID]struct{}]
	monitors   locked[map[gen.ProcessID]struct{}]
	attachment locked[gen.ProcessorAttachment]

	reductions atomic.Uint64
	log        *log
}

func newProcess(v *VM, interpreter gen.Interpreter, manifest gen.ProcessManifest) *process {
	limit := manifest.MailboxSize
	if limit == 0 {
		limit = v.options.MailboxSize
	}

	p := &process{
		vm:          v,
		id:          gen.NewProcessID(),
		creation:    time.Now().Unix(),
		interpreter: interpreter,
		handlers:    manifest.EffectHandlers.Clone(),
		mailbox:     newMailbox(limit),
	}
	p.status.Store(gen.StatusRunningSnapshot())
	p.flags.store(manifest.Flags)
	p.log = createLog(gen.LogLevelDefault, v.Log().Level, v.dolog)
	p.log.setSource(gen.MessageLogProcess{ID: p.id})
	return p
}

//
// gen.Process interface implementation
//

func (p *process) ID() gen.ProcessID {
	return p.id
}

func (p *process) Status() *gen.Status {
	return p.status.Load()
}

func (p *process) Resume(output gen.Value) error {
	p.interpreterMu.Lock()
	defer p.interpreterMu.Unlock()

	if p.deferred == nil {
		return gen.ErrNotAllowed
	}
	p.deferred = nil
	p.interpreter.EffectOutput(output)
	return nil
}

func (p *process) Attachment() gen.ProcessorAttachment {
	return p.attachment.load()
}

func (p *process) SetAttachment(attachment gen.ProcessorAttachment) {
	p.attachment.store(attachment)
}

func (p *process) Attach(processor gen.ProcessorID) bool {
	attached := false
	p.attachment.write(func(a *gen.ProcessorAttachment) {
		if a.Attached {
			return
		}
		*a = gen.AttachedTo(processor)
		attached = true
	})
	return attached
}

func (p *process) Detach(processor gen.ProcessorID) bool {
	detached := false
	p.attachment.write(func(a *gen.ProcessorAttachment) {
		if *a != gen.AttachedTo(processor) {
			return
		}
		*a = gen.Detached()
		detached = true
	})
	return detached
}

func (p *process) Flags() gen.Flags {
	return p.flags.load()
}

func (p *process) Links() []gen.ProcessID {
	var list []gen.ProcessID
	p.links.read(func(links map[gen.ProcessID]struct{}) {
		list = sortedIDs(links)
	})
	return list
}

func (p *process) Monitors() []gen.ProcessID {
	var list []gen.ProcessID
	p.monitors.read(func(monitors map[gen.ProcessID]struct{}) {
		list = sortedIDs(monitors)
	})
	return list
}

func (p *process) MailboxLen(ty gen.Type) int {
	return p.mailbox.len(ty)
}

func (p *process) Timers() []gen.Timer {
	timers := p.timers.Values()
	sort.Slice(timers, func(i, j int) bool {
		return timers[i].Name < timers[j].Name
	})
	return timers
}

func (p *process) Kv(key gen.Type) (gen.Value, bool) {
	var value gen.Value
	var found bool
	p.kv.read(func(kv map[gen.Type]gen.Value) {
		value, found = kv[key]
	})
	return value, found
}

func (p *process) Log() gen.Log {
	return p.log
}

// deliver enqueues the message. Terminated processes accept nothing.
func (p *process) deliver(ty gen.Type, message gen.Value) error {
	if p.status.Load().IsTerminal() {
		p.vm.metrics.message(messageDropped)
		return gen.ErrProcessTerminated
	}
	if p.mailbox.push(ty, message) == false {
		p.vm.metrics.message(messageDropped)
		return gen.ErrProcessMailboxFull
	}
	p.vm.metrics.message(messageDelivered)
	return nil
}

func sortedIDs(set map[gen.ProcessID]struct{}) []gen.ProcessID {
	list := make([]gen.ProcessID, 0, len(set))
	for id := range set {
		list = append(list, id)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].String() < list[j].String()
	})
	return list
}
