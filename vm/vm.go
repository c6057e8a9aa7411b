package vm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"deskvm.dev/deskvm/gen"
	"deskvm.dev/deskvm/lib"
	"deskvm.dev/deskvm/lib/osdep"
)

// VM is the shared registry: process table, name registry and the
// subscription index. Every table is synchronized per entry.
type VM struct {
	options  Options
	creation int64

	processes     sync.Map // gen.ProcessID -> *process
	names         sync.Map // gen.Name -> gen.ProcessID
	subscriptions *target

	loggers lib.Map[string, *logger]
	log     *log
	metrics *metrics
}

type logger struct {
	behavior gen.LoggerBehavior
	filter   map[gen.LogLevel]bool
}

// Start creates a VM.
func Start(options Options) (gen.VM, error) {
	return start(options)
}

func start(options Options) (*VM, error) {
	if options.MailboxSize == 0 {
		options.MailboxSize = gen.DefaultMailboxSize
	}
	if options.Log.Level == gen.LogLevelDefault {
		options.Log.Level = gen.DefaultLogLevel
	}
	if options.Version.Name == "" {
		options.Version = gen.Version{Name: "deskvm"}
	}

	v := &VM{
		options:       options,
		creation:      time.Now().Unix(),
		subscriptions: createTarget(),
		metrics:       createMetrics(options.Metrics),
	}
	v.log = createLog(options.Log.Level, nil, v.dolog)
	v.log.setSource(gen.MessageLogVM{Release: options.Version.Release})

	if options.Log.DisableDefaultLogger == false {
		defaultLogger := gen.CreateDefaultLogger(options.Log.DefaultLogger)
		v.LoggerAdd("default", defaultLogger)
	}
	for _, l := range options.Log.Loggers {
		if err := v.LoggerAdd(l.Name, l.Logger, l.Filter...); err != nil {
			return nil, err
		}
	}

	v.log.Debug("vm started (%s)", options.Version)
	return v, nil
}

//
// gen.VM interface implementation
//

func (v *VM) Spawn(manifest gen.ProcessManifest) (gen.ProcessID, error) {
	var id gen.ProcessID

	if manifest.Interpreter == nil {
		return id, gen.ErrInterpreterFactory
	}
	interpreter, err := manifest.Interpreter()
	if err != nil {
		return id, fmt.Errorf("%w: %w", gen.ErrInterpreterFactory, err)
	}
	if interpreter == nil {
		return id, gen.ErrInterpreterFactory
	}

	p := newProcess(v, interpreter, manifest)
	v.processes.Store(p.id, p)
	v.metrics.spawned.Inc()
	v.metrics.processes.Inc()
	v.log.Debug("spawned process %s", p.id)
	return p.id, nil
}

func (v *VM) process(id gen.ProcessID) *process {
	value, found := v.processes.Load(id)
	if found == false {
		return nil
	}
	return value.(*process)
}

func (v *VM) Process(id gen.ProcessID) (gen.Process, bool) {
	p := v.process(id)
	if p == nil {
		return nil, false
	}
	return p, true
}

func (v *VM) Processes() map[gen.ProcessID]gen.Process {
	processes := make(map[gen.ProcessID]gen.Process)
	v.processes.Range(func(k, value any) bool {
		processes[k.(gen.ProcessID)] = value.(*process)
		return true
	})
	return processes
}

func (v *VM) Remove(id gen.ProcessID) error {
	p := v.process(id)
	if p == nil {
		return gen.ErrProcessUnknown
	}
	if p.status.Load().IsTerminal() == false {
		return gen.ErrNotAllowed
	}
	if _, found := v.processes.LoadAndDelete(id); found == false {
		// removed concurrently
		return gen.ErrProcessUnknown
	}

	v.names.Range(func(k, value any) bool {
		if value.(gen.ProcessID) == id {
			v.names.CompareAndDelete(k, value)
		}
		return true
	})
	v.subscriptions.unregisterAll(id)

	for _, linked := range p.Links() {
		if l := v.process(linked); l != nil {
			l.removeLink(id)
		}
	}
	v.metrics.processes.Dec()
	v.log.Debug("removed process %s", id)
	return nil
}

func (v *VM) Send(to gen.ProcessID, ty gen.Type, message gen.Value) error {
	return v.send(to, ty, message)
}

func (v *VM) send(to gen.ProcessID, ty gen.Type, message gen.Value) error {
	p := v.process(to)
	if p == nil {
		v.metrics.message(messageDropped)
		return gen.ErrProcessUnknown
	}
	if err := p.deliver(ty, message); err != nil {
		if errors.Is(err, gen.ErrProcessMailboxFull) {
			v.log.Warning("mailbox %s of %s is full, message dropped", ty, to)
		}
		return err
	}
	return nil
}

func (v *VM) Publish(ty gen.Type, message gen.Value) {
	// the subscriber list is fixed before the first delivery
	for _, id := range v.subscriptions.consumers(ty) {
		if err := v.send(id, ty, message); err != nil {
			v.log.Debug("publish %s to %s: %s", ty, id, err)
		}
	}
}

func (v *VM) Subscribe(id gen.ProcessID, ty gen.Type) {
	p := v.process(id)
	if p == nil {
		v.log.Trace("unable to subscribe %s to %s: %s", id, ty, gen.ErrProcessUnknown)
		return
	}
	if p.status.Load().IsTerminal() {
		return
	}
	v.subscriptions.registerConsumer(ty, id)
	// the process may have terminated right before registering
	if p.status.Load().IsTerminal() {
		v.subscriptions.unregisterConsumer(ty, id)
	}
}

func (v *VM) Unsubscribe(id gen.ProcessID, ty gen.Type) {
	v.subscriptions.unregisterConsumer(ty, id)
}

func (v *VM) Subscribers(ty gen.Type) []gen.ProcessID {
	return v.subscriptions.consumers(ty)
}

func (v *VM) Register(name gen.Name, id gen.ProcessID) {
	v.names.Store(name, id)
}

func (v *VM) Unregister(name gen.Name) {
	v.names.Delete(name)
}

func (v *VM) Whereis(name gen.Name) (gen.ProcessID, bool) {
	value, found := v.names.Load(name)
	if found == false {
		return gen.ProcessID{}, false
	}
	return value.(gen.ProcessID), true
}

func (v *VM) NameRegistry() map[gen.Name]gen.ProcessID {
	registry := make(map[gen.Name]gen.ProcessID)
	v.names.Range(func(k, value any) bool {
		registry[k.(gen.Name)] = value.(gen.ProcessID)
		return true
	})
	return registry
}

func (v *VM) Info() gen.VMInfo {
	var info gen.VMInfo

	info.Version = v.options.Version
	info.Uptime = time.Now().Unix() - v.creation

	v.processes.Range(func(_, value any) bool {
		p := value.(*process)
		info.Processes++
		switch p.status.Load().Kind {
		case gen.StatusRunning:
			info.ProcessesRunning++
		case gen.StatusWaitingForMessage:
			info.ProcessesWaiting++
		case gen.StatusReturned:
			info.ProcessesReturned++
		case gen.StatusCrashed:
			info.ProcessesCrashed++
		case gen.StatusHalted:
			info.ProcessesHalted++
		}
		return true
	})
	v.names.Range(func(_, _ any) bool {
		info.Names++
		return true
	})
	info.Subscriptions = v.subscriptions.count()
	info.UserTime, info.SystemTime = osdep.ResourceUsage()
	return info
}

func (v *VM) Log() gen.Log {
	return v.log
}

func (v *VM) LoggerAdd(name string, behavior gen.LoggerBehavior, filter ...gen.LogLevel) error {
	if behavior == nil {
		return gen.ErrIncorrect
	}
	if len(filter) == 0 {
		filter = gen.DefaultLogFilter
	}
	l := &logger{
		behavior: behavior,
		filter:   make(map[gen.LogLevel]bool),
	}
	for _, level := range filter {
		l.filter[level] = true
	}
	if _, loaded := v.loggers.LoadOrStore(name, l); loaded {
		return gen.ErrTaken
	}
	return nil
}

func (v *VM) LoggerDelete(name string) {
	l, found := v.loggers.LoadAndDelete(name)
	if found == false {
		return
	}
	l.behavior.Terminate()
}

func (v *VM) dolog(message gen.MessageLog) {
	v.loggers.Range(func(_ string, l *logger) bool {
		if l.filter[message.Level] {
			l.behavior.Log(message)
		}
		return true
	})
}

//
// cross-process operations used by the effect handlers
//

// link creates the symmetric relation. If one side is missing the other
// one is notified with MessageLinkNotFound.
func (v *VM) link(a, b gen.ProcessID) {
	if a == b {
		return
	}
	pa, pb := v.process(a), v.process(b)
	switch {
	case pa != nil && pb != nil:
		pa.addLink(b)
		pb.addLink(a)
	case pa != nil:
		v.linkNotFound(pa, b)
	case pb != nil:
		v.linkNotFound(pb, a)
	default:
		v.log.Trace("unable to link %s and %s: %s", a, b, gen.ErrProcessUnknown)
	}
}

func (v *VM) linkNotFound(p *process, missing gen.ProcessID) {
	if err := p.deliver(gen.TypeLinkNotFound, gen.MessageLinkNotFound{ID: missing}); err != nil {
		p.log.Trace("link_not_found %s dropped: %s", missing, err)
	}
}

func (v *VM) unlink(a, b gen.ProcessID) {
	if pa := v.process(a); pa != nil {
		pa.removeLink(b)
	}
	if pb := v.process(b); pb != nil {
		pb.removeLink(a)
	}
}

// halt forces the target into Halted. The first terminal status wins.
func (v *VM) halt(h gen.HaltProcess) {
	p := v.process(h.ID)
	if p == nil {
		v.log.Trace("unable to halt %s: %s", h.ID, gen.ErrProcessUnknown)
		return
	}
	sl := p.lockStatus()
	changed := sl.updateStatus(gen.NewStatusHalted(h.Type, h.Reason))
	sl.release()
	if changed {
		v.log.Info("process %s halted: %s %v", h.ID, h.Type, h.Reason)
	}
}
