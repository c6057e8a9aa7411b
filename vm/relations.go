package vm

import (
	"deskvm.dev/deskvm/gen"
)

// terminated is called once, right after the terminal status was stored
// and while the status lock is still held. It takes secondary resources
// only.
func (p *process) terminated(status *gen.Status) {
	p.vm.subscriptions.unregisterAll(p.id)

	// monitors are one-shot
	var watchers []gen.ProcessID
	p.monitors.write(func(monitors *map[gen.ProcessID]struct{}) {
		watchers = sortedIDs(*monitors)
		*monitors = nil
	})

	down := gen.MessageDown{ID: p.id, Status: status}
	for _, id := range watchers {
		p.notifyDown(id, down)
	}

	switch status.Kind {
	case gen.StatusCrashed:
		p.log.Debug("terminated: %s", status)
	default:
		p.log.Trace("terminated: %s", status)
	}
}

func (p *process) notifyDown(watcher gen.ProcessID, down gen.MessageDown) {
	w := p.vm.process(watcher)
	if w == nil {
		return
	}
	if err := w.deliver(gen.TypeDown, down); err != nil {
		p.log.Trace("down notification to %s dropped: %s", watcher, err)
	}
}

// addMonitor makes watcher observe the termination of p. A process that
// has already terminated notifies the watcher immediately.
func (p *process) addMonitor(watcher gen.ProcessID) {
	var status *gen.Status
	p.monitors.write(func(monitors *map[gen.ProcessID]struct{}) {
		// terminated stores the status before it takes this lock, so the
		// watcher is either drained by it or notified here
		if s := p.status.Load(); s.IsTerminal() {
			status = s
			return
		}
		if *monitors == nil {
			*monitors = make(map[gen.ProcessID]struct{})
		}
		(*monitors)[watcher] = struct{}{}
	})
	if status != nil {
		p.notifyDown(watcher, gen.MessageDown{ID: p.id, Status: status})
	}
}

func (p *process) removeMonitor(watcher gen.ProcessID) {
	p.monitors.write(func(monitors *map[gen.ProcessID]struct{}) {
		delete(*monitors, watcher)
	})
}

func (p *process) addLink(id gen.ProcessID) {
	p.links.write(func(links *map[gen.ProcessID]struct{}) {
		if *links == nil {
			*links = make(map[gen.ProcessID]struct{})
		}
		(*links)[id] = struct{}{}
	})
}

func (p *process) removeLink(id gen.ProcessID) {
	p.links.write(func(links *map[gen.ProcessID]struct{}) {
		delete(*links, id)
	})
}
