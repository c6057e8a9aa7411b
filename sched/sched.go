// Package sched is a reference processor pool driving Reduce on the
// processes of a VM. It places processes on processors and nothing more:
// there is no fairness or priority policy.
package sched

import (
	"context"
	"sync"
	"time"

	"deskvm.dev/deskvm/gen"
	"deskvm.dev/deskvm/lib"

	"golang.org/x/sync/errgroup"
)

// Resolver resolves a deferred effect. Returning false leaves the effect
// pending, the process is retried on the next pass.
type Resolver func(p gen.Process, output gen.ProcessOutput) (gen.Value, bool)

type Options struct {
	// Processors defaults to gen.DefaultProcessors
	Processors int
	// Budget passed to every Reduce call. Defaults to
	// gen.DefaultReductionBudget
	Budget time.Duration
	// Idle is the pause of a processor that found nothing to run. Defaults
	// to gen.DefaultProcessorIdle
	Idle     time.Duration
	Resolver Resolver
	// OnExit is called once per process reaching a terminal status.
	OnExit func(p gen.Process, output gen.ProcessOutput)
}

type Scheduler struct {
	vm      gen.VM
	options Options
	exited  sync.Map // gen.ProcessID -> struct{}
}

func New(vm gen.VM, options Options) *Scheduler {
	if options.Processors < 1 {
		options.Processors = gen.DefaultProcessors
	}
	if options.Budget <= 0 {
		options.Budget = gen.DefaultReductionBudget
	}
	if options.Idle <= 0 {
		options.Idle = gen.DefaultProcessorIdle
	}
	return &Scheduler{
		vm:      vm,
		options: options,
	}
}

// Run drives the processes until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.options.Processors; i++ {
		id := gen.ProcessorID(i)
		g.Go(func() error {
			return s.processor(ctx, id)
		})
	}
	return g.Wait()
}

func (s *Scheduler) processor(ctx context.Context, id gen.ProcessorID) error {
	s.vm.Log().Debug("processor %d started", id)
	defer s.vm.Log().Debug("processor %d stopped", id)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.pass(id) {
			continue
		}

		t := lib.TakeTimer(s.options.Idle)
		select {
		case <-ctx.Done():
			lib.ReleaseTimer(t)
			return nil
		case <-t.C:
		}
		lib.ReleaseTimer(t)
	}
}

// pass makes one Reduce call on every process the processor manages to
// attach. Returns true if any of them made progress.
func (s *Scheduler) pass(id gen.ProcessorID) bool {
	progress := false

	for pid, p := range s.vm.Processes() {
		if s.runnable(pid, p) == false {
			continue
		}
		if p.Attach(id) == false {
			// taken by another processor
			continue
		}

		output := p.Reduce(s.options.Budget)
		switch {
		case output.IsTerminal():
			if _, loaded := s.exited.LoadOrStore(pid, struct{}{}); loaded == false {
				progress = true
				if s.options.OnExit != nil {
					s.options.OnExit(p, output)
				}
			}

		case output.Kind == gen.OutputPerformed:
			if s.options.Resolver == nil {
				break
			}
			if value, ok := s.options.Resolver(p, output); ok {
				if err := p.Resume(value); err == nil {
					progress = true
				}
			}

		case output.Kind == gen.OutputRunning:
			progress = true
		}

		p.Detach(id)
	}
	return progress
}

func (s *Scheduler) runnable(id gen.ProcessID, p gen.Process) bool {
	status := p.Status()
	switch {
	case status.IsTerminal():
		_, reported := s.exited.Load(id)
		return reported == false
	case status.Kind == gen.StatusWaitingForMessage:
		return p.MailboxLen(status.Type) > 0
	}
	return true
}
