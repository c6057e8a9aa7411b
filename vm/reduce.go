package vm

import (
	"fmt"
	"time"

	"deskvm.dev/deskvm/gen"
)

var outputRunning = gen.ProcessOutput{Kind: gen.OutputRunning}

// Reduce runs the interpreter for at most the budget and resolves the
// effect it performed.
func (p *process) Reduce(budget time.Duration) gen.ProcessOutput {
	output := p.reduce(budget)
	p.vm.metrics.reduction(output.Kind)
	return output
}

func (p *process) reduce(budget time.Duration) gen.ProcessOutput {
	// interpreter and status are locked together, so nobody observes the
	// interpreter in a state the status does not describe
	pl := p.lockPrimary()
	defer pl.release()

	p.reductions.Add(1)

	status := p.status.Load()
	if status.IsTerminal() {
		return terminalOutput(status)
	}

	if p.deferred != nil {
		// still waiting for Resume
		return *p.deferred
	}

	if status.Kind == gen.StatusWaitingForMessage {
		message, found := p.mailbox.pop(status.Type)
		if found == false {
			return gen.ProcessOutput{Kind: gen.OutputWaitingForMessage, Status: status}
		}
		pl.updateStatus(gen.StatusRunningSnapshot())
		pl.effectOutput(message)
		return outputRunning
	}

	result, err := p.interpreter.Reduce(budget)
	if err != nil {
		pl.updateStatus(gen.NewStatusCrashed(err))
		p.log.Error("process crashed: %s", err)
		return terminalOutput(p.status.Load())
	}

	switch result.Kind {
	case gen.InterpreterReturned:
		pl.updateStatus(gen.NewStatusReturned(result.Value))
		return terminalOutput(p.status.Load())

	case gen.InterpreterPerformed:
		return p.handleEffect(pl, result.Effect, result.Input)
	}

	return outputRunning
}

// handleEffect resolves the effect with the handler bound to it. The
// primary lock is held on entry; every branch documents whether it keeps
// it or releases it before reaching into the VM.
func (p *process) handleEffect(pl *primaryLock, effect gen.Effect, input gen.Value) gen.ProcessOutput {
	handler, found := p.handlers[effect]
	if found == false {
		// the process was built with an incomplete handler table
		panic(gen.ErrNoHandler{Process: p.id, Effect: effect})
	}
	p.vm.metrics.effect(handler.Kind())

	switch h := handler.(type) {
	case gen.HandlerImmediate:
		pl.effectOutput(gen.UnitOutput(h.Output, input))

	case gen.HandlerSpawn:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		id, err := p.vm.Spawn(h.Manifest(input))
		if err != nil {
			p.log.Error("unable to spawn process: %s", err)
			break
		}
		p.log.Trace("spawned process %s", id)

	case gen.HandlerDefer:
		output := gen.ProcessOutput{Kind: gen.OutputPerformed, Input: input, Effect: effect}
		p.deferred = &output
		return output

	case gen.HandlerSendMessage:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		message := h.Message(input)
		if err := p.vm.send(message.To, message.Type, message.Message); err != nil {
			p.log.Debug("message %s to %s dropped: %s", message.Type, message.To, err)
		}

	case gen.HandlerReceiveMessage:
		// mailbox after status
		if message, found := p.mailbox.pop(effect.Output); found {
			pl.effectOutput(message)
			break
		}
		status := gen.NewStatusWaiting(effect.Output)
		pl.updateStatus(status)
		return gen.ProcessOutput{Kind: gen.OutputWaitingForMessage, Status: status}

	case gen.HandlerFlushMailbox:
		// mailbox after status
		pl.effectOutput(p.mailbox.drain(effect.Output))

	case gen.HandlerSubscribe:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		p.vm.Subscribe(p.id, h.Type(input))

	case gen.HandlerPublish:
		pl.effectOutput(gen.Unit{})
		// subscribers may include this process
		pl.release()
		p.vm.Publish(effect.Input, input)

	case gen.HandlerGetKv:
		// kv after status
		var output gen.Value
		p.kv.read(func(kv map[gen.Type]gen.Value) {
			output = h.Output(input, kv)
		})
		pl.effectOutput(output)

	case gen.HandlerUpdateKv:
		// kv after status
		var output gen.Value
		p.kv.write(func(kv *map[gen.Type]gen.Value) {
			if *kv == nil {
				*kv = make(map[gen.Type]gen.Value)
			}
			output = h.Update(input, *kv)
		})
		pl.effectOutput(output)

	case gen.HandlerGetFlags:
		pl.releaseStatus()
		var output gen.Value
		if target := p.vm.process(h.Target(input)); target != nil {
			target.flags.read(func(flags gen.Flags) {
				output = h.Output(input, &flags)
			})
		} else {
			output = h.Output(input, nil)
		}
		pl.effectOutput(output)

	case gen.HandlerUpdateFlags:
		pl.releaseStatus()
		var output gen.Value
		if target := p.vm.process(h.Target(input)); target != nil {
			target.flags.write(func(flags *gen.Flags) {
				output = h.Update(input, flags)
			})
		} else {
			output = h.Update(input, nil)
		}
		pl.effectOutput(output)

	case gen.HandlerAddTimer:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		manifest := h.Timer(input)
		pl.release()
		p.timers.Store(manifest.Name, gen.NewTimer(manifest))

	case gen.HandlerRemoveTimer:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		name := h.Name(input)
		pl.release()
		p.timers.Delete(name)

	case gen.HandlerMonitor:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		id := h.Target(input)
		pl.release()
		if target := p.vm.process(id); target != nil {
			target.addMonitor(p.id)
			break
		}
		p.log.Trace("unable to monitor %s: %s", id, gen.ErrProcessUnknown)

	case gen.HandlerDemonitor:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		id := h.Target(input)
		pl.release()
		if target := p.vm.process(id); target != nil {
			target.removeMonitor(p.id)
		}

	case gen.HandlerProcessInfo:
		// building the info reads the status and resources of this process
		pl.release()
		output := h.Output(input, p.Info())
		il := p.lockInterpreter()
		il.effectOutput(output)
		il.release()

	case gen.HandlerVmInfo:
		pl.effectOutput(h.Output(input, p.vm.Info()))

	case gen.HandlerLink:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		pl.release()
		p.vm.link(h.Pair(input))

	case gen.HandlerUnlink:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		pl.release()
		p.vm.unlink(h.Pair(input))

	case gen.HandlerRegister:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		p.vm.Register(h.Register(input))

	case gen.HandlerUnregister:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		p.vm.Unregister(h.Name(input))

	case gen.HandlerWhereis:
		pl.effectOutput(h.Output(input, p.vm.NameRegistry()))

	case gen.HandlerHalt:
		pl.effectOutput(gen.UnitOutput(h.Output, input))
		halt := h.Halt(input)
		// the target may be this process
		pl.release()
		p.vm.halt(halt)
		if status := p.status.Load(); status.IsTerminal() {
			return terminalOutput(status)
		}

	default:
		panic(fmt.Sprintf("unsupported effect handler %T", handler))
	}

	return outputRunning
}

func terminalOutput(status *gen.Status) gen.ProcessOutput {
	switch status.Kind {
	case gen.StatusReturned:
		return gen.ProcessOutput{Kind: gen.OutputReturned, Status: status}
	case gen.StatusCrashed:
		return gen.ProcessOutput{Kind: gen.OutputCrashed, Status: status}
	case gen.StatusHalted:
		return gen.ProcessOutput{Kind: gen.OutputHalted, Status: status}
	}
	panic(fmt.Sprintf("status %s is not terminal", status))
}
