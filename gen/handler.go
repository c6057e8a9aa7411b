package gen

import (
	"fmt"
	"time"
)

// EffectHandler is the strategy a process uses to resolve one effect. The
// set of variants is closed; the process matches on them exhaustively.
//
// Output functions left nil make the handler feed Unit back to the
// interpreter.
type EffectHandler interface {
	// Kind returns the variant name (used in logs and metrics).
	Kind() string
	effectHandler()
}

// EffectHandlers binds effect identities to handlers. A process receives
// its table at construction and never changes it afterwards.
type EffectHandlers map[Effect]EffectHandler

// Clone returns a shallow copy of the table.
func (eh EffectHandlers) Clone() EffectHandlers {
	c := make(EffectHandlers, len(eh))
	for k, v := range eh {
		c[k] = v
	}
	return c
}

// SendMessage addresses a message to a process mailbox.
type SendMessage struct {
	To      ProcessID
	Type    Type
	Message Value
}

// HaltProcess forces a process into the Halted status.
type HaltProcess struct {
	ID     ProcessID
	Type   Type
	Reason Value
}

// TimerManifest describes a named timer.
type TimerManifest struct {
	Name     string
	Duration time.Duration
	Effect   Effect
}

// HandlerImmediate resolves the effect with a pure function of the input.
type HandlerImmediate struct {
	Output func(input Value) Value
}

// HandlerSpawn feeds Output and asks the VM to spawn the process described
// by Manifest. Spawning is fire-and-forget.
type HandlerSpawn struct {
	Output   func(input Value) Value
	Manifest func(input Value) ProcessManifest
}

// HandlerDefer leaves the effect to the caller of Reduce.
type HandlerDefer struct{}

// HandlerSendMessage feeds Output and enqueues Message into the target
// mailbox. Messages to unknown processes are dropped.
type HandlerSendMessage struct {
	Output  func(input Value) Value
	Message func(input Value) SendMessage
}

// HandlerReceiveMessage pops the oldest message of the effect output type.
// An empty queue puts the process into WaitingForMessage.
type HandlerReceiveMessage struct{}

// HandlerFlushMailbox drains every queued message of the effect output
// type and feeds them as a Vector.
type HandlerFlushMailbox struct{}

// HandlerSubscribe subscribes the process to the type returned by Type.
type HandlerSubscribe struct {
	Output func(input Value) Value
	Type   func(input Value) Type
}

// HandlerPublish publishes the input to the subscribers of the effect
// input type and feeds Unit.
type HandlerPublish struct{}

// HandlerGetKv reads the process local KV store. The map must not be
// retained or modified.
type HandlerGetKv struct {
	Output func(input Value, kv map[Type]Value) Value
}

// HandlerUpdateKv modifies the process local KV store in place and
// returns the output to feed.
type HandlerUpdateKv struct {
	Update func(input Value, kv map[Type]Value) Value
}

// HandlerGetFlags reads the flags of the process returned by Target.
// Output receives nil flags if that process does not exist.
type HandlerGetFlags struct {
	Target func(input Value) ProcessID
	Output func(input Value, flags *Flags) Value
}

// HandlerUpdateFlags modifies the flags of the process returned by Target
// in place. Update receives nil flags if that process does not exist.
type HandlerUpdateFlags struct {
	Target func(input Value) ProcessID
	Update func(input Value, flags *Flags) Value
}

// HandlerAddTimer registers the timer returned by Timer, replacing a timer
// with the same name.
type HandlerAddTimer struct {
	Output func(input Value) Value
	Timer  func(input Value) TimerManifest
}

// HandlerRemoveTimer removes the named timer. Unknown names are ignored.
type HandlerRemoveTimer struct {
	Output func(input Value) Value
	Name   func(input Value) string
}

// HandlerMonitor makes the process watch the target.
type HandlerMonitor struct {
	Output func(input Value) Value
	Target func(input Value) ProcessID
}

// HandlerDemonitor stops watching the target.
type HandlerDemonitor struct {
	Output func(input Value) Value
	Target func(input Value) ProcessID
}

// HandlerProcessInfo feeds an output built from the snapshot of the
// process itself.
type HandlerProcessInfo struct {
	Output func(input Value, info ProcessInfo) Value
}

// HandlerVmInfo feeds an output built from the VM snapshot.
type HandlerVmInfo struct {
	Output func(input Value, info VMInfo) Value
}

// HandlerLink links the two processes returned by Pair.
type HandlerLink struct {
	Output func(input Value) Value
	Pair   func(input Value) (ProcessID, ProcessID)
}

// HandlerUnlink removes the link between the two processes returned by Pair.
type HandlerUnlink struct {
	Output func(input Value) Value
	Pair   func(input Value) (ProcessID, ProcessID)
}

// HandlerRegister binds a name to a process.
type HandlerRegister struct {
	Output   func(input Value) Value
	Register func(input Value) (Name, ProcessID)
}

// HandlerUnregister removes a name binding.
type HandlerUnregister struct {
	Output func(input Value) Value
	Name   func(input Value) Name
}

// HandlerWhereis builds the output from the name registry snapshot.
type HandlerWhereis struct {
	Output func(input Value, registry map[Name]ProcessID) Value
}

// HandlerHalt halts the process returned by Halt.
type HandlerHalt struct {
	Output func(input Value) Value
	Halt   func(input Value) HaltProcess
}

func (HandlerImmediate) Kind() string      { return "immediate" }
func (HandlerSpawn) Kind() string          { return "spawn" }
func (HandlerDefer) Kind() string          { return "defer" }
func (HandlerSendMessage) Kind() string    { return "send_message" }
func (HandlerReceiveMessage) Kind() string { return "receive_message" }
func (HandlerFlushMailbox) Kind() string   { return "flush_mailbox" }
func (HandlerSubscribe) Kind() string      { return "subscribe" }
func (HandlerPublish) Kind() string        { return "publish" }
func (HandlerGetKv) Kind() string          { return "get_kv" }
func (HandlerUpdateKv) Kind() string       { return "update_kv" }
func (HandlerGetFlags) Kind() string       { return "get_flags" }
func (HandlerUpdateFlags) Kind() string    { return "update_flags" }
func (HandlerAddTimer) Kind() string       { return "add_timer" }
func (HandlerRemoveTimer) Kind() string    { return "remove_timer" }
func (HandlerMonitor) Kind() string        { return "monitor" }
func (HandlerDemonitor) Kind() string      { return "demonitor" }
func (HandlerProcessInfo) Kind() string    { return "process_info" }
func (HandlerVmInfo) Kind() string         { return "vm_info" }
func (HandlerLink) Kind() string           { return "link" }
func (HandlerUnlink) Kind() string         { return "unlink" }
func (HandlerRegister) Kind() string       { return "register" }
func (HandlerUnregister) Kind() string     { return "unregister" }
func (HandlerWhereis) Kind() string        { return "whereis" }
func (HandlerHalt) Kind() string           { return "halt" }

func (HandlerImmediate) effectHandler()      {}
func (HandlerSpawn) effectHandler()          {}
func (HandlerDefer) effectHandler()          {}
func (HandlerSendMessage) effectHandler()    {}
func (HandlerReceiveMessage) effectHandler() {}
func (HandlerFlushMailbox) effectHandler()   {}
func (HandlerSubscribe) effectHandler()      {}
func (HandlerPublish) effectHandler()        {}
func (HandlerGetKv) effectHandler()          {}
func (HandlerUpdateKv) effectHandler()       {}
func (HandlerGetFlags) effectHandler()       {}
func (HandlerUpdateFlags) effectHandler()    {}
func (HandlerAddTimer) effectHandler()       {}
func (HandlerRemoveTimer) effectHandler()    {}
func (HandlerMonitor) effectHandler()        {}
func (HandlerDemonitor) effectHandler()      {}
func (HandlerProcessInfo) effectHandler()    {}
func (HandlerVmInfo) effectHandler()         {}
func (HandlerLink) effectHandler()           {}
func (HandlerUnlink) effectHandler()         {}
func (HandlerRegister) effectHandler()       {}
func (HandlerUnregister) effectHandler()     {}
func (HandlerWhereis) effectHandler()        {}
func (HandlerHalt) effectHandler()           {}

// UnitOutput applies the output function or returns Unit if it is nil.
func UnitOutput(output func(input Value) Value, input Value) Value {
	if output == nil {
		return Unit{}
	}
	return output(input)
}

// ErrNoHandler is the panic value for an effect without bound handler.
type ErrNoHandler struct {
	Process ProcessID
	Effect  Effect
}

func (e ErrNoHandler) Error() string {
	return fmt.Sprintf("process %s performed %s without bound effect handler", e.Process, e.Effect)
}
