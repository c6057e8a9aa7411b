package script

import (
	"deskvm.dev/deskvm/gen"
)

const (
	TypeUnit gen.Type = "()"

	TypeReceive gen.Type = "desk.receive"
	TypeFlush   gen.Type = "desk.flush"
)

// Canonical effects of the standard handler table. The comment of each
// effect names the input it expects and the output it resolves to.
var (
	// any -> the same value
	EffectEcho = gen.Effect{Input: "desk.echo", Output: "desk.echo"}
	// gen.ProcessManifest -> Unit
	EffectSpawn = gen.Effect{Input: "desk.manifest", Output: TypeUnit}
	// any -> whatever the caller of Resume feeds
	EffectDefer = gen.Effect{Input: "desk.defer", Output: "desk.defer"}
	// gen.SendMessage -> Unit
	EffectSend = gen.Effect{Input: "desk.send", Output: TypeUnit}
	// gen.Type -> Unit
	EffectSubscribe = gen.Effect{Input: "desk.subscribe", Output: TypeUnit}
	// gen.Type -> Lookup
	EffectGetKv = gen.Effect{Input: "desk.kv_key", Output: "desk.kv_lookup"}
	// KvUpdate -> Lookup of the previous value
	EffectUpdateKv = gen.Effect{Input: "desk.kv_update", Output: "desk.kv_lookup"}
	// gen.ProcessID -> gen.Flags or gen.NotFound
	EffectGetFlags = gen.Effect{Input: "desk.flags_target", Output: "desk.flags"}
	// FlagsUpdate -> previous gen.Flags or gen.NotFound
	EffectUpdateFlags = gen.Effect{Input: "desk.flags_update", Output: "desk.flags"}
	// gen.TimerManifest -> Unit
	EffectAddTimer = gen.Effect{Input: "desk.timer", Output: TypeUnit}
	// string -> Unit
	EffectRemoveTimer = gen.Effect{Input: "desk.timer_name", Output: TypeUnit}
	// gen.ProcessID -> Unit
	EffectMonitor   = gen.Effect{Input: "desk.monitor", Output: TypeUnit}
	EffectDemonitor = gen.Effect{Input: "desk.demonitor", Output: TypeUnit}
	// any -> gen.ProcessInfo
	EffectProcessInfo = gen.Effect{Input: TypeUnit, Output: "desk.process_info"}
	// any -> gen.VMInfo
	EffectVmInfo = gen.Effect{Input: TypeUnit, Output: "desk.vm_info"}
	// Pair -> Unit
	EffectLink   = gen.Effect{Input: "desk.link", Output: TypeUnit}
	EffectUnlink = gen.Effect{Input: "desk.unlink", Output: TypeUnit}
	// Registration -> Unit
	EffectRegister = gen.Effect{Input: "desk.register", Output: TypeUnit}
	// gen.Name -> Unit
	EffectUnregister = gen.Effect{Input: "desk.unregister", Output: TypeUnit}
	// gen.Name -> Lookup
	EffectWhereis = gen.Effect{Input: "desk.name", Output: "desk.name_lookup"}
	// gen.HaltProcess -> Unit
	EffectHalt = gen.Effect{Input: "desk.halt", Output: TypeUnit}
)

// Receive returns the effect popping one message of the type.
func Receive(ty gen.Type) gen.Effect {
	return gen.Effect{Input: TypeReceive, Output: ty}
}

// Flush returns the effect draining the queue of the type into a
// gen.Vector.
func Flush(ty gen.Type) gen.Effect {
	return gen.Effect{Input: TypeFlush, Output: ty}
}

// Publish returns the effect publishing its input to the subscribers of
// the type.
func Publish(ty gen.Type) gen.Effect {
	return gen.Effect{Input: ty, Output: TypeUnit}
}

// Lookup is the output of the effects reading a mapping.
type Lookup struct {
	Value gen.Value
	Found bool
}

// KvUpdate stores Value under Key. Delete removes the key instead.
type KvUpdate struct {
	Key    gen.Type
	Value  gen.Value
	Delete bool
}

// FlagsUpdate sets the priority of the process.
type FlagsUpdate struct {
	ID       gen.ProcessID
	Priority gen.Priority
}

// Pair is the input of EffectLink and EffectUnlink.
type Pair struct {
	A gen.ProcessID
	B gen.ProcessID
}

// Registration is the input of EffectRegister.
type Registration struct {
	Name gen.Name
	ID   gen.ProcessID
}

// Handlers returns the standard handler table. Receive, Flush and Publish
// effects are bound for every given type; Receive and Flush are bound for
// gen.TypeDown and gen.TypeLinkNotFound as well.
func Handlers(types ...gen.Type) gen.EffectHandlers {
	handlers := gen.EffectHandlers{
		EffectEcho: gen.HandlerImmediate{
			Output: func(input gen.Value) gen.Value { return input },
		},
		EffectSpawn: gen.HandlerSpawn{
			Manifest: func(input gen.Value) gen.ProcessManifest {
				return input.(gen.ProcessManifest)
			},
		},
		EffectDefer: gen.HandlerDefer{},
		EffectSend: gen.HandlerSendMessage{
			Message: func(input gen.Value) gen.SendMessage {
				return input.(gen.SendMessage)
			},
		},
		EffectSubscribe: gen.HandlerSubscribe{
			Type: func(input gen.Value) gen.Type {
				return input.(gen.Type)
			},
		},
		EffectGetKv: gen.HandlerGetKv{
			Output: func(input gen.Value, kv map[gen.Type]gen.Value) gen.Value {
				value, found := kv[input.(gen.Type)]
				return Lookup{Value: value, Found: found}
			},
		},
		EffectUpdateKv: gen.HandlerUpdateKv{
			Update: func(input gen.Value, kv map[gen.Type]gen.Value) gen.Value {
				update := input.(KvUpdate)
				value, found := kv[update.Key]
				if update.Delete {
					delete(kv, update.Key)
				} else {
					kv[update.Key] = update.Value
				}
				return Lookup{Value: value, Found: found}
			},
		},
		EffectGetFlags: gen.HandlerGetFlags{
			Target: processID,
			Output: func(input gen.Value, flags *gen.Flags) gen.Value {
				if flags == nil {
					return gen.NotFound{ID: input.(gen.ProcessID)}
				}
				return *flags
			},
		},
		EffectUpdateFlags: gen.HandlerUpdateFlags{
			Target: func(input gen.Value) gen.ProcessID {
				return input.(FlagsUpdate).ID
			},
			Update: func(input gen.Value, flags *gen.Flags) gen.Value {
				update := input.(FlagsUpdate)
				if flags == nil {
					return gen.NotFound{ID: update.ID}
				}
				previous := *flags
				flags.Priority = update.Priority
				return previous
			},
		},
		EffectAddTimer: gen.HandlerAddTimer{
			Timer: func(input gen.Value) gen.TimerManifest {
				return input.(gen.TimerManifest)
			},
		},
		EffectRemoveTimer: gen.HandlerRemoveTimer{
			Name: func(input gen.Value) string {
				return input.(string)
			},
		},
		EffectMonitor:   gen.HandlerMonitor{Target: processID},
		EffectDemonitor: gen.HandlerDemonitor{Target: processID},
		EffectProcessInfo: gen.HandlerProcessInfo{
			Output: func(_ gen.Value, info gen.ProcessInfo) gen.Value {
				return info
			},
		},
		EffectVmInfo: gen.HandlerVmInfo{
			Output: func(_ gen.Value, info gen.VMInfo) gen.Value {
				return info
			},
		},
		EffectLink:   gen.HandlerLink{Pair: pair},
		EffectUnlink: gen.HandlerUnlink{Pair: pair},
		EffectRegister: gen.HandlerRegister{
			Register: func(input gen.Value) (gen.Name, gen.ProcessID) {
				r := input.(Registration)
				return r.Name, r.ID
			},
		},
		EffectUnregister: gen.HandlerUnregister{
			Name: func(input gen.Value) gen.Name {
				return input.(gen.Name)
			},
		},
		EffectWhereis: gen.HandlerWhereis{
			Output: func(input gen.Value, registry map[gen.Name]gen.ProcessID) gen.Value {
				id, found := registry[input.(gen.Name)]
				if found == false {
					return Lookup{}
				}
				return Lookup{Value: id, Found: true}
			},
		},
		EffectHalt: gen.HandlerHalt{
			Halt: func(input gen.Value) gen.HaltProcess {
				return input.(gen.HaltProcess)
			},
		},
	}

	types = append(types, gen.TypeDown, gen.TypeLinkNotFound)
	for _, ty := range types {
		handlers[Receive(ty)] = gen.HandlerReceiveMessage{}
		handlers[Flush(ty)] = gen.HandlerFlushMailbox{}
		handlers[Publish(ty)] = gen.HandlerPublish{}
	}
	return handlers
}

func processID(input gen.Value) gen.ProcessID {
	return input.(gen.ProcessID)
}

func pair(input gen.Value) (gen.ProcessID, gen.ProcessID) {
	p := input.(Pair)
	return p.A, p.B
}
