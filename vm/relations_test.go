package vm

import (
	"testing"
	"time"

	"deskvm.dev/deskvm/gen"
	"deskvm.dev/deskvm/script"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink(t *testing.T) {
	v := startTestVM(t)
	a := spawnIdle(t, v)
	b := spawnIdle(t, v)

	p, _ := spawnScript(t, v,
		script.Perform(script.EffectLink, script.Pair{A: a.ID(), B: b.ID()}),
		script.Perform(script.EffectUnlink, script.Pair{A: b.ID(), B: a.ID()}),
	)

	require.Equal(t, gen.OutputRunning, p.Reduce(budget).Kind)
	assert.Equal(t, []gen.ProcessID{b.ID()}, a.Links())
	assert.Equal(t, []gen.ProcessID{a.ID()}, b.Links())
	assert.Empty(t, p.Links())

	require.Equal(t, gen.OutputRunning, p.Reduce(budget).Kind)
	assert.Empty(t, a.Links())
	assert.Empty(t, b.Links())
}

func TestLinkNotFound(t *testing.T) {
	v := startTestVM(t)
	a := spawnIdle(t, v)
	missing := gen.NewProcessID()

	p, _ := spawnScript(t, v,
		script.Perform(script.EffectLink, script.Pair{A: a.ID(), B: missing}),
		script.Perform(script.EffectLink, script.Pair{A: missing, B: a.ID()}),
		script.Perform(script.EffectLink, script.Pair{A: missing, B: gen.NewProcessID()}),
	)
	drive(t, p)

	assert.Empty(t, a.Links())
	require.Equal(t, 2, a.MailboxLen(gen.TypeLinkNotFound))
	message, found := a.mailbox.pop(gen.TypeLinkNotFound)
	require.True(t, found)
	assert.Equal(t, gen.MessageLinkNotFound{ID: missing}, message)
}

func TestUnlinkMissing(t *testing.T) {
	v := startTestVM(t)
	a := spawnIdle(t, v)
	b := spawnIdle(t, v)
	v.link(a.ID(), b.ID())

	stale := gen.NewProcessID()
	a.addLink(stale)
	require.Len(t, a.Links(), 2)

	// the found side drops the stale id, nobody is notified
	v.unlink(a.ID(), stale)
	assert.Equal(t, []gen.ProcessID{b.ID()}, a.Links())
	assert.Equal(t, []gen.ProcessID{a.ID()}, b.Links())
	assert.Equal(t, 0, a.MailboxLen(gen.TypeLinkNotFound))
}

func TestMonitor(t *testing.T) {
	v := startTestVM(t)
	target, _ := spawnScript(t, v, script.Spin(), script.Return("done"))

	watcher, in := spawnScript(t, v,
		script.Perform(script.EffectMonitor, target.ID()),
		script.Perform(script.Receive(gen.TypeDown), gen.Unit{}),
		script.ReturnLast(),
	)
	require.Equal(t, gen.OutputRunning, watcher.Reduce(budget).Kind)
	assert.Equal(t, []gen.ProcessID{watcher.ID()}, target.Monitors())
	require.Equal(t, gen.OutputWaitingForMessage, watcher.Reduce(budget).Kind)

	output := drive(t, target)
	assert.Empty(t, target.Monitors())

	down := drive(t, watcher).Status.Value
	assert.Equal(t, gen.MessageDown{ID: target.ID(), Status: output.Status}, down)
	assert.Len(t, in.Outputs(), 2)
}

func TestMonitorTerminated(t *testing.T) {
	v := startTestVM(t)
	target, _ := spawnScript(t, v, script.Return(nil))
	drive(t, target)

	watcher, _ := spawnScript(t, v,
		script.Perform(script.EffectMonitor, target.ID()),
		script.Perform(script.EffectMonitor, gen.NewProcessID()),
	)
	drive(t, watcher)

	assert.Empty(t, target.Monitors())
	message, found := watcher.mailbox.pop(gen.TypeDown)
	require.True(t, found)
	assert.Equal(t, gen.MessageDown{ID: target.ID(), Status: target.Status()}, message)
}

func TestDemonitor(t *testing.T) {
	v := startTestVM(t)
	target := spawnIdle(t, v)

	watcher, _ := spawnScript(t, v,
		script.Perform(script.EffectMonitor, target.ID()),
		script.Perform(script.EffectDemonitor, target.ID()),
		script.Perform(script.EffectDemonitor, gen.NewProcessID()),
	)
	require.Equal(t, gen.OutputRunning, watcher.Reduce(budget).Kind)
	assert.Len(t, target.Monitors(), 1)

	require.Equal(t, gen.OutputRunning, watcher.Reduce(budget).Kind)
	require.Equal(t, gen.OutputRunning, watcher.Reduce(budget).Kind)
	assert.Empty(t, target.Monitors())

	v.halt(gen.HaltProcess{ID: target.ID(), Type: "test.halt"})
	assert.Equal(t, 0, watcher.MailboxLen(gen.TypeDown))
}

func TestProcessInfoHandler(t *testing.T) {
	v := startTestVM(t)
	p, in := spawnScript(t, v,
		script.Perform(script.EffectUpdateKv, script.KvUpdate{Key: "b", Value: 1}),
		script.Perform(script.EffectUpdateKv, script.KvUpdate{Key: "a", Value: 2}),
		script.Perform(script.EffectProcessInfo, gen.Unit{}),
	)
	v.Register("self", p.ID())
	require.NoError(t, v.Send(p.ID(), testType, 1))
	p.SetAttachment(gen.AttachedTo(3))

	within(t, time.Second, func() {
		drive(t, p)
	})

	outputs := in.Outputs()
	require.Len(t, outputs, 3)
	info := outputs[2].(gen.ProcessInfo)
	assert.Equal(t, p.ID(), info.ID)
	assert.Equal(t, gen.StatusRunning, info.Status.Kind)
	assert.Equal(t, gen.AttachedTo(3), info.Attachment)
	assert.Equal(t, []gen.Type{"a", "b"}, info.KvKeys)
	assert.Equal(t, []gen.Name{"self"}, info.Names)
	assert.Equal(t, map[gen.Type]int{testType: 1}, info.Mailbox)
	assert.Equal(t, uint64(3), info.Reductions)
}

// every handler reaching back into the process that performed the effect
// must release the locks it holds first
func TestReentrantSelf(t *testing.T) {
	self := func(build func(id gen.ProcessID) gen.Value) func(gen.Value) gen.Value {
		return func(last gen.Value) gen.Value {
			return build(last.(gen.ProcessInfo).ID)
		}
	}

	v := startTestVM(t)
	p, in := spawnScript(t, v,
		script.Perform(script.EffectProcessInfo, gen.Unit{}),
		script.PerformWith(script.EffectGetFlags, self(func(id gen.ProcessID) gen.Value {
			return id
		})),
		script.Perform(script.EffectProcessInfo, gen.Unit{}),
		script.PerformWith(script.EffectUpdateFlags, self(func(id gen.ProcessID) gen.Value {
			return script.FlagsUpdate{ID: id, Priority: gen.PriorityMax}
		})),
		script.Perform(script.EffectProcessInfo, gen.Unit{}),
		script.PerformWith(script.EffectLink, self(func(id gen.ProcessID) gen.Value {
			return script.Pair{A: id, B: id}
		})),
		script.Perform(script.EffectProcessInfo, gen.Unit{}),
		script.PerformWith(script.EffectMonitor, self(func(id gen.ProcessID) gen.Value {
			return id
		})),
		script.Perform(script.EffectSubscribe, testType),
		script.Perform(script.Publish(testType), "to myself"),
		script.Perform(script.Receive(testType), gen.Unit{}),
		script.Perform(script.EffectAddTimer, gen.TimerManifest{Name: "t"}),
		script.Perform(script.EffectVmInfo, gen.Unit{}),
		script.Perform(script.EffectProcessInfo, gen.Unit{}),
		script.PerformWith(script.EffectHalt, self(func(id gen.ProcessID) gen.Value {
			return gen.HaltProcess{ID: id, Type: "test.halt", Reason: "self"}
		})),
		script.Return("unreachable"),
	)

	var output gen.ProcessOutput
	within(t, 5*time.Second, func() {
		output = drive(t, p)
	})

	require.Equal(t, gen.OutputHalted, output.Kind)
	assert.Equal(t, "self", output.Status.Value)
	assert.Equal(t, gen.PriorityMax, p.Flags().Priority)
	assert.Empty(t, p.Links())
	// the self monitor is cleared and its notification dropped
	assert.Empty(t, p.Monitors())
	assert.Equal(t, 0, p.MailboxLen(gen.TypeDown))
	assert.Empty(t, v.Subscribers(testType))

	outputs := in.Outputs()
	assert.Equal(t, gen.Flags{Priority: gen.PriorityDefault}, outputs[1])
	assert.Equal(t, "to myself", outputs[10])
}
