package vm

import (
	"errors"
	"testing"
	"time"

	"deskvm.dev/deskvm/gen"
	"deskvm.dev/deskvm/script"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testType  gen.Type = "test.message"
	testOther gen.Type = "test.other"

	budget = time.Millisecond
)

func startTestVM(t *testing.T) *VM {
	t.Helper()
	v, err := start(Options{Log: LogOptions{DisableDefaultLogger: true}})
	require.NoError(t, err)
	return v
}

func spawnScript(t *testing.T, v *VM, steps ...script.Step) (*process, *script.Interpreter) {
	t.Helper()
	in := script.New(steps...)
	id, err := v.Spawn(gen.ProcessManifest{
		Interpreter:    in.Factory(),
		EffectHandlers: script.Handlers(testType, testOther),
	})
	require.NoError(t, err)
	p := v.process(id)
	require.NotNil(t, p)
	return p, in
}

// spawnIdle spawns a process that is never reduced by the test.
func spawnIdle(t *testing.T, v *VM) *process {
	t.Helper()
	p, _ := spawnScript(t, v, script.Perform(script.Receive(testType), gen.Unit{}))
	return p
}

// drive reduces the process until it terminates.
func drive(t *testing.T, p *process) gen.ProcessOutput {
	t.Helper()
	for i := 0; i < 1000; i++ {
		output := p.Reduce(budget)
		if output.IsTerminal() {
			return output
		}
		if output.Kind != gen.OutputRunning {
			t.Fatalf("unexpected output %s", output)
		}
	}
	t.Fatal("process did not terminate")
	return gen.ProcessOutput{}
}

// within fails the test if f does not return in time.
func within(t *testing.T, d time.Duration, f func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out, possible deadlock")
	}
}

func TestSpawn(t *testing.T) {
	v := startTestVM(t)

	p, _ := spawnScript(t, v, script.Return(1))
	assert.False(t, p.ID().IsZero())
	assert.Equal(t, gen.StatusRunning, p.Status().Kind)
	assert.Equal(t, gen.Detached(), p.Attachment())

	found, ok := v.Process(p.ID())
	require.True(t, ok)
	assert.Equal(t, p.ID(), found.ID())
	assert.Len(t, v.Processes(), 1)

	_, ok = v.Process(gen.NewProcessID())
	assert.False(t, ok)
}

func TestSpawnInterpreterFactory(t *testing.T) {
	v := startTestVM(t)

	_, err := v.Spawn(gen.ProcessManifest{})
	assert.ErrorIs(t, err, gen.ErrInterpreterFactory)

	boom := errors.New("boom")
	_, err = v.Spawn(gen.ProcessManifest{
		Interpreter: func() (gen.Interpreter, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, gen.ErrInterpreterFactory)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, v.Processes())
}

func TestSpawnCopiesHandlers(t *testing.T) {
	v := startTestVM(t)

	handlers := script.Handlers()
	in := script.New(script.Perform(script.EffectEcho, "x"), script.ReturnLast())
	id, err := v.Spawn(gen.ProcessManifest{Interpreter: in.Factory(), EffectHandlers: handlers})
	require.NoError(t, err)
	delete(handlers, script.EffectEcho)

	output := drive(t, v.process(id))
	assert.Equal(t, "x", output.Status.Value)
}

func TestSendMailboxLimit(t *testing.T) {
	v := startTestVM(t)

	in := script.New()
	id, err := v.Spawn(gen.ProcessManifest{
		Interpreter:    in.Factory(),
		EffectHandlers: script.Handlers(testType),
		MailboxSize:    1,
	})
	require.NoError(t, err)

	require.NoError(t, v.Send(id, testType, 1))
	assert.ErrorIs(t, v.Send(id, testType, 2), gen.ErrProcessMailboxFull)
	// the limit is per type
	assert.NoError(t, v.Send(id, testOther, 3))

	assert.ErrorIs(t, v.Send(gen.NewProcessID(), testType, 4), gen.ErrProcessUnknown)
}

func TestRegistry(t *testing.T) {
	v := startTestVM(t)
	a := spawnIdle(t, v)
	b := spawnIdle(t, v)

	v.Register("svc", a.ID())
	id, found := v.Whereis("svc")
	require.True(t, found)
	assert.Equal(t, a.ID(), id)

	// last writer wins
	v.Register("svc", b.ID())
	id, _ = v.Whereis("svc")
	assert.Equal(t, b.ID(), id)
	assert.Equal(t, map[gen.Name]gen.ProcessID{"svc": b.ID()}, v.NameRegistry())

	v.Unregister("svc")
	_, found = v.Whereis("svc")
	assert.False(t, found)
	assert.Empty(t, v.NameRegistry())
}

func TestPublishSubscribers(t *testing.T) {
	v := startTestVM(t)
	a := spawnIdle(t, v)
	b := spawnIdle(t, v)
	late := spawnIdle(t, v)

	v.Subscribe(a.ID(), testType)
	v.Subscribe(b.ID(), testType)
	v.Subscribe(b.ID(), testType)
	v.Subscribe(gen.NewProcessID(), testType)
	assert.ElementsMatch(t, []gen.ProcessID{a.ID(), b.ID()}, v.Subscribers(testType))

	v.Publish(testType, "news")
	v.Subscribe(late.ID(), testType)

	assert.Equal(t, 1, a.MailboxLen(testType))
	assert.Equal(t, 1, b.MailboxLen(testType))
	assert.Equal(t, 0, late.MailboxLen(testType))

	v.Unsubscribe(a.ID(), testType)
	v.Publish(testType, "more")
	assert.Equal(t, 1, a.MailboxLen(testType))
	assert.Equal(t, 2, b.MailboxLen(testType))
	assert.Equal(t, 1, late.MailboxLen(testType))
}

func TestTerminatedProcess(t *testing.T) {
	v := startTestVM(t)
	p, _ := spawnScript(t, v, script.Return("done"))
	v.Subscribe(p.ID(), testType)
	v.Register("p", p.ID())

	assert.ErrorIs(t, v.Remove(p.ID()), gen.ErrNotAllowed)

	drive(t, p)
	assert.Empty(t, v.Subscribers(testType))
	assert.ErrorIs(t, v.Send(p.ID(), testType, 1), gen.ErrProcessTerminated)
	v.Subscribe(p.ID(), testType)
	assert.Empty(t, v.Subscribers(testType))

	// still queryable
	id, found := v.Whereis("p")
	require.True(t, found)
	assert.Equal(t, p.ID(), id)
	assert.Equal(t, []gen.Name{"p"}, p.Info().Names)

	require.NoError(t, v.Remove(p.ID()))
	_, found = v.Whereis("p")
	assert.False(t, found)
	_, found = v.Process(p.ID())
	assert.False(t, found)
	assert.ErrorIs(t, v.Remove(p.ID()), gen.ErrProcessUnknown)
}

func TestRemoveDropsLinks(t *testing.T) {
	v := startTestVM(t)
	a, _ := spawnScript(t, v, script.Return(nil))
	b := spawnIdle(t, v)

	v.link(a.ID(), b.ID())
	drive(t, a)
	assert.Equal(t, []gen.ProcessID{a.ID()}, b.Links())

	require.NoError(t, v.Remove(a.ID()))
	assert.Empty(t, b.Links())
}

func TestVMInfo(t *testing.T) {
	v := startTestVM(t)
	returned, _ := spawnScript(t, v, script.Return(1))
	crashed, _ := spawnScript(t, v, script.Fail(errors.New("boom")))
	waiting, _ := spawnScript(t, v, script.Perform(script.Receive(testType), gen.Unit{}))
	halted := spawnIdle(t, v)
	spawnIdle(t, v)

	drive(t, returned)
	drive(t, crashed)
	waiting.Reduce(budget)
	v.halt(gen.HaltProcess{ID: halted.ID(), Type: "test.halt"})
	v.Register("w", waiting.ID())
	v.Subscribe(waiting.ID(), testType)

	info := v.Info()
	assert.Equal(t, "deskvm", info.Version.Name)
	assert.Equal(t, 5, info.Processes)
	assert.Equal(t, 1, info.ProcessesRunning)
	assert.Equal(t, 1, info.ProcessesWaiting)
	assert.Equal(t, 1, info.ProcessesReturned)
	assert.Equal(t, 1, info.ProcessesCrashed)
	assert.Equal(t, 1, info.ProcessesHalted)
	assert.Equal(t, 1, info.Names)
	assert.Equal(t, 1, info.Subscriptions)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	v, err := start(Options{
		Log:     LogOptions{DisableDefaultLogger: true},
		Metrics: registry,
	})
	require.NoError(t, err)

	p, _ := spawnScript(t, v,
		script.Perform(script.EffectEcho, 1),
		script.Perform(script.EffectSend, gen.SendMessage{To: gen.NewProcessID(), Type: testType}),
		script.Return(nil),
	)
	drive(t, p)

	values := gather(t, registry)
	assert.Equal(t, 1.0, values["deskvm_processes_spawned_total"])
	assert.Equal(t, 1.0, values["deskvm_processes"])
	assert.Equal(t, 1.0, values["deskvm_effects_total{handler=immediate}"])
	assert.Equal(t, 1.0, values["deskvm_effects_total{handler=send_message}"])
	assert.Equal(t, 1.0, values["deskvm_messages_total{result=dropped}"])
	assert.Equal(t, 2.0, values["deskvm_reductions_total{output=running}"])
	assert.Equal(t, 1.0, values["deskvm_reductions_total{output=returned}"])
}

func gather(t *testing.T, registry *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, family := range families {
		for _, m := range family.GetMetric() {
			name := family.GetName()
			for _, l := range m.GetLabel() {
				name += "{" + l.GetName() + "=" + l.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				values[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[name] = m.GetGauge().GetValue()
			}
		}
	}
	return values
}
