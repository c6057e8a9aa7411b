package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"text/tabwriter"

	"deskvm.dev/deskvm"
	"deskvm.dev/deskvm/gen"
	"deskvm.dev/deskvm/sched"
	"deskvm.dev/deskvm/script"
	"deskvm.dev/deskvm/vm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const (
	typePing gen.Type = "demo.ping"
	typePong gen.Type = "demo.pong"
	typeDone gen.Type = "demo.done"

	namePong gen.Name = "pong"
)

var (
	flagLogLevel    string
	flagProcessors  int
	flagPings       int
	flagShowMetrics bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the ping/pong demo",
		RunE:  runDemo,
	}
)

func init() {
	runCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "override the log level")
	runCmd.Flags().IntVar(&flagProcessors, "processors", 0, "override the number of processors")
	runCmd.Flags().IntVar(&flagPings, "pings", -1, "override the number of round trips")
	runCmd.Flags().BoolVar(&flagShowMetrics, "metrics", false, "print the VM counters on exit")
}

type ping struct {
	From gen.ProcessID
	N    int
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagProcessors > 0 {
		cfg.Processors = flagProcessors
	}
	if flagPings >= 0 {
		cfg.Pings = flagPings
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	level, _ := gen.ParseLogLevel(cfg.Log.Level)

	registry := prometheus.NewRegistry()
	options := vm.Options{
		MailboxSize: cfg.MailboxSize,
		Metrics:     registry,
	}
	options.Log.Level = level
	options.Log.DefaultLogger = gen.DefaultLoggerOptions{
		TimeFormat: cfg.Log.TimeFormat,
		EnableJSON: cfg.Log.JSON,
		Colored:    cfg.Log.Colored,
		Output:     cmd.ErrOrStderr(),
	}

	v, err := deskvm.Start(options)
	if err != nil {
		return err
	}

	handlers := script.Handlers(typePing, typePong, typeDone)

	pong, err := v.Spawn(gen.ProcessManifest{
		Interpreter:    pongFactory(cfg.Pings),
		EffectHandlers: handlers,
	})
	if err != nil {
		return err
	}
	v.Register(namePong, pong)

	pinger, err := v.Spawn(gen.ProcessManifest{
		Interpreter:    pingFactory(cfg.Pings),
		EffectHandlers: handlers,
		Flags:          gen.Flags{Priority: gen.PriorityHigh},
	})
	if err != nil {
		return err
	}

	watcher, err := v.Spawn(gen.ProcessManifest{
		Interpreter:    watcherFactory(pinger),
		EffectHandlers: handlers,
	})
	if err != nil {
		return err
	}
	v.Subscribe(watcher, typeDone)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	var running atomic.Int32
	running.Store(3)
	s := sched.New(v, sched.Options{
		Processors: cfg.Processors,
		Budget:     cfg.Budget,
		Idle:       cfg.Idle,
		OnExit: func(p gen.Process, output gen.ProcessOutput) {
			v.Log().Info("process %s exited: %s", p.ID(), output.Status)
			if running.Add(-1) == 0 {
				cancel()
			}
		},
	})
	if err := s.Run(ctx); err != nil {
		return err
	}
	if running.Load() > 0 {
		return fmt.Errorf("%d processes still running: %w", running.Load(), gen.ErrTimeout)
	}

	printProcesses(cmd.OutOrStdout(), v)
	if flagShowMetrics {
		return printMetrics(cmd.OutOrStdout(), registry)
	}
	return nil
}

// pong answers every ping and returns the number of answered pings.
func pongFactory(pings int) gen.InterpreterFactory {
	var steps []script.Step
	for i := 0; i < pings; i++ {
		steps = append(steps,
			script.Perform(script.Receive(typePing), gen.Unit{}),
			script.PerformWith(script.EffectSend, func(last gen.Value) gen.Value {
				p := last.(ping)
				return gen.SendMessage{To: p.From, Type: typePong, Message: p.N}
			}),
		)
	}
	steps = append(steps, script.Return(pings))
	return script.Factory(steps...)
}

// ping sends the pings one by one waiting for every answer, then
// publishes the number of round trips.
func pingFactory(pings int) gen.InterpreterFactory {
	return func() (gen.Interpreter, error) {
		var self, pong gen.ProcessID

		steps := []script.Step{
			script.Perform(script.EffectProcessInfo, gen.Unit{}),
			script.PerformWith(script.EffectWhereis, func(last gen.Value) gen.Value {
				self = last.(gen.ProcessInfo).ID
				return namePong
			}),
			script.PerformWith(script.EffectMonitor, func(last gen.Value) gen.Value {
				pong = last.(script.Lookup).Value.(gen.ProcessID)
				return pong
			}),
		}
		for i := 0; i < pings; i++ {
			n := i
			steps = append(steps,
				script.PerformWith(script.EffectSend, func(gen.Value) gen.Value {
					return gen.SendMessage{To: pong, Type: typePing, Message: ping{From: self, N: n}}
				}),
				script.Perform(script.Receive(typePong), gen.Unit{}),
			)
		}
		steps = append(steps,
			script.Perform(script.Publish(typeDone), pings),
			script.ReturnLast(),
		)
		return script.New(steps...), nil
	}
}

// watcher waits for the pinger to terminate and for its done event.
func watcherFactory(pinger gen.ProcessID) gen.InterpreterFactory {
	return script.Factory(
		script.Perform(script.EffectMonitor, pinger),
		script.Perform(script.Receive(gen.TypeDown), gen.Unit{}),
		script.Perform(script.Receive(typeDone), gen.Unit{}),
		script.ReturnLast(),
	)
}

func printProcesses(out io.Writer, v gen.VM) {
	var list []gen.ProcessInfo
	for _, p := range v.Processes() {
		list = append(list, p.Info())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID.String() < list[j].ID.String()
	})

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROCESS\tNAMES\tPRIORITY\tREDUCTIONS\tSTATUS")
	for _, info := range list {
		fmt.Fprintf(w, "%s\t%v\t%s\t%d\t%s\n",
			info.ID, info.Names, info.Flags.Priority, info.Reductions, info.Status)
	}
	w.Flush()
}

func printMetrics(out io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := ""
			for _, l := range m.GetLabel() {
				labels += fmt.Sprintf("%s=%s ", l.GetName(), l.GetValue())
			}
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			fmt.Fprintf(out, "%s %s%g\n", family.GetName(), labels, value)
		}
	}
	return nil
}
