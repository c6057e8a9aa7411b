package vm

import (
	"deskvm.dev/deskvm/gen"

	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	Log LogOptions
	// MailboxSize limits every per-type mailbox queue of a process whose
	// manifest leaves it zero. Zero means gen.DefaultMailboxSize.
	MailboxSize int64
	// Metrics receives the VM collectors. Nil keeps them in a private
	// registry.
	Metrics prometheus.Registerer
	// Version is reported by Info and in the VM log source.
	Version gen.Version
}

type LogOptions struct {
	// Level defaults to gen.DefaultLogLevel
	Level gen.LogLevel
	// DefaultLogger options of the logger writing to stdout
	DefaultLogger gen.DefaultLoggerOptions
	// DisableDefaultLogger leaves only the loggers listed below
	DisableDefaultLogger bool
	Loggers              []Logger
}

type Logger struct {
	Name   string
	Logger gen.LoggerBehavior
	// Filter defaults to gen.DefaultLogFilter
	Filter []gen.LogLevel
}
