package vm

import (
	"sync"
	"sync/atomic"
	"time"

	"deskvm.dev/deskvm/gen"
)

// gen.Log interface implementation

// createLog makes a log with its own level. LogLevelDefault makes it follow
// the level returned by inherit.
func createLog(level gen.LogLevel, inherit func() gen.LogLevel, dolog func(gen.MessageLog)) *log {
	l := &log{
		inherit: inherit,
		dolog:   dolog,
	}
	l.level.Store(int32(level))
	return l
}

type log struct {
	level   atomic.Int32
	inherit func() gen.LogLevel
	source  any

	sync.RWMutex
	fields []gen.LogField

	dolog func(gen.MessageLog)
}

func (l *log) Level() gen.LogLevel {
	level := gen.LogLevel(l.level.Load())
	if level == gen.LogLevelDefault && l.inherit != nil {
		return l.inherit()
	}
	return level
}

func (l *log) SetLevel(level gen.LogLevel) error {
	if level < gen.LogLevelDefault || level > gen.LogLevelDisabled {
		return gen.ErrIncorrect
	}
	if level == gen.LogLevelDefault && l.inherit == nil {
		return gen.ErrIncorrect
	}
	l.level.Store(int32(level))
	return nil
}

func (l *log) Fields() []gen.LogField {
	l.RLock()
	defer l.RUnlock()
	f := make([]gen.LogField, len(l.fields))
	copy(f, l.fields)
	return f
}

func (l *log) AddFields(fields ...gen.LogField) {
	l.Lock()
	l.fields = append(l.fields, fields...)
	l.Unlock()
}

func (l *log) Trace(format string, args ...any) {
	l.write(gen.LogLevelTrace, format, args)
}

func (l *log) Debug(format string, args ...any) {
	l.write(gen.LogLevelDebug, format, args)
}

func (l *log) Info(format string, args ...any) {
	l.write(gen.LogLevelInfo, format, args)
}

func (l *log) Warning(format string, args ...any) {
	l.write(gen.LogLevelWarning, format, args)
}

func (l *log) Error(format string, args ...any) {
	l.write(gen.LogLevelError, format, args)
}

func (l *log) Panic(format string, args ...any) {
	l.write(gen.LogLevelPanic, format, args)
}

func (l *log) setSource(source any) {
	switch source.(type) {
	case gen.MessageLogProcess, gen.MessageLogVM:
	default:
		panic("unknown source type for log interface")
	}
	l.source = source
}

func (l *log) write(level gen.LogLevel, format string, args []any) {
	if l.Level() > level {
		return
	}

	m := gen.MessageLog{
		Time:   time.Now(),
		Level:  level,
		Source: l.source,
		Format: format,
		Args:   args,
		Fields: l.Fields(),
	}
	l.dolog(m)
}
