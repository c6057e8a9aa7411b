package gen

import (
	"fmt"
	"strings"
)

type Log interface {
	Level() LogLevel
	SetLevel(level LogLevel) error

	Fields() []LogField
	AddFields(fields ...LogField)

	Trace(format string, args ...any)
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Error(format string, args ...any)
	Panic(format string, args ...any)
}

type LogField struct {
	Name  string
	Value any
}

type LoggerBehavior interface {
	Log(message MessageLog)
	Terminate()
}

type LogLevel int

const (
	LogLevelDefault  LogLevel = 0 // inherits the VM log level
	LogLevelTrace    LogLevel = 1
	LogLevelDebug    LogLevel = 2
	LogLevelInfo     LogLevel = 3
	LogLevelWarning  LogLevel = 4
	LogLevelError    LogLevel = 5
	LogLevelPanic    LogLevel = 6
	LogLevelDisabled LogLevel = 7
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDefault:
		return "default"
	case LogLevelTrace:
		return "trace"
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarning:
		return "warning"
	case LogLevelError:
		return "error"
	case LogLevelPanic:
		return "panic"
	case LogLevelDisabled:
		return "disabled"
	}
	return fmt.Sprintf("loglevel#%d", int(l))
}

func (l LogLevel) MarshalJSON() ([]byte, error) {
	return []byte("\"" + l.String() + "\""), nil
}

// ParseLogLevel is the inverse of LogLevel.String (case insensitive).
func ParseLogLevel(s string) (LogLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l := LogLevelDefault; l <= LogLevelDisabled; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return LogLevelDefault, ErrIncorrect
}
