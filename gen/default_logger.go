package gen

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-colorable"
)

// DefaultLoggerOptions
type DefaultLoggerOptions struct {
	// TimeFormat enables output time in the defined format. See https://pkg.go.dev/time#pkg-constants
	// Not defined format makes output time as a timestamp in nanoseconds.
	TimeFormat string
	// IncludeFields includes the log fields to the log message
	IncludeFields bool
	// EnableJSON makes the logger write one JSON object per line
	EnableJSON bool
	// Colored highlights the log level with ANSI colors. Ignored in JSON mode.
	Colored bool
	// Output defines output for the log messages. By default it uses os.Stdout
	Output io.Writer
}

//
// default logger of the VM. It uses stdout as an output by default, but can be used
// any io.Writer.
//

func CreateDefaultLogger(options DefaultLoggerOptions) LoggerBehavior {
	var l defaultLogger

	l.out = options.Output
	if options.Colored && options.EnableJSON == false {
		l.colored = true
		switch out := l.out.(type) {
		case nil:
			l.out = colorable.NewColorableStdout()
		case *os.File:
			l.out = colorable.NewColorable(out)
		}
	}
	if l.out == nil {
		l.out = os.Stdout
	}

	l.format = options.TimeFormat
	l.includeFields = options.IncludeFields
	l.json = options.EnableJSON

	return &l
}

type defaultLogger struct {
	sync.Mutex
	out           io.Writer
	format        string
	includeFields bool
	json          bool
	colored       bool
}

type jsonLogSource struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Release string `json:"release,omitempty"`
}

type jsonLogMessage struct {
	Time    string            `json:"time"`
	Level   string            `json:"level"`
	Source  jsonLogSource     `json:"source"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var levelColors = map[LogLevel]string{
	LogLevelTrace:   "\x1b[90m",
	LogLevelDebug:   "\x1b[36m",
	LogLevelInfo:    "\x1b[32m",
	LogLevelWarning: "\x1b[33m",
	LogLevelError:   "\x1b[31m",
	LogLevelPanic:   "\x1b[35;1m",
}

func (l *defaultLogger) Log(m MessageLog) {
	var t string
	var source jsonLogSource

	if l.format == "" {
		t = fmt.Sprintf("%d", m.Time.UnixNano())
	} else {
		t = m.Time.Format(l.format)
	}

	switch src := m.Source.(type) {
	case MessageLogVM:
		source = jsonLogSource{Type: "vm", Release: src.Release}
	case MessageLogProcess:
		source = jsonLogSource{Type: "process", ID: src.ID.String()}
	default:
		panic(fmt.Sprintf("unknown log source type: %#v", m.Source))
	}

	message := fmt.Sprintf(m.Format, m.Args...)

	l.Lock()
	defer l.Unlock()

	if l.json {
		jm := jsonLogMessage{
			Time:    t,
			Level:   m.Level.String(),
			Source:  source,
			Message: message,
		}
		if l.includeFields && len(m.Fields) > 0 {
			jm.Fields = make(map[string]string, len(m.Fields))
			for _, f := range m.Fields {
				jm.Fields[f.Name] = fmt.Sprintf("%v", f.Value)
			}
		}
		enc := json.NewEncoder(l.out)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(jm); err != nil {
			fmt.Printf("(fallback) %s [%s] %s: %s\n", t, m.Level, source.Type, message)
		}
		return
	}

	src := source.Type
	if source.ID != "" {
		src = source.ID
	}

	fields := ""
	if l.includeFields {
		for _, f := range m.Fields {
			fields += fmt.Sprintf(" %s=%v", f.Name, f.Value)
		}
	}

	level := m.Level.String()
	if l.colored {
		level = levelColors[m.Level] + level + "\x1b[0m"
	}

	_, err := fmt.Fprintf(l.out, "%s [%s] %s: %s%s\n", t, level, src, message, fields)
	if err != nil {
		fmt.Printf("(fallback) %s [%s] %s: %s%s\n", t, m.Level, src, message, fields)
	}
}

func (l *defaultLogger) Terminate() {}
