package gen

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcessID identifies a process within the VM.
type ProcessID uuid.UUID

// NewProcessID returns a random process identifier.
func NewProcessID() ProcessID {
	return ProcessID(uuid.New())
}

// ParseProcessID parses the canonical textual form of a process identifier.
func ParseProcessID(s string) (ProcessID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ProcessID{}, fmt.Errorf("%w: %w", ErrIncorrect, err)
	}
	return ProcessID(id), nil
}

func (id ProcessID) String() string {
	return "<" + uuid.UUID(id).String() + ">"
}

func (id ProcessID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

// IsZero reports whether the identifier was never assigned.
func (id ProcessID) IsZero() bool {
	return id == ProcessID{}
}

// StatusKind is the state of a process in its lifecycle.
type StatusKind int32

func (s StatusKind) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusWaitingForMessage:
		return "waiting for message"
	case StatusReturned:
		return "returned"
	case StatusCrashed:
		return "crashed"
	case StatusHalted:
		return "halted"
	}
	return fmt.Sprintf("status#%d", int32(s))
}

func (s StatusKind) MarshalJSON() ([]byte, error) {
	return []byte("\"" + s.String() + "\""), nil
}

const (
	// StatusRunning indicates the process can be reduced.
	StatusRunning StatusKind = 1

	// StatusWaitingForMessage indicates the process performed ReceiveMessage
	// on an empty queue. It is resumed by a later Reduce call once a message
	// of the awaited type has been delivered.
	StatusWaitingForMessage StatusKind = 2

	// StatusReturned is terminal. The interpreter finished with a value.
	StatusReturned StatusKind = 4

	// StatusCrashed is terminal. The interpreter failed with an error.
	StatusCrashed StatusKind = 8

	// StatusHalted is terminal. Another process (or the process itself)
	// performed Halt targeting this process.
	StatusHalted StatusKind = 16
)

// Status is an immutable snapshot of the process state. Once published a
// Status is never modified, so it can be shared with any number of readers.
type Status struct {
	Kind StatusKind
	// Type is the awaited message type for StatusWaitingForMessage and the
	// halt type for StatusHalted.
	Type Type
	// Value is the returned value for StatusReturned and the halt reason
	// for StatusHalted.
	Value Value
	// Error is the interpreter error for StatusCrashed.
	Error error
}

var statusRunning = &Status{Kind: StatusRunning}

// StatusRunningSnapshot returns the shared Running status.
func StatusRunningSnapshot() *Status {
	return statusRunning
}

func NewStatusWaiting(ty Type) *Status {
	return &Status{Kind: StatusWaitingForMessage, Type: ty}
}

func NewStatusReturned(value Value) *Status {
	return &Status{Kind: StatusReturned, Value: value}
}

func NewStatusCrashed(err error) *Status {
	return &Status{Kind: StatusCrashed, Error: err}
}

func NewStatusHalted(ty Type, reason Value) *Status {
	return &Status{Kind: StatusHalted, Type: ty, Value: reason}
}

// IsTerminal reports whether the status can no longer change.
func (s *Status) IsTerminal() bool {
	switch s.Kind {
	case StatusReturned, StatusCrashed, StatusHalted:
		return true
	}
	return false
}

func (s *Status) String() string {
	switch s.Kind {
	case StatusWaitingForMessage:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Type)
	case StatusReturned:
		return fmt.Sprintf("%s(%v)", s.Kind, s.Value)
	case StatusCrashed:
		return fmt.Sprintf("%s(%v)", s.Kind, s.Error)
	case StatusHalted:
		return fmt.Sprintf("%s(%s: %v)", s.Kind, s.Type, s.Value)
	}
	return s.Kind.String()
}

// InterpreterOutputKind tells what the interpreter did during one Reduce call.
type InterpreterOutputKind int

const (
	// InterpreterRunning means the budget ran out before the program finished.
	InterpreterRunning InterpreterOutputKind = iota
	// InterpreterReturned means the program finished with Value.
	InterpreterReturned
	// InterpreterPerformed means the program performed Effect with Input and
	// waits for EffectOutput.
	InterpreterPerformed
)

// InterpreterOutput is the result of one Interpreter.Reduce call.
type InterpreterOutput struct {
	Kind   InterpreterOutputKind
	Value  Value
	Input  Value
	Effect Effect
}

// Interpreter is the effectful program owned by a process. Implementations
// must return from Reduce within (approximately) the given budget; a
// blocking interpreter breaks the scheduling contract.
type Interpreter interface {
	Reduce(budget time.Duration) (InterpreterOutput, error)
	// EffectOutput resumes the program with the resolved output of the
	// effect it performed last.
	EffectOutput(output Value)
}

// InterpreterFactory builds the interpreter for a new process.
type InterpreterFactory func() (Interpreter, error)

// ProcessManifest describes a process to spawn.
type ProcessManifest struct {
	Interpreter InterpreterFactory
	// EffectHandlers is copied on spawn; later changes of the map do not
	// affect the process.
	EffectHandlers EffectHandlers
	Flags          Flags
	// MailboxSize limits every per-type queue of the mailbox. Zero uses
	// the VM default, negative means unlimited.
	MailboxSize int64
}

// ProcessOutputKind tells the scheduler what happened during one Reduce call.
type ProcessOutputKind int

func (k ProcessOutputKind) String() string {
	switch k {
	case OutputRunning:
		return "running"
	case OutputWaitingForMessage:
		return "waiting_for_message"
	case OutputPerformed:
		return "performed"
	case OutputReturned:
		return "returned"
	case OutputHalted:
		return "halted"
	case OutputCrashed:
		return "crashed"
	}
	return fmt.Sprintf("output#%d", int(k))
}

const (
	OutputRunning ProcessOutputKind = iota
	OutputWaitingForMessage
	// OutputPerformed is returned for deferred effects. The caller resolves
	// the effect and resumes the process with Process.Resume.
	OutputPerformed
	OutputReturned
	OutputHalted
	OutputCrashed
)

// ProcessOutput is the result of one Process.Reduce call.
type ProcessOutput struct {
	Kind   ProcessOutputKind
	Input  Value
	Effect Effect
	// Status is set for OutputWaitingForMessage and terminal outputs.
	Status *Status
}

// IsTerminal reports whether the output carries a terminal status.
func (o ProcessOutput) IsTerminal() bool {
	switch o.Kind {
	case OutputReturned, OutputHalted, OutputCrashed:
		return true
	}
	return false
}

func (o ProcessOutput) String() string {
	if o.Kind == OutputPerformed {
		return fmt.Sprintf("%s(%s)", o.Kind, o.Effect)
	}
	if o.Status != nil {
		return o.Status.String()
	}
	return o.Kind.String()
}

// Process is a handle of a process living in the VM.
type Process interface {
	ID() ProcessID

	// Reduce runs one bounded reduction step. It never blocks the caller
	// longer than the interpreter budget plus the time needed to acquire
	// the process locks.
	Reduce(budget time.Duration) ProcessOutput

	// Resume feeds the resolved output of a deferred effect. Returns
	// ErrNotAllowed if the process has no deferred effect pending.
	Resume(output Value) error

	// Status returns the current status snapshot. Never blocks.
	Status() *Status

	Attachment() ProcessorAttachment
	SetAttachment(attachment ProcessorAttachment)
	// Attach binds a detached process to the processor. Returns false if
	// the process is attached elsewhere.
	Attach(processor ProcessorID) bool
	// Detach releases the process if it is attached to the processor.
	Detach(processor ProcessorID) bool

	Flags() Flags
	Links() []ProcessID
	Monitors() []ProcessID
	MailboxLen(ty Type) int
	Timers() []Timer
	Kv(key Type) (Value, bool)

	Info() ProcessInfo
	Log() Log
}

// ProcessInfo is a snapshot of a process.
type ProcessInfo struct {
	ID         ProcessID
	Status     *Status
	Flags      Flags
	Attachment ProcessorAttachment
	Links      []ProcessID
	Monitors   []ProcessID
	// Mailbox holds the queue length per message type.
	Mailbox    map[Type]int
	Timers     []Timer
	KvKeys     []Type
	Names      []Name
	Reductions uint64
	Uptime     int64
}
