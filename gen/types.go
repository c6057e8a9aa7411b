package gen

import (
	"fmt"
	"time"
)

// Priority is the scheduling priority of a process. Inspired by Erlang's
// process_flag(priority, ...).
type Priority int

const (
	// PriorityMin processes might be not scheduled at all.
	PriorityMin Priority = iota - 2
	PriorityLow
	PriorityDefault
	PriorityHigh
	// PriorityMax processes should always be scheduled.
	PriorityMax
	// PriorityInternalMax is reserved for VM internal processes.
	PriorityInternalMax
)

func (p Priority) String() string {
	switch p {
	case PriorityMin:
		return "min"
	case PriorityLow:
		return "low"
	case PriorityDefault:
		return "default"
	case PriorityHigh:
		return "high"
	case PriorityMax:
		return "max"
	case PriorityInternalMax:
		return "internal_max"
	}
	return fmt.Sprintf("priority#%d", int(p))
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return []byte("\"" + p.String() + "\""), nil
}

// ParsePriority is the inverse of Priority.String.
func ParsePriority(s string) (Priority, error) {
	for p := PriorityMin; p <= PriorityInternalMax; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return PriorityDefault, ErrIncorrect
}

// Flags is the per-process scheduling metadata.
type Flags struct {
	Priority Priority
}

// ProcessorID identifies a scheduling unit.
type ProcessorID int

// ProcessorAttachment tells whether a process is bound to a processor.
// The zero value is detached.
type ProcessorAttachment struct {
	Attached  bool
	Processor ProcessorID
}

// Detached returns the detached attachment.
func Detached() ProcessorAttachment {
	return ProcessorAttachment{}
}

// AttachedTo returns the attachment to the given processor.
func AttachedTo(processor ProcessorID) ProcessorAttachment {
	return ProcessorAttachment{Attached: true, Processor: processor}
}

func (a ProcessorAttachment) String() string {
	if a.Attached == false {
		return "detached"
	}
	return fmt.Sprintf("attached(%d)", a.Processor)
}

// Timer is a registered entry of the process timer table.
type Timer struct {
	Name     string
	Duration time.Duration
	Effect   Effect
	Created  time.Time
}

// Deadline returns the moment the timer is due.
func (t Timer) Deadline() time.Time {
	return t.Created.Add(t.Duration)
}

// NewTimer creates the timer table entry for the manifest.
func NewTimer(manifest TimerManifest) Timer {
	return Timer{
		Name:     manifest.Name,
		Duration: manifest.Duration,
		Effect:   manifest.Effect,
		Created:  time.Now(),
	}
}

// Version
type Version struct {
	Name    string
	Release string
	License string
}

func (v Version) String() string {
	return fmt.Sprintf("%s %s (%s)", v.Name, v.Release, v.License)
}

const (
	LicenseMIT string = "MIT"
)
