package gen

import "time"

const (
	// TypeDown is the mailbox type of MessageDown.
	TypeDown Type = "desk.down"
	// TypeLinkNotFound is the mailbox type of MessageLinkNotFound.
	TypeLinkNotFound Type = "desk.link_not_found"
)

// MessageDown is delivered to every watcher of a process reaching a
// terminal status.
type MessageDown struct {
	ID     ProcessID
	Status *Status
}

// MessageLinkNotFound is delivered to a process whose Link effect named a
// process that does not exist.
type MessageLinkNotFound struct {
	ID ProcessID
}

// MessageLog
type MessageLog struct {
	Time   time.Time
	Level  LogLevel
	Source any // MessageLogVM, MessageLogProcess
	Format string
	Args   []any
	Fields []LogField
}

// MessageLogVM
type MessageLogVM struct {
	Release string
}

// MessageLogProcess
type MessageLogProcess struct {
	ID ProcessID
}
