package gen

import (
	"errors"
)

var (
	ErrProcessMailboxFull = errors.New("process mailbox is full")
	ErrProcessUnknown     = errors.New("unknown process")
	ErrProcessTerminated  = errors.New("process terminated")

	ErrInterpreterFactory = errors.New("unable to create interpreter")

	ErrTaken = errors.New("resource is taken")

	ErrTimeout    = errors.New("timed out")
	ErrNotAllowed = errors.New("not allowed")
	ErrIncorrect  = errors.New("incorrect value or argument")
)
