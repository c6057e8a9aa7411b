package gen

import (
	"fmt"
	"strings"
)

// Value is an opaque runtime value produced and consumed across effect
// boundaries. Values travel between processes by reference and must be
// treated as immutable once handed over.
type Value any

// Unit is the empty value. Handlers without a meaningful result feed it
// back to the interpreter.
type Unit struct{}

func (Unit) String() string {
	return "()"
}

// Vector is the composite list value (FlushMailbox resolves to a Vector).
type Vector []Value

func (v Vector) String() string {
	items := make([]string, len(v))
	for i := range v {
		items[i] = fmt.Sprintf("%v", v[i])
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// Type is the canonical rendering of a type of the typed IR. It is used as
// the message type of mailboxes, the key type of the KV store and the topic
// of pub/sub subscriptions.
type Type string

func (t Type) String() string {
	return "'" + string(t) + "'"
}

// Effect is the identity of an effect: the type of the value an
// interpreter hands over and the type it expects back.
type Effect struct {
	Input  Type
	Output Type
}

func (e Effect) String() string {
	return fmt.Sprintf("%s ~> %s", e.Input, e.Output)
}

// Name is a registered process name.
type Name string

func (n Name) String() string {
	return "'" + string(n) + "'"
}

// NotFound is the output value handlers feed back when the process they
// addressed does not exist.
type NotFound struct {
	ID ProcessID
}

func (n NotFound) String() string {
	return "not_found(" + n.ID.String() + ")"
}
