package gen

import (
	"errors"
	"testing"
	"time"
)

func TestPriority(t *testing.T) {
	for p := PriorityMin; p <= PriorityInternalMax; p++ {
		parsed, err := ParsePriority(p.String())
		if err != nil || parsed != p {
			t.Fatalf("%s: parsed %s, %v", p, parsed, err)
		}
	}
	if PriorityDefault != 0 {
		t.Fatal("default priority must be the zero value")
	}
	if _, err := ParsePriority("urgent"); errors.Is(err, ErrIncorrect) == false {
		t.Fatal("expected ErrIncorrect, got", err)
	}
}

func TestLogLevel(t *testing.T) {
	for l := LogLevelDefault; l <= LogLevelDisabled; l++ {
		parsed, err := ParseLogLevel(l.String())
		if err != nil || parsed != l {
			t.Fatalf("%s: parsed %s, %v", l, parsed, err)
		}
	}
	if l, _ := ParseLogLevel(" WARNING "); l != LogLevelWarning {
		t.Fatal("parsing must ignore case and spaces, got", l)
	}
	if _, err := ParseLogLevel("loud"); errors.Is(err, ErrIncorrect) == false {
		t.Fatal("expected ErrIncorrect, got", err)
	}
}

func TestProcessorAttachment(t *testing.T) {
	if Detached().String() != "detached" {
		t.Fatal("unexpected", Detached())
	}
	if AttachedTo(2).String() != "attached(2)" {
		t.Fatal("unexpected", AttachedTo(2))
	}
	if (ProcessorAttachment{}) != Detached() {
		t.Fatal("zero attachment must be detached")
	}
}

func TestTimer(t *testing.T) {
	timer := NewTimer(TimerManifest{Name: "t", Duration: time.Second})
	if timer.Deadline().Sub(timer.Created) != time.Second {
		t.Fatal("unexpected deadline", timer.Deadline())
	}
}
