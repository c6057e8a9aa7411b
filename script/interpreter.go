// Package script implements a step program interpreter and the standard
// effect handler table binding every handler variant to a canonical effect.
package script

import (
	"sync"
	"time"

	"deskvm.dev/deskvm/gen"
)

type stepKind int

const (
	stepPerform stepKind = iota
	stepReturn
	stepReturnLast
	stepFail
	stepSpin
)

// Step is one instruction of a script.
type Step struct {
	kind   stepKind
	effect gen.Effect
	input  func(last gen.Value) gen.Value
	value  gen.Value
	err    error
}

// Perform performs the effect with the given input.
func Perform(effect gen.Effect, input gen.Value) Step {
	return Step{
		kind:   stepPerform,
		effect: effect,
		input:  func(gen.Value) gen.Value { return input },
	}
}

// PerformWith performs the effect with the input built from the output of
// the previous effect.
func PerformWith(effect gen.Effect, input func(last gen.Value) gen.Value) Step {
	return Step{kind: stepPerform, effect: effect, input: input}
}

// Return finishes the script with the value.
func Return(value gen.Value) Step {
	return Step{kind: stepReturn, value: value}
}

// ReturnLast finishes the script with the output of the previous effect.
func ReturnLast() Step {
	return Step{kind: stepReturnLast}
}

// Fail makes Reduce fail with the error.
func Fail(err error) Step {
	return Step{kind: stepFail, err: err}
}

// Spin uses up one reduction without doing anything.
func Spin() Step {
	return Step{kind: stepSpin}
}

// Interpreter runs the steps in order. A script without a final Return
// step returns the output of its last effect.
type Interpreter struct {
	sync.Mutex
	steps    []Step
	pc       int
	awaiting bool
	pending  gen.InterpreterOutput
	last     gen.Value
	outputs  []gen.Value
}

func New(steps ...Step) *Interpreter {
	return &Interpreter{
		steps: steps,
		last:  gen.Unit{},
	}
}

// Factory returns a factory building a fresh interpreter of the steps for
// every spawned process.
func Factory(steps ...Step) gen.InterpreterFactory {
	return func() (gen.Interpreter, error) {
		return New(steps...), nil
	}
}

// Factory returns a factory handing out this very interpreter. It is meant
// for a single spawn.
func (i *Interpreter) Factory() gen.InterpreterFactory {
	return func() (gen.Interpreter, error) {
		return i, nil
	}
}

func (i *Interpreter) Reduce(budget time.Duration) (gen.InterpreterOutput, error) {
	i.Lock()
	defer i.Unlock()

	if i.awaiting {
		// the effect has not been resolved yet
		return i.pending, nil
	}

	if i.pc >= len(i.steps) {
		return gen.InterpreterOutput{Kind: gen.InterpreterReturned, Value: i.last}, nil
	}

	step := i.steps[i.pc]
	switch step.kind {
	case stepPerform:
		i.pc++
		i.awaiting = true
		i.pending = gen.InterpreterOutput{
			Kind:   gen.InterpreterPerformed,
			Input:  step.input(i.last),
			Effect: step.effect,
		}
		return i.pending, nil

	case stepReturn:
		return gen.InterpreterOutput{Kind: gen.InterpreterReturned, Value: step.value}, nil

	case stepReturnLast:
		return gen.InterpreterOutput{Kind: gen.InterpreterReturned, Value: i.last}, nil

	case stepFail:
		return gen.InterpreterOutput{}, step.err
	}

	i.pc++
	return gen.InterpreterOutput{Kind: gen.InterpreterRunning}, nil
}

func (i *Interpreter) EffectOutput(output gen.Value) {
	i.Lock()
	defer i.Unlock()

	if i.awaiting == false {
		panic("script: effect output without performed effect")
	}
	i.awaiting = false
	i.last = output
	i.outputs = append(i.outputs, output)
}

// Outputs returns every effect output received so far.
func (i *Interpreter) Outputs() []gen.Value {
	i.Lock()
	defer i.Unlock()
	outputs := make([]gen.Value, len(i.outputs))
	copy(outputs, i.outputs)
	return outputs
}

// Last returns the output of the previous effect.
func (i *Interpreter) Last() gen.Value {
	i.Lock()
	defer i.Unlock()
	return i.last
}
