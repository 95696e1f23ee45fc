package vm

import (
	"ember/internal/script"
	"ember/internal/value"
)

// Frame represents a function activation record on the call stack.
type Frame struct {
	Script  *script.Script
	PC      uint32        // current operation, for feedback sites and errors
	Slots   []value.Value // evaluation-stack and local slots
	This    value.Value
	Callee  value.Value   // undefined for top-level code
	Actuals []value.Value // arguments as passed
	Scope   Scope

	argsObj value.Handle
}

// NewFrame creates a frame for s. Slots start empty; the interpreter loop
// grows them as needed.
func NewFrame(s *script.Script, callee, this value.Value, actuals []value.Value, scope Scope) *Frame {
	return &Frame{
		Script:  s,
		This:    this,
		Callee:  callee,
		Actuals: actuals,
		Scope:   scope,
	}
}

// Site returns the feedback site of the current operation.
func (f *Frame) Site() script.Site {
	if f.Script == nil {
		return script.Site{}
	}
	return f.Script.Site(f.PC)
}

// NumActualArgs returns the number of arguments passed to the frame.
func (f *Frame) NumActualArgs() int { return len(f.Actuals) }

// Actual returns argument i or undefined.
func (f *Frame) Actual(i int) value.Value {
	if i < 0 || i >= len(f.Actuals) {
		return value.Undefined()
	}
	return f.Actuals[i]
}

// HasArgsObj reports whether the arguments object was materialized.
func (f *Frame) HasArgsObj() bool { return f.argsObj != 0 }

// ArgsObj returns the materialized arguments object, or 0.
func (f *Frame) ArgsObj() value.Handle { return f.argsObj }

// IsFunctionFrame reports whether the frame runs a function body.
func (f *Frame) IsFunctionFrame() bool { return !f.Callee.IsUndefined() }
