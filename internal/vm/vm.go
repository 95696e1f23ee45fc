// Package vm is the evaluation core: coercion and arithmetic, name and
// element access, lazy arguments and the invocation bridge. An external
// interpreter loop decodes operations and calls into a VM one operation at
// a time.
package vm

import (
	"fmt"
	"sync/atomic"

	"ember/internal/config"
	"ember/internal/feedback"
	"ember/internal/object"
	"ember/internal/script"
	"ember/internal/tier"
	"ember/internal/trace"
	"ember/internal/value"
)

// Interpreter runs the body of an interpreted function in fr. The VM has
// already pushed fr and pops it when Run returns.
type Interpreter interface {
	Run(vm *VM, fr *Frame) (value.Value, *VMError)
}

// InterpreterFunc adapts a function to Interpreter.
type InterpreterFunc func(vm *VM, fr *Frame) (value.Value, *VMError)

// Run implements Interpreter.
func (f InterpreterFunc) Run(vm *VM, fr *Frame) (value.Value, *VMError) { return f(vm, fr) }

// CompiledTier is the compiled-code tier as seen by the invocation bridge.
// *tier.Registry implements it.
type CompiledTier interface {
	CanEnter(s *script.Script, argc int) (tier.MethodStatus, error)
	Enter(s *script.Script, this value.Value, args []value.Value) (value.Value, tier.ExecStatus, error)
}

// Options configures a VM.
type Options struct {
	Config   config.Config
	Feedback feedback.Sink
	Tier     CompiledTier
	Profiler *tier.Profiler
	Interp   Interpreter
	Trace    trace.Tracer
}

// VM is the execution context threaded through every operation.
type VM struct {
	Heap     *object.Heap
	Realm    *Realm
	Feedback feedback.Sink
	Tier     CompiledTier
	Profiler *tier.Profiler
	Interp   Interpreter
	Trace    trace.Tracer
	Config   config.Config
	Stack    []*Frame

	natives   []native
	eb        *errorBuilder
	interrupt atomic.Bool
	calls     CallStats
}

// CallStats counts invocation bridge decisions.
type CallStats struct {
	Native      uint64
	Interpreted uint64
	Compiled    uint64
	Skipped     uint64
	TierErrors  uint64
}

// New creates a VM with a fresh heap and realm.
func New(opts Options) *VM {
	cfg := opts.Config
	if cfg.Engine.MaxDepth <= 0 {
		cfg = config.Default()
	}
	vm := &VM{
		Heap:     object.NewHeap(),
		Feedback: opts.Feedback,
		Profiler: opts.Profiler,
		Interp:   opts.Interp,
		Trace:    opts.Trace,
		Config:   cfg,
		natives:  make([]native, 1, 16),
	}
	if cfg.Tier.Enabled {
		vm.Tier = opts.Tier
	}
	if vm.Feedback == nil {
		vm.Feedback = feedback.Nop
	}
	if vm.Trace == nil {
		vm.Trace = trace.Nop
	}
	vm.eb = &errorBuilder{vm: vm}
	vm.Heap.SetRuntime(vm)
	vm.Realm = newRealm(vm)
	return vm
}

// Global returns the global object.
func (vm *VM) Global() value.Handle { return vm.Realm.Global.object }

// Depth returns the number of live frames.
func (vm *VM) Depth() int { return len(vm.Stack) }

// CurrentFrame returns the innermost frame or nil.
func (vm *VM) CurrentFrame() *Frame {
	if len(vm.Stack) == 0 {
		return nil
	}
	return vm.Stack[len(vm.Stack)-1]
}

// CallStats returns invocation bridge counters.
func (vm *VM) CallStats() CallStats { return vm.calls }

// PushFrame makes fr current.
func (vm *VM) PushFrame(fr *Frame) *VMError {
	if len(vm.Stack) >= vm.Config.Engine.MaxDepth {
		return vm.eb.tooMuchRecursion(len(vm.Stack))
	}
	vm.Stack = append(vm.Stack, fr)
	return nil
}

// PopFrame removes the current frame.
func (vm *VM) PopFrame() {
	if n := len(vm.Stack); n > 0 {
		vm.Stack[n-1] = nil
		vm.Stack = vm.Stack[:n-1]
	}
}

// Interrupt requests that the next call entry fails. Safe to call from any
// goroutine.
func (vm *VM) Interrupt() { vm.interrupt.Store(true) }

// CheckInterrupt consumes a pending interrupt request. The interpreter loop
// polls it between operations.
func (vm *VM) CheckInterrupt() *VMError {
	if vm.interrupt.CompareAndSwap(true, false) {
		trace.Error(vm.Trace, trace.ScopeCall, "interrupt", "", nil)
		return vm.eb.interrupted()
	}
	return nil
}

// Run executes a top-level script with the global object as this.
func (vm *VM) Run(s *script.Script) (result value.Value, vmErr *VMError) {
	span := trace.Begin(vm.Trace, trace.ScopeRun, "run", 0).WithExtra("script", s.String())
	defer func() {
		if vmErr != nil {
			span.Fail(vmErr)
		}
		span.End("")
	}()
	fr := NewFrame(s, value.Undefined(), value.Object(vm.Global()), nil, vm.Realm.Global)
	return vm.runFrame(fr)
}

// runFrame pushes fr and hands it to the interpreter loop. A *VMError
// panic raised below the loop is recovered here.
func (vm *VM) runFrame(fr *Frame) (result value.Value, vmErr *VMError) {
	if vm.Interp == nil {
		return value.Undefined(), vm.eb.makeError(ErrNoInterpreter, fmt.Sprintf("no interpreter for %s", fr.Script))
	}
	if vmErr := vm.PushFrame(fr); vmErr != nil {
		return value.Undefined(), vmErr
	}
	depth := len(vm.Stack)
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*VMError)
			if !ok {
				panic(r)
			}
			result, vmErr = value.Undefined(), e
		}
		if len(vm.Stack) > depth {
			vm.Stack = vm.Stack[:depth]
		}
		vm.PopFrame()
	}()
	return vm.Interp.Run(vm, fr)
}

// emit records a feedback event at site.
func (vm *VM) emit(site script.Site, kind feedback.Kind) {
	vm.Feedback.Emit(feedback.Event{Site: site, Kind: kind})
}

// CallFunction implements object.Runtime for accessors invoked by the heap.
func (vm *VM) CallFunction(fn, this value.Value, args []value.Value) (value.Value, error) {
	v, vmErr := vm.Call(fn, this, args)
	return v, asError(vmErr)
}

// ToNumber implements object.Runtime.
func (vm *VM) ToNumber(v value.Value) (float64, error) {
	d, vmErr := vm.toNumber(v)
	return d, asError(vmErr)
}
