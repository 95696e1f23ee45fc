package vm

import (
	"ember/internal/object"
	"ember/internal/tier"
	"ember/internal/trace"
	"ember/internal/value"
)

// ReportIfNotFunction returns the callable payload of v or a TypeError.
func (vm *VM) ReportIfNotFunction(v value.Value) (*object.Function, *VMError) {
	fn, ok := vm.Heap.Function(v)
	if !ok {
		return nil, vm.eb.notFunction(vm.describe(v))
	}
	return fn, nil
}

func (vm *VM) describe(v value.Value) string {
	if v.IsObject() {
		return vm.Heap.Class(v.AsObject()).String() + " object"
	}
	if v.IsString() {
		return `"` + v.AsString().String() + `"`
	}
	return v.String()
}

// Call invokes callee with this and args. Natives run directly; interpreted
// functions go through FastInvokeGuard.
func (vm *VM) Call(callee, this value.Value, args []value.Value) (value.Value, *VMError) {
	if vmErr := vm.CheckInterrupt(); vmErr != nil {
		return value.Undefined(), vmErr
	}
	fn, vmErr := vm.ReportIfNotFunction(callee)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	if fn.IsNative() {
		return vm.callNative(fn, this, args)
	}
	return vm.FastInvokeGuard(callee, fn, this, args)
}

func (vm *VM) callNative(fn *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	if int(fn.Native) >= len(vm.natives) || vm.natives[fn.Native].fn == nil {
		return value.Undefined(), vm.eb.internal("unknown native " + fn.Name)
	}
	vm.calls.Native++
	trace.Point(vm.Trace, trace.ScopeOp, "native", fn.Name, nil)
	return vm.natives[fn.Native].fn(vm, fn, this, args)
}

// FastInvokeGuard runs an interpreted function either in compiled code or
// in the interpreter, never both. A tier status error propagates without
// running either.
func (vm *VM) FastInvokeGuard(callee value.Value, fn *object.Function, this value.Value, args []value.Value) (result value.Value, vmErr *VMError) {
	s := fn.Script
	if s == nil {
		return value.Undefined(), vm.eb.internal("interpreted function without script: " + fn.Name)
	}
	if vm.Profiler != nil {
		vm.Profiler.RecordInvocation(s)
	}

	span := trace.Begin(vm.Trace, trace.ScopeCall, "call", 0).WithExtra("script", s.String())
	path := "interpreted"
	defer func() {
		span.WithExtra("path", path)
		if vmErr != nil {
			span.Fail(vmErr)
		}
		span.End("")
	}()

	if vm.Tier != nil {
		status, err := vm.Tier.CanEnter(s, len(args))
		switch status {
		case tier.MethodError:
			vm.calls.TierErrors++
			path = "error"
			return value.Undefined(), vm.tierError(err, "compiled tier rejected "+s.String())
		case tier.MethodCompiled:
			vm.calls.Compiled++
			path = "compiled"
			return vm.enterCompiled(callee, fn, this, args)
		case tier.MethodSkipped:
			vm.calls.Skipped++
			path = "skipped"
			if s.CanCompile() {
				s.IncUseCount(vm.Config.Tier.SkippedUseBump)
			}
		}
	}
	vm.calls.Interpreted++
	return vm.interpret(callee, fn, this, args)
}

func (vm *VM) enterCompiled(callee value.Value, fn *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	fr := NewFrame(fn.Script, callee, this, args, nil)
	if vmErr := vm.PushFrame(fr); vmErr != nil {
		return value.Undefined(), vmErr
	}
	defer vm.PopFrame()
	v, status, err := vm.Tier.Enter(fn.Script, this, args)
	if status.IsError() {
		return value.Undefined(), vm.tierError(err, "compiled code of "+fn.Script.String()+" failed")
	}
	return v, nil
}

func (vm *VM) interpret(callee value.Value, fn *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	env, _ := fn.Env.(Scope)
	if env == nil {
		env = vm.Realm.Global
	}
	fr := NewFrame(fn.Script, callee, this, args, nil)
	sc, vmErr := vm.NewCallScope(env, fr)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	fr.Scope = sc
	return vm.runFrame(fr)
}

func (vm *VM) tierError(err error, msg string) *VMError {
	if err == nil {
		return vm.eb.makeError(ErrTier, msg)
	}
	if vmErr, ok := AsVMError(err); ok {
		return vmErr
	}
	e := vm.eb.makeError(ErrTier, msg+": "+err.Error())
	e.cause = err
	return e
}
