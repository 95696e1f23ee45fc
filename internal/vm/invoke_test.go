package vm

import (
	"errors"
	"strings"
	"testing"

	"ember/internal/script"
	"ember/internal/tier"
	"ember/internal/value"
)

// fakeTier answers every status query with status and counts entries.
type fakeTier struct {
	status  tier.MethodStatus
	err     error
	result  value.Value
	execErr error
	queries int
	enters  int
}

func (f *fakeTier) CanEnter(*script.Script, int) (tier.MethodStatus, error) {
	f.queries++
	return f.status, f.err
}

func (f *fakeTier) Enter(_ *script.Script, _ value.Value, _ []value.Value) (value.Value, tier.ExecStatus, error) {
	f.enters++
	if f.execErr != nil {
		return value.Undefined(), tier.ExecError, f.execErr
	}
	return f.result, tier.ExecOk, nil
}

// countingInterp records every frame it runs and returns result.
type countingInterp struct {
	runs   int
	frames []*Frame
	result value.Value
}

func (c *countingInterp) Run(_ *VM, fr *Frame) (value.Value, *VMError) {
	c.runs++
	c.frames = append(c.frames, fr)
	return c.result, nil
}

func withBridge(interp Interpreter, ct CompiledTier) func(*Options) {
	return func(o *Options) {
		o.Interp = interp
		o.Tier = ct
	}
}

func TestCallInterpretedWithoutTier(t *testing.T) {
	interp := &countingInterp{result: value.Int32(1)}
	e := newTestEnv(t, withBridge(interp, nil))
	s := e.scripts.New("f", false, "a")
	s.NumFormals = 1
	fn := e.vm.NewFunction(s, nil)

	v := mustValue(t)(e.vm.Call(fn, str("this"), []value.Value{value.Int32(5)}))
	if v.AsInt32() != 1 || interp.runs != 1 {
		t.Fatalf("result %s after %d runs", v, interp.runs)
	}
	fr := interp.frames[0]
	if fr.Script != s || !value.SameValue(fr.Callee, fn) || fr.This.AsString().String() != "this" {
		t.Fatalf("unexpected frame %+v", fr)
	}
	if fr.Scope.Kind() != ScopeCall || fr.Scope.Enclosing() != Scope(e.vm.Realm.Global) {
		t.Fatalf("scope kind %s", fr.Scope.Kind())
	}
	if e.vm.Depth() != 0 {
		t.Fatalf("frame leaked")
	}
	if st := e.vm.CallStats(); st.Interpreted != 1 || st.Compiled != 0 {
		t.Fatalf("stats %+v", st)
	}
}

func TestCallCompiledRunsOnlyCompiled(t *testing.T) {
	interp := &countingInterp{}
	ft := &fakeTier{status: tier.MethodCompiled, result: value.Int32(42)}
	e := newTestEnv(t, withBridge(interp, ft))
	fn := e.vm.NewFunction(e.scripts.New("f", false), nil)

	v := mustValue(t)(e.vm.Call(fn, value.Undefined(), nil))
	if v.AsInt32() != 42 {
		t.Fatalf("result = %s", v)
	}
	if ft.enters != 1 || interp.runs != 0 {
		t.Fatalf("compiled entries %d, interpreter runs %d", ft.enters, interp.runs)
	}
	if e.vm.CallStats().Compiled != 1 {
		t.Fatalf("stats %+v", e.vm.CallStats())
	}
}

func TestCallSkippedBumpsUseCount(t *testing.T) {
	interp := &countingInterp{}
	ft := &fakeTier{status: tier.MethodSkipped}
	e := newTestEnv(t, withBridge(interp, ft))
	s := e.scripts.New("f", false)
	fn := e.vm.NewFunction(s, nil)

	mustValue(t)(e.vm.Call(fn, value.Undefined(), nil))
	if s.UseCount() != e.vm.Config.Tier.SkippedUseBump || s.UseCount() != 5 {
		t.Fatalf("use count = %d", s.UseCount())
	}
	if interp.runs != 1 || ft.enters != 0 {
		t.Fatalf("runs %d, enters %d", interp.runs, ft.enters)
	}

	s.DisableCompile()
	mustValue(t)(e.vm.Call(fn, value.Undefined(), nil))
	if s.UseCount() != 5 {
		t.Fatalf("non-compilable script bumped to %d", s.UseCount())
	}
	if interp.runs != 2 || e.vm.CallStats().Skipped != 2 {
		t.Fatalf("runs %d stats %+v", interp.runs, e.vm.CallStats())
	}
}

func TestCallTierErrorRunsNothing(t *testing.T) {
	interp := &countingInterp{}
	cause := errors.New("status query failed")
	ft := &fakeTier{status: tier.MethodError, err: cause}
	e := newTestEnv(t, withBridge(interp, ft))
	fn := e.vm.NewFunction(e.scripts.New("f", false), nil)

	_, vmErr := e.vm.Call(fn, value.Undefined(), nil)
	expectCode(t, vmErr, ErrTier)
	if !errors.Is(vmErr, cause) {
		t.Fatalf("cause lost: %v", vmErr)
	}
	if interp.runs != 0 || ft.enters != 0 {
		t.Fatalf("runs %d, enters %d", interp.runs, ft.enters)
	}
	if e.vm.CallStats().TierErrors != 1 {
		t.Fatalf("stats %+v", e.vm.CallStats())
	}
}

func TestCallCompiledFailure(t *testing.T) {
	interp := &countingInterp{}
	ft := &fakeTier{status: tier.MethodCompiled, execErr: errors.New("bailout")}
	e := newTestEnv(t, withBridge(interp, ft))
	fn := e.vm.NewFunction(e.scripts.New("f", false), nil)

	_, vmErr := e.vm.Call(fn, value.Undefined(), nil)
	expectCode(t, vmErr, ErrTier)
	if !strings.Contains(vmErr.Message, "bailout") || interp.runs != 0 {
		t.Fatalf("message %q, runs %d", vmErr.Message, interp.runs)
	}

	// A thrown value from compiled code passes through unchanged.
	thrown := e.vm.eb.thrown(str("x"))
	ft.execErr = thrown
	_, vmErr = e.vm.Call(fn, value.Undefined(), nil)
	if vmErr != thrown {
		t.Fatalf("got %v, want the thrown error", vmErr)
	}
	if e.vm.Depth() != 0 {
		t.Fatalf("compiled frame leaked")
	}
}

func TestTierDisabledByConfig(t *testing.T) {
	interp := &countingInterp{}
	ft := &fakeTier{status: tier.MethodCompiled}
	e := newTestEnv(t, withBridge(interp, ft), func(o *Options) { o.Config.Tier.Enabled = false })
	fn := e.vm.NewFunction(e.scripts.New("f", false), nil)

	mustValue(t)(e.vm.Call(fn, value.Undefined(), nil))
	if ft.queries != 0 || interp.runs != 1 {
		t.Fatalf("queries %d, runs %d", ft.queries, interp.runs)
	}
}

func TestRegistryCompileFailureFallsBack(t *testing.T) {
	interp := &countingInterp{}
	prof := tier.NewProfiler(1)
	compiles := 0
	reg := tier.NewRegistry(tier.CompilerFunc(func(*script.Script) (tier.EntryPoint, int, error) {
		compiles++
		return nil, 0, errors.New("unsupported op")
	}), prof)
	e := newTestEnv(t, withBridge(interp, reg), func(o *Options) { o.Profiler = prof })
	s := e.scripts.New("f", false)
	fn := e.vm.NewFunction(s, nil)

	_, vmErr := e.vm.Call(fn, value.Undefined(), nil)
	expectCode(t, vmErr, ErrTier)
	if s.CanCompile() {
		t.Fatalf("failed compile must disable the script")
	}

	mustValue(t)(e.vm.Call(fn, value.Undefined(), nil))
	if compiles != 1 || interp.runs != 1 {
		t.Fatalf("compiles %d, runs %d", compiles, interp.runs)
	}
	if s.UseCount() != 2 {
		t.Fatalf("use count = %d, want 2", s.UseCount())
	}
	if prof.Stats().Invocations != 2 {
		t.Fatalf("profiler stats %+v", prof.Stats())
	}
}

func TestRegistryCompiledEntry(t *testing.T) {
	interp := &countingInterp{}
	prof := tier.NewProfiler(1)
	reg := tier.NewRegistry(tier.CompilerFunc(func(*script.Script) (tier.EntryPoint, int, error) {
		return func(_ value.Value, args []value.Value) (value.Value, error) {
			return value.Int32(100 + int32(len(args))), nil
		}, 1, nil
	}), prof)
	e := newTestEnv(t, withBridge(interp, reg), func(o *Options) { o.Profiler = prof })
	s := e.scripts.New("f", false)
	fn := e.vm.NewFunction(s, nil)

	// Too few arguments for the entry point: interpreted, with a bump.
	mustValue(t)(e.vm.Call(fn, value.Undefined(), nil))
	if interp.runs != 1 || !reg.Installed(s) {
		t.Fatalf("runs %d, installed %v", interp.runs, reg.Installed(s))
	}
	if s.UseCount() != 6 {
		t.Fatalf("use count = %d, want 6", s.UseCount())
	}

	v := mustValue(t)(e.vm.Call(fn, value.Undefined(), []value.Value{value.Int32(0)}))
	if v.AsInt32() != 101 || reg.Enters(s) != 1 || interp.runs != 1 {
		t.Fatalf("result %s enters %d runs %d", v, reg.Enters(s), interp.runs)
	}
}

func TestCallNotFunction(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		callee value.Value
		want   string
	}{
		{value.Int32(1), "1 is not a function"},
		{str("s"), `"s" is not a function`},
		{e.object(nil), "Object object is not a function"},
	}
	for _, tt := range tests {
		_, vmErr := e.vm.Call(tt.callee, value.Undefined(), nil)
		expectCode(t, vmErr, ErrNotFunction)
		if vmErr.Message != tt.want {
			t.Fatalf("message = %q, want %q", vmErr.Message, tt.want)
		}
	}
}

func TestCallNativeStats(t *testing.T) {
	e := newTestEnv(t)
	fn := e.native("id", func(this value.Value, _ []value.Value) (value.Value, *VMError) { return this, nil })
	v := mustValue(t)(e.vm.Call(fn, value.Int32(3), nil))
	if v.AsInt32() != 3 || e.vm.CallStats().Native != 1 {
		t.Fatalf("result %s stats %+v", v, e.vm.CallStats())
	}
}

func TestRecursionLimit(t *testing.T) {
	var interp InterpreterFunc = func(vm *VM, fr *Frame) (value.Value, *VMError) {
		return vm.Call(fr.Callee, value.Undefined(), nil)
	}
	e := newTestEnv(t, withBridge(interp, nil), func(o *Options) { o.Config.Engine.MaxDepth = 4 })
	fn := e.vm.NewFunction(e.scripts.New("loop", false), nil)

	_, vmErr := e.vm.Call(fn, value.Undefined(), nil)
	expectCode(t, vmErr, ErrTooMuchRecursion)
	if len(vmErr.Backtrace) != 4 {
		t.Fatalf("backtrace depth = %d", len(vmErr.Backtrace))
	}
	if e.vm.Depth() != 0 {
		t.Fatalf("stack not unwound: %d", e.vm.Depth())
	}
}

func TestInterrupt(t *testing.T) {
	interp := &countingInterp{}
	e := newTestEnv(t, withBridge(interp, nil))
	fn := e.vm.NewFunction(e.scripts.New("f", false), nil)

	e.vm.Interrupt()
	_, vmErr := e.vm.Call(fn, value.Undefined(), nil)
	expectCode(t, vmErr, ErrInterrupted)
	if !vmErr.Fatal || interp.runs != 0 {
		t.Fatalf("fatal %v runs %d", vmErr.Fatal, interp.runs)
	}
	mustValue(t)(e.vm.Call(fn, value.Undefined(), nil))
	if interp.runs != 1 {
		t.Fatalf("interrupt not consumed")
	}
}

func TestRunFrameRecoversVMErrorPanic(t *testing.T) {
	var interp InterpreterFunc = func(vm *VM, fr *Frame) (value.Value, *VMError) {
		extra := NewFrame(fr.Script, value.Undefined(), value.Undefined(), nil, fr.Scope)
		if vmErr := vm.PushFrame(extra); vmErr != nil {
			return value.Undefined(), vmErr
		}
		panic(vm.eb.internal("corrupt operand"))
	}
	e := newTestEnv(t, withBridge(interp, nil))
	_, vmErr := e.vm.Run(e.scripts.New("main", false))
	expectCode(t, vmErr, ErrInternal)
	if e.vm.Depth() != 0 {
		t.Fatalf("stack depth %d after panic", e.vm.Depth())
	}
}

func TestRunWithoutInterpreter(t *testing.T) {
	e := newTestEnv(t)
	_, vmErr := e.vm.Run(e.scripts.New("main", false))
	expectCode(t, vmErr, ErrNoInterpreter)
}

func TestRunTopLevelFrame(t *testing.T) {
	interp := &countingInterp{result: value.Int32(0)}
	e := newTestEnv(t, withBridge(interp, nil))
	mustValue(t)(e.vm.Run(e.scripts.New("main", false)))
	fr := interp.frames[0]
	if fr.IsFunctionFrame() || fr.This.AsObject() != e.vm.Global() || fr.Scope != Scope(e.vm.Realm.Global) {
		t.Fatalf("unexpected top-level frame %+v", fr)
	}
}

func TestErrorBacktrace(t *testing.T) {
	e := newTestEnv(t)
	outer := e.scripts.New("outer", false)
	inner := e.scripts.New("inner", false)
	innerFn := e.vm.NewFunction(inner, nil)
	e.vm.Interp = InterpreterFunc(func(vm *VM, fr *Frame) (value.Value, *VMError) {
		switch fr.Script {
		case outer:
			fr.PC = 3
			return vm.Call(innerFn, value.Undefined(), nil)
		default:
			fr.PC = 9
			return value.Undefined(), vm.eb.thrown(str("oops"))
		}
	})

	_, vmErr := e.vm.Run(outer)
	expectCode(t, vmErr, ErrThrown)
	if len(vmErr.Backtrace) != 2 {
		t.Fatalf("backtrace = %+v", vmErr.Backtrace)
	}
	if vmErr.Backtrace[0].Script != inner || vmErr.Backtrace[1].Script != outer {
		t.Fatalf("backtrace order wrong")
	}
	if vmErr.Site != inner.Site(9) || vmErr.Backtrace[1].Site != outer.Site(3) {
		t.Fatalf("sites %s / %s", vmErr.Site, vmErr.Backtrace[1].Site)
	}
	if !strings.Contains(vmErr.Format(), "backtrace:") {
		t.Fatalf("format:\n%s", vmErr.Format())
	}
}
