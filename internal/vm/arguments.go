package vm

import (
	"strconv"

	"ember/internal/script"
	"ember/internal/trace"
	"ember/internal/value"
)

var optimizedArguments = value.MagicValue(value.MagicOptimizedArguments)

// Arguments returns the value of the arguments binding for fr: the lazy
// sentinel while the script's optimization holds, the real object after.
func (vm *VM) Arguments(fr *Frame) value.Value {
	if !fr.Script.NeedsArgsObj() {
		return optimizedArguments
	}
	return value.Object(vm.materializeArguments(fr))
}

// IsOptimizedArguments redirects *vp to the real arguments object when the
// sentinel outlived the optimization. It reports whether *vp is still the
// sentinel.
func (vm *VM) IsOptimizedArguments(fr *Frame, vp *value.Value) bool {
	if vp.IsMagic(value.MagicOptimizedArguments) && fr.Script.NeedsArgsObj() {
		*vp = value.Object(vm.materializeArguments(fr))
	}
	return vp.IsMagic(value.MagicOptimizedArguments)
}

// ArgumentsOptimizationFailed gives up the lazy arguments optimization for
// s. Every live frame of s gets a real arguments object and every slot
// still holding the sentinel is rewritten. The change is permanent.
func (vm *VM) ArgumentsOptimizationFailed(s *script.Script) {
	if s.NeedsArgsObj() {
		return
	}
	s.SetNeedsArgsObj()
	materialized := 0
	for _, fr := range vm.Stack {
		if fr.Script != s {
			continue
		}
		args := value.Object(vm.materializeArguments(fr))
		for i, v := range fr.Slots {
			if v.IsMagic(value.MagicOptimizedArguments) {
				fr.Slots[i] = args
			}
		}
		materialized++
	}
	trace.Point(vm.Trace, trace.ScopeDetail, "arguments.deoptimize", s.String(),
		map[string]string{"frames": strconv.Itoa(materialized)})
}

func (vm *VM) materializeArguments(fr *Frame) value.Handle {
	if fr.argsObj == 0 {
		fr.argsObj = vm.Heap.NewArguments(vm.Realm.ObjectProto, fr.Actuals)
	}
	return fr.argsObj
}

// GuardFunApplyArguments checks a two-argument call whose second argument
// is the sentinel. Unless callee is the built-in apply, the optimization
// fails and args[1] is replaced by the real object.
func (vm *VM) GuardFunApplyArguments(fr *Frame, callee value.Value, args []value.Value) {
	if len(args) != 2 || !vm.IsOptimizedArguments(fr, &args[1]) {
		return
	}
	if vm.IsNativeFunction(callee, NativeFunApply) {
		return
	}
	vm.ArgumentsOptimizationFailed(fr.Script)
	args[1] = value.Object(vm.materializeArguments(fr))
}

// GetElemOptimizedArguments serves lref[rref] from the frame's actuals when
// lref is the sentinel and rref an in-range int32. Other accesses give up
// the optimization and replace *lref with the real object. done reports
// whether res holds the answer.
func (vm *VM) GetElemOptimizedArguments(fr *Frame, lref *value.Value, rref value.Value) (res value.Value, done bool) {
	if !vm.IsOptimizedArguments(fr, lref) {
		return value.Undefined(), false
	}
	if rref.IsInt32() {
		if i := rref.AsInt32(); i >= 0 && int(i) < fr.NumActualArgs() {
			return fr.Actuals[i], true
		}
	}
	vm.ArgumentsOptimizationFailed(fr.Script)
	*lref = value.Object(vm.materializeArguments(fr))
	return value.Undefined(), false
}

// resolveArguments replaces a sentinel in *vp with fr's real arguments
// object. A sentinel reaching a consumer without a fast path ends the
// optimization for fr's script.
func (vm *VM) resolveArguments(fr *Frame, vp *value.Value) {
	if fr == nil || fr.Script == nil || !vp.IsMagic(value.MagicOptimizedArguments) {
		return
	}
	if vm.IsOptimizedArguments(fr, vp) {
		vm.ArgumentsOptimizationFailed(fr.Script)
		*vp = value.Object(vm.materializeArguments(fr))
	}
}
