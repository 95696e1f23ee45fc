package vm

import (
	"strconv"
	"strings"

	"ember/internal/object"
	"ember/internal/value"
)

// NativeFunc implements a host function. fn is the callee's payload.
type NativeFunc func(vm *VM, fn *object.Function, this value.Value, args []value.Value) (value.Value, *VMError)

type native struct {
	name  string
	arity int
	fn    NativeFunc
}

// Built-in native ids.
const (
	NativeFunApply object.NativeID = iota + 1
	NativeFunCall
	NativeObjectToString
	NativeObjectValueOf
	NativeObjectHasOwnProperty
	NativeArrayJoin
	NativeArrayToString
	NativeStringToString
	NativeStringValueOf
	NativeNumberToString
	NativeNumberValueOf
	NativeBooleanToString
	NativeBooleanValueOf
	NativeNoSuchMethod
	numBuiltinNatives
)

var builtinNatives = [numBuiltinNatives]native{
	NativeFunApply:             {"apply", 2, funApply},
	NativeFunCall:              {"call", 1, funCall},
	NativeObjectToString:       {"toString", 0, objectToString},
	NativeObjectValueOf:        {"valueOf", 0, objectValueOf},
	NativeObjectHasOwnProperty: {"hasOwnProperty", 1, objectHasOwnProperty},
	NativeArrayJoin:            {"join", 1, arrayJoin},
	NativeArrayToString:        {"toString", 0, arrayToString},
	NativeStringToString:       {"toString", 0, stringValueOf},
	NativeStringValueOf:        {"valueOf", 0, stringValueOf},
	NativeNumberToString:       {"toString", 1, numberToString},
	NativeNumberValueOf:        {"valueOf", 0, numberValueOf},
	NativeBooleanToString:      {"toString", 0, booleanToString},
	NativeBooleanValueOf:       {"valueOf", 0, booleanValueOf},
	NativeNoSuchMethod:         {"__noSuchMethod__", 0, noSuchMethodTrampoline},
}

// RegisterNative installs a host function and returns its function object.
func (vm *VM) RegisterNative(name string, arity int, fn NativeFunc) value.Value {
	id := object.NativeID(len(vm.natives))
	vm.natives = append(vm.natives, native{name: name, arity: arity, fn: fn})
	return vm.newNativeFunction(id, nil)
}

func (vm *VM) newNativeFunction(id object.NativeID, env any) value.Value {
	n := vm.natives[id]
	return value.Object(vm.Heap.NewFunction(vm.Realm.FunctionProto, &object.Function{
		Name:   n.name,
		Native: id,
		Env:    env,
		Arity:  n.arity,
	}))
}

// IsNativeFunction reports whether v is the built-in native id.
func (vm *VM) IsNativeFunction(v value.Value, id object.NativeID) bool {
	fn, ok := vm.Heap.Function(v)
	return ok && fn.Native == id
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined()
}

func funApply(vm *VM, _ *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	if _, vmErr := vm.ReportIfNotFunction(this); vmErr != nil {
		return value.Undefined(), vmErr
	}
	list := arg(args, 1)
	switch {
	case list.IsNullOrUndefined():
		return vm.Call(this, arg(args, 0), nil)
	case list.IsMagic(value.MagicOptimizedArguments):
		// Only reachable through GuardFunApplyArguments: read the caller's
		// actuals without materializing.
		fr := vm.CurrentFrame()
		if fr == nil {
			return value.Undefined(), vm.eb.internal("optimized arguments outside a frame")
		}
		return vm.Call(this, arg(args, 0), append([]value.Value(nil), fr.Actuals...))
	case !list.IsObject():
		return value.Undefined(), vm.eb.makeError(ErrNotFunction, "second argument to Function.prototype.apply must be an array")
	}
	elems, vmErr := vm.arrayLikeToList(list)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return vm.Call(this, arg(args, 0), elems)
}

func (vm *VM) arrayLikeToList(list value.Value) ([]value.Value, *VMError) {
	lenv, vmErr := vm.GetProperty(list, "length")
	if vmErr != nil {
		return nil, vmErr
	}
	n, vmErr := vm.ToUint32(lenv)
	if vmErr != nil {
		return nil, vmErr
	}
	out := make([]value.Value, 0, n)
	for i := uint32(0); i < n; i++ {
		v, vmErr := vm.getIndexed(list.AsObject(), i)
		if vmErr != nil {
			return nil, vmErr
		}
		out = append(out, v)
	}
	return out, nil
}

func funCall(vm *VM, _ *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	var rest []value.Value
	if len(args) > 1 {
		rest = args[1:]
	}
	return vm.Call(this, arg(args, 0), rest)
}

func objectToString(vm *VM, _ *object.Function, this value.Value, _ []value.Value) (value.Value, *VMError) {
	switch {
	case this.IsUndefined():
		return value.FromString("[object Undefined]"), nil
	case this.IsNull():
		return value.FromString("[object Null]"), nil
	}
	h, vmErr := vm.ToObject(this)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return value.FromString("[object " + vm.Heap.Class(h).String() + "]"), nil
}

func objectValueOf(vm *VM, _ *object.Function, this value.Value, _ []value.Value) (value.Value, *VMError) {
	h, vmErr := vm.ToObject(this)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return value.Object(h), nil
}

func objectHasOwnProperty(vm *VM, _ *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	key, vmErr := vm.ToKey(arg(args, 0))
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	h, vmErr := vm.ToObject(this)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	_, found, err := vm.Heap.GetPropertyAttributes(h, key)
	if err != nil {
		return value.Undefined(), vm.eb.wrap(err)
	}
	return value.Bool(found), nil
}

func arrayJoin(vm *VM, _ *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	sep := ","
	if s := arg(args, 0); !s.IsUndefined() {
		str, vmErr := vm.ToString(s)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		sep = str.String()
	}
	return vm.join(this, sep)
}

func arrayToString(vm *VM, _ *object.Function, this value.Value, _ []value.Value) (value.Value, *VMError) {
	return vm.join(this, ",")
}

func (vm *VM) join(this value.Value, sep string) (value.Value, *VMError) {
	h, vmErr := vm.ToObject(this)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	elems, vmErr := vm.arrayLikeToList(value.Object(h))
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e.IsNullOrUndefined() {
			continue
		}
		s, vmErr := vm.ToString(e)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		parts[i] = s.String()
	}
	return value.FromString(strings.Join(parts, sep)), nil
}

// thisPrimitive unwraps this when it is a primitive of kind, or a wrapper
// of one.
func (vm *VM) thisPrimitive(this value.Value, class object.Class, method string) (value.Value, *VMError) {
	if this.IsObject() {
		if obj, err := vm.Heap.Object(this.AsObject()); err == nil && obj.Class == class {
			return obj.Primitive(), nil
		}
	} else {
		switch class {
		case object.ClassString:
			if this.IsString() {
				return this, nil
			}
		case object.ClassNumber:
			if this.IsNumber() {
				return this, nil
			}
		case object.ClassBoolean:
			if this.IsBool() {
				return this, nil
			}
		}
	}
	return value.Undefined(), vm.eb.makeError(ErrNotFunction, class.String()+".prototype."+method+" called on incompatible "+vm.TypeOf(this))
}

func stringValueOf(vm *VM, _ *object.Function, this value.Value, _ []value.Value) (value.Value, *VMError) {
	return vm.thisPrimitive(this, object.ClassString, "valueOf")
}

func numberValueOf(vm *VM, _ *object.Function, this value.Value, _ []value.Value) (value.Value, *VMError) {
	return vm.thisPrimitive(this, object.ClassNumber, "valueOf")
}

func numberToString(vm *VM, _ *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	n, vmErr := vm.thisPrimitive(this, object.ClassNumber, "toString")
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	radix := 10
	if r := arg(args, 0); !r.IsUndefined() {
		ri, vmErr := vm.ToInt32(r)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		radix = int(ri)
	}
	if radix != 10 && n.IsInt32() && radix >= 2 && radix <= 36 {
		return value.FromString(strconv.FormatInt(int64(n.AsInt32()), radix)), nil
	}
	return value.FromString(value.NumberToString(n.AsNumber())), nil
}

func booleanValueOf(vm *VM, _ *object.Function, this value.Value, _ []value.Value) (value.Value, *VMError) {
	return vm.thisPrimitive(this, object.ClassBoolean, "valueOf")
}

func booleanToString(vm *VM, _ *object.Function, this value.Value, _ []value.Value) (value.Value, *VMError) {
	b, vmErr := vm.thisPrimitive(this, object.ClassBoolean, "toString")
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return value.FromString(strconv.FormatBool(b.AsBool())), nil
}

// noSuchMethodEnv is the payload of a trampoline returned for a missing
// method when the __noSuchMethod__ hook is enabled.
type noSuchMethodEnv struct {
	hook value.Value
	id   value.Value
}

// onUnknownMethod replaces a primitive call-position result with a
// trampoline that forwards to obj.__noSuchMethod__(id, args).
func (vm *VM) onUnknownMethod(obj value.Handle, id, res value.Value) (value.Value, *VMError) {
	hook, err := vm.Heap.Get(obj, vm.Heap.Key("__noSuchMethod__"), value.Object(obj))
	if err != nil {
		return value.Undefined(), vm.eb.wrap(err)
	}
	if !vm.Heap.IsCallable(hook) {
		return res, nil
	}
	return vm.newNativeFunction(NativeNoSuchMethod, &noSuchMethodEnv{hook: hook, id: id}), nil
}

func noSuchMethodTrampoline(vm *VM, fn *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
	env, ok := fn.Env.(*noSuchMethodEnv)
	if !ok {
		return value.Undefined(), vm.eb.internal("__noSuchMethod__ trampoline without target")
	}
	list := value.Object(vm.Heap.NewArray(vm.Realm.ArrayProto, args...))
	return vm.Call(env.hook, this, []value.Value{env.id, list})
}
