package vm

import (
	"math"

	"ember/internal/object"
	"ember/internal/script"
	"ember/internal/value"
)

// Realm holds the global object, its scope and the built-in prototypes.
type Realm struct {
	Global *GlobalScope

	ObjectProto   value.Handle
	FunctionProto value.Handle
	ArrayProto    value.Handle
	StringProto   value.Handle
	NumberProto   value.Handle
	BooleanProto  value.Handle
}

func newRealm(vm *VM) *Realm {
	vm.natives = append(vm.natives[:1], builtinNatives[1:]...)

	h := vm.Heap
	r := &Realm{}
	vm.Realm = r
	r.ObjectProto = h.NewPlain(0)
	r.FunctionProto = h.NewPlain(r.ObjectProto)
	r.ArrayProto = h.NewArray(r.ObjectProto)
	r.StringProto = h.NewWrapper(r.ObjectProto, value.Str(value.Empty))
	r.NumberProto = h.NewWrapper(r.ObjectProto, value.Int32(0))
	r.BooleanProto = h.NewWrapper(r.ObjectProto, value.Bool(false))
	r.Global = &GlobalScope{
		object:     h.NewGlobal(r.ObjectProto),
		intrinsics: make(map[string]value.Value),
	}

	methods := []struct {
		proto value.Handle
		ids   []object.NativeID
	}{
		{r.ObjectProto, []object.NativeID{NativeObjectToString, NativeObjectValueOf, NativeObjectHasOwnProperty}},
		{r.FunctionProto, []object.NativeID{NativeFunApply, NativeFunCall}},
		{r.ArrayProto, []object.NativeID{NativeArrayJoin, NativeArrayToString}},
		{r.StringProto, []object.NativeID{NativeStringToString, NativeStringValueOf}},
		{r.NumberProto, []object.NativeID{NativeNumberToString, NativeNumberValueOf}},
		{r.BooleanProto, []object.NativeID{NativeBooleanToString, NativeBooleanValueOf}},
	}
	for _, m := range methods {
		for _, id := range m.ids {
			fn := vm.newNativeFunction(id, nil)
			vm.mustDefine(m.proto, vm.natives[id].name, fn, 0)
		}
	}

	g := r.Global.object
	fixed := object.AttrReadOnly | object.AttrPermanent
	vm.mustDefine(g, "undefined", value.Undefined(), fixed)
	vm.mustDefine(g, "NaN", value.Double(math.NaN()), fixed)
	vm.mustDefine(g, "Infinity", value.Double(math.Inf(1)), fixed)
	vm.mustDefine(g, "globalThis", value.Object(g), 0)
	return r
}

// mustDefine defines a bootstrap property. Failure means the fresh heap is
// inconsistent.
func (vm *VM) mustDefine(obj value.Handle, name string, v value.Value, attrs object.Attrs) {
	if err := vm.Heap.DefineProperty(obj, vm.Heap.Key(name), v, attrs); err != nil {
		panic(vm.eb.wrap(err))
	}
}

// NewFunction creates an interpreted function object for s closing over
// env. A nil env closes over the global scope.
func (vm *VM) NewFunction(s *script.Script, env Scope) value.Value {
	if env == nil {
		env = vm.Realm.Global
	}
	return value.Object(vm.Heap.NewFunction(vm.Realm.FunctionProto, &object.Function{
		Name:   s.Name,
		Script: s,
		Env:    env,
		Arity:  s.NumFormals,
	}))
}
