package vm

import (
	"ember/internal/object"
	"ember/internal/value"
)

// ComputeImplicitThis returns the receiver for an unqualified call of a
// name bound in sc.
func ComputeImplicitThis(sc Scope) value.Value {
	if sc == nil || sc.Kind() == ScopeGlobal || sc.Kind().Cacheable() {
		return value.Undefined()
	}
	return sc.ImplicitThis()
}

// ImplicitThisForName resolves name and returns its implicit receiver.
func (vm *VM) ImplicitThisForName(fr *Frame, name string) (value.Value, *VMError) {
	sc, _, vmErr := vm.lookupName(fr.Scope, vm.Heap.Key(name))
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return ComputeImplicitThis(sc), nil
}

// FetchName reads name through the scope chain. An unbound name is a
// ReferenceError unless typeofProbe is set, in which case it reads as
// undefined.
func (vm *VM) FetchName(fr *Frame, name string, typeofProbe bool) (value.Value, *VMError) {
	key := vm.Heap.Key(name)
	sc, lk, vmErr := vm.lookupName(fr.Scope, key)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	if sc == nil {
		if typeofProbe {
			return value.Undefined(), nil
		}
		return value.Undefined(), vm.eb.notDefined(name)
	}

	scopeObj := sc.Object()
	if lk.Shape == nil || !vm.Heap.IsNative(scopeObj) || !vm.Heap.IsNative(lk.Holder) {
		v, err := vm.Heap.Get(scopeObj, key, value.Object(scopeObj))
		return v, vm.eb.wrap(err)
	}
	return vm.nativeGet(scopeObj, lk.Holder, lk.Shape, key)
}

// nativeGet reads a shape-described property found on holder. Accessors
// run with obj as receiver; for a with scope obj is the with's object.
func (vm *VM) nativeGet(obj, holder value.Handle, s *object.Shape, key object.Key) (value.Value, *VMError) {
	if s.IsDataDescriptor() {
		return vm.Heap.ShapeSlot(holder, s), nil
	}
	v, err := vm.Heap.Get(holder, key, value.Object(obj))
	return v, vm.eb.wrap(err)
}

// FetchNameNoGC reads name when it resolves to a plain data slot. It never
// runs user code; ok is false when the slow path is required.
func (vm *VM) FetchNameNoGC(fr *Frame, name string) (v value.Value, ok bool) {
	key := vm.Heap.Key(name)
	for sc := fr.Scope; sc != nil; sc = sc.Enclosing() {
		lk, err := vm.Heap.LookupProperty(sc.Object(), key)
		if err != nil {
			return value.Undefined(), false
		}
		if !lk.Found {
			continue
		}
		s := lk.Shape
		if s == nil || !vm.Heap.IsNative(lk.Holder) || !s.IsDataDescriptor() || !s.HasDefaultGetter() {
			return value.Undefined(), false
		}
		return vm.Heap.ShapeSlot(lk.Holder, s), true
	}
	return value.Undefined(), false
}

// BindName returns the object that holds name's binding, or the global
// object when the name is unbound.
func (vm *VM) BindName(fr *Frame, name string) (value.Value, *VMError) {
	sc, _, vmErr := vm.lookupName(fr.Scope, vm.Heap.Key(name))
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	if sc == nil {
		return value.Object(vm.Global()), nil
	}
	return value.Object(sc.Object()), nil
}

// SetName assigns v to name on target, the result of BindName. A strict
// write through the global object to an undeclared name fails.
func (vm *VM) SetName(fr *Frame, target value.Value, name string, v value.Value) *VMError {
	if !target.IsObject() {
		return vm.eb.nullReceiver(target)
	}
	strict := fr.Script != nil && fr.Script.Strict
	key := vm.Heap.Key(name)
	h := target.AsObject()
	if h == vm.Global() && strict {
		lk, err := vm.Heap.LookupProperty(h, key)
		if err != nil {
			return vm.eb.wrap(err)
		}
		if !lk.Found {
			return vm.eb.unqualifiedWrite(name)
		}
	}
	return vm.eb.wrap(vm.Heap.Set(h, key, v, strict))
}

// DefVarOrConst declares name on varobj. An absent name, or one inherited
// by the global object, is defined as undefined with attrs. A declaration
// that involves a const on either side fails; var over var does nothing.
func (vm *VM) DefVarOrConst(varobj value.Handle, name string, attrs object.Attrs) *VMError {
	key := vm.Heap.Key(name)
	lk, err := vm.Heap.LookupProperty(varobj, key)
	if err != nil {
		return vm.eb.wrap(err)
	}
	if !lk.Found || (lk.Holder != varobj && vm.Heap.Class(varobj) == object.ClassGlobal) {
		return vm.eb.wrap(vm.Heap.DefineProperty(varobj, key, value.Undefined(), attrs))
	}

	oldAttrs, _, err := vm.Heap.GetPropertyAttributes(lk.Holder, key)
	if err != nil {
		return vm.eb.wrap(err)
	}
	if attrs.Has(object.AttrReadOnly) || oldAttrs.Has(object.AttrReadOnly) {
		kind := "var"
		if oldAttrs.Has(object.AttrReadOnly) {
			kind = "const"
		}
		return vm.eb.redeclared(kind, name)
	}
	return nil
}

// ConstAttrs are the attributes of an initialized const binding.
const ConstAttrs = object.AttrEnumerate | object.AttrPermanent | object.AttrReadOnly

// SetConst initializes a const binding on varobj.
func (vm *VM) SetConst(varobj value.Handle, name string, v value.Value) *VMError {
	key := vm.Heap.Key(name)
	lk, err := vm.Heap.LookupProperty(varobj, key)
	if err != nil {
		return vm.eb.wrap(err)
	}
	if lk.Found && lk.Holder == varobj && lk.Shape != nil && lk.Shape.IsDataDescriptor() {
		vm.Heap.SetShapeSlot(varobj, lk.Shape, v)
		return nil
	}
	return vm.eb.wrap(vm.Heap.DefineProperty(varobj, key, v, ConstAttrs))
}

// GetIntrinsic reads an engine-internal binding of the current global.
func (vm *VM) GetIntrinsic(name string) (value.Value, *VMError) {
	v, ok := vm.Realm.Global.intrinsics[name]
	if !ok {
		return value.Undefined(), vm.eb.makeError(ErrIntrinsic, "unknown intrinsic "+name)
	}
	return v, nil
}

// SetIntrinsic writes an engine-internal binding of the current global.
func (vm *VM) SetIntrinsic(name string, v value.Value) {
	vm.Realm.Global.intrinsics[name] = v
}
