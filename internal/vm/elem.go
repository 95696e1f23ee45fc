package vm

import (
	"math"

	"fortio.org/safecast"

	"ember/internal/feedback"
	"ember/internal/object"
	"ember/internal/script"
	"ember/internal/value"
)

// GetElement evaluates lval[rval]. callPos marks an access whose result is
// about to be called.
func (vm *VM) GetElement(fr *Frame, lval, rval value.Value, callPos bool) (value.Value, *VMError) {
	if res, done := vm.GetElemOptimizedArguments(fr, &lval, rval); done {
		return res, nil
	}
	if lval.IsString() {
		s := lval.AsString()
		if i, ok := definiteIndex(rval); ok && uint64(i) < uint64(s.Len()) {
			return value.Str(value.UnitString(s.At(int(i)))), nil
		}
	}
	wasObject := lval.IsObject()
	obj, vmErr := vm.ToObject(lval)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return vm.GetObjectElement(fr.Site(), obj, wasObject, rval, callPos)
}

// GetObjectElement reads obj[rref]. Plain element and data-slot reads are
// tried before the generic get.
func (vm *VM) GetObjectElement(site script.Site, obj value.Handle, wasObject bool, rref value.Value, callPos bool) (value.Value, *VMError) {
	class := vm.Heap.Class(obj)
	native := vm.Heap.IsNative(obj)
	var res value.Value

	if index, ok := definiteIndex(rref); ok {
		if !native && class != object.ClassTypedArray {
			vm.emit(site, feedback.NonNativeGetElement)
		}
		v, vmErr := vm.getIndexed(obj, index)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		res = v
	} else {
		vm.emit(site, feedback.GetStringElement)
		if !native && class != object.ClassArray && class != object.ClassTypedArray {
			vm.emit(site, feedback.NonNativeGetElement)
		}
		root := vm.Heap.Root(value.Object(obj))
		key, vmErr := vm.ToKey(rref)
		obj = root.Get().AsObject()
		root.Release()
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		if key.IsIndex() {
			res, vmErr = vm.getIndexed(obj, key.Index())
		} else if v, ok := vm.Heap.GetPropertyNoGC(obj, key); ok {
			res = v
		} else {
			var err error
			res, err = vm.Heap.Get(obj, key, value.Object(obj))
			vmErr = vm.eb.wrap(err)
		}
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
	}

	if callPos && wasObject && res.IsPrimitive() && vm.Config.Engine.NoSuchMethod {
		return vm.onUnknownMethod(obj, rref, res)
	}
	return res, nil
}

func (vm *VM) getIndexed(obj value.Handle, index uint32) (value.Value, *VMError) {
	if v, ok := vm.Heap.GetElementNoGC(obj, index); ok {
		return v, nil
	}
	v, err := vm.Heap.Get(obj, object.IndexKey(index), value.Object(obj))
	return v, vm.eb.wrap(err)
}

// GetProperty reads lval.name. Primitive receivers read through their
// wrapper's prototype chain with the primitive as this.
func (vm *VM) GetProperty(lval value.Value, name string) (value.Value, *VMError) {
	obj, vmErr := vm.ToObject(lval)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	v, err := vm.Heap.Get(obj, vm.Heap.Key(name), lval)
	return v, vm.eb.wrap(err)
}

// SetElement evaluates lval[idval] = v.
func (vm *VM) SetElement(fr *Frame, lval, idval, v value.Value) *VMError {
	vm.resolveArguments(fr, &lval)
	obj, vmErr := vm.ToObject(lval)
	if vmErr != nil {
		return vmErr
	}
	key, vmErr := vm.elementKey(obj, idval, v)
	if vmErr != nil {
		return vmErr
	}
	strict := fr.Script != nil && fr.Script.Strict
	return vm.SetObjectElement(fr.Site(), obj, key, v, strict)
}

// SetObjectElement assigns obj[key] = v, recording the assignment and any
// write past the dense elements.
func (vm *VM) SetObjectElement(site script.Site, obj value.Handle, key object.Key, v value.Value, strict bool) *VMError {
	vm.observeAssign(site, obj, key)
	return vm.eb.wrap(vm.Heap.Set(obj, key, v, strict))
}

// InitElement defines obj[idval] = v in an object literal.
func (vm *VM) InitElement(fr *Frame, obj value.Handle, idval, v value.Value) *VMError {
	key, vmErr := vm.elementKey(obj, idval, v)
	if vmErr != nil {
		return vmErr
	}
	vm.observeAssign(fr.Site(), obj, key)
	return vm.eb.wrap(vm.Heap.DefineProperty(obj, key, v, object.AttrEnumerate))
}

func (vm *VM) observeAssign(site script.Site, obj value.Handle, key object.Key) {
	vm.Feedback.Emit(feedback.Event{Site: site, Kind: feedback.AssignmentObserved, Key: key.String()})
	if !key.IsIndex() || !vm.Heap.IsNative(obj) || vm.Heap.Class(obj) == object.ClassTypedArray {
		return
	}
	if key.Index() > vm.Heap.DenseInitializedLength(obj) {
		vm.emit(site, feedback.ArrayWriteHole)
	}
}

// elementKey converts idval while keeping obj and v rooted.
func (vm *VM) elementKey(obj value.Handle, idval, v value.Value) (object.Key, *VMError) {
	if i, ok := definiteIndex(idval); ok {
		return object.IndexKey(i), nil
	}
	objRoot := vm.Heap.Root(value.Object(obj))
	defer objRoot.Release()
	valRoot := vm.Heap.Root(v)
	defer valRoot.Release()
	return vm.ToKey(idval)
}

// InitArrayOp distinguishes fixed-position array literal elements from
// elements appended after a spread.
type InitArrayOp uint8

const (
	InitElemArray InitArrayOp = iota
	InitElemInc
)

// InitArrayElem stores element index of an array literal. A hole defines
// nothing; when it is the literal's last element it still extends length.
// An appended element at INT32_MAX fails fatally.
func (vm *VM) InitArrayElem(obj value.Handle, op InitArrayOp, index uint32, v value.Value, last bool) *VMError {
	if index > value.MaxArrayIndex {
		return vm.eb.badArrayIndex(index)
	}
	if v.IsMagic(value.MagicElementsHole) {
		if last {
			if err := vm.Heap.SetArrayLength(obj, index+1); err != nil {
				return vm.eb.wrap(err)
			}
		}
	} else if err := vm.Heap.DefineProperty(obj, object.IndexKey(index), v, object.AttrEnumerate); err != nil {
		return vm.eb.wrap(err)
	}
	if op == InitElemInc && index == math.MaxInt32 {
		return vm.eb.spreadTooLarge()
	}
	return nil
}

// ToId converts an element id for a computed member operation. Ids that
// do not come out as int32 are reported as unknown-typed.
func (vm *VM) ToId(fr *Frame, objval, idval value.Value) (value.Value, *VMError) {
	if idval.IsInt32() {
		return idval, nil
	}
	if objval.IsNullOrUndefined() {
		return value.Undefined(), vm.eb.nullReceiver(objval)
	}
	key, vmErr := vm.ToKey(idval)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	res := value.FromString(key.String())
	if key.IsIndex() {
		if i, err := safecast.Conv[int32](key.Index()); err == nil {
			res = value.Int32(i)
		}
	}
	if !res.IsInt32() {
		vm.emit(fr.Site(), feedback.ProducedUnknownType)
	}
	return res, nil
}

// GetLength evaluates lval.length with fast paths for strings, arrays,
// unmodified arguments objects and typed arrays.
func (vm *VM) GetLength(fr *Frame, lval value.Value) (value.Value, *VMError) {
	if vm.IsOptimizedArguments(fr, &lval) {
		return value.Number(float64(fr.NumActualArgs())), nil
	}
	switch {
	case lval.IsString():
		return value.Number(float64(lval.AsString().Len())), nil
	case lval.IsObject():
		h := lval.AsObject()
		if n, ok := vm.Heap.ArrayLength(h); ok {
			return value.Number(float64(n)), nil
		}
		if n, overridden, ok := vm.Heap.ArgumentsLength(h); ok && !overridden {
			return value.Number(float64(n)), nil
		}
		if n, ok := vm.Heap.TypedLength(h); ok {
			return value.Number(float64(n)), nil
		}
	}
	return vm.GetProperty(lval, "length")
}
