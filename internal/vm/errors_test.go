package vm

import (
	"errors"
	"fmt"
	"testing"

	"ember/internal/object"
	"ember/internal/value"
)

func TestErrorCodeClasses(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want ErrorClass
	}{
		{ErrThrown, ClassThrown},
		{ErrInterrupted, ClassInternalError},
		{ErrNotDefined, ClassReferenceError},
		{ErrUnqualifiedWrite, ClassReferenceError},
		{ErrNotFunction, ClassTypeError},
		{ErrNullReceiver, ClassTypeError},
		{ErrNonConfigurable, ClassTypeError},
		{ErrRedeclared, ClassSyntaxError},
		{ErrSpreadTooLarge, ClassSyntaxError},
		{ErrTooMuchRecursion, ClassInternalError},
		{ErrInternal, ClassInternalError},
	}
	for _, tt := range tests {
		if got := tt.code.Class(); got != tt.want {
			t.Fatalf("%s: class %s, want %s", tt.code, got, tt.want)
		}
	}
	if ErrNotDefined.String() != "VM1101" {
		t.Fatalf("code string = %s", ErrNotDefined)
	}
}

func TestVMErrorString(t *testing.T) {
	e := newTestEnv(t)
	vmErr := e.vm.eb.notDefined("x")
	if got := vmErr.Error(); got != "ReferenceError VM1101: x is not defined" {
		t.Fatalf("Error() = %q", got)
	}
	if len(vmErr.Backtrace) != 0 || !vmErr.Site.IsZero() {
		t.Fatalf("error outside frames has a site")
	}
}

func TestAsVMError(t *testing.T) {
	e := newTestEnv(t)
	vmErr := e.vm.eb.tooMuchRecursion(3)
	wrapped := fmt.Errorf("run: %w", vmErr)
	got, ok := AsVMError(wrapped)
	if !ok || got != vmErr {
		t.Fatalf("AsVMError lost the error")
	}
	if _, ok := AsVMError(errors.New("plain")); ok {
		t.Fatalf("plain error reported as VMError")
	}
	if asError(nil) != nil {
		t.Fatalf("asError(nil) must be a nil interface")
	}
}

func TestWrapObjectErrors(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, true)
	obj := e.vm.Heap.NewPlain(e.vm.Realm.ObjectProto)
	if err := e.vm.Heap.PreventExtensions(obj); err != nil {
		t.Fatal(err)
	}

	vmErr := e.vm.SetElement(fr, value.Object(obj), str("fresh"), value.Int32(1))
	expectCode(t, vmErr, ErrNotExtensible)
	if !errors.Is(vmErr, object.ErrNotExtensible) {
		t.Fatalf("object error not unwrappable: %v", vmErr)
	}
	if vmErr.Site != fr.Site() {
		t.Fatalf("site = %s, want %s", vmErr.Site, fr.Site())
	}

	g := e.vm.Global()
	vmErr = e.vm.eb.wrap(e.vm.Heap.DefineProperty(g, e.vm.Heap.Key("NaN"), value.Int32(0), 0))
	expectCode(t, vmErr, ErrNonConfigurable)

	// Errors raised by user code re-entered from the heap pass through.
	thrown := e.vm.eb.thrown(str("boom"))
	if e.vm.eb.wrap(fmt.Errorf("accessor: %w", thrown)) != thrown {
		t.Fatalf("re-entrant error was rewrapped")
	}
	if e.vm.eb.wrap(nil) != nil {
		t.Fatalf("wrap(nil) != nil")
	}
}

func TestAccessorErrorsPropagate(t *testing.T) {
	e := newTestEnv(t)
	obj := e.vm.Heap.NewPlain(e.vm.Realm.ObjectProto)
	getter := e.native("get", func(value.Value, []value.Value) (value.Value, *VMError) {
		return value.Undefined(), e.vm.eb.thrown(value.Int32(13))
	})
	if err := e.vm.Heap.DefineAccessor(obj, e.vm.Heap.Key("bad"), getter, value.Undefined(), 0); err != nil {
		t.Fatal(err)
	}
	_, vmErr := e.vm.GetProperty(value.Object(obj), "bad")
	expectCode(t, vmErr, ErrThrown)
	if vmErr.Thrown.AsInt32() != 13 {
		t.Fatalf("thrown = %s", vmErr.Thrown)
	}
}
