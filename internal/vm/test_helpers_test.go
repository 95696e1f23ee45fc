package vm

import (
	"testing"

	"ember/internal/config"
	"ember/internal/feedback"
	"ember/internal/object"
	"ember/internal/script"
	"ember/internal/value"
)

var testSite = script.Site{Script: 1, PC: 7}

type testEnv struct {
	vm      *VM
	rec     *feedback.Recorder
	scripts *script.Registry
}

func newTestEnv(t *testing.T, configure ...func(*Options)) *testEnv {
	t.Helper()
	rec := feedback.NewRecorder()
	opts := Options{Config: config.Default(), Feedback: rec}
	for _, c := range configure {
		c(&opts)
	}
	return &testEnv{vm: New(opts), rec: rec, scripts: script.NewRegistry()}
}

// frame returns a top-level frame for a fresh script, pushed on the stack.
func (e *testEnv) frame(t *testing.T, strict bool, actuals ...value.Value) *Frame {
	t.Helper()
	s := e.scripts.New(t.Name(), strict)
	fr := NewFrame(s, value.Undefined(), value.Object(e.vm.Global()), actuals, e.vm.Realm.Global)
	if vmErr := e.vm.PushFrame(fr); vmErr != nil {
		t.Fatalf("push frame: %v", vmErr)
	}
	t.Cleanup(func() { e.vm.PopFrame() })
	return fr
}

func (e *testEnv) count(site script.Site, kind feedback.Kind) uint64 {
	return e.rec.Count(site, kind)
}

// object creates a plain object with the given data properties.
func (e *testEnv) object(props map[string]value.Value) value.Value {
	h := e.vm.Heap.NewPlain(e.vm.Realm.ObjectProto)
	for k, v := range props {
		e.vm.mustDefine(h, k, v, object.AttrEnumerate)
	}
	return value.Object(h)
}

// native registers fn as a host function.
func (e *testEnv) native(name string, fn func(this value.Value, args []value.Value) (value.Value, *VMError)) value.Value {
	return e.vm.RegisterNative(name, 0, func(_ *VM, _ *object.Function, this value.Value, args []value.Value) (value.Value, *VMError) {
		return fn(this, args)
	})
}

// convertible returns an object whose valueOf appends tag to log and
// returns v.
func (e *testEnv) convertible(log *[]string, tag string, v value.Value) value.Value {
	valueOf := e.native("valueOf", func(value.Value, []value.Value) (value.Value, *VMError) {
		*log = append(*log, tag)
		return v, nil
	})
	return e.object(map[string]value.Value{"valueOf": valueOf})
}

func str(s string) value.Value { return value.FromString(s) }

// mustValue returns a checker for a (value, error) pair:
// mustValue(t)(vm.Op(...)).
func mustValue(t *testing.T) func(value.Value, *VMError) value.Value {
	t.Helper()
	return func(v value.Value, vmErr *VMError) value.Value {
		t.Helper()
		if vmErr != nil {
			t.Fatalf("unexpected error: %v", vmErr)
		}
		return v
	}
}

func expectCode(t *testing.T, vmErr *VMError, code ErrorCode) {
	t.Helper()
	if vmErr == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if vmErr.Code != code {
		t.Fatalf("expected %s, got %s (%s)", code, vmErr.Code, vmErr.Message)
	}
}

type hostMap map[string]value.Value

func (m hostMap) GetProperty(_ *object.Heap, _ value.Handle, key object.Key) (value.Value, bool, error) {
	v, ok := m[key.String()]
	return v, ok, nil
}

func (m hostMap) SetProperty(_ *object.Heap, _ value.Handle, key object.Key, v value.Value) error {
	m[key.String()] = v
	return nil
}
