package vm

import (
	"strings"
	"testing"

	"ember/internal/object"
	"ember/internal/value"
)

func TestFetchNameGlobal(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, false)
	e.vm.mustDefine(e.vm.Global(), "answer", value.Int32(42), object.AttrEnumerate)

	v := mustValue(t)(e.vm.FetchName(fr, "answer", false))
	if v.AsInt32() != 42 {
		t.Fatalf("answer = %s", v)
	}
	v = mustValue(t)(e.vm.FetchName(fr, "Infinity", false))
	if v.AsNumber() <= 0 || !v.IsDouble() {
		t.Fatalf("Infinity = %s", v)
	}
}

func TestFetchNameUnbound(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, false)

	_, vmErr := e.vm.FetchName(fr, "nope", false)
	expectCode(t, vmErr, ErrNotDefined)
	if vmErr.Class() != ClassReferenceError || !strings.Contains(vmErr.Message, "nope") {
		t.Fatalf("unexpected error %v", vmErr)
	}

	v := mustValue(t)(e.vm.FetchName(fr, "nope", true))
	if !v.IsUndefined() {
		t.Fatalf("typeof probe = %s", v)
	}
}

func TestFetchNameShadowing(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, false)
	e.vm.mustDefine(e.vm.Global(), "x", value.Int32(1), object.AttrEnumerate)
	block := e.vm.NewBlockScope(fr.Scope)
	e.vm.mustDefine(block.Object(), "x", value.Int32(2), object.AttrEnumerate)
	fr.Scope = block

	v := mustValue(t)(e.vm.FetchName(fr, "x", false))
	if v.AsInt32() != 2 {
		t.Fatalf("x = %s, want inner binding", v)
	}
	if got, ok := e.vm.FetchNameNoGC(fr, "x"); !ok || got.AsInt32() != 2 {
		t.Fatalf("FetchNameNoGC = %s, %v", got, ok)
	}
}

func TestFetchNameWithAccessorReceiver(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, false)
	target := e.vm.Heap.NewPlain(e.vm.Realm.ObjectProto)
	var receiver value.Value
	getter := e.native("get", func(this value.Value, _ []value.Value) (value.Value, *VMError) {
		receiver = this
		return value.Int32(5), nil
	})
	if err := e.vm.Heap.DefineAccessor(target, e.vm.Heap.Key("prop"), getter, value.Undefined(), object.AttrEnumerate); err != nil {
		t.Fatal(err)
	}
	fr.Scope = e.vm.NewWithScope(fr.Scope, target)

	v := mustValue(t)(e.vm.FetchName(fr, "prop", false))
	if v.AsInt32() != 5 {
		t.Fatalf("prop = %s", v)
	}
	if !receiver.IsObject() || receiver.AsObject() != target {
		t.Fatalf("getter receiver = %s, want with object", receiver)
	}
	if _, ok := e.vm.FetchNameNoGC(fr, "prop"); ok {
		t.Fatalf("accessor must take the slow path")
	}
}

func TestFetchNameHostScope(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, false)
	host := e.vm.Heap.NewHost(0, hostMap{"h": value.Int32(3)})
	fr.Scope = e.vm.NewWithScope(fr.Scope, host)

	v := mustValue(t)(e.vm.FetchName(fr, "h", false))
	if v.AsInt32() != 3 {
		t.Fatalf("h = %s", v)
	}
	if _, ok := e.vm.FetchNameNoGC(fr, "h"); ok {
		t.Fatalf("host bindings must take the slow path")
	}
}

func TestImplicitThis(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, false)
	obj := e.vm.Heap.NewPlain(e.vm.Realm.ObjectProto)
	e.vm.mustDefine(obj, "f", value.Int32(0), object.AttrEnumerate)
	e.vm.mustDefine(e.vm.Global(), "g", value.Int32(0), object.AttrEnumerate)
	with := e.vm.NewWithScope(fr.Scope, obj)
	block := e.vm.NewBlockScope(with)
	e.vm.mustDefine(block.Object(), "b", value.Int32(0), object.AttrEnumerate)
	fr.Scope = block

	tests := []struct {
		name string
		want value.Value
	}{
		{"f", value.Object(obj)},
		{"g", value.Undefined()},
		{"b", value.Undefined()},
		{"unbound", value.Undefined()},
	}
	for _, tt := range tests {
		v := mustValue(t)(e.vm.ImplicitThisForName(fr, tt.name))
		if !value.SameValue(v, tt.want) {
			t.Fatalf("implicit this of %s = %s, want %s", tt.name, v, tt.want)
		}
	}
	if !ComputeImplicitThis(nil).IsUndefined() {
		t.Fatalf("nil scope must give undefined")
	}
}

func TestBindAndSetName(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, false)
	block := e.vm.NewBlockScope(fr.Scope)
	e.vm.mustDefine(block.Object(), "local", value.Int32(1), object.AttrEnumerate)
	fr.Scope = block

	target := mustValue(t)(e.vm.BindName(fr, "local"))
	if target.AsObject() != block.Object() {
		t.Fatalf("local bound to %s", target)
	}
	if vmErr := e.vm.SetName(fr, target, "local", value.Int32(9)); vmErr != nil {
		t.Fatal(vmErr)
	}
	v := mustValue(t)(e.vm.FetchName(fr, "local", false))
	if v.AsInt32() != 9 {
		t.Fatalf("local = %s", v)
	}

	// Sloppy writes to undeclared names create globals.
	target = mustValue(t)(e.vm.BindName(fr, "created"))
	if target.AsObject() != e.vm.Global() {
		t.Fatalf("unbound name bound to %s", target)
	}
	if vmErr := e.vm.SetName(fr, target, "created", value.Int32(2)); vmErr != nil {
		t.Fatal(vmErr)
	}
	v = mustValue(t)(e.vm.GetProperty(value.Object(e.vm.Global()), "created"))
	if v.AsInt32() != 2 {
		t.Fatalf("created = %s", v)
	}
}

func TestSetNameStrictUndeclared(t *testing.T) {
	e := newTestEnv(t)
	fr := e.frame(t, true)
	target := mustValue(t)(e.vm.BindName(fr, "undeclared"))
	vmErr := e.vm.SetName(fr, target, "undeclared", value.Int32(1))
	expectCode(t, vmErr, ErrUnqualifiedWrite)

	lk, err := e.vm.Heap.LookupProperty(e.vm.Global(), e.vm.Heap.Key("undeclared"))
	if err != nil || lk.Found {
		t.Fatalf("strict write created a global")
	}

	e.vm.mustDefine(e.vm.Global(), "declared", value.Int32(0), object.AttrEnumerate)
	if vmErr := e.vm.SetName(fr, target, "declared", value.Int32(1)); vmErr != nil {
		t.Fatalf("strict write to a declared global: %v", vmErr)
	}
}

func TestSetNameReadOnly(t *testing.T) {
	e := newTestEnv(t)
	sloppy := e.frame(t, false)
	g := value.Object(e.vm.Global())
	if vmErr := e.vm.SetName(sloppy, g, "undefined", value.Int32(1)); vmErr != nil {
		t.Fatalf("sloppy read-only write: %v", vmErr)
	}
	strict := e.frame(t, true)
	expectCode(t, e.vm.SetName(strict, g, "undefined", value.Int32(1)), ErrReadOnly)
}

func TestDefVarOrConst(t *testing.T) {
	e := newTestEnv(t)
	g := e.vm.Global()
	varAttrs := object.AttrEnumerate | object.AttrPermanent
	constAttrs := varAttrs | object.AttrReadOnly

	if vmErr := e.vm.DefVarOrConst(g, "v", varAttrs); vmErr != nil {
		t.Fatal(vmErr)
	}
	if vmErr := e.vm.DefVarOrConst(g, "v", varAttrs); vmErr != nil {
		t.Fatalf("var over var: %v", vmErr)
	}
	vmErr := e.vm.DefVarOrConst(g, "v", constAttrs)
	expectCode(t, vmErr, ErrRedeclared)
	if vmErr.Message != "redeclaration of var v" {
		t.Fatalf("message = %q", vmErr.Message)
	}

	if vmErr := e.vm.DefVarOrConst(g, "c", constAttrs); vmErr != nil {
		t.Fatal(vmErr)
	}
	if vmErr := e.vm.SetConst(g, "c", value.Int32(7)); vmErr != nil {
		t.Fatal(vmErr)
	}
	vmErr = e.vm.DefVarOrConst(g, "c", varAttrs)
	expectCode(t, vmErr, ErrRedeclared)
	if vmErr.Message != "redeclaration of const c" {
		t.Fatalf("message = %q", vmErr.Message)
	}
	if vmErr.Class() != ClassSyntaxError {
		t.Fatalf("class = %s", vmErr.Class())
	}

	vmErr = e.vm.DefVarOrConst(g, "c", constAttrs)
	expectCode(t, vmErr, ErrRedeclared)
	if vmErr.Message != "redeclaration of const c" {
		t.Fatalf("const over const message = %q", vmErr.Message)
	}
	if vmErr.Class() != ClassSyntaxError {
		t.Fatalf("const over const class = %s", vmErr.Class())
	}

	v := mustValue(t)(e.vm.GetProperty(value.Object(g), "c"))
	if v.AsInt32() != 7 {
		t.Fatalf("c = %s", v)
	}
	fr := e.frame(t, true)
	expectCode(t, e.vm.SetName(fr, value.Object(g), "c", value.Int32(8)), ErrReadOnly)
}

func TestDefVarShadowsInheritedGlobal(t *testing.T) {
	e := newTestEnv(t)
	g := e.vm.Global()
	// toString is inherited from Object.prototype.
	if vmErr := e.vm.DefVarOrConst(g, "toString", object.AttrEnumerate); vmErr != nil {
		t.Fatal(vmErr)
	}
	lk, err := e.vm.Heap.LookupProperty(g, e.vm.Heap.Key("toString"))
	if err != nil || lk.Holder != g {
		t.Fatalf("var not defined on the global itself")
	}
	v := mustValue(t)(e.vm.GetProperty(value.Object(g), "toString"))
	if !v.IsUndefined() {
		t.Fatalf("toString = %s", v)
	}
}

func TestIntrinsics(t *testing.T) {
	e := newTestEnv(t)
	_, vmErr := e.vm.GetIntrinsic("ThrowTypeError")
	expectCode(t, vmErr, ErrIntrinsic)

	e.vm.SetIntrinsic("ThrowTypeError", value.Int32(1))
	v := mustValue(t)(e.vm.GetIntrinsic("ThrowTypeError"))
	if v.AsInt32() != 1 {
		t.Fatalf("intrinsic = %s", v)
	}
	if lk, _ := e.vm.Heap.LookupProperty(e.vm.Global(), e.vm.Heap.Key("ThrowTypeError")); lk.Found {
		t.Fatalf("intrinsics must not be visible as globals")
	}
}

func TestCallScopeBindsFormals(t *testing.T) {
	e := newTestEnv(t)
	s := e.scripts.New("f", false, "a", "b")
	s.NumFormals = 2
	fr := NewFrame(s, value.Undefined(), value.Undefined(), []value.Value{value.Int32(1)}, nil)
	sc, vmErr := e.vm.NewCallScope(nil, fr)
	if vmErr != nil {
		t.Fatal(vmErr)
	}
	fr.Scope = sc
	if sc.Kind() != ScopeCall || sc.Enclosing() != Scope(e.vm.Realm.Global) {
		t.Fatalf("call scope kind %s", sc.Kind())
	}
	a, _ := e.vm.FetchNameNoGC(fr, "a")
	b, ok := e.vm.FetchNameNoGC(fr, "b")
	if a.AsInt32() != 1 || !ok || !b.IsUndefined() {
		t.Fatalf("a=%s b=%s", a, b)
	}
}

func TestDeclEnvScope(t *testing.T) {
	e := newTestEnv(t)
	callee := e.native("fact", func(value.Value, []value.Value) (value.Value, *VMError) { return value.Undefined(), nil })
	sc, vmErr := e.vm.NewDeclEnvScope(nil, "fact", callee)
	if vmErr != nil {
		t.Fatal(vmErr)
	}
	fr := e.frame(t, true)
	fr.Scope = sc
	v := mustValue(t)(e.vm.FetchName(fr, "fact", false))
	if !value.SameValue(v, callee) {
		t.Fatalf("fact = %s", v)
	}
	if !ComputeImplicitThis(sc).IsUndefined() {
		t.Fatalf("declenv scope leaked as receiver")
	}
	target := mustValue(t)(e.vm.BindName(fr, "fact"))
	expectCode(t, e.vm.SetName(fr, target, "fact", value.Int32(0)), ErrReadOnly)
}

func TestComputeThis(t *testing.T) {
	e := newTestEnv(t)
	sloppy := e.vm.NewFunction(e.scripts.New("sloppy", false), nil)
	strict := e.vm.NewFunction(e.scripts.New("strict", true), nil)

	fr := NewFrame(e.scripts.New("sloppy", false), sloppy, value.Undefined(), nil, nil)
	v := mustValue(t)(e.vm.ComputeThis(fr))
	if v.AsObject() != e.vm.Global() || !value.SameValue(fr.This, v) {
		t.Fatalf("sloppy undefined this = %s", v)
	}

	fr = NewFrame(e.scripts.New("sloppy", false), sloppy, value.Int32(3), nil, nil)
	v = mustValue(t)(e.vm.ComputeThis(fr))
	if !v.IsObject() || e.vm.Heap.Class(v.AsObject()) != object.ClassNumber {
		t.Fatalf("sloppy number this = %s", v)
	}

	fr = NewFrame(e.scripts.New("strict", true), strict, value.Int32(3), nil, nil)
	v = mustValue(t)(e.vm.ComputeThis(fr))
	if !v.IsInt32() || v.AsInt32() != 3 {
		t.Fatalf("strict this = %s", v)
	}

	fr = NewFrame(e.scripts.New("strict", true), strict, value.Undefined(), nil, nil)
	v = mustValue(t)(e.vm.ComputeThis(fr))
	if !v.IsUndefined() {
		t.Fatalf("strict undefined this = %s", v)
	}
}

func TestTypeOf(t *testing.T) {
	e := newTestEnv(t)
	fn := e.native("f", func(value.Value, []value.Value) (value.Value, *VMError) { return value.Undefined(), nil })
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.Undefined(), "undefined"},
		{value.Null(), "object"},
		{value.Bool(true), "boolean"},
		{value.Double(0.5), "number"},
		{str(""), "string"},
		{e.object(nil), "object"},
		{fn, "function"},
	}
	for _, tt := range tests {
		if got := e.vm.TypeOf(tt.v); got != tt.want {
			t.Fatalf("typeof %s = %q, want %q", tt.v, got, tt.want)
		}
	}
}
