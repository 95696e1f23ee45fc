package vm

import (
	"ember/internal/object"
	"ember/internal/value"
)

// ScopeKind identifies a scope chain variant.
type ScopeKind uint8

const (
	ScopeGlobal ScopeKind = iota
	ScopeCall
	ScopeBlock
	ScopeWith
	ScopeDeclEnv
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeCall:
		return "call"
	case ScopeBlock:
		return "block"
	case ScopeWith:
		return "with"
	case ScopeDeclEnv:
		return "declenv"
	default:
		return "unknown"
	}
}

// Cacheable reports whether the scope is a non-global declarative scope.
// Such scopes never leak as call receivers.
func (k ScopeKind) Cacheable() bool {
	return k == ScopeCall || k == ScopeBlock || k == ScopeDeclEnv
}

// Scope is one node of a scope chain. Bindings live as properties of the
// node's storage object.
type Scope interface {
	Kind() ScopeKind
	Enclosing() Scope
	Object() value.Handle
	// ImplicitThis is the receiver for unqualified calls of names bound here.
	ImplicitThis() value.Value
}

// GlobalScope is the outermost scope. It also holds the intrinsic
// namespace of its global.
type GlobalScope struct {
	object     value.Handle
	intrinsics map[string]value.Value
}

func (s *GlobalScope) Kind() ScopeKind           { return ScopeGlobal }
func (s *GlobalScope) Enclosing() Scope          { return nil }
func (s *GlobalScope) Object() value.Handle      { return s.object }
func (s *GlobalScope) ImplicitThis() value.Value { return value.Undefined() }

// WithScope exposes an ordinary object's properties as bindings.
type WithScope struct {
	enclosing Scope
	object    value.Handle
}

func (s *WithScope) Kind() ScopeKind           { return ScopeWith }
func (s *WithScope) Enclosing() Scope          { return s.enclosing }
func (s *WithScope) Object() value.Handle      { return s.object }
func (s *WithScope) ImplicitThis() value.Value { return value.Object(s.object) }

// DeclScope is a function call, block or named-lambda environment.
type DeclScope struct {
	kind      ScopeKind
	enclosing Scope
	object    value.Handle
}

func (s *DeclScope) Kind() ScopeKind           { return s.kind }
func (s *DeclScope) Enclosing() Scope          { return s.enclosing }
func (s *DeclScope) Object() value.Handle      { return s.object }
func (s *DeclScope) ImplicitThis() value.Value { return value.Undefined() }

// NewWithScope pushes a with scope for obj.
func (vm *VM) NewWithScope(enclosing Scope, obj value.Handle) *WithScope {
	return &WithScope{enclosing: enclosing, object: obj}
}

// NewBlockScope pushes an empty block scope.
func (vm *VM) NewBlockScope(enclosing Scope) *DeclScope {
	return vm.newDeclScope(ScopeBlock, enclosing)
}

// NewCallScope creates the scope of a function activation, binding the
// script's formals to actuals.
func (vm *VM) NewCallScope(enclosing Scope, fr *Frame) (*DeclScope, *VMError) {
	sc := vm.newDeclScope(ScopeCall, enclosing)
	for i := 0; i < fr.Script.NumFormals; i++ {
		key := vm.Heap.Key(fr.Script.NameAt(i))
		if err := vm.Heap.DefineProperty(sc.object, key, fr.Actual(i), object.AttrEnumerate|object.AttrPermanent); err != nil {
			return nil, vm.eb.wrap(err)
		}
	}
	return sc, nil
}

// NewDeclEnvScope binds a named function expression's own name.
func (vm *VM) NewDeclEnvScope(enclosing Scope, name string, callee value.Value) (*DeclScope, *VMError) {
	sc := vm.newDeclScope(ScopeDeclEnv, enclosing)
	attrs := object.AttrPermanent | object.AttrReadOnly
	if err := vm.Heap.DefineProperty(sc.object, vm.Heap.Key(name), callee, attrs); err != nil {
		return nil, vm.eb.wrap(err)
	}
	return sc, nil
}

func (vm *VM) newDeclScope(kind ScopeKind, enclosing Scope) *DeclScope {
	if enclosing == nil {
		enclosing = vm.Realm.Global
	}
	return &DeclScope{kind: kind, enclosing: enclosing, object: vm.Heap.NewPlain(0)}
}

// lookupName walks the chain from sc outwards. A nil scope means the name
// is unbound.
func (vm *VM) lookupName(sc Scope, key object.Key) (Scope, object.Lookup, *VMError) {
	for ; sc != nil; sc = sc.Enclosing() {
		lk, err := vm.Heap.LookupProperty(sc.Object(), key)
		if err != nil {
			return nil, object.Lookup{}, vm.eb.wrap(err)
		}
		if lk.Found {
			return sc, lk, nil
		}
	}
	return nil, object.Lookup{}, nil
}
