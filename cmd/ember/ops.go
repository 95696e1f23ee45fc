package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ember/internal/object"
	"ember/internal/value"
	"ember/internal/vm"
)

// evalOp is one operation reachable from `ember eval`.
type evalOp struct {
	name  string
	arity int
	help  string
	run   func(m *vm.VM, fr *vm.Frame, args []value.Value) (value.Value, *vm.VMError)
}

func binary(fn func(m *vm.VM, fr *vm.Frame, l, r value.Value) (value.Value, *vm.VMError)) func(*vm.VM, *vm.Frame, []value.Value) (value.Value, *vm.VMError) {
	return func(m *vm.VM, fr *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		return fn(m, fr, args[0], args[1])
	}
}

func compare(fn func(m *vm.VM, l, r value.Value) (bool, *vm.VMError)) func(*vm.VM, *vm.Frame, []value.Value) (value.Value, *vm.VMError) {
	return func(m *vm.VM, _ *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		b, vmErr := fn(m, args[0], args[1])
		return value.Bool(b), vmErr
	}
}

var evalOps = map[string]evalOp{
	"add": {arity: 2, help: "l + r", run: binary(func(m *vm.VM, fr *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.Add(fr.Site(), l, r)
	})},
	"sub": {arity: 2, help: "l - r", run: binary(func(m *vm.VM, fr *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.Sub(fr.Site(), l, r)
	})},
	"mul": {arity: 2, help: "l * r", run: binary(func(m *vm.VM, fr *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.Mul(fr.Site(), l, r)
	})},
	"div": {arity: 2, help: "l / r", run: binary(func(m *vm.VM, fr *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.Div(fr.Site(), l, r)
	})},
	"mod": {arity: 2, help: "l % r", run: binary(func(m *vm.VM, fr *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.Mod(fr.Site(), l, r)
	})},
	"neg": {arity: 1, help: "-v", run: func(m *vm.VM, fr *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		return m.Neg(fr.Site(), args[0])
	}},
	"pos": {arity: 1, help: "+v", run: func(m *vm.VM, _ *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		return m.Pos(args[0])
	}},
	"bitnot": {arity: 1, help: "~v", run: func(m *vm.VM, _ *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		return m.BitNot(args[0])
	}},
	"bitand": {arity: 2, help: "l & r", run: binary(func(m *vm.VM, _ *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.BitAnd(l, r)
	})},
	"bitor": {arity: 2, help: "l | r", run: binary(func(m *vm.VM, _ *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.BitOr(l, r)
	})},
	"bitxor": {arity: 2, help: "l ^ r", run: binary(func(m *vm.VM, _ *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.BitXor(l, r)
	})},
	"lsh": {arity: 2, help: "l << r", run: binary(func(m *vm.VM, _ *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.Lsh(l, r)
	})},
	"rsh": {arity: 2, help: "l >> r", run: binary(func(m *vm.VM, _ *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.Rsh(l, r)
	})},
	"ursh": {arity: 2, help: "l >>> r", run: binary(func(m *vm.VM, fr *vm.Frame, l, r value.Value) (value.Value, *vm.VMError) {
		return m.Ursh(fr.Site(), l, r)
	})},
	"lt": {arity: 2, help: "l < r", run: compare((*vm.VM).LessThan)},
	"le": {arity: 2, help: "l <= r", run: compare((*vm.VM).LessThanOrEqual)},
	"gt": {arity: 2, help: "l > r", run: compare((*vm.VM).GreaterThan)},
	"ge": {arity: 2, help: "l >= r", run: compare((*vm.VM).GreaterThanOrEqual)},
	"typeof": {arity: 1, help: "typeof v", run: func(m *vm.VM, _ *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		return value.FromString(m.TypeOf(args[0])), nil
	}},
	"getelem": {arity: 2, help: "obj[key]", run: binary(func(m *vm.VM, fr *vm.Frame, obj, key value.Value) (value.Value, *vm.VMError) {
		return m.GetElement(fr, obj, key, false)
	})},
	"setelem": {arity: 3, help: "obj[key] = v, yields obj", run: func(m *vm.VM, fr *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		if vmErr := m.SetElement(fr, args[0], args[1], args[2]); vmErr != nil {
			return value.Undefined(), vmErr
		}
		return args[0], nil
	}},
	"length": {arity: 1, help: "v.length", run: func(m *vm.VM, fr *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		return m.GetLength(fr, args[0])
	}},
	"toid": {arity: 2, help: "property id of key on obj", run: binary(func(m *vm.VM, fr *vm.Frame, obj, key value.Value) (value.Value, *vm.VMError) {
		return m.ToId(fr, obj, key)
	})},
	"name": {arity: 1, help: "read a global name", run: func(m *vm.VM, fr *vm.Frame, args []value.Value) (value.Value, *vm.VMError) {
		s, vmErr := m.ToString(args[0])
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		return m.FetchName(fr, s.String(), false)
	}},
}

func init() {
	for name, op := range evalOps {
		op.name = name
		evalOps[name] = op
	}
}

func lookupOp(name string) (evalOp, error) {
	op, ok := evalOps[strings.ToLower(name)]
	if !ok {
		return evalOp{}, fmt.Errorf("unknown operation %q (see `ember eval --list`)", name)
	}
	return op, nil
}

func opNames() []string {
	names := make([]string, 0, len(evalOps))
	for name := range evalOps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseOperand builds a value from a literal:
//
//	undefined null true false NaN Infinity -0 42 1.5
//	"text" 'text'
//	[1, "a", [2]]   {k: 1, "other key": true}
//	u8(4) i32(4) f64(4)   zero-filled typed arrays
func parseOperand(m *vm.VM, text string) (value.Value, error) {
	s := strings.TrimSpace(text)
	switch s {
	case "":
		return value.Undefined(), fmt.Errorf("empty operand")
	case "undefined":
		return value.Undefined(), nil
	case "null":
		return value.Null(), nil
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	}
	switch {
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		unq, err := strconv.Unquote(s)
		if err != nil {
			return value.Undefined(), fmt.Errorf("bad string literal %s: %w", s, err)
		}
		return value.FromString(unq), nil
	case len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'':
		return value.FromString(s[1 : len(s)-1]), nil
	case s[0] == '[':
		if s[len(s)-1] != ']' {
			return value.Undefined(), fmt.Errorf("unterminated array literal %s", s)
		}
		return parseArray(m, s[1:len(s)-1])
	case s[0] == '{':
		if s[len(s)-1] != '}' {
			return value.Undefined(), fmt.Errorf("unterminated object literal %s", s)
		}
		return parseObject(m, s[1:len(s)-1])
	}
	if v, ok, err := parseTyped(m, s); ok {
		return v, err
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return value.Undefined(), fmt.Errorf("cannot parse operand %q", s)
	}
	return value.Number(d), nil
}

func parseArray(m *vm.VM, body string) (value.Value, error) {
	parts := splitTopLevel(body)
	elems := make([]value.Value, 0, len(parts))
	for _, p := range parts {
		v, err := parseOperand(m, p)
		if err != nil {
			return value.Undefined(), err
		}
		elems = append(elems, v)
	}
	return value.Object(m.Heap.NewArray(m.Realm.ArrayProto, elems...)), nil
}

func parseObject(m *vm.VM, body string) (value.Value, error) {
	parts := splitTopLevel(body)
	h := m.Heap.NewPlain(m.Realm.ObjectProto)
	for _, p := range parts {
		k, v, ok := cutTopLevel(p, ':')
		if !ok {
			return value.Undefined(), fmt.Errorf("object entry %q needs key: value", p)
		}
		k = strings.TrimSpace(k)
		if unq, err := strconv.Unquote(k); err == nil {
			k = unq
		}
		val, err := parseOperand(m, v)
		if err != nil {
			return value.Undefined(), err
		}
		if err := m.Heap.DefineProperty(h, m.Heap.Key(k), val, object.AttrEnumerate); err != nil {
			return value.Undefined(), fmt.Errorf("define %q: %w", k, err)
		}
	}
	return value.Object(h), nil
}

var typedKinds = map[string]object.TypedKind{
	"i32": object.TypedInt32,
	"u8":  object.TypedUint8,
	"f64": object.TypedFloat64,
}

func parseTyped(m *vm.VM, s string) (value.Value, bool, error) {
	name, rest, ok := strings.Cut(s, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return value.Undefined(), false, nil
	}
	kind, ok := typedKinds[name]
	if !ok {
		return value.Undefined(), false, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(strings.TrimSuffix(rest, ")")), 10, 32)
	if err != nil {
		return value.Undefined(), true, fmt.Errorf("bad typed array length in %s: %w", s, err)
	}
	return value.Object(m.Heap.NewTypedArray(m.Realm.ObjectProto, kind, uint32(n))), true, nil
}

// splitTopLevel splits on commas outside quotes and brackets. Empty input
// yields no parts.
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	for {
		head, tail, ok := cutTopLevel(s, ',')
		parts = append(parts, head)
		if !ok {
			break
		}
		s = tail
	}
	return parts
}

// cutTopLevel is strings.Cut restricted to separators at nesting depth zero.
func cutTopLevel(s string, sep byte) (before, after string, found bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && quote == '"' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '{' || c == '(':
			depth++
		case c == ']' || c == '}' || c == ')':
			depth--
		case c == sep && depth == 0:
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// display renders v for terminal output. Objects are shown through their
// string conversion, which may run user-visible conversions.
func display(m *vm.VM, v value.Value) string {
	if !v.IsObject() {
		return v.String()
	}
	h := v.AsObject()
	class := m.Heap.Class(h)
	if n, ok := m.Heap.TypedLength(h); ok {
		parts := make([]string, n)
		for i := range parts {
			e, _ := m.Heap.GetElementNoGC(h, uint32(i))
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	s, vmErr := m.ToString(v)
	if vmErr != nil {
		return fmt.Sprintf("%s <%s>", class, vmErr.Message)
	}
	if class == object.ClassArray {
		return "[" + s.String() + "]"
	}
	return fmt.Sprintf("%s %q", class, s.String())
}
