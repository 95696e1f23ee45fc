// Package feedback records type-feedback events emitted by the evaluation
// core. Events are write-only from the core's side; the optimizing tier
// reads the accumulated per-site state.
package feedback

import (
	"fmt"
	"strings"

	"ember/internal/script"
)

// Kind is a type-feedback event kind.
type Kind uint8

const (
	// Overflow: an arithmetic result was (or may have been) a double.
	Overflow Kind = iota
	// ProducedString: an operation produced a string from object operands.
	ProducedString
	// ProducedUnknownType: an id or result had an unexpected type.
	ProducedUnknownType
	// AssignmentObserved: a property with the event key was written.
	AssignmentObserved
	// ArrayWriteHole: an element write landed past the dense length.
	ArrayWriteHole
	// NonNativeGetElement: an element read hit a non-native object.
	NonNativeGetElement
	// GetStringElement: an element read used a non-index string key.
	GetStringElement

	numKinds
)

var kindNames = [numKinds]string{
	Overflow:            "overflow",
	ProducedString:      "produced-string",
	ProducedUnknownType: "produced-unknown",
	AssignmentObserved:  "assign",
	ArrayWriteHole:      "array-write-hole",
	NonNativeGetElement: "nonnative-getelem",
	GetStringElement:    "string-getelem",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Kinds lists every event kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown feedback kind %q", s)
}

// KindSet is a bit set of kinds.
type KindSet uint16

// Add returns the set with k added.
func (s KindSet) Add(k Kind) KindSet { return s | 1<<k }

// Has reports membership.
func (s KindSet) Has(k Kind) bool { return s&(1<<k) != 0 }

// Union merges two sets.
func (s KindSet) Union(o KindSet) KindSet { return s | o }

func (s KindSet) String() string {
	if s == 0 {
		return "-"
	}
	var parts []string
	for _, k := range Kinds() {
		if s.Has(k) {
			parts = append(parts, k.String())
		}
	}
	return strings.Join(parts, ",")
}

// Event is one type-feedback observation.
type Event struct {
	Site script.Site
	Kind Kind
	// Key is the property id for AssignmentObserved events.
	Key string
}

func (e Event) String() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s[%s]", e.Site, e.Kind, e.Key)
	}
	return fmt.Sprintf("%s %s", e.Site, e.Kind)
}

// Sink receives feedback events.
type Sink interface {
	Emit(Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// Nop is a sink that drops every event.
var Nop Sink = nopSink{}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

type teeSink []Sink

func (t teeSink) Emit(e Event) {
	for _, s := range t {
		s.Emit(e)
	}
}

// Tee fans events out to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	var out teeSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return Nop
	case 1:
		return out[0]
	}
	return out
}
