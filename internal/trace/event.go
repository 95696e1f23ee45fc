package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
	// KindError records a failure; it is kept even at LevelError.
	KindError
	// KindHeartbeat is a periodic liveness signal.
	KindHeartbeat
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindError:
		return "error"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of the event.
// Lower values are coarser.
type Scope uint8

const (
	// ScopeRun is a whole CLI command or embedding call.
	ScopeRun Scope = iota + 1
	// ScopeCall is one pass through the invocation bridge.
	ScopeCall
	// ScopeOp is one evaluated operation.
	ScopeOp
	// ScopeDetail covers internal steps such as arguments materialization.
	ScopeDetail
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopeCall:
		return "call"
	case ScopeOp:
		return "op"
	case ScopeDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	GID      uint64            // goroutine ID
	Name     string            // e.g. "call", "add", "arguments.materialize"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}

// Point emits an instant event if t accepts scope.
func Point(t Tracer, scope Scope, name, detail string, extra map[string]string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Kind:   KindPoint,
		Scope:  scope,
		Name:   name,
		Detail: detail,
		Extra:  extra,
	})
}

// Error emits an error event. Error events pass every level but off.
func Error(t Tracer, scope Scope, name, detail string, extra map[string]string) {
	if t == nil || !t.Enabled() {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Kind:   KindError,
		Scope:  scope,
		Name:   name,
		Detail: detail,
		Extra:  extra,
	})
}
