package trace

import "fmt"

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff   Level = iota // no tracing
	LevelError              // only error events
	LevelCall               // runs and invocation-bridge decisions
	LevelOp                 // every evaluated operation
	LevelDebug              // everything
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelCall:
		return "call"
	case LevelOp:
		return "op"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off", "OFF", "":
		return LevelOff, nil
	case "error", "ERROR":
		return LevelError, nil
	case "call", "CALL":
		return LevelCall, nil
	case "op", "OP":
		return LevelOp, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|call|op|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff, LevelError:
		return false
	case LevelCall:
		return scope <= ScopeCall
	case LevelOp:
		return scope <= ScopeOp
	case LevelDebug:
		return true
	}
	return false
}

// accepts reports whether ev passes the level filter.
func (l Level) accepts(ev *Event) bool {
	switch ev.Kind {
	case KindError:
		return l > LevelOff
	case KindHeartbeat:
		return l > LevelOff
	}
	return l.ShouldEmit(ev.Scope)
}
