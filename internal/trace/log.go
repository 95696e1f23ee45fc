package trace

import (
	"github.com/tliron/commonlog"
)

// LogTracer forwards events to a commonlog logger. The backend is chosen by
// the program (cmd/ember links commonlog/simple).
type LogTracer struct {
	log   commonlog.Logger
	level Level
}

// NewLogTracer creates a LogTracer writing to the named logger.
func NewLogTracer(name string, level Level) *LogTracer {
	if name == "" {
		name = "ember.trace"
	}
	return &LogTracer{log: commonlog.GetLogger(name), level: level}
}

// Emit logs ev: errors at error level, span and point events at debug level.
func (t *LogTracer) Emit(ev *Event) {
	if !t.level.accepts(ev) {
		return
	}
	ev.Seq = NextSeq()
	kv := make([]any, 0, 8+2*len(ev.Extra))
	kv = append(kv, "seq", ev.Seq, "kind", ev.Kind.String(), "scope", ev.Scope.String())
	if ev.Detail != "" {
		kv = append(kv, "detail", ev.Detail)
	}
	for k, v := range ev.Extra {
		kv = append(kv, k, v)
	}
	switch ev.Kind {
	case KindError:
		t.log.Error(ev.Name, kv...)
	case KindSpanBegin, KindSpanEnd:
		t.log.Info(ev.Name, kv...)
	default:
		t.log.Debug(ev.Name, kv...)
	}
}

// Flush is a no-op; commonlog writes synchronously.
func (t *LogTracer) Flush() error { return nil }

// Close is a no-op.
func (t *LogTracer) Close() error { return nil }

// Level returns the configured level.
func (t *LogTracer) Level() Level { return t.level }

// Enabled returns true if tracing is active.
func (t *LogTracer) Enabled() bool { return t.level > LevelOff }
