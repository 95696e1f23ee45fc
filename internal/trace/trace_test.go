package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeRun, false},
		{LevelError, ScopeRun, false},
		{LevelCall, ScopeCall, true},
		{LevelCall, ScopeOp, false},
		{LevelOp, ScopeOp, true},
		{LevelOp, ScopeDetail, false},
		{LevelDebug, ScopeDetail, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
	if !LevelError.accepts(&Event{Kind: KindError, Scope: ScopeDetail}) {
		t.Fatalf("error events must pass LevelError")
	}
}

func TestParseLevelAndMode(t *testing.T) {
	for _, s := range []string{"off", "error", "call", "op", "debug"} {
		l, err := ParseLevel(s)
		if err != nil || l.String() != s {
			t.Fatalf("ParseLevel(%q) = %v, %v", s, l, err)
		}
	}
	if _, err := ParseLevel("phase"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	for _, s := range []string{"stream", "ring", "both", "log"} {
		m, err := ParseMode(s)
		if err != nil || m.String() != s {
			t.Fatalf("ParseMode(%q) = %v, %v", s, m, err)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelCall, FormatText)
	span := Begin(tr, ScopeCall, "call", 0)
	span.WithExtra("path", "interp").End("f")
	Point(tr, ScopeOp, "add", "", nil)

	out := buf.String()
	if !strings.Contains(out, "→ call") || !strings.Contains(out, "← call (f) {path=interp}") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "add") {
		t.Fatalf("op events must be filtered at LevelCall:\n%s", out)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Error(tr, ScopeOp, "getelem", "null receiver", map[string]string{"code": "VM1202"})
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if got["kind"] != "error" || got["name"] != "getelem" || got["scope"] != "op" {
		t.Fatalf("decoded = %v", got)
	}
}

func TestSpanFailEmitsError(t *testing.T) {
	ring := NewRingTracer(8, LevelCall)
	Begin(ring, ScopeCall, "call", 0).Fail(errors.New("boom")).End("")
	events := ring.Snapshot()
	if len(events) != 3 || events[1].Kind != KindError || events[1].Detail != "boom" {
		t.Fatalf("events = %+v", events)
	}
}

func TestRingTracerWraps(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(ring, ScopeOp, name, "", nil)
	}
	events := ring.Snapshot()
	if len(events) != 3 || events[0].Name != "b" || events[2].Name != "d" {
		t.Fatalf("snapshot = %+v", events)
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump:\n%s", buf.String())
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff, Mode: ModeStream})
	if err != nil || tr != Nop || tr.Enabled() {
		t.Fatalf("New(off) = %v, %v", tr, err)
	}
	span := Begin(tr, ScopeRun, "x", 0)
	if span.End("") != 0 {
		t.Fatalf("inert span should report zero duration")
	}
}

func TestNewBothHasRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelCall, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	multi, ok := tr.(*MultiTracer)
	if !ok || multi.Ring() == nil {
		t.Fatalf("expected multi tracer with ring, got %T", tr)
	}
	Point(tr, ScopeRun, "start", "", nil)
	if buf.Len() == 0 || len(multi.Ring().Snapshot()) != 1 {
		t.Fatalf("event did not reach both tracers")
	}
}

func TestContextHelpers(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context should yield Nop")
	}
	ring := NewRingTracer(4, LevelCall)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not attached")
	}
	span := Begin(ring, ScopeRun, "run", 0)
	ctx = WithSpan(ctx, span)
	if ParentSpan(ctx) != span.ID() || span.ID() == 0 {
		t.Fatalf("parent span = %d", ParentSpan(ctx))
	}
}

func TestHeartbeatStops(t *testing.T) {
	ring := NewRingTracer(64, LevelError)
	hb := StartHeartbeat(ring, time.Millisecond, func() string { return "depth=1" })
	deadline := time.Now().Add(time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	events := ring.Snapshot()
	if len(events) == 0 || !strings.HasSuffix(events[0].Detail, "depth=1") {
		t.Fatalf("no heartbeat recorded: %+v", events)
	}
	if StartHeartbeat(Nop, time.Millisecond, nil) != nil {
		t.Fatalf("disabled tracer should not start a heartbeat")
	}
}
