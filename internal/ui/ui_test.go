package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ember/internal/feedback"
	"ember/internal/script"
)

func sampleProfile() *feedback.Profile {
	rec := feedback.NewRecorder()
	a := script.Site{Script: 1, PC: 4}
	b := script.Site{Script: 2, PC: 0}
	for i := 0; i < 1200; i++ {
		rec.Emit(feedback.Event{Site: a, Kind: feedback.Overflow})
	}
	rec.Emit(feedback.Event{Site: b, Kind: feedback.AssignmentObserved, Key: "x"})
	rec.Emit(feedback.Event{Site: b, Kind: feedback.ArrayWriteHole})
	return rec.Snapshot()
}

func TestRenderProfile(t *testing.T) {
	p := sampleProfile()
	var buf bytes.Buffer
	if err := RenderProfile(&buf, p, TableOptions{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], p.RunID) || !strings.Contains(lines[0], "2 sites") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "SITE") {
		t.Fatalf("column header = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "1@4") || !strings.Contains(lines[2], "overflow=1,200") {
		t.Fatalf("row = %q", lines[2])
	}
	if !strings.Contains(lines[3], "assign=1 array-write-hole=1") || !strings.HasSuffix(lines[3], "x") {
		t.Fatalf("row = %q", lines[3])
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("uncolored output has escapes")
	}
}

func TestRenderProfileKindFilter(t *testing.T) {
	kind := feedback.ArrayWriteHole
	var buf bytes.Buffer
	if err := RenderProfile(&buf, sampleProfile(), TableOptions{Kind: &kind}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "1@4") || !strings.Contains(out, "2@0") || !strings.Contains(out, "1 sites") {
		t.Fatalf("filtered output:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 6, "abc..."},
		{"abcdef", 2, "ab"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestLoadModelEvents(t *testing.T) {
	events := make(chan LoadEvent)
	m := NewLoadModel("merging", []string{"a.msgpack", "b.cbor"}, events).(*loadModel)

	m.Update(eventMsg(LoadEvent{Path: "a.msgpack", Status: LoadReading}))
	if got := m.fraction(); got != 0.25 {
		t.Fatalf("fraction = %v", got)
	}
	m.Update(eventMsg(LoadEvent{Path: "a.msgpack", Status: LoadDone, Sites: 3}))
	m.Update(eventMsg(LoadEvent{Path: "b.cbor", Status: LoadFailed, Err: errors.New("bad schema")}))
	m.Update(eventMsg(LoadEvent{Path: "unknown", Status: LoadDone}))
	if got := m.fraction(); got != 1 {
		t.Fatalf("fraction = %v", got)
	}
	if m.items[0].detail != "3 sites" || m.items[1].detail != "bad schema" {
		t.Fatalf("details = %q, %q", m.items[0].detail, m.items[1].detail)
	}

	_, cmd := m.Update(doneMsg{})
	if !m.done || cmd == nil {
		t.Fatalf("done message did not quit")
	}
	view := m.View()
	if !strings.Contains(view, "done: merging") || !strings.Contains(view, "b.cbor") {
		t.Fatalf("view:\n%s", view)
	}
}

func TestLoadStatusString(t *testing.T) {
	if LoadReading.String() != "loading" || LoadFailed.String() != "error" || LoadQueued.String() != "queued" {
		t.Fatalf("status labels changed")
	}
}
