package feedback

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ember/internal/script"
)

func TestRecorderAccumulates(t *testing.T) {
	r := NewRecorder()
	site := script.Site{Script: 1, PC: 4}
	r.Emit(Event{Site: site, Kind: Overflow})
	r.Emit(Event{Site: site, Kind: Overflow})
	r.Emit(Event{Site: site, Kind: AssignmentObserved, Key: "x"})
	r.Emit(Event{Site: site, Kind: AssignmentObserved, Key: "0"})

	got := r.Observed(site)
	if !got.Has(Overflow) || !got.Has(AssignmentObserved) || got.Has(ProducedString) {
		t.Fatalf("observed = %s", got)
	}
	if r.Count(site, Overflow) != 2 || r.Total() != 4 {
		t.Fatalf("count = %d total = %d", r.Count(site, Overflow), r.Total())
	}
	keys := r.Keys(site)
	if len(keys) != 2 || keys[0] != "0" || keys[1] != "x" {
		t.Fatalf("keys = %v", keys)
	}
	if r.Observed(script.Site{Script: 9}) != 0 {
		t.Fatalf("unknown site should be empty")
	}
	r.Reset()
	if r.Total() != 0 || len(r.Sites()) != 0 {
		t.Fatalf("reset failed")
	}
}

func TestRecorderConcurrentEmit(t *testing.T) {
	r := NewRecorder()
	site := script.Site{Script: 1}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Emit(Event{Site: site, Kind: ProducedUnknownType})
			}
		}()
	}
	wg.Wait()
	if r.Count(site, ProducedUnknownType) != 800 {
		t.Fatalf("count = %d", r.Count(site, ProducedUnknownType))
	}
}

func TestTee(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	sink := Tee(a, nil, b)
	sink.Emit(Event{Site: script.Site{Script: 2}, Kind: ProducedString})
	if a.Total() != 1 || b.Total() != 1 {
		t.Fatalf("tee did not fan out")
	}
	if Tee() != Nop {
		t.Fatalf("empty tee should be Nop")
	}
	if Tee(a) != Sink(a) {
		t.Fatalf("single tee should be the sink itself")
	}
}

func TestKindNames(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k, got, err)
		}
	}
	if _, err := ParseKind("bogus"); err == nil {
		t.Fatalf("expected error")
	}
	var s KindSet
	if s.String() != "-" {
		t.Fatalf("empty set = %q", s.String())
	}
	s = s.Add(Overflow).Add(ArrayWriteHole)
	if s.String() != "overflow,array-write-hole" {
		t.Fatalf("set = %q", s.String())
	}
}

func sampleRecorder() *Recorder {
	r := NewRecorder()
	r.Emit(Event{Site: script.Site{Script: 2, PC: 1}, Kind: Overflow})
	r.Emit(Event{Site: script.Site{Script: 1, PC: 8}, Kind: AssignmentObserved, Key: "k"})
	return r
}

func TestSnapshotSortedSites(t *testing.T) {
	p := sampleRecorder().Snapshot()
	if p.Schema != ProfileSchema || p.RunID == "" {
		t.Fatalf("profile header = %+v", p)
	}
	if len(p.Sites) != 2 || p.Sites[0].Site.Script != 1 {
		t.Fatalf("sites not sorted: %+v", p.Sites)
	}
	sp, ok := p.Site(script.Site{Script: 1, PC: 8})
	if !ok || sp.Counts["assign"] != 1 || len(sp.Keys) != 1 {
		t.Fatalf("site record = %+v", sp)
	}
}

func TestSaveLoadFormats(t *testing.T) {
	dir := t.TempDir()
	p := sampleRecorder().Snapshot()
	for _, format := range []Format{FormatMsgpack, FormatCBOR} {
		path := filepath.Join(dir, "profile."+string(format))
		if err := Save(path, p, format); err != nil {
			t.Fatalf("save %s: %v", format, err)
		}
		got, err := Load(path, format)
		if err != nil {
			t.Fatalf("load %s: %v", format, err)
		}
		if got.RunID != p.RunID || len(got.Sites) != 2 {
			t.Fatalf("%s profile mismatch: %+v", format, got)
		}
		if !got.Sites[1].Kinds.Has(Overflow) {
			t.Fatalf("%s lost kinds", format)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestDecodeRejectsOtherSchema(t *testing.T) {
	p := &Profile{Schema: ProfileSchema + 1}
	data, err := Marshal(p, FormatCBOR)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "p.cbor")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, FormatForPath(path)); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestMerge(t *testing.T) {
	a := sampleRecorder().Snapshot()
	r := NewRecorder()
	r.Emit(Event{Site: script.Site{Script: 2, PC: 1}, Kind: Overflow})
	r.Emit(Event{Site: script.Site{Script: 2, PC: 1}, Kind: ProducedString})
	r.Emit(Event{Site: script.Site{Script: 1, PC: 8}, Kind: AssignmentObserved, Key: "j"})
	b := r.Snapshot()

	m := Merge(a, nil, b)
	if m.RunID == a.RunID || m.RunID == b.RunID {
		t.Fatalf("merge should get a fresh run id")
	}
	sp, ok := m.Site(script.Site{Script: 2, PC: 1})
	if !ok || sp.Counts["overflow"] != 2 || !sp.Kinds.Has(ProducedString) {
		t.Fatalf("merged site = %+v", sp)
	}
	sp, _ = m.Site(script.Site{Script: 1, PC: 8})
	if len(sp.Keys) != 2 || sp.Keys[0] != "j" {
		t.Fatalf("merged keys = %v", sp.Keys)
	}
}

func TestParseFormat(t *testing.T) {
	if f, _ := ParseFormat(""); f != FormatMsgpack {
		t.Fatalf("default format = %q", f)
	}
	if f, _ := ParseFormat("CBOR"); f != FormatCBOR {
		t.Fatalf("cbor format = %q", f)
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Fatalf("expected error")
	}
	if FormatForPath("x.cbor") != FormatCBOR || FormatForPath("x.mp") != FormatMsgpack {
		t.Fatalf("FormatForPath broken")
	}
}
