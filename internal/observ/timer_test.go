package observ

import (
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	cur := time.Unix(0, 0)
	return func() time.Time {
		cur = cur.Add(step)
		return cur
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(2 * time.Millisecond)

	idx := tm.Begin("convert")
	tm.End(idx, "2 operands")
	tm.Time("run", func() string { return "" })
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d", len(r.Phases))
	}
	if r.Phases[0].DurationMS != 2 || r.Phases[1].DurationMS != 2 || r.TotalMS != 4 {
		t.Fatalf("report = %+v", r)
	}
	if r.Phases[0].Note != "2 operands" {
		t.Fatalf("note = %q", r.Phases[0].Note)
	}

	sum := tm.Summary()
	if !strings.Contains(sum, "convert") || !strings.Contains(sum, "// 2 operands") || !strings.Contains(sum, "4.000 ms") {
		t.Fatalf("summary:\n%s", sum)
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("empty report = %+v", r)
	}
}
