package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat periodically emits liveness events while a long evaluation runs.
// Heartbeats without matching span ends point at a runaway call.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	probe    func() string
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// StartHeartbeat starts emitting a heartbeat every interval. probe, if set,
// supplies the event detail (for example the current call depth).
func StartHeartbeat(tracer Tracer, interval time.Duration, probe func() string) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}

	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		probe:    probe,
		stopCh:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-ticker.C:
			n++
			detail := fmt.Sprintf("#%d", n)
			if h.probe != nil {
				detail += " " + h.probe()
			}
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Kind:   KindHeartbeat,
				Scope:  ScopeRun,
				GID:    goroutineID(),
				Name:   "heartbeat",
				Detail: detail,
			})
		case <-h.stopCh:
			return
		}
	}
}

// Stop stops the heartbeat goroutine and waits for it to exit.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stopCh)
		h.wg.Wait()
	})
}
