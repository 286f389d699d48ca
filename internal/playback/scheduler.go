package playback

import (
	"sync"
	"time"
)

// Scheduler registers a callback to run every d. The returned cancel func
// stops further calls; it is safe to call more than once.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
}

// TickerScheduler runs callbacks from a time.Ticker goroutine.
type TickerScheduler struct{}

func (TickerScheduler) Every(d time.Duration, fn func()) func() {
	t := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// ManualScheduler fires callbacks only when told to. It drives the
// controller deterministically in tests and in step-through tooling.
type ManualScheduler struct {
	mu   sync.Mutex
	regs []*registration
}

type registration struct {
	period    time.Duration
	fn        func()
	cancelled bool
}

func (s *ManualScheduler) Every(d time.Duration, fn func()) func() {
	r := &registration{period: d, fn: fn}
	s.mu.Lock()
	s.regs = append(s.regs, r)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		r.cancelled = true
		s.mu.Unlock()
	}
}

// Fire runs every active callback once and returns how many ran.
func (s *ManualScheduler) Fire() int {
	return s.fire(false)
}

// FireCancelled runs the callbacks of cancelled registrations, as a tick
// that was already in flight when cancel was called would.
func (s *ManualScheduler) FireCancelled() int {
	return s.fire(true)
}

func (s *ManualScheduler) fire(cancelled bool) int {
	s.mu.Lock()
	var fns []func()
	for _, r := range s.regs {
		if r.cancelled == cancelled {
			fns = append(fns, r.fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Active returns the periods of registrations that have not been cancelled.
func (s *ManualScheduler) Active() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, r := range s.regs {
		if !r.cancelled {
			out = append(out, r.period)
		}
	}
	return out
}
