// Package playback steps through a document's positioned extractions one at
// a time, manually or on a timer.
//
// A Controller is in one of three states: Idle (nothing to play), Paused at
// an index, or Playing at an index. While Playing, a single scheduler
// registration advances the index every interval, wrapping from the last
// extraction back to the first. Manual steps never touch the timer.
package playback

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultInterval is the auto-advance period.
const DefaultInterval = 1500 * time.Millisecond

var (
	ErrIdle            = errors.New("playback: no positioned extractions")
	ErrOutOfRange      = errors.New("playback: index out of range")
	ErrClosed          = errors.New("playback: controller closed")
	ErrInvalidInterval = errors.New("playback: interval must be positive")
)

// Status is the controller's state-machine state.
type Status int

const (
	Idle Status = iota
	Paused
	Playing
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// State is a snapshot of a controller.
type State struct {
	CurrentIndex int  `json:"current_index"`
	IsPlaying    bool `json:"is_playing"`
	Total        int  `json:"total"`
}

// Status derives the state-machine state from the snapshot.
func (s State) Status() Status {
	switch {
	case s.Total == 0:
		return Idle
	case s.IsPlaying:
		return Playing
	default:
		return Paused
	}
}

// Controller is the playback state machine for one visualization session.
// All methods are safe for concurrent use; transitions are serialized.
type Controller struct {
	sched    Scheduler
	observer func(State)

	mu       sync.Mutex
	n        int
	index    int
	playing  bool
	interval time.Duration
	cancel   func()
	// gen is bumped on every timer start and stop. A tick carries the
	// generation it was registered under and is dropped if it no longer
	// matches, so nothing advances after Pause, Reset or Close return.
	gen    uint64
	closed bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces the default TickerScheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithInterval sets the auto-advance period. Non-positive values are
// ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithObserver registers fn to receive the new state after every
// transition. fn runs with the controller locked and must not call back
// into it.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observer = fn }
}

// New returns a paused controller over n extractions, or an idle one when
// n is zero.
func New(n int, opts ...Option) *Controller {
	c := &Controller{
		sched:    TickerScheduler{},
		interval: DefaultInterval,
	}
	for _, o := range opts {
		o(c)
	}
	if n > 0 {
		c.n = n
	}
	return c
}

// IntervalFromSeconds converts a configured period in seconds.
func IntervalFromSeconds(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Interval returns the period the next Play will use.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Play starts auto-advance. Playing while already playing is a no-op and
// never registers a second timer.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playLocked()
}

// Pause stops auto-advance, keeping the current index.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseLocked()
}

// Toggle pauses a playing controller and plays a paused one.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return c.pauseLocked()
	}
	return c.playLocked()
}

func (c *Controller) playLocked() error {
	if err := c.checkLocked(); err != nil {
		return err
	}
	if c.playing {
		return nil
	}
	c.playing = true
	c.gen++
	gen := c.gen
	c.cancel = c.sched.Every(c.interval, func() { c.tick(gen) })
	c.notifyLocked()
	return nil
}

func (c *Controller) pauseLocked() error {
	if err := c.checkLocked(); err != nil {
		return err
	}
	if !c.playing {
		return nil
	}
	c.stopLocked()
	c.notifyLocked()
	return nil
}

// Next moves to the following extraction, wrapping to the first.
func (c *Controller) Next() error {
	return c.step(1)
}

// Prev moves to the preceding extraction, wrapping to the last.
func (c *Controller) Prev() error {
	return c.step(-1)
}

func (c *Controller) step(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	c.index = (c.index + delta + c.n) % c.n
	c.notifyLocked()
	return nil
}

// Jump moves to index k. k outside [0, N) is rejected and the state is left
// unchanged.
func (c *Controller) Jump(k int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	if k < 0 || k >= c.n {
		return errors.Wrapf(ErrOutOfRange, "jump to %d of %d", k, c.n)
	}
	c.index = k
	c.notifyLocked()
	return nil
}

// SetInterval changes the period used by the next Play. A timer that is
// already running keeps its period.
func (c *Controller) SetInterval(d time.Duration) error {
	if d <= 0 {
		return errors.Wrapf(ErrInvalidInterval, "got %s", d)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.interval = d
	return nil
}

// Reset swaps in a new extraction count: any timer is cancelled, the index
// returns to zero and the controller is paused (or idle when n is zero).
func (c *Controller) Reset(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.stopLocked()
	if n < 0 {
		n = 0
	}
	c.n = n
	c.index = 0
	c.notifyLocked()
	return nil
}

// Close cancels any timer. Every later call except State fails with
// ErrClosed. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopLocked()
	c.closed = true
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing || gen != c.gen || c.n == 0 {
		return
	}
	c.index = (c.index + 1) % c.n
	c.notifyLocked()
}

func (c *Controller) checkLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.n == 0 {
		return ErrIdle
	}
	return nil
}

func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.playing = false
	c.gen++
}

func (c *Controller) stateLocked() State {
	return State{CurrentIndex: c.index, IsPlaying: c.playing, Total: c.n}
}

func (c *Controller) notifyLocked() {
	if c.observer != nil {
		c.observer(c.stateLocked())
	}
}
