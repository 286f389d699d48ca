package playback

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerDataDriven(t *testing.T) {
	var (
		c     *Controller
		sched *ManualScheduler
		b     strings.Builder
	)
	printState := func(err error) string {
		if err != nil {
			fmt.Fprintf(&b, "error: %v\n", err)
		}
		st := c.State()
		fmt.Fprintf(&b, "%s index=%d total=%d timers=%v\n", st.Status(), st.CurrentIndex, st.Total, sched.Active())
		out := b.String()
		b.Reset()
		return out
	}

	datadriven.RunTest(t, "testdata/controller", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "init":
			var n int
			td.ScanArgs(t, "n", &n)
			sched = &ManualScheduler{}
			c = New(n, WithScheduler(sched))
			return printState(nil)
		case "play":
			return printState(c.Play())
		case "pause":
			return printState(c.Pause())
		case "toggle":
			return printState(c.Toggle())
		case "next":
			return printState(c.Next())
		case "prev":
			return printState(c.Prev())
		case "jump":
			var k int
			td.ScanArgs(t, "k", &k)
			return printState(c.Jump(k))
		case "interval":
			var s string
			td.ScanArgs(t, "d", &s)
			d, err := time.ParseDuration(s)
			require.NoError(t, err)
			return printState(c.SetInterval(d))
		case "reset":
			var n int
			td.ScanArgs(t, "n", &n)
			return printState(c.Reset(n))
		case "tick":
			sched.Fire()
			return printState(nil)
		case "late-tick":
			sched.FireCancelled()
			return printState(nil)
		case "close":
			c.Close()
			return printState(nil)
		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
}

func TestNextIsCyclic(t *testing.T) {
	for n := 1; n <= 5; n++ {
		c := New(n, WithScheduler(&ManualScheduler{}))
		require.NoError(t, c.Jump(n-1))
		for i := 0; i < n; i++ {
			require.NoError(t, c.Next())
		}
		assert.Equal(t, n-1, c.State().CurrentIndex, "n=%d", n)
		for i := 0; i < n; i++ {
			require.NoError(t, c.Prev())
		}
		assert.Equal(t, n-1, c.State().CurrentIndex, "n=%d", n)
	}
}

func TestPlayPauseBeforeTick(t *testing.T) {
	sched := &ManualScheduler{}
	c := New(3, WithScheduler(sched))
	require.NoError(t, c.Jump(1))
	require.NoError(t, c.Play())
	require.NoError(t, c.Pause())

	assert.Zero(t, sched.Fire())
	assert.Equal(t, 1, sched.FireCancelled())
	assert.Equal(t, State{CurrentIndex: 1, Total: 3}, c.State())
}

func TestRejectedCallsDoNotMutate(t *testing.T) {
	idle := New(0, WithScheduler(&ManualScheduler{}))
	for _, fn := range []func() error{idle.Play, idle.Pause, idle.Toggle, idle.Next, idle.Prev} {
		assert.True(t, errors.Is(fn(), ErrIdle))
	}
	assert.True(t, errors.Is(idle.Jump(0), ErrIdle))
	assert.Equal(t, Idle, idle.State().Status())

	c := New(2, WithScheduler(&ManualScheduler{}))
	err := c.Jump(2)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, 0, c.State().CurrentIndex)

	assert.True(t, errors.Is(c.SetInterval(0), ErrInvalidInterval))
	assert.Equal(t, DefaultInterval, c.Interval())

	c.Close()
	c.Close()
	assert.True(t, errors.Is(c.Next(), ErrClosed))
	assert.True(t, errors.Is(c.Reset(3), ErrClosed))
}

func TestObserverSeesEveryTransition(t *testing.T) {
	sched := &ManualScheduler{}
	var seen []State
	c := New(2, WithScheduler(sched), WithObserver(func(s State) { seen = append(seen, s) }))

	require.NoError(t, c.Play())
	sched.Fire()
	require.NoError(t, c.Next())
	require.NoError(t, c.Pause())
	require.NoError(t, c.Pause()) // no-op, no notification
	require.NoError(t, c.Reset(1))

	assert.Equal(t, []State{
		{CurrentIndex: 0, IsPlaying: true, Total: 2},
		{CurrentIndex: 1, IsPlaying: true, Total: 2},
		{CurrentIndex: 0, IsPlaying: true, Total: 2},
		{CurrentIndex: 0, IsPlaying: false, Total: 2},
		{CurrentIndex: 0, IsPlaying: false, Total: 1},
	}, seen)
}

func TestTickerSchedulerAdvances(t *testing.T) {
	ticks := make(chan State, 16)
	c := New(3,
		WithInterval(5*time.Millisecond),
		WithObserver(func(s State) {
			select {
			case ticks <- s:
			default:
			}
		}))
	defer c.Close()

	require.NoError(t, c.Play())
	<-ticks // play itself

	deadline := time.After(2 * time.Second)
	for advanced := 0; advanced < 3; {
		select {
		case s := <-ticks:
			require.True(t, s.IsPlaying)
			advanced++
		case <-deadline:
			t.Fatal("timed out waiting for ticks")
		}
	}

	require.NoError(t, c.Pause())
	paused := c.State()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, paused, c.State())
}

func TestIntervalFromSeconds(t *testing.T) {
	assert.Equal(t, DefaultInterval, IntervalFromSeconds(1.5))
	assert.Equal(t, 250*time.Millisecond, IntervalFromSeconds(0.25))
}
