package viewer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/overlay"
	"github.com/gonkalabs/langextract-go/internal/playback"
)

func appleDoc() *document.AnnotatedDocument {
	return &document.AnnotatedDocument{
		DocumentID: "doc-1",
		Text:       "Apple CEO Tim Cook",
		Extractions: []document.Extraction{
			{ExtractionClass: "人物", ExtractionText: "Tim Cook", CharInterval: document.Interval(10, 18),
				Attributes: document.Attributes{"类型": document.Str("人名")}},
			{ExtractionClass: "公司", ExtractionText: "Apple", CharInterval: document.Interval(0, 5)},
			{ExtractionClass: "金额", ExtractionText: "$3T"},
		},
	}
}

func manual(t *testing.T) (Options, *playback.ManualScheduler) {
	t.Helper()
	sched := &playback.ManualScheduler{}
	return Options{
		ContextChars: 4,
		NewScheduler: func() playback.Scheduler { return sched },
	}, sched
}

func TestSnapshot(t *testing.T) {
	opts, _ := manual(t)
	s := NewSession("s1", appleDoc(), opts)
	defer s.Close()

	v := s.Snapshot()
	assert.Equal(t, "s1", v.SessionID)
	assert.Equal(t, "doc-1", v.DocumentID)
	assert.Equal(t, "paused", v.Status)
	assert.Equal(t, playback.State{CurrentIndex: 0, Total: 2}, v.Playback)
	assert.Equal(t, 2, v.Stats.Total)
	assert.Equal(t, 111, v.Density)
	assert.Equal(t, []overlay.LegendEntry{
		{Class: "人物", Color: overlay.Palette[0]},
		{Class: "公司", Color: overlay.Palette[1]},
	}, v.Legend)

	require.NotNil(t, v.Current)
	assert.Equal(t, Current{
		Index:   0,
		Readout: "1 / 2",
		Class:   "公司",
		Text:    "Apple",
		Start:   0,
		End:     5,
		Before:  "",
		After:   " CEO",
	}, *v.Current)
	assert.Contains(t, v.Markup, `class="highlight current-highlight" data-idx="0"`)

	require.NoError(t, s.Controller().Next())
	v = s.Snapshot()
	require.NotNil(t, v.Current)
	assert.Equal(t, "人物", v.Current.Class)
	assert.Equal(t, "2 / 2", v.Current.Readout)
	assert.Equal(t, "CEO ", v.Current.Before)
	assert.Equal(t, "人名", v.Current.Attributes["类型"].String())
	assert.Equal(t, 1, strings.Count(v.Markup, "current-highlight"))
}

func TestSnapshotIdle(t *testing.T) {
	opts, _ := manual(t)
	s := NewSession("s1", &document.AnnotatedDocument{Text: "a < b"}, opts)
	defer s.Close()

	v := s.Snapshot()
	assert.Equal(t, "idle", v.Status)
	assert.Nil(t, v.Current)
	assert.Equal(t, "a &lt; b", v.Markup)
	assert.Empty(t, v.Legend)
	assert.ErrorIs(t, s.Controller().Play(), playback.ErrIdle)
}

func TestLoadResetsPlayback(t *testing.T) {
	opts, sched := manual(t)
	s := NewSession("s1", appleDoc(), opts)
	defer s.Close()

	require.NoError(t, s.Controller().Play())
	sched.Fire()
	assert.Equal(t, 1, s.Snapshot().Playback.CurrentIndex)

	doc := &document.AnnotatedDocument{
		DocumentID: "doc-2",
		Text:       "one two three",
		Extractions: []document.Extraction{
			{ExtractionClass: "n", ExtractionText: "two", CharInterval: document.Interval(4, 7)},
			{ExtractionClass: "n", ExtractionText: "one", CharInterval: document.Interval(0, 3)},
			{ExtractionClass: "n", ExtractionText: "three", CharInterval: document.Interval(8, 13)},
		},
	}
	require.NoError(t, s.Load(doc))
	assert.Empty(t, sched.Active())
	sched.FireCancelled()

	v := s.Snapshot()
	assert.Equal(t, "doc-2", v.DocumentID)
	assert.Equal(t, playback.State{CurrentIndex: 0, Total: 3}, v.Playback)
	require.NotNil(t, v.Current)
	assert.Equal(t, "one", v.Current.Text)
	assert.Same(t, doc, s.Document())
}

func TestSubscribe(t *testing.T) {
	opts, sched := manual(t)
	s := NewSession("s1", appleDoc(), opts)

	ch, cancel := s.Subscribe()
	require.NoError(t, s.Controller().Play())
	v := recv(t, ch)
	assert.Equal(t, "playing", v.Status)

	// Only the latest view is kept for a slow reader.
	sched.Fire()
	sched.Fire()
	v = recv(t, ch)
	assert.Equal(t, 0, v.Playback.CurrentIndex)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected view %+v", extra)
	default:
	}

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)

	ch2, _ := s.Subscribe()
	s.Close()
	_, ok = <-ch2
	assert.False(t, ok)

	ch3, _ := s.Subscribe()
	_, ok = <-ch3
	assert.False(t, ok, "subscribing to a closed session yields a closed channel")
}

func TestRegistry(t *testing.T) {
	opts, _ := manual(t)
	r := NewRegistry(opts)

	s := r.Open("a", appleDoc())
	assert.Same(t, s, r.Open("a", nil))
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, s, got)

	r.Open("b", appleDoc())
	assert.Equal(t, 2, r.Len())

	r.Close("a")
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.ErrorIs(t, s.Controller().Next(), playback.ErrClosed)

	r.CloseAll()
	assert.Zero(t, r.Len())
}

func TestRegistryCloseIDs(t *testing.T) {
	opts, sched := manual(t)
	opts.Interval = time.Second
	r := NewRegistry(opts)

	a := r.Open("a", appleDoc())
	r.Open("b", appleDoc())
	require.NoError(t, a.Controller().Play())
	require.Equal(t, []time.Duration{time.Second}, sched.Active())

	r.CloseIDs([]string{"a", "missing"})
	assert.Empty(t, sched.Active())
	assert.Equal(t, 1, r.Len())
	_, ok := r.Get("b")
	assert.True(t, ok)
}

func recv(t *testing.T, ch <-chan View) View {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok)
		return v
	case <-time.After(time.Second):
		t.Fatal("no view received")
		return View{}
	}
}
