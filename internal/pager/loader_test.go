package pager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kartubicara/internal/deck"
	"kartubicara/internal/types"
)

type fakeSource struct {
	mu      sync.Mutex
	pages   [][]types.Question
	cursors []*int
	err     error
	total   int
	totErr  error
}

func (f *fakeSource) LoadQuestions(_ context.Context, lastID *int, limit int) ([]types.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, lastID)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeSource) TotalQuestions(context.Context) (int, error) {
	return f.total, f.totErr
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cursors)
}

// manualTimers collects scheduled callbacks so tests decide when they fire.
type manualTimers struct {
	mu    sync.Mutex
	funcs []func()
	delay []time.Duration
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

func (m *manualTimers) afterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, f)
	m.delay = append(m.delay, d)
	return noopTimer{}
}

func (m *manualTimers) fireAll() {
	m.mu.Lock()
	funcs := m.funcs
	m.funcs = nil
	m.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}

func questions(ids ...int) []types.Question {
	out := make([]types.Question, len(ids))
	for i, id := range ids {
		out[i] = types.Question{ID: id, Title: "q"}
	}
	return out
}

func TestLoadCursor(t *testing.T) {
	src := &fakeSource{pages: [][]types.Question{questions(1, 2, 3), questions(4)}}
	items := deck.NewCollection()
	l := New(src, items)

	if err := l.Load(context.Background(), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.cursors[0] != nil {
		t.Errorf("first Load sent cursor %d, want none", *src.cursors[0])
	}

	if err := l.Load(context.Background(), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c := src.cursors[1]; c == nil || *c != 3 {
		t.Errorf("second Load cursor = %v, want 3", c)
	}
	if items.Len() != 4 {
		t.Errorf("collection has %d items, want 4", items.Len())
	}
	st := l.State()
	if !st.HasMore || st.LastSeenID == nil || *st.LastSeenID != 4 {
		t.Errorf("State = %+v", st)
	}
}

func TestLoadEmptyPageEndsListing(t *testing.T) {
	src := &fakeSource{pages: [][]types.Question{questions(1)}}
	l := New(src, deck.NewCollection())
	_ = l.Load(context.Background(), nil)
	_ = l.Load(context.Background(), nil)
	if l.State().HasMore {
		t.Error("an empty page should clear HasMore")
	}
}

func TestLoadErrorKeepsState(t *testing.T) {
	items := deck.NewCollection(questions(1, 2)...)
	src := &fakeSource{err: errors.New("offline")}
	l := New(src, items)
	l.loading = true

	if err := l.Load(context.Background(), nil); err == nil {
		t.Fatal("Load should return the source error")
	}
	st := l.State()
	if st.Loading || !st.HasMore || items.Len() != 2 {
		t.Errorf("state after error = %+v, len %d", st, items.Len())
	}
}

func TestLoadStaleGuard(t *testing.T) {
	items := deck.NewCollection()
	src := &fakeSource{pages: [][]types.Question{questions(9)}}
	l := New(src, items)
	err := l.Load(context.Background(), func() bool { return false })
	if !errors.Is(err, ErrStale) {
		t.Errorf("err = %v, want ErrStale", err)
	}
	if items.Len() != 0 {
		t.Error("stale page should not be appended")
	}
}

func TestOnScrollDebounces(t *testing.T) {
	src := &fakeSource{pages: [][]types.Question{questions(1, 2)}}
	timers := &manualTimers{}
	l := New(src, deck.NewCollection(), WithAfterFunc(timers.afterFunc))

	var dones []<-chan struct{}
	for range 5 {
		if done := l.OnScroll(context.Background(), 40, nil); done != nil {
			dones = append(dones, done)
		}
	}
	if len(dones) != 1 {
		t.Fatalf("%d fetches scheduled, want 1", len(dones))
	}
	if timers.delay[0] != Debounce {
		t.Errorf("debounce = %v, want %v", timers.delay[0], Debounce)
	}
	if st := l.State(); !st.Loading || !l.Pending() {
		t.Errorf("loading/pending should be set before the timer fires: %+v", st)
	}
	if src.calls() != 0 {
		t.Error("no request should go out before the debounce elapses")
	}

	timers.fireAll()
	<-dones[0]
	if src.calls() != 1 {
		t.Errorf("%d requests, want 1", src.calls())
	}
	if st := l.State(); st.Loading || l.Pending() {
		t.Errorf("flags should clear after the fetch: %+v", st)
	}
}

func TestOnScrollThresholdAndHasMore(t *testing.T) {
	timers := &manualTimers{}
	l := New(&fakeSource{}, deck.NewCollection(), WithAfterFunc(timers.afterFunc))

	if l.OnScroll(context.Background(), ScrollThreshold+1, nil) != nil {
		t.Error("scroll far from the bottom should not schedule")
	}
	done := l.OnScroll(context.Background(), ScrollThreshold, nil)
	if done == nil {
		t.Fatal("scroll at the threshold should schedule")
	}
	timers.fireAll()
	<-done
	if l.State().HasMore {
		t.Fatal("empty page should clear HasMore")
	}
	if l.OnScroll(context.Background(), 0, nil) != nil {
		t.Error("no more pages: scroll should not schedule")
	}
}

func TestOnScrollRealTimer(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the real debounce")
	}
	src := &fakeSource{pages: [][]types.Question{questions(5)}}
	l := New(src, deck.NewCollection())
	start := time.Now()
	done := l.OnScroll(context.Background(), 0, nil)
	if l.OnScroll(context.Background(), 0, nil) != nil {
		t.Error("second scroll inside the window should not schedule")
	}
	<-done
	if elapsed := time.Since(start); elapsed < Debounce {
		t.Errorf("fetch ran after %v, before the debounce", elapsed)
	}
	if src.calls() != 1 {
		t.Errorf("%d requests, want 1", src.calls())
	}
}

func TestLoadTotal(t *testing.T) {
	src := &fakeSource{total: 120}
	l := New(src, deck.NewCollection())
	if n, err := l.LoadTotal(context.Background()); err != nil || n != 120 {
		t.Fatalf("LoadTotal = %d, %v", n, err)
	}
	src.totErr = errors.New("down")
	if n, err := l.LoadTotal(context.Background()); err == nil || n != 120 {
		t.Errorf("failed LoadTotal = %d, %v; want previous value and an error", n, err)
	}
	if st := l.State(); !st.HasMore {
		t.Error("total failure should not touch pagination")
	}
}

func TestBeginBlocksScrollUntilLoad(t *testing.T) {
	src := &fakeSource{pages: [][]types.Question{questions(1, 2)}}
	timers := &manualTimers{}
	l := New(src, deck.NewCollection(), WithAfterFunc(timers.afterFunc))

	l.Begin()
	if !l.State().Loading {
		t.Fatal("Begin should set Loading")
	}
	if l.OnScroll(context.Background(), 0, nil) != nil {
		t.Error("scroll during the first fetch should not schedule")
	}
	if err := l.Load(context.Background(), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.State().Loading {
		t.Error("Load should clear Loading")
	}
	if l.OnScroll(context.Background(), 0, nil) == nil {
		t.Error("scroll after the first fetch should schedule")
	}
}

func TestReset(t *testing.T) {
	l := New(&fakeSource{}, deck.NewCollection())
	l.hasMore = false
	l.loading = true
	l.Reset()
	if st := l.State(); !st.HasMore || st.Loading {
		t.Errorf("Reset state = %+v", st)
	}
}
