// Package pager loads the question catalogue page by page for the
// management view, driven by scroll events.
package pager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kartubicara/internal/deck"
	"kartubicara/internal/types"
)

const (
	PageSize = 10
	// ScrollThreshold is the distance to the bottom of the list, in pixels,
	// at which the next page is requested.
	ScrollThreshold = 100
	Debounce        = time.Second
)

// ErrStale is returned when a page arrived after its guard stopped holding.
var ErrStale = errors.New("page discarded: session moved on")

// Source is the remote side of the catalogue.
type Source interface {
	LoadQuestions(ctx context.Context, lastID *int, limit int) ([]types.Question, error)
	TotalQuestions(ctx context.Context) (int, error)
}

// Guard reports whether a result may still be applied. A nil Guard always
// allows it.
type Guard func() bool

func (g Guard) allows() bool {
	return g == nil || g()
}

// Timer is the part of *time.Timer the loader needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Loader appends catalogue pages to a shared collection. The pending flag
// marks a scheduled but not yet started fetch; loading stays set until the
// fetch finishes. Together they keep scroll bursts down to one request.
type Loader struct {
	src       Source
	items     *deck.Collection
	afterFunc AfterFunc

	mu      sync.Mutex
	hasMore bool
	loading bool
	pending bool
	total   int
}

type Option func(*Loader)

// WithAfterFunc replaces the timer used for debouncing.
func WithAfterFunc(f AfterFunc) Option {
	return func(l *Loader) { l.afterFunc = f }
}

func New(src Source, items *deck.Collection, opts ...Option) *Loader {
	l := &Loader{
		src:       src,
		items:     items,
		afterFunc: realAfterFunc,
		hasMore:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reset prepares the loader for a fresh listing. A fetch that is already
// scheduled still runs; its guard decides whether it lands.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.hasMore = true
	l.loading = false
	l.mu.Unlock()
}

// State reports the pagination flags and the current cursor.
func (l *Loader) State() types.PaginationState {
	l.mu.Lock()
	s := types.PaginationState{HasMore: l.hasMore, Loading: l.loading}
	l.mu.Unlock()
	s.LastSeenID = l.items.LastID()
	return s
}

// Pending reports whether a debounced fetch is scheduled but not started.
func (l *Loader) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

func (l *Loader) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Begin marks a fetch that is started directly rather than through
// OnScroll, so scroll events wait for it. The following Load clears it.
func (l *Loader) Begin() {
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()
}

// Load fetches the page after the last held question and appends it. The
// cursor is read before the request goes out. Errors are logged and leave
// everything but the loading flag untouched.
func (l *Loader) Load(ctx context.Context, guard Guard) error {
	logger := zerolog.Ctx(ctx)
	cursor := l.items.LastID()

	page, err := l.src.LoadQuestions(ctx, cursor, PageSize)
	apply := err == nil && guard.allows()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false

	if err != nil {
		logger.Warn().Err(err).Msg("Error loading questions")
		return err
	}
	if !apply {
		logger.Info().Int("page", len(page)).Msg("Discarding stale question page")
		return ErrStale
	}
	l.items.Append(page...)
	l.hasMore = len(page) > 0
	logger.Debug().Int("page", len(page)).Bool("has_more", l.hasMore).Msg("Loaded question page")
	return nil
}

// OnScroll handles a scroll event that left distance pixels below the
// viewport. When the list is near its end and nothing is loading, it marks
// the loader busy right away and schedules one Load after Debounce. The
// returned channel closes when that Load has finished; it is nil when the
// event did not schedule anything.
func (l *Loader) OnScroll(ctx context.Context, distance int, guard Guard) <-chan struct{} {
	if distance > ScrollThreshold {
		return nil
	}

	l.mu.Lock()
	if l.pending || l.loading || !l.hasMore {
		l.mu.Unlock()
		return nil
	}
	l.loading = true
	l.pending = true
	l.mu.Unlock()

	// The fetch outlives the request that scheduled it.
	ctx = context.WithoutCancel(ctx)
	done := make(chan struct{})
	l.afterFunc(Debounce, func() {
		defer close(done)
		l.mu.Lock()
		l.pending = false
		l.mu.Unlock()
		_ = l.Load(ctx, guard)
	})
	return done
}

// LoadTotal refreshes the total question count. Failures are logged and
// keep the previous value.
func (l *Loader) LoadTotal(ctx context.Context) (int, error) {
	total, err := l.src.TotalQuestions(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Error loading total questions")
		return l.Total(), err
	}
	l.mu.Lock()
	l.total = total
	l.mu.Unlock()
	return total, nil
}
