// Package notify is the notification center: it owns one session per profile
// holding the latest aggregation cycle and the profile's read state.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jdholdren/herald/internal/aggregate"
	"github.com/jdholdren/herald/internal/feeds"
	"github.com/jdholdren/herald/internal/herald"
	"github.com/jdholdren/herald/internal/readstate"
)

type (
	Aggregator interface {
		Run(ctx context.Context, sources []feeds.Source, horizonDays int) (aggregate.Cycle, error)
	}

	Resolver interface {
		Resolve(ctx context.Context, profile string) []feeds.Source
	}
)

type (
	// Entry is a notification as the list and detail views show it.
	Entry struct {
		herald.Notification
		Read  bool
		Style herald.CategoryStyle
	}

	View struct {
		Entries   []Entry
		Unread    int
		Failures  []aggregate.Failure
		UpdatedAt time.Time
	}

	Settings struct {
		AutoReadDays int
		CustomFeeds  []string
	}
)

type Service struct {
	agg      Aggregator
	resolver Resolver
	config   herald.FeedConfigStore
	reads    herald.ReadStateStore

	mu       sync.Mutex // guards session creation
	sessions *lru.Cache[string, *session]
}

func NewService(agg Aggregator, resolver Resolver, config herald.FeedConfigStore, reads herald.ReadStateStore, cacheSize int) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	sessions, err := lru.New[string, *session](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("error creating session cache: %s", err)
	}

	return &Service{
		agg:      agg,
		resolver: resolver,
		config:   config,
		reads:    reads,
		sessions: sessions,
	}, nil
}

// session is the in-memory state of one profile.
type session struct {
	reads *readstate.Store

	mu       sync.Mutex
	cycle    *aggregate.Cycle
	cycleErr error
}

func (s *session) latest() (*aggregate.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cycle, s.cycleErr
}

func (s *session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycle, s.cycleErr = nil, nil
}

func (s *Service) session(ctx context.Context, profile string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions.Get(profile); ok {
		return sess
	}

	sess := &session{reads: readstate.Load(ctx, s.reads, profile)}
	s.sessions.Add(profile, sess)
	return sess
}

func (s *Service) current(profile string, sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions.Peek(profile)
	return ok && cur == sess
}

// View returns the notification list, running a cycle if the profile has none yet.
// A total failure returns an error wrapping herald.ErrAllSourcesFailed along
// with an empty view.
func (s *Service) View(ctx context.Context, profile string) (View, error) {
	sess := s.session(ctx, profile)

	cycle, err := sess.latest()
	if cycle == nil {
		cycle, err = s.refresh(ctx, profile, sess)
	}

	return s.view(sess, cycle), err
}

// Refresh always runs a new cycle. Cycles already in flight are left to finish.
func (s *Service) Refresh(ctx context.Context, profile string) (View, error) {
	sess := s.session(ctx, profile)

	cycle, err := s.refresh(ctx, profile, sess)
	return s.view(sess, cycle), err
}

func (s *Service) refresh(ctx context.Context, profile string, sess *session) (*aggregate.Cycle, error) {
	var (
		sources = s.resolver.Resolve(ctx, profile)
		days    = s.autoReadDays(ctx, profile)
		epoch   = sess.reads.Epoch()
	)

	// A client hanging up must not turn the cycle into a cached failure. The
	// fetcher's timeout still bounds it.
	ctx = context.WithoutCancel(ctx)

	cycle, err := s.agg.Run(ctx, sources, days)
	if err != nil && !errors.Is(err, herald.ErrAllSourcesFailed) {
		return nil, err
	}

	// The session was evicted while the cycle ran. Its read state may be stale
	// next to the profile's new session, so nothing is recorded on it.
	if !s.current(profile, sess) {
		slog.DebugContext(ctx, "dropping cycle of an evicted session")
		return &cycle, err
	}

	// Whichever cycle completes last is the one shown.
	sess.mu.Lock()
	sess.cycle, sess.cycleErr = &cycle, err
	sess.mu.Unlock()

	if err != nil {
		return &cycle, err
	}

	if added, err := sess.reads.Merge(ctx, cycle.AutoRead, epoch); err != nil {
		slog.WarnContext(ctx, "error merging auto-read ids", "error", err)
	} else if added > 0 {
		slog.InfoContext(ctx, "auto-marked notifications read", "count", added, "horizon_days", days)
	}

	return &cycle, nil
}

func (s *Service) view(sess *session, cycle *aggregate.Cycle) View {
	v := View{Entries: []Entry{}}
	if cycle == nil {
		return v
	}

	v.Failures = cycle.Failures
	v.UpdatedAt = cycle.CompletedAt
	for _, n := range cycle.Notifications {
		read := sess.reads.IsRead(n.ID)
		if !read {
			v.Unread++
		}
		v.Entries = append(v.Entries, Entry{Notification: n, Read: read, Style: herald.StyleFor(n.Category)})
	}
	SortNewestFirst(v.Entries)

	return v
}

// SortNewestFirst orders entries by publish date, newest first. Entries whose
// date does not parse go last and keep their relative order.
func SortNewestFirst(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		at, aok := a.Published()
		bt, bok := b.Published()
		switch {
		case aok && bok:
			return bt.Compare(at)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})
}

// Detail returns one notification and marks it read.
func (s *Service) Detail(ctx context.Context, profile, id string) (Entry, error) {
	v, err := s.View(ctx, profile)
	if err != nil {
		return Entry{}, err
	}

	idx := slices.IndexFunc(v.Entries, func(e Entry) bool { return e.ID == id })
	if idx < 0 {
		return Entry{}, fmt.Errorf("notification %q: %w", id, herald.ErrNotFound)
	}

	entry := v.Entries[idx]
	if !entry.Read {
		if err := s.session(ctx, profile).reads.MarkRead(ctx, id); err != nil {
			return Entry{}, err
		}
		entry.Read = true
	}

	return entry, nil
}

func (s *Service) MarkRead(ctx context.Context, profile, id string) error {
	return s.session(ctx, profile).reads.MarkRead(ctx, id)
}

// ToggleRead flips one notification and reports whether it is now read.
func (s *Service) ToggleRead(ctx context.Context, profile, id string) (bool, error) {
	return s.session(ctx, profile).reads.Toggle(ctx, id)
}

// MarkAllRead acknowledges exactly the notifications of the current cycle.
func (s *Service) MarkAllRead(ctx context.Context, profile string) error {
	sess := s.session(ctx, profile)

	cycle, _ := sess.latest()
	if cycle == nil {
		var err error
		if cycle, err = s.refresh(ctx, profile, sess); cycle == nil {
			return err
		}
	}

	return sess.reads.MarkAllRead(ctx, cycle.IDs())
}

func (s *Service) MarkAllUnread(ctx context.Context, profile string) error {
	return s.session(ctx, profile).reads.MarkAllUnread(ctx)
}

// UnreadCount is the badge number. It shares the cycle the list view uses,
// and a cycle where every source failed counts as zero.
func (s *Service) UnreadCount(ctx context.Context, profile string) (int, error) {
	v, err := s.View(ctx, profile)
	if err != nil && !errors.Is(err, herald.ErrAllSourcesFailed) {
		return 0, err
	}
	return v.Unread, nil
}

// Settings returns the profile's feed settings, falling back to defaults
// when the stored values are unusable.
func (s *Service) Settings(ctx context.Context, profile string) Settings {
	custom, err := s.config.LoadCustomFeeds(ctx, profile)
	if err != nil {
		slog.WarnContext(ctx, "using no custom feeds", "error", err)
	}
	if custom == nil {
		custom = []string{}
	}

	return Settings{
		AutoReadDays: s.autoReadDays(ctx, profile),
		CustomFeeds:  custom,
	}
}

// UpdateSettings stores new settings. The next view runs a fresh cycle.
func (s *Service) UpdateSettings(ctx context.Context, profile string, settings Settings) error {
	if !herald.ValidAutoReadDays(settings.AutoReadDays) {
		return fmt.Errorf("%w: auto-read days must be between %d and %d", herald.ErrInvalid, herald.MinAutoReadDays, herald.MaxAutoReadDays)
	}

	if err := s.config.SaveAutoReadDays(ctx, profile, settings.AutoReadDays); err != nil {
		return err
	}
	if err := s.config.SaveCustomFeeds(ctx, profile, settings.CustomFeeds); err != nil {
		return err
	}
	s.session(ctx, profile).invalidate()

	return nil
}

func (s *Service) autoReadDays(ctx context.Context, profile string) int {
	days, err := s.config.LoadAutoReadDays(ctx, profile)
	if err != nil {
		slog.WarnContext(ctx, "using default auto-read horizon", "error", err)
	}
	return days
}
