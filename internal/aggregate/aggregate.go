// Package aggregate runs one fetch cycle across every feed source.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jdholdren/herald/internal/fanout"
	"github.com/jdholdren/herald/internal/feeds"
	"github.com/jdholdren/herald/internal/herald"
	"github.com/jdholdren/herald/internal/logger"
)

// Fetcher returns the raw markup of one feed.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}

type (
	// Cycle is what one aggregation pass produced.
	Cycle struct {
		Notifications []herald.Notification
		// AutoRead are the ids old enough to be acknowledged without being opened.
		AutoRead    []string
		Failures    []Failure
		Sources     int
		StartedAt   time.Time
		CompletedAt time.Time
	}

	// Failure is a source that contributed nothing to a cycle.
	Failure struct {
		Source feeds.Source
		Err    error
	}
)

// IDs returns the ids of every notification in the cycle.
func (c Cycle) IDs() []string {
	ids := make([]string, 0, len(c.Notifications))
	for _, n := range c.Notifications {
		ids = append(ids, n.ID)
	}
	return ids
}

type Aggregator struct {
	fetcher Fetcher
	limit   int
	now     func() time.Time
}

type Option func(*Aggregator)

// WithLimit caps the number of feeds fetched at once.
func WithLimit(n int) Option {
	return func(a *Aggregator) { a.limit = n }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(fetcher Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{fetcher: fetcher, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run fetches and parses every source with a URL concurrently. Sources fail
// on their own; the result is the union of the rest, folded in source order
// with the first occurrence of an id winning. If every source fails the
// returned error wraps herald.ErrAllSourcesFailed.
func (a *Aggregator) Run(ctx context.Context, sources []feeds.Source, horizonDays int) (Cycle, error) {
	active := slices.DeleteFunc(slices.Clone(sources), func(s feeds.Source) bool {
		return strings.TrimSpace(s.URL) == ""
	})

	cycle := Cycle{Sources: len(active), StartedAt: a.now()}

	tasks := make([]fanout.Task[[]herald.Notification], 0, len(active))
	for _, src := range active {
		tasks = append(tasks, func(ctx context.Context) ([]herald.Notification, error) {
			return a.collect(ctx, src)
		})
	}
	results := fanout.Settle(ctx, a.limit, tasks...)

	seen := map[string]bool{}
	for i, res := range results {
		if res.Err != nil {
			slog.WarnContext(ctx, "feed source failed", "feed_url", active[i].URL, "error", res.Err)
			cycle.Failures = append(cycle.Failures, Failure{Source: active[i], Err: res.Err})
			continue
		}
		for _, n := range res.Value {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			cycle.Notifications = append(cycle.Notifications, n)
		}
	}

	cycle.CompletedAt = a.now()
	cycle.AutoRead = AutoReadIDs(cycle.Notifications, horizonDays, cycle.CompletedAt)

	if len(active) > 0 && len(cycle.Failures) == len(active) {
		return cycle, fmt.Errorf("%w: %d of %d sources", herald.ErrAllSourcesFailed, len(cycle.Failures), len(active))
	}

	slog.InfoContext(ctx, "aggregation cycle complete",
		"sources", len(active),
		"failures", len(cycle.Failures),
		"notifications", len(cycle.Notifications),
		"auto_read", len(cycle.AutoRead),
		"duration", cycle.CompletedAt.Sub(cycle.StartedAt),
	)

	return cycle, nil
}

func (a *Aggregator) collect(ctx context.Context, src feeds.Source) ([]herald.Notification, error) {
	ctx = logger.Ctx(ctx, slog.String("feed_url", src.URL))

	markup, err := a.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	candidates, err := feeds.Parse(src, markup)
	if err != nil {
		return nil, err
	}

	records := slices.Collect(candidates.All())
	slog.DebugContext(ctx, "parsed feed", "items", candidates.Len(), "kept", len(records))

	return records, nil
}

// AutoReadIDs returns the ids of records published at or before
// now minus horizonDays. Records whose date does not parse are never included.
func AutoReadIDs(records []herald.Notification, horizonDays int, now time.Time) []string {
	cutoff := now.Add(-time.Duration(horizonDays) * 24 * time.Hour)

	ids := []string{}
	for _, r := range records {
		published, ok := r.Published()
		if !ok {
			continue
		}
		if !published.After(cutoff) {
			ids = append(ids, r.ID)
		}
	}

	return ids
}
