package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/herald/internal/aggregate"
	"github.com/jdholdren/herald/internal/feeds"
	"github.com/jdholdren/herald/internal/herald"
	"github.com/jdholdren/herald/internal/memstore"
	"github.com/jdholdren/herald/internal/prefs"
)

const profile = "profile-1"

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return testNow.Add(-time.Duration(n) * 24 * time.Hour).Format(time.RFC1123Z)
}

// feedServer serves RSS documents by path. Paths mapped to an empty string answer 500.
type feedServer struct {
	mu    sync.Mutex
	docs  map[string]string
	calls atomic.Int32
}

func (f *feedServer) set(path, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = doc
}

func (f *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.mu.Lock()
	doc, ok := f.docs[r.URL.Path]
	f.mu.Unlock()

	if !ok || doc == "" {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(doc))
}

func rss(items ...[3]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for _, it := range items {
		fmt.Fprintf(&b, "<item><guid>%s</guid><title>%s</title><pubDate>%s</pubDate><category>update</category></item>", it[0], it[1], it[2])
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

type fixture struct {
	svc   *Service
	srv   *httptest.Server
	feeds *feedServer
	prefs prefs.Prefs
	kv    *memstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fs := &feedServer{docs: map[string]string{}}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	fetcher, err := feeds.NewFetcher(feeds.FetcherConfig{Origin: srv.URL})
	require.NoError(t, err)

	var (
		kv       = memstore.New()
		p        = prefs.New(kv)
		agg      = aggregate.New(fetcher, aggregate.WithClock(func() time.Time { return testNow }))
		resolver = feeds.NewResolver("/notifications.xml", "P-Stream", p)
	)
	svc, err := NewService(agg, resolver, p, p, 16)
	require.NoError(t, err)

	return &fixture{svc: svc, srv: srv, feeds: fs, prefs: p, kv: kv}
}

func (f *fixture) acknowledged(t *testing.T) []string {
	t.Helper()
	ids, err := f.prefs.LoadAcknowledged(context.Background(), profile)
	require.NoError(t, err)
	return ids
}

func entryIDs(v View) []string {
	ids := []string{}
	for _, e := range v.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestView_AutoReadScenario(t *testing.T) {
	f := newFixture(t)
	f.feeds.set("/notifications.xml", rss(
		[3]string{"a", "A", daysAgo(20)},
		[3]string{"b", "B", daysAgo(5)},
		[3]string{"c", "C", "not a date"},
	))

	v, err := f.svc.View(context.Background(), profile)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, entryIDs(v))
	assert.Equal(t, []string{"a"}, f.acknowledged(t))
	assert.Equal(t, 2, v.Unread)
	assert.True(t, v.Entries[1].Read)
	assert.Equal(t, herald.CategoryStyle{Color: "bg-yellow-500", Label: "Update"}, v.Entries[0].Style)
}

func TestView_PartialFailureIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.feeds.set("/notifications.xml", "") // 500
	f.feeds.set("/custom.xml", rss([3]string{"x", "X", daysAgo(1)}, [3]string{"y", "Y", daysAgo(2)}))
	require.NoError(t, f.prefs.SaveCustomFeeds(context.Background(), profile, []string{f.srv.URL + "/custom.xml"}))

	v, err := f.svc.View(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, entryIDs(v))
	assert.Len(t, v.Failures, 1)
}

func TestView_AllFailedThenRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	v, err := f.svc.View(ctx, profile)
	assert.ErrorIs(t, err, herald.ErrAllSourcesFailed)
	assert.Empty(t, v.Entries)

	// The failure is what the list shows until a retry.
	_, err = f.svc.View(ctx, profile)
	assert.ErrorIs(t, err, herald.ErrAllSourcesFailed)

	count, err := f.svc.UnreadCount(ctx, profile)
	require.NoError(t, err)
	assert.Zero(t, count)

	f.feeds.set("/notifications.xml", rss([3]string{"a", "A", daysAgo(1)}))
	v, err = f.svc.Refresh(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, entryIDs(v))
}

func TestViewReusesCycleForBadge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.feeds.set("/notifications.xml", rss([3]string{"a", "A", daysAgo(1)}))

	_, err := f.svc.View(ctx, profile)
	require.NoError(t, err)
	count, err := f.svc.UnreadCount(ctx, profile)
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.EqualValues(t, 1, f.feeds.calls.Load())
}

func TestView_CancelledRequestDoesNotPoisonSession(t *testing.T) {
	f := newFixture(t)
	f.feeds.set("/notifications.xml", rss([3]string{"a", "A", daysAgo(1)}))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.View(cancelled, profile)
	require.NoError(t, err)

	v, err := f.svc.View(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, entryIDs(v))

	count, err := f.svc.UnreadCount(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.EqualValues(t, 1, f.feeds.calls.Load())
}

// aggregatorFunc adapts a function to the Aggregator interface.
type aggregatorFunc func(ctx context.Context, sources []feeds.Source, horizonDays int) (aggregate.Cycle, error)

func (f aggregatorFunc) Run(ctx context.Context, sources []feeds.Source, horizonDays int) (aggregate.Cycle, error) {
	return f(ctx, sources, horizonDays)
}

func TestEvictedSessionDropsItsCycle(t *testing.T) {
	ctx := context.Background()
	var (
		p        = prefs.New(memstore.New())
		resolver = feeds.NewResolver("/notifications.xml", "P-Stream", p)
		started  = make(chan struct{})
		release  = make(chan struct{})
		calls    atomic.Int32
	)
	agg := aggregatorFunc(func(context.Context, []feeds.Source, int) (aggregate.Cycle, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return aggregate.Cycle{
				Notifications: []herald.Notification{{ID: "old", Title: "Old", PublishedAt: daysAgo(30)}},
				AutoRead:      []string{"old"},
			}, nil
		}
		return aggregate.Cycle{}, nil
	})
	svc, err := NewService(agg, resolver, p, p, 1)
	require.NoError(t, err)

	done := make(chan error)
	go func() {
		_, err := svc.View(ctx, "p1")
		done <- err
	}()
	<-started

	// Evict p1, then give it a new session that records a read.
	_, err = svc.View(ctx, "p2")
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(ctx, "p1", "x"))

	close(release)
	require.NoError(t, <-done)

	ids, err := p.LoadAcknowledged(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids)
}

func TestDetailMarksRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.feeds.set("/notifications.xml", rss([3]string{"a", "A", daysAgo(1)}))

	e, err := f.svc.Detail(ctx, profile, "a")
	require.NoError(t, err)
	assert.True(t, e.Read)
	assert.Equal(t, []string{"a"}, f.acknowledged(t))

	_, err = f.svc.Detail(ctx, profile, "missing")
	assert.ErrorIs(t, err, herald.ErrNotFound)
}

func TestMarkAllReadAndUnread(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.feeds.set("/notifications.xml", rss([3]string{"a", "A", daysAgo(1)}, [3]string{"b", "B", daysAgo(2)}))
	require.NoError(t, f.prefs.SaveAcknowledged(ctx, profile, []string{"gone"}))

	require.NoError(t, f.svc.MarkAllRead(ctx, profile))
	assert.ElementsMatch(t, []string{"a", "b"}, f.acknowledged(t))

	count, err := f.svc.UnreadCount(ctx, profile)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, f.svc.MarkAllUnread(ctx, profile))
	assert.Empty(t, f.acknowledged(t))

	count, err = f.svc.UnreadCount(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestToggleAndMarkRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	read, err := f.svc.ToggleRead(ctx, profile, "a")
	require.NoError(t, err)
	assert.True(t, read)

	require.NoError(t, f.svc.MarkRead(ctx, profile, "a"))
	require.NoError(t, f.svc.MarkRead(ctx, profile, "a"))
	assert.Equal(t, []string{"a"}, f.acknowledged(t))

	read, err = f.svc.ToggleRead(ctx, profile, "a")
	require.NoError(t, err)
	assert.False(t, read)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.Equal(t, Settings{AutoReadDays: 14, CustomFeeds: []string{}}, f.svc.Settings(ctx, profile))

	err := f.svc.UpdateSettings(ctx, profile, Settings{AutoReadDays: 0})
	assert.ErrorIs(t, err, herald.ErrInvalid)

	want := Settings{AutoReadDays: 3, CustomFeeds: []string{"https://a.example/rss", ""}}
	require.NoError(t, f.svc.UpdateSettings(ctx, profile, want))
	assert.Equal(t, want, f.svc.Settings(ctx, profile))
}

func TestSettingsFallBackOnMalformedState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.kv.SetValue(ctx, profile, prefs.KeyAutoReadDays, "abc"))
	require.NoError(t, f.kv.SetValue(ctx, profile, prefs.KeyCustomFeeds, "{"))

	assert.Equal(t, Settings{AutoReadDays: 14, CustomFeeds: []string{}}, f.svc.Settings(ctx, profile))
}

func TestUpdateSettingsRerunsCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.feeds.set("/notifications.xml", rss([3]string{"a", "A", daysAgo(5)}))

	_, err := f.svc.View(ctx, profile)
	require.NoError(t, err)
	assert.Empty(t, f.acknowledged(t))

	// Shrinking the horizon makes "a" old enough on the next cycle.
	require.NoError(t, f.svc.UpdateSettings(ctx, profile, Settings{AutoReadDays: 3}))
	_, err = f.svc.View(ctx, profile)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, f.acknowledged(t))
	assert.EqualValues(t, 2, f.feeds.calls.Load())
}

func TestSortNewestFirst(t *testing.T) {
	entries := []Entry{
		{Notification: herald.Notification{ID: "bad-1", PublishedAt: "?"}},
		{Notification: herald.Notification{ID: "old", PublishedAt: daysAgo(10)}},
		{Notification: herald.Notification{ID: "bad-2"}},
		{Notification: herald.Notification{ID: "new", PublishedAt: daysAgo(1)}},
	}

	SortNewestFirst(entries)

	var got []string
	for _, e := range entries {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"new", "old", "bad-1", "bad-2"}, got)
}
