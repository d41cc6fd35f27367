package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/herald/internal/herald"
	"github.com/jdholdren/herald/internal/memstore"
	"github.com/jdholdren/herald/internal/prefs"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>P-Stream</title>
    <link>https://pstream.example</link>
    <item>
      <guid>rss-guid-1</guid>
      <title>New player controls</title>
      <link>https://pstream.example/changelog/1</link>
      <description>Skip intro is here.</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
      <category>Feature</category>
    </item>
    <item>
      <title>No guid here</title>
      <description>dropped</description>
    </item>
    <item>
      <guid>rss-guid-3</guid>
      <description>no title, dropped</description>
    </item>
    <item>
      <guid>rss-guid-2</guid>
      <title>Scheduled maintenance</title>
      <pubDate>Tue, 02 Jan 2024 12:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Status</title>
  <entry>
    <title>Atom Post One</title>
    <id>atom-id-1</id>
    <link href="https://status.example/atom-1" rel="alternate"/>
    <summary>First Atom post summary</summary>
    <updated>2024-01-01T12:00:00Z</updated>
  </entry>
  <entry>
    <title>Atom Post Two</title>
    <id>atom-id-2</id>
    <content>Second Atom post content body</content>
    <published>2024-01-02T12:00:00Z</published>
  </entry>
</feed>`

const testEmptyFeed = `<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`

func collect(c *Candidates) []herald.Notification {
	return slices.Collect(c.All())
}

func TestParse_RSS(t *testing.T) {
	src := Source{URL: "/notifications.xml", Label: "P-Stream", Builtin: true}

	c, err := Parse(src, testRSSFeed)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	got := collect(c)
	require.Len(t, got, 2)

	assert.Equal(t, herald.Notification{
		ID:          "rss-guid-1",
		Title:       "New player controls",
		Link:        "https://pstream.example/changelog/1",
		Description: "Skip intro is here.",
		PublishedAt: "Mon, 01 Jan 2024 12:00:00 GMT",
		Category:    "Feature",
		Source:      "P-Stream",
		FeedURL:     "/notifications.xml",
	}, got[0])
	assert.Equal(t, "rss-guid-2", got[1].ID)
	assert.Empty(t, got[1].Category)
}

func TestParse_Atom(t *testing.T) {
	c, err := Parse(Source{URL: "https://status.example/atom", Label: "status.example"}, testAtomFeed)
	require.NoError(t, err)

	got := collect(c)
	require.Len(t, got, 2)

	assert.Equal(t, "atom-id-1", got[0].ID)
	assert.Equal(t, "https://status.example/atom-1", got[0].Link)
	assert.Equal(t, "First Atom post summary", got[0].Description)
	assert.Equal(t, "2024-01-01T12:00:00Z", got[0].PublishedAt)

	assert.Equal(t, "Second Atom post content body", got[1].Description)
	assert.Equal(t, "2024-01-02T12:00:00Z", got[1].PublishedAt)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{name: "not a feed", markup: `<html><body>hello</body></html>`},
		{name: "zero items", markup: testEmptyFeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(Source{}, tt.markup)
			assert.ErrorIs(t, err, herald.ErrParse)
		})
	}
}

func TestCandidatesAreSingleUse(t *testing.T) {
	c, err := Parse(Source{}, testRSSFeed)
	require.NoError(t, err)

	assert.Len(t, collect(c), 2)
	assert.Empty(t, collect(c))
}

func TestCandidatesStopEarly(t *testing.T) {
	c, err := Parse(Source{}, testRSSFeed)
	require.NoError(t, err)

	var seen []string
	for n := range c.All() {
		seen = append(seen, n.ID)
		break
	}
	assert.Equal(t, []string{"rss-guid-1"}, seen)
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "example.com", SourceLabel("https://www.example.com/rss.xml"))
	assert.Equal(t, "blog.example.com", SourceLabel("https://blog.example.com/feed"))
	assert.Equal(t, "Unknown", SourceLabel("not a url"))
	assert.Equal(t, "Unknown", SourceLabel(""))
}

func TestResolverLabel(t *testing.T) {
	r := NewResolver("/notifications.xml", "P-Stream", prefs.New(memstore.New()))

	assert.Equal(t, "P-Stream", r.Label("/notifications.xml"))
	assert.Equal(t, "P-Stream", r.Label(" /notifications.xml "))
	assert.Equal(t, "example.com", r.Label("https://www.example.com/rss.xml"))
	assert.Equal(t, "Unknown", r.Label("/other.xml"))

	ctx := context.Background()
	p := prefs.New(memstore.New())
	require.NoError(t, p.SaveCustomFeeds(ctx, "p", []string{"/notifications.xml"}))

	got := NewResolver("/notifications.xml", "P-Stream", p).Resolve(ctx, "p")
	require.Len(t, got, 2)
	assert.Equal(t, Source{URL: "/notifications.xml", Label: "P-Stream"}, got[1])
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("builtin first then custom in order", func(t *testing.T) {
		p := prefs.New(memstore.New())
		require.NoError(t, p.SaveCustomFeeds(ctx, "p", []string{"https://www.b.example/rss", "", "https://a.example/rss"}))

		got := NewResolver("/notifications.xml", "P-Stream", p).Resolve(ctx, "p")
		assert.Equal(t, []Source{
			{URL: "/notifications.xml", Label: "P-Stream", Builtin: true},
			{URL: "https://www.b.example/rss", Label: "b.example"},
			{URL: "", Label: "Unknown"},
			{URL: "https://a.example/rss", Label: "a.example"},
		}, got)
	})

	t.Run("malformed config is builtin only", func(t *testing.T) {
		kv := memstore.New()
		require.NoError(t, kv.SetValue(ctx, "p", prefs.KeyCustomFeeds, "][["))

		got := NewResolver("/notifications.xml", "P-Stream", prefs.New(kv)).Resolve(ctx, "p")
		assert.Equal(t, []Source{{URL: "/notifications.xml", Label: "P-Stream", Builtin: true}}, got)
	})

	t.Run("unavailable store is builtin only", func(t *testing.T) {
		kv := memstore.New()
		kv.Fail(true)

		got := NewResolver("/notifications.xml", "P-Stream", prefs.New(kv)).Resolve(ctx, "p")
		assert.Len(t, got, 1)
	})
}

func newTestFetcher(t *testing.T, cfg FetcherConfig) *Fetcher {
	t.Helper()
	if cfg.Origin == "" {
		cfg.Origin = "http://localhost"
	}
	cfg.RetryDelay = time.Millisecond

	f, err := NewFetcher(cfg)
	require.NoError(t, err)
	return f
}

func TestFetch_RelativeUsesOrigin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications.xml", r.URL.Path)
		w.Write([]byte(testRSSFeed))
	}))
	defer srv.Close()

	f := newTestFetcher(t, FetcherConfig{Origin: srv.URL, Relay: "http://relay.invalid/get?url="})
	markup, err := f.Fetch(context.Background(), "/notifications.xml")
	require.NoError(t, err)
	assert.Equal(t, testRSSFeed, markup)
}

func TestFetch_AbsoluteGoesThroughRelayEnvelope(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.example.com/feed?x=1", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"contents": testAtomFeed,
			"status":   map[string]any{"http_code": 200},
		})
	}))
	defer relay.Close()

	f := newTestFetcher(t, FetcherConfig{Relay: relay.URL + "/get?url="})
	markup, err := f.Fetch(context.Background(), "https://www.example.com/feed?x=1")
	require.NoError(t, err)
	assert.Equal(t, testAtomFeed, markup)
}

func TestFetch_AbsoluteDirectWithoutRelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSSFeed))
	}))
	defer srv.Close()

	markup, err := newTestFetcher(t, FetcherConfig{}).Fetch(context.Background(), srv.URL+"/rss")
	require.NoError(t, err)
	assert.Contains(t, markup, "<rss")
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "oops", wantErr: herald.ErrFetch},
		{name: "not found", status: http.StatusNotFound, body: "", wantErr: herald.ErrFetch},
		{name: "html page", status: http.StatusOK, body: "<html>nope</html>", wantErr: herald.ErrFormat},
		{name: "envelope without feed", status: http.StatusOK, body: `{"contents": "<html></html>"}`, wantErr: herald.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestFetcher(t, FetcherConfig{}).Fetch(context.Background(), srv.URL)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFetch_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestFetcher(t, FetcherConfig{}).Fetch(context.Background(), url)
	assert.ErrorIs(t, err, herald.ErrFetch)
}

func TestFetch_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(testRSSFeed))
	}))
	defer srv.Close()

	t.Run("no retries by default", func(t *testing.T) {
		calls.Store(0)
		_, err := newTestFetcher(t, FetcherConfig{}).Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, herald.ErrFetch)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("retries recover", func(t *testing.T) {
		calls.Store(0)
		_, err := newTestFetcher(t, FetcherConfig{Retries: 2}).Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.EqualValues(t, 2, calls.Load())
	})
}

func TestUnwrapEnvelope(t *testing.T) {
	assert.Equal(t, "<rss/>", unwrapEnvelope(`{"contents":"<rss/>"}`))
	assert.Equal(t, `{"contents":""}`, unwrapEnvelope(`{"contents":""}`))
	assert.Equal(t, `{"other":1}`, unwrapEnvelope(`{"other":1}`))
	assert.Equal(t, "<rss/>", unwrapEnvelope("<rss/>"))
}
