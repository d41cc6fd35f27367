// Package subtitles looks up external captions for a title across several
// independent providers.
package subtitles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/jdholdren/herald/internal/fanout"
	"github.com/jdholdren/herald/internal/logger"
)

type (
	// Media identifies what captions are wanted for. Season and episode are
	// only used when both are set.
	Media struct {
		IMDbID  string
		TMDbID  string
		Season  int
		Episode int
	}

	Caption struct {
		ID              string `json:"id"`
		Language        string `json:"language"`
		URL             string `json:"url"`
		Type            string `json:"type"`
		NeedsProxy      bool   `json:"needs_proxy"`
		OpenSubtitles   bool   `json:"opensubtitles"`
		Display         string `json:"display,omitempty"`
		Media           string `json:"media,omitempty"`
		HearingImpaired bool   `json:"is_hearing_impaired,omitempty"`
		Source          string `json:"source"`
		Encoding        string `json:"encoding,omitempty"`
	}

	// Provider is one external caption service.
	Provider interface {
		Name() string
		Captions(ctx context.Context, m Media) ([]Caption, error)
	}
)

func (m Media) episodic() bool {
	return m.Season > 0 && m.Episode > 0
}

// Scraper queries every provider at once and concatenates what they return.
type Scraper struct {
	providers []Provider
	cache     *expirable.LRU[Media, []Caption]
}

func NewScraper(ttl time.Duration, providers ...Provider) *Scraper {
	return &Scraper{
		providers: providers,
		cache:     expirable.NewLRU[Media, []Caption](256, nil, ttl),
	}
}

// Scrape returns captions from every provider that answered, in provider
// order. A failing provider contributes nothing. Without an IMDb id there is
// nothing to look up.
func (s *Scraper) Scrape(ctx context.Context, m Media) []Caption {
	if m.IMDbID == "" {
		slog.InfoContext(ctx, "no imdb id for external subtitle scraping")
		return []Caption{}
	}
	if cached, ok := s.cache.Get(m); ok {
		return cached
	}

	tasks := make([]fanout.Task[[]Caption], 0, len(s.providers))
	for _, p := range s.providers {
		tasks = append(tasks, func(ctx context.Context) ([]Caption, error) {
			return p.Captions(logger.Ctx(ctx, slog.String("provider", p.Name())), m)
		})
	}

	var (
		all    = []Caption{}
		failed bool
		counts = make([]any, 0, 2*len(s.providers))
	)
	for i, res := range fanout.Settle(ctx, 0, tasks...) {
		name := s.providers[i].Name()
		if res.Err != nil {
			slog.WarnContext(ctx, "subtitle provider failed", "provider", name, "error", res.Err)
			failed = true
		}
		all = append(all, res.Value...)
		counts = append(counts, name, len(res.Value))
	}
	slog.InfoContext(ctx, "found external captions", append([]any{"total", len(all)}, counts...)...)

	// Partial results are served but not remembered.
	if !failed {
		s.cache.Add(m, all)
	}

	return all
}

// client is the HTTP plumbing the providers share.
type client struct {
	http    *http.Client
	limiter *rate.Limiter
	base    string
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// Limit is the sustained request rate. Zero means unlimited.
	Limit rate.Limit
}

func newClient(cfg ClientConfig) client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Limit == 0 {
		cfg.Limit = rate.Inf
	}

	return client{
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(cfg.Limit, 1),
		base:    cfg.BaseURL,
	}
}

func (c client) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %s", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	byts, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("error reading captions: %s", err)
	}

	return byts, nil
}
