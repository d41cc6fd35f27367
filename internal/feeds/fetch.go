package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"github.com/jdholdren/herald/internal/herald"
)

const maxFeedBytes = 5 << 20

type FetcherConfig struct {
	// Origin resolves relative feed paths.
	Origin string
	// Relay is prefixed to the escaped URL of every absolute feed when set.
	Relay   string
	Timeout time.Duration
	// Retries is how many extra attempts a failed request gets.
	Retries    uint64
	RetryDelay time.Duration
}

// Fetcher retrieves raw feed markup.
type Fetcher struct {
	client     *http.Client
	origin     *url.URL
	relay      string
	retries    uint64
	retryDelay time.Duration
}

func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("error parsing origin: %s", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	return &Fetcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		origin:     origin,
		relay:      cfg.Relay,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Fetch returns the markup behind feedURL. It fails with herald.ErrFetch on
// network or status failures and herald.ErrFormat when the body holds no feed.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	target, err := f.target(feedURL)
	if err != nil {
		return "", err
	}

	var body string
	backoff := retry.WithMaxRetries(f.retries, retry.NewConstant(f.retryDelay))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := f.get(ctx, target)
		if errors.Is(err, herald.ErrFetch) {
			return retry.RetryableError(err)
		}
		body = b
		return err
	}); err != nil {
		return "", err
	}

	markup := unwrapEnvelope(body)
	if !strings.Contains(markup, "<rss") && !strings.Contains(markup, "<feed") {
		return "", fmt.Errorf("%w: %s", herald.ErrFormat, feedURL)
	}

	return markup, nil
}

// Relative paths are same-origin. Absolute URLs go through the relay when one is set.
func (f *Fetcher) target(feedURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil {
		return "", fmt.Errorf("%w: bad url %q: %s", herald.ErrFetch, feedURL, err)
	}
	if !u.IsAbs() {
		return f.origin.ResolveReference(u).String(), nil
	}
	if f.relay != "" {
		return f.relay + url.QueryEscape(u.String()), nil
	}

	return u.String(), nil
}

func (f *Fetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: error building request: %s", herald.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, application/json;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", herald.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status code: %d", herald.ErrFetch, resp.StatusCode)
	}

	byts, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", fmt.Errorf("%w: error reading body: %s", herald.ErrFetch, err)
	}
	slog.DebugContext(ctx, "fetched feed", "url", target, "bytes", len(byts))

	return string(byts), nil
}

// The relay answers with {"contents": "<rss ..."}. Anything else is the markup itself.
func unwrapEnvelope(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return body
	}

	contents := gjson.Get(trimmed, "contents")
	if contents.Type != gjson.String || contents.Str == "" {
		return body
	}

	return contents.Str
}
