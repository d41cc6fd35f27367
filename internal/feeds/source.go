// Package feeds resolves, fetches and parses the feeds notifications come from.
package feeds

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jdholdren/herald/internal/herald"
)

// Source is one feed endpoint to aggregate.
type Source struct {
	URL     string `json:"url"`
	Label   string `json:"label"`
	Builtin bool   `json:"builtin"`
}

// Resolver produces the ordered source list for a profile.
type Resolver struct {
	builtin Source
	config  herald.FeedConfigStore
}

func NewResolver(builtinURL, builtinLabel string, config herald.FeedConfigStore) Resolver {
	return Resolver{
		builtin: Source{URL: builtinURL, Label: builtinLabel, Builtin: true},
		config:  config,
	}
}

// Resolve returns the built-in source followed by the profile's custom feeds
// in stored order. Entries may have empty URLs. It never fails: unreadable
// configuration resolves to the built-in source alone.
func (r Resolver) Resolve(ctx context.Context, profile string) []Source {
	sources := []Source{r.builtin}

	custom, err := r.config.LoadCustomFeeds(ctx, profile)
	if err != nil {
		slog.WarnContext(ctx, "ignoring custom feed config", "error", err)
		return sources
	}

	for _, u := range custom {
		sources = append(sources, Source{URL: u, Label: r.Label(u)})
	}

	return sources
}

// Label names a feed. A custom entry repeating the built-in URL keeps the
// built-in label.
func (r Resolver) Label(feedURL string) string {
	if strings.TrimSpace(feedURL) == r.builtin.URL {
		return r.builtin.Label
	}
	return SourceLabel(feedURL)
}

// SourceLabel names a custom feed by its host, without a leading "www.".
func SourceLabel(feedURL string) string {
	u, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}

	return strings.Replace(u.Hostname(), "www.", "", 1)
}
