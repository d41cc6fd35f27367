// Package herald holds the domain types shared by the notification center:
// records parsed from feeds, their categories, and the persistence contracts
// that the read-state and feed configuration are stored behind.
package herald

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrInvalid  = errors.New("invalid input")

	// Per-source failures. These never surface past the aggregator on their own.
	ErrFetch  = errors.New("feed fetch failed")
	ErrFormat = errors.New("response is not feed markup")
	ErrParse  = errors.New("feed document could not be parsed")

	// Malformed persisted state. Callers recover with defaults.
	ErrPersistence = errors.New("persisted state is malformed")

	// Every configured source failed during a cycle.
	ErrAllSourcesFailed = errors.New("all feed sources failed")
)

const (
	DefaultAutoReadDays = 14
	MinAutoReadDays     = 1
	MaxAutoReadDays     = 365
)

type (
	// Notification is one record parsed out of a feed.
	Notification struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
		PublishedAt string `json:"published_at"` // As given by the feed, not guaranteed to parse
		Category    string `json:"category"`
		Source      string `json:"source"`
		FeedURL     string `json:"feed_url"`
	}

	// ReadStateStore persists the acknowledged notification ids of a profile.
	ReadStateStore interface {
		LoadAcknowledged(ctx context.Context, profile string) ([]string, error)
		SaveAcknowledged(ctx context.Context, profile string, ids []string) error
	}

	// FeedConfigStore persists the user-controlled feed settings of a profile.
	FeedConfigStore interface {
		LoadCustomFeeds(ctx context.Context, profile string) ([]string, error)
		SaveCustomFeeds(ctx context.Context, profile string, urls []string) error
		LoadAutoReadDays(ctx context.Context, profile string) (int, error)
		SaveAutoReadDays(ctx context.Context, profile string, days int) error
	}

	// GroupOrderStore persists the order bookmark sections are shown in.
	GroupOrderStore interface {
		LoadGroupOrder(ctx context.Context, profile string) ([]string, error)
		SaveGroupOrder(ctx context.Context, profile string, order []string) error
	}
)

// ValidAutoReadDays reports whether days is an accepted auto-read horizon.
func ValidAutoReadDays(days int) bool {
	return days >= MinAutoReadDays && days <= MaxAutoReadDays
}

// Published parses PublishedAt. Feeds use a wide mix of date formats, and
// dates without a zone are read as UTC.
func (n Notification) Published() (time.Time, bool) {
	return ParseDate(n.PublishedAt)
}

// ParseDate parses a feed-provided date string.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
