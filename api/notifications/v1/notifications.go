// Package v1 holds the wire types of the notification center routes.
package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	herrs "github.com/jdholdren/herald/internal/errors"
	"github.com/jdholdren/herald/internal/herald"
)

type (
	Category struct {
		Name  string `json:"name"`
		Label string `json:"label"`
		Color string `json:"color"`
	}

	Notification struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Link        string   `json:"link"`
		Description string   `json:"description"`
		PublishedAt string   `json:"published_at"`
		Category    Category `json:"category"`
		Source      string   `json:"source"`
		FeedURL     string   `json:"feed_url"`
		Read        bool     `json:"read"`
	}

	// SourceFailure is a feed that could not be read during the last refresh.
	SourceFailure struct {
		Source  string `json:"source"`
		FeedURL string `json:"feed_url"`
		Error   string `json:"error"`
	}

	ListResponse struct {
		Notifications []Notification  `json:"notifications"`
		Unread        int             `json:"unread"`
		Failures      []SourceFailure `json:"failures"`
		UpdatedAt     *time.Time      `json:"updated_at"`
	}

	// DetailResponse carries the description rendered for display.
	DetailResponse struct {
		Notification
		DescriptionHTML string `json:"description_html"`
		FormattedDate   string `json:"formatted_date"`
	}

	UnreadCountResponse struct {
		Count int `json:"count"`
	}

	ToggleReadResponse struct {
		ID   string `json:"id"`
		Read bool   `json:"read"`
	}

	Settings struct {
		AutoReadDays int      `json:"auto_read_days"`
		CustomFeeds  []string `json:"custom_feeds"`
	}
)

// Validate checks the bounds and that every non-blank custom feed is an
// http(s) URL.
func (s Settings) Validate() error {
	var errs []herrs.Detail
	if !herald.ValidAutoReadDays(s.AutoReadDays) {
		errs = append(errs, herrs.Detail{
			Field: "auto_read_days",
			Error: fmt.Sprintf("must be between %d and %d", herald.MinAutoReadDays, herald.MaxAutoReadDays),
		})
	}
	for i, raw := range s.CustomFeeds {
		// Blank entries are feeds still being typed in. Fetching skips them.
		if strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, herrs.Detail{
				Field: fmt.Sprintf("custom_feeds[%d]", i),
				Error: "must be an http or https url",
			})
		}
	}
	if len(errs) > 0 {
		return herrs.E("invalid request", http.StatusBadRequest, errs)
	}

	return nil
}
