package feeds

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/mmcdole/gofeed"

	"github.com/jdholdren/herald/internal/herald"
)

// Candidates are the records of one parsed document, yielded lazily.
type Candidates struct {
	src      Source
	items    []*gofeed.Item
	consumed atomic.Bool
}

// Parse reads RSS or Atom markup. It fails with herald.ErrParse when the
// document is not a feed or holds no items at all.
func Parse(src Source, markup string) (*Candidates, error) {
	// Parsers carry state between calls, so each document gets its own.
	feed, err := gofeed.NewParser().ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", herald.ErrParse, err)
	}
	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("%w: feed has no items", herald.ErrParse)
	}

	return &Candidates{src: src, items: feed.Items}, nil
}

// Len is the number of items in the document, valid or not.
func (c *Candidates) Len() int {
	return len(c.items)
}

// All yields the usable records in document order. It can be ranged over
// once; later ranges yield nothing.
func (c *Candidates) All() iter.Seq[herald.Notification] {
	return func(yield func(herald.Notification) bool) {
		if c.consumed.Swap(true) {
			return
		}

		for i, item := range c.items {
			n, ok := c.notification(item)
			if !ok {
				slog.Debug("skipping feed item without id or title", "feed_url", c.src.URL, "index", i)
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

func (c *Candidates) notification(item *gofeed.Item) (herald.Notification, bool) {
	if item == nil {
		return herald.Notification{}, false
	}

	var (
		id    = strings.TrimSpace(item.GUID)
		title = strings.TrimSpace(item.Title)
	)
	if id == "" || title == "" {
		return herald.Notification{}, false
	}

	desc := item.Description
	if desc == "" {
		desc = item.Content
	}
	published := item.Published
	if published == "" {
		published = item.Updated
	}
	var category string
	if len(item.Categories) > 0 {
		category = item.Categories[0]
	}

	return herald.Notification{
		ID:          id,
		Title:       title,
		Link:        item.Link,
		Description: desc,
		PublishedAt: strings.TrimSpace(published),
		Category:    strings.TrimSpace(category),
		Source:      c.src.Label,
		FeedURL:     c.src.URL,
	}, true
}
