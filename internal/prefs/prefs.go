// Package prefs stores per-profile preferences as JSON values in a key-value backend.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jdholdren/herald/internal/herald"
)

// Keys the values are stored under.
const (
	KeyReadNotifications = "read-notifications"
	KeyAutoReadDays      = "notification-auto-read-days"
	KeyCustomFeeds       = "notification-custom-feeds"
	KeyGroupOrder        = "bookmark-group-order"
)

// KV is the raw storage a Prefs is layered on.
type KV interface {
	// Value returns the stored value and whether it was present.
	Value(ctx context.Context, profile, key string) (string, bool, error)
	SetValue(ctx context.Context, profile, key, value string) error
}

var (
	_ herald.ReadStateStore  = Prefs{}
	_ herald.FeedConfigStore = Prefs{}
	_ herald.GroupOrderStore = Prefs{}
)

// Prefs implements the herald persistence contracts on top of a KV.
type Prefs struct {
	kv KV
}

func New(kv KV) Prefs {
	return Prefs{kv: kv}
}

// LoadAcknowledged returns the read ids. Absent state is an empty set.
func (p Prefs) LoadAcknowledged(ctx context.Context, profile string) ([]string, error) {
	return p.loadStrings(ctx, profile, KeyReadNotifications)
}

func (p Prefs) SaveAcknowledged(ctx context.Context, profile string, ids []string) error {
	return p.saveJSON(ctx, profile, KeyReadNotifications, nonNil(ids))
}

func (p Prefs) LoadCustomFeeds(ctx context.Context, profile string) ([]string, error) {
	return p.loadStrings(ctx, profile, KeyCustomFeeds)
}

func (p Prefs) SaveCustomFeeds(ctx context.Context, profile string, urls []string) error {
	return p.saveJSON(ctx, profile, KeyCustomFeeds, nonNil(urls))
}

// LoadAutoReadDays returns the auto-read horizon. Absent state is the default.
// Malformed or out of range state returns the default alongside an error
// wrapping herald.ErrPersistence, so callers can log and carry on.
func (p Prefs) LoadAutoReadDays(ctx context.Context, profile string) (int, error) {
	raw, ok, err := p.kv.Value(ctx, profile, KeyAutoReadDays)
	if err != nil {
		return herald.DefaultAutoReadDays, fmt.Errorf("error loading %s: %w", KeyAutoReadDays, err)
	}
	if !ok {
		return herald.DefaultAutoReadDays, nil
	}

	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return herald.DefaultAutoReadDays, fmt.Errorf("%w: %s is %q", herald.ErrPersistence, KeyAutoReadDays, raw)
	}
	if !herald.ValidAutoReadDays(days) {
		return herald.DefaultAutoReadDays, fmt.Errorf("%w: %s out of range: %d", herald.ErrPersistence, KeyAutoReadDays, days)
	}

	return days, nil
}

func (p Prefs) SaveAutoReadDays(ctx context.Context, profile string, days int) error {
	if !herald.ValidAutoReadDays(days) {
		return fmt.Errorf("%w: auto-read days must be between %d and %d", herald.ErrInvalid, herald.MinAutoReadDays, herald.MaxAutoReadDays)
	}
	return p.saveJSON(ctx, profile, KeyAutoReadDays, days)
}

func (p Prefs) LoadGroupOrder(ctx context.Context, profile string) ([]string, error) {
	return p.loadStrings(ctx, profile, KeyGroupOrder)
}

func (p Prefs) SaveGroupOrder(ctx context.Context, profile string, order []string) error {
	return p.saveJSON(ctx, profile, KeyGroupOrder, nonNil(order))
}

func (p Prefs) loadStrings(ctx context.Context, profile, key string) ([]string, error) {
	raw, ok, err := p.kv.Value(ctx, profile, key)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", herald.ErrPersistence, key, err)
	}

	return out, nil
}

func (p Prefs) saveJSON(ctx context.Context, profile, key string, v any) error {
	byts, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding %s: %s", key, err)
	}
	if err := p.kv.SetValue(ctx, profile, key, string(byts)); err != nil {
		return fmt.Errorf("error saving %s: %w", key, err)
	}

	return nil
}

// Stored lists are always arrays, never null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
