package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Wyzie searches sub.wyzie.ru, which itself aggregates several sources.
type Wyzie struct {
	client
}

func NewWyzie(cfg ClientConfig) Wyzie {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://sub.wyzie.ru"
	}
	return Wyzie{client: newClient(cfg)}
}

func (Wyzie) Name() string { return "wyzie" }

type wyzieSubtitle struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Format            string `json:"format"`
	Encoding          string `json:"encoding"`
	Display           string `json:"display"`
	Language          string `json:"language"`
	Media             string `json:"media"`
	IsHearingImpaired bool   `json:"isHearingImpaired"`
	Source            any    `json:"source"`
}

func (w Wyzie) Captions(ctx context.Context, m Media) ([]Caption, error) {
	q := url.Values{}
	q.Set("encoding", "utf-8")
	q.Set("source", "all")
	q.Set("id", m.IMDbID)
	if m.IMDbID == "" && m.TMDbID != "" {
		q.Set("id", m.TMDbID)
	}
	if m.episodic() {
		q.Set("season", strconv.Itoa(m.Season))
		q.Set("episode", strconv.Itoa(m.Episode))
	}

	byts, err := w.get(ctx, w.base+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var subs []wyzieSubtitle
	if err := json.Unmarshal(byts, &subs); err != nil {
		return nil, fmt.Errorf("error decoding wyzie response: %s", err)
	}

	captions := make([]Caption, 0, len(subs))
	for _, sub := range subs {
		typ := sub.Format
		if typ != "srt" && typ != "vtt" {
			typ = "srt"
		}
		var source string
		if sub.Source != nil {
			source = fmt.Sprint(sub.Source)
		}
		if source == "opensubtitles" {
			source = "opensubs"
		}

		captions = append(captions, Caption{
			ID:              sub.ID,
			Language:        sub.Language,
			URL:             sub.URL,
			Type:            typ,
			OpenSubtitles:   true,
			Display:         sub.Display,
			Media:           sub.Media,
			HearingImpaired: sub.IsHearingImpaired,
			Source:          "wyzie " + source,
			Encoding:        sub.Encoding,
		})
	}

	return captions, nil
}
