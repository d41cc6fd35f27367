package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// Febbox queries the fed-subs mirror of Febbox captions.
type Febbox struct {
	client
}

func NewFebbox(cfg ClientConfig) Febbox {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://fed-subs.pstream.mov"
	}
	return Febbox{client: newClient(cfg)}
}

func (Febbox) Name() string { return "febbox" }

func (f Febbox) Captions(ctx context.Context, m Media) ([]Caption, error) {
	u := fmt.Sprintf("%s/movie/%s", f.base, m.IMDbID)
	if m.episodic() {
		u = fmt.Sprintf("%s/tv/%s/s%d/e%d", f.base, m.IMDbID, m.Season, m.Episode)
	}

	byts, err := f.get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(byts) {
		return nil, fmt.Errorf("febbox response is not json")
	}

	if apiErr := gjson.GetBytes(byts, "error"); truthy(apiErr) {
		slog.InfoContext(ctx, "febbox returned an error", "error", apiErr.String())
		return []Caption{}, nil
	}

	subs := gjson.GetBytes(byts, "subtitles")
	if !subs.IsObject() {
		return []Caption{}, nil
	}

	captions := []Caption{}
	// ForEach walks the object in document order.
	subs.ForEach(func(lang, sub gjson.Result) bool {
		link := sub.Get("subtitle_link").String()
		if !sub.IsObject() || link == "" {
			return true
		}

		captions = append(captions, Caption{
			ID:            link,
			Language:      LanguageCode(lang.String()),
			URL:           link,
			Type:          typeFromExtension(link),
			OpenSubtitles: true,
			Display:       sub.Get("subtitle_name").String(),
			Source:        "febbox",
		})
		return true
	})

	return captions, nil
}

func typeFromExtension(link string) string {
	ext := strings.ToLower(link[strings.LastIndex(link, ".")+1:])
	switch ext {
	case "vtt", "sub":
		return ext
	default:
		return "srt"
	}
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	default:
		return false
	}
}
