package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OpenSubtitles queries the legacy opensubtitles.org REST search.
type OpenSubtitles struct {
	client
}

func NewOpenSubtitles(cfg ClientConfig) OpenSubtitles {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://rest.opensubtitles.org"
	}
	return OpenSubtitles{client: newClient(cfg)}
}

func (OpenSubtitles) Name() string { return "opensubtitles" }

type openSubtitlesResult struct {
	SubDownloadLink string `json:"SubDownloadLink"`
	LanguageName    string `json:"LanguageName"`
	SubFormat       string `json:"SubFormat"`
}

func (o OpenSubtitles) Captions(ctx context.Context, m Media) ([]Caption, error) {
	byts, err := o.get(ctx, o.searchURL(m), http.Header{"X-User-Agent": {"VLSub 0.10.2"}})
	if err != nil {
		return nil, err
	}

	var results []openSubtitlesResult
	if err := json.Unmarshal(byts, &results); err != nil {
		return nil, fmt.Errorf("error decoding opensubtitles response: %s", err)
	}

	captions := make([]Caption, 0, len(results))
	for _, r := range results {
		link := strings.Replace(r.SubDownloadLink, ".gz", "", 1)
		link = strings.Replace(link, "download/", "download/subencoding-utf8/", 1)
		lang := LanguageCode(r.LanguageName)
		if link == "" || lang == "" {
			continue
		}

		typ := r.SubFormat
		if typ == "" {
			typ = "srt"
		}

		captions = append(captions, Caption{
			ID:            link,
			Language:      lang,
			URL:           link,
			Type:          typ,
			OpenSubtitles: true,
			Source:        "opensubs",
		})
	}

	return captions, nil
}

// The search path wants the numeric part of the imdb id, without "tt".
func (o OpenSubtitles) searchURL(m Media) string {
	imdb := m.IMDbID
	if len(imdb) >= 2 {
		imdb = imdb[2:]
	}

	if m.episodic() {
		return fmt.Sprintf("%s/search/episode-%d/imdbid-%s/season-%d", o.base, m.Episode, imdb, m.Season)
	}
	return fmt.Sprintf("%s/search/imdbid-%s", o.base, imdb)
}
