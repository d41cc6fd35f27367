package v1

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	herrs "github.com/jdholdren/herald/internal/errors"
	"github.com/jdholdren/herald/internal/subtitles"
)

type (
	SearchRequest struct {
		IMDbID  string
		TMDbID  string
		Season  int
		Episode int
	}

	SearchResponse struct {
		Captions []subtitles.Caption `json:"captions"`
	}
)

// ParseSearchRequest reads the search from query parameters.
func ParseSearchRequest(q url.Values) (SearchRequest, error) {
	var (
		req = SearchRequest{
			IMDbID: strings.TrimSpace(q.Get("imdb_id")),
			TMDbID: strings.TrimSpace(q.Get("tmdb_id")),
		}
		errs []herrs.Detail
	)

	number := func(field string) int {
		raw := q.Get(field)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, herrs.Detail{Field: field, Error: "must be a positive integer"})
			return 0
		}
		return n
	}
	req.Season = number("season")
	req.Episode = number("episode")

	if len(errs) > 0 {
		return req, herrs.E("invalid request", http.StatusBadRequest, errs)
	}
	return req, req.Validate()
}

func (r SearchRequest) Validate() error {
	var errs []herrs.Detail
	if r.IMDbID != "" && !strings.HasPrefix(r.IMDbID, "tt") {
		errs = append(errs, herrs.Detail{Field: "imdb_id", Error: "must start with tt"})
	}
	if (r.Season == 0) != (r.Episode == 0) {
		errs = append(errs, herrs.Detail{Field: "episode", Error: "season and episode go together"})
	}
	if len(errs) > 0 {
		return herrs.E("invalid request", http.StatusBadRequest, errs)
	}

	return nil
}
