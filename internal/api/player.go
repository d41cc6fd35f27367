package api

import (
	"net/http"

	debugv1 "github.com/jdholdren/herald/api/debug/v1"
	subtitlesv1 "github.com/jdholdren/herald/api/subtitles/v1"
	"github.com/jdholdren/herald/internal/debuginfo"
	"github.com/jdholdren/herald/internal/serverutil"
	"github.com/jdholdren/herald/internal/subtitles"
)

func (s *Server) getSubtitles(w http.ResponseWriter, r *http.Request) error {
	req, err := subtitlesv1.ParseSearchRequest(r.URL.Query())
	if err != nil {
		return err
	}

	captions := s.subtitles.Scrape(r.Context(), subtitles.Media{
		IMDbID:  req.IMDbID,
		TMDbID:  req.TMDbID,
		Season:  req.Season,
		Episode: req.Episode,
	})

	return serverutil.WriteJSON(w, http.StatusOK, subtitlesv1.SearchResponse{Captions: captions})
}

func (s *Server) postDebugReport(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[debugv1.CreateReportRequest](r.Body)
	if err != nil {
		return err
	}

	report := debuginfo.Gather(body.Report, r.UserAgent(), s.now())
	return serverutil.WriteJSON(w, http.StatusCreated, debugv1.CreateReportResponse{
		Report: report,
		Text:   debuginfo.Format(report),
	})
}
