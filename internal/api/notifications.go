package api

import (
	"errors"
	"net/http"
	"time"

	v1 "github.com/jdholdren/herald/api/notifications/v1"
	"github.com/jdholdren/herald/internal/aggregate"
	herrs "github.com/jdholdren/herald/internal/errors"
	"github.com/jdholdren/herald/internal/herald"
	"github.com/jdholdren/herald/internal/notify"
	"github.com/jdholdren/herald/internal/render"
	"github.com/jdholdren/herald/internal/serverutil"
)

func apiNotification(e notify.Entry) v1.Notification {
	return v1.Notification{
		ID:          e.ID,
		Title:       e.Title,
		Link:        e.Link,
		Description: e.Description,
		PublishedAt: e.PublishedAt,
		Category: v1.Category{
			Name:  e.Category,
			Label: e.Style.Label,
			Color: e.Style.Color,
		},
		Source:  e.Source,
		FeedURL: e.FeedURL,
		Read:    e.Read,
	}
}

func apiList(v notify.View) v1.ListResponse {
	resp := v1.ListResponse{
		Notifications: make([]v1.Notification, 0, len(v.Entries)),
		Unread:        v.Unread,
		Failures:      apiFailures(v.Failures),
	}
	for _, e := range v.Entries {
		resp.Notifications = append(resp.Notifications, apiNotification(e))
	}
	if !v.UpdatedAt.IsZero() {
		resp.UpdatedAt = &v.UpdatedAt
	}

	return resp
}

func apiFailures(failures []aggregate.Failure) []v1.SourceFailure {
	out := make([]v1.SourceFailure, 0, len(failures))
	for _, f := range failures {
		out = append(out, v1.SourceFailure{
			Source:  f.Source.Label,
			FeedURL: f.Source.URL,
			Error:   f.Err.Error(),
		})
	}
	return out
}

// listError turns a failed cycle into a 502 naming each source that failed.
func listError(err error, v notify.View) error {
	if !errors.Is(err, herald.ErrAllSourcesFailed) {
		return toHTTP(err)
	}

	details := make([]herrs.Detail, 0, len(v.Failures))
	for _, f := range v.Failures {
		details = append(details, herrs.Detail{Field: f.Source.URL, Error: f.Err.Error()})
	}
	return toHTTP(err, details...)
}

func (s *Server) getNotifications(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	v, err := s.notifications.View(ctx, profileFrom(ctx))
	if err != nil {
		return listError(err, v)
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiList(v))
}

func (s *Server) postRefresh(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	v, err := s.notifications.Refresh(ctx, profileFrom(ctx))
	if err != nil {
		return listError(err, v)
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiList(v))
}

func (s *Server) getUnreadCount(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	count, err := s.notifications.UnreadCount(ctx, profileFrom(ctx))
	if err != nil {
		return toHTTP(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.UnreadCountResponse{Count: count})
}

// The date is formatted in the zone named by the tz query parameter, UTC by default.
func (s *Server) getNotification(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		return err
	}

	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return herrs.E("invalid request", http.StatusBadRequest, herrs.Detail{Field: "tz", Error: "unknown time zone"})
		}
	}

	entry, err := s.notifications.Detail(ctx, profileFrom(ctx), id)
	if err != nil {
		return toHTTP(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.DetailResponse{
		Notification:    apiNotification(entry),
		DescriptionHTML: render.Description(entry.Description),
		FormattedDate:   render.Date(entry.PublishedAt, loc),
	})
}

func (s *Server) postRead(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		return err
	}

	if err := s.notifications.MarkRead(ctx, profileFrom(ctx), id); err != nil {
		return toHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) postToggleRead(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		return err
	}

	read, err := s.notifications.ToggleRead(ctx, profileFrom(ctx), id)
	if err != nil {
		return toHTTP(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.ToggleReadResponse{ID: id, Read: read})
}

func (s *Server) postMarkAllRead(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := s.notifications.MarkAllRead(ctx, profileFrom(ctx)); err != nil {
		return toHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) postMarkAllUnread(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := s.notifications.MarkAllUnread(ctx, profileFrom(ctx)); err != nil {
		return toHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	settings := s.notifications.Settings(ctx, profileFrom(ctx))
	return serverutil.WriteJSON(w, http.StatusOK, v1.Settings{
		AutoReadDays: settings.AutoReadDays,
		CustomFeeds:  settings.CustomFeeds,
	})
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[v1.Settings](r.Body)
	if err != nil {
		return err
	}
	if body.CustomFeeds == nil {
		body.CustomFeeds = []string{}
	}

	if err := s.notifications.UpdateSettings(ctx, profileFrom(ctx), notify.Settings{
		AutoReadDays: body.AutoReadDays,
		CustomFeeds:  body.CustomFeeds,
	}); err != nil {
		return toHTTP(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, body)
}
