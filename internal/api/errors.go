package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	herrs "github.com/jdholdren/herald/internal/errors"
	"github.com/jdholdren/herald/internal/herald"
)

const refreshRoute = "POST /api/notifications:refresh"

// toHTTP gives domain errors their status code. Anything else passes through.
func toHTTP(err error, details ...herrs.Detail) error {
	if err == nil {
		return nil
	}

	var hErr *herrs.Error
	if errors.As(err, &hErr) {
		return hErr
	}

	switch {
	case errors.Is(err, herald.ErrNotFound):
		return herrs.E(err, http.StatusNotFound, details)
	case errors.Is(err, herald.ErrInvalid):
		return herrs.E(err, http.StatusBadRequest, details)
	case errors.Is(err, herald.ErrAllSourcesFailed):
		slog.Warn("notifications unavailable", "error", err)
		retry := herrs.Detail{Field: "retry", Error: refreshRoute}
		return herrs.E("failed to load notifications", http.StatusBadGateway, append([]herrs.Detail{retry}, details...))
	default:
		// Left unstructured so the handler masks it as a plain 500.
		return err
	}
}

func pathID(r *http.Request) (string, error) {
	id, err := url.PathUnescape(mux.Vars(r)["id"])
	if err != nil || id == "" {
		return "", herrs.E("invalid notification id", http.StatusBadRequest, herrs.Detail{Field: "id", Error: "must be a path-escaped id"})
	}
	return id, nil
}
