package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jdholdren/herald/internal/logger"
)

const (
	profileCookieName = "herald_profile"
	profileCookieAge  = 365 * 24 * time.Hour
)

type profileKey struct{}

// Describes what's persisted to the profile cookie.
type profileState struct {
	ProfileID string
}

// Fetches the profile tied to the request, if the cookie is present and intact.
func (s *Server) decodeProfile(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(profileCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "error fetching cookie", "error", err)
		return "", false
	}

	var state profileState
	if err := s.secureCookie.Decode(profileCookieName, cookie.Value, &state); err != nil {
		slog.WarnContext(r.Context(), "error decoding profile cookie", "error", err)
		return "", false
	}

	return state.ProfileID, state.ProfileID != ""
}

func (s *Server) setProfile(w http.ResponseWriter, r *http.Request, profile string) {
	encoded, err := s.secureCookie.Encode(profileCookieName, profileState{ProfileID: profile})
	if err != nil {
		slog.ErrorContext(r.Context(), "error encoding cookie", "error", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     profileCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(profileCookieAge.Seconds()),
		Secure:   s.httpsCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// profileMiddleware makes sure every request belongs to a profile, issuing a
// fresh one to clients that come without.
func (s *Server) profileMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, ok := s.decodeProfile(r)
		if !ok {
			profile = uuid.NewString()
			s.setProfile(w, r, profile)
			slog.InfoContext(r.Context(), "issued new profile", "profile", profile)
		}

		ctx := context.WithValue(r.Context(), profileKey{}, profile)
		ctx = logger.Ctx(ctx, slog.String("profile", profile))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func profileFrom(ctx context.Context) string {
	profile, _ := ctx.Value(profileKey{}).(string)
	return profile
}
