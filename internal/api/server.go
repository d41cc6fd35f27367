// Package api is the HTTP surface of the notification center and the small
// helpers the player and bookmarks pages lean on.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"

	"github.com/jdholdren/herald/internal/herald"
	"github.com/jdholdren/herald/internal/notify"
	"github.com/jdholdren/herald/internal/serverutil"
	"github.com/jdholdren/herald/internal/subtitles"
)

type (
	Notifications interface {
		View(ctx context.Context, profile string) (notify.View, error)
		Refresh(ctx context.Context, profile string) (notify.View, error)
		Detail(ctx context.Context, profile, id string) (notify.Entry, error)
		MarkRead(ctx context.Context, profile, id string) error
		ToggleRead(ctx context.Context, profile, id string) (bool, error)
		MarkAllRead(ctx context.Context, profile string) error
		MarkAllUnread(ctx context.Context, profile string) error
		UnreadCount(ctx context.Context, profile string) (int, error)
		Settings(ctx context.Context, profile string) notify.Settings
		UpdateSettings(ctx context.Context, profile string, settings notify.Settings) error
	}

	Subtitles interface {
		Scrape(ctx context.Context, m subtitles.Media) []subtitles.Caption
	}
)

type (
	// Server serves the notification center and its neighbors.
	Server struct {
		*http.Server

		notifications Notifications
		subtitles     Subtitles
		groupOrder    herald.GroupOrderStore

		secureCookie *securecookie.SecureCookie
		httpsCookies bool
		now          func() time.Time
	}

	ServerConfig struct {
		Port           int
		CookieHashKey  []byte
		CookieBlockKey []byte
		HTTPSCookies   bool
		CorsOrigin     string
	}
)

func NewServer(config ServerConfig, notifications Notifications, subs Subtitles, groupOrder herald.GroupOrderStore) *Server {
	// Notification ids are often URLs themselves, so they arrive escaped.
	r := serverutil.ErrRouter{Router: mux.NewRouter().UseEncodedPath()}

	srvr := &Server{
		notifications: notifications,
		subtitles:     subs,
		groupOrder:    groupOrder,
		secureCookie:  securecookie.New(config.CookieHashKey, config.CookieBlockKey),
		httpsCookies:  config.HTTPSCookies,
		now:           time.Now,
		Server: &http.Server{
			Addr:        fmt.Sprintf(":%d", config.Port),
			ReadTimeout: 5 * time.Second,
			// Refreshing waits on every feed.
			WriteTimeout: 30 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsOrigin}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(srvr.profileMiddleware) // Every route is per profile
	r.Use(serverutil.AccessLogMiddleware)

	// Notification center
	r.HandleFuncE("/api/notifications", srvr.getNotifications).Methods(http.MethodGet)
	r.HandleFuncE("/api/notifications:refresh", srvr.postRefresh).Methods(http.MethodPost)
	r.HandleFuncE("/api/notifications:mark-all-read", srvr.postMarkAllRead).Methods(http.MethodPost)
	r.HandleFuncE("/api/notifications:mark-all-unread", srvr.postMarkAllUnread).Methods(http.MethodPost)
	r.HandleFuncE("/api/notifications/unread-count", srvr.getUnreadCount).Methods(http.MethodGet)
	r.HandleFuncE("/api/notifications/{id}:read", srvr.postRead).Methods(http.MethodPost)
	r.HandleFuncE("/api/notifications/{id}:toggle-read", srvr.postToggleRead).Methods(http.MethodPost)
	r.HandleFuncE("/api/notifications/{id}", srvr.getNotification).Methods(http.MethodGet)
	r.HandleFuncE("/api/settings", srvr.getSettings).Methods(http.MethodGet)
	r.HandleFuncE("/api/settings", srvr.putSettings).Methods(http.MethodPut)

	// Player
	r.HandleFuncE("/api/subtitles", srvr.getSubtitles).Methods(http.MethodGet)
	r.HandleFuncE("/api/debug-reports", srvr.postDebugReport).Methods(http.MethodPost)

	// Bookmarks
	r.HandleFuncE("/api/bookmarks/sections", srvr.postSections).Methods(http.MethodPost)
	r.HandleFuncE("/api/bookmarks/group-order", srvr.getGroupOrder).Methods(http.MethodGet)
	r.HandleFuncE("/api/bookmarks/group-order", srvr.putGroupOrder).Methods(http.MethodPut)
	r.HandleFuncE("/api/bookmarks/groups", srvr.postGroup).Methods(http.MethodPost)

	slog.Debug("configured herald server", "port", config.Port)

	return srvr
}
