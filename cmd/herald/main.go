// Herald serves the notification center of the streaming client: it pulls
// the built-in and user-added feeds, keeps each profile's read state and
// answers the player's subtitle and debug report lookups.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	_ "golang.org/x/crypto/x509roots/fallback"
	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/herald/internal/aggregate"
	"github.com/jdholdren/herald/internal/api"
	"github.com/jdholdren/herald/internal/feeds"
	"github.com/jdholdren/herald/internal/logger"
	"github.com/jdholdren/herald/internal/memstore"
	"github.com/jdholdren/herald/internal/migrations"
	"github.com/jdholdren/herald/internal/notify"
	"github.com/jdholdren/herald/internal/prefs"
	"github.com/jdholdren/herald/internal/sqlite"
	"github.com/jdholdren/herald/internal/subtitles"
)

type config struct {
	Port     int    `env:"PORT, default=4444"`
	Database string `env:"DATABASE"` // Empty keeps everything in memory

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`

	Origin       string `env:"ORIGIN, default=http://localhost:3000"`
	BuiltinFeed  string `env:"BUILTIN_FEED, default=/notifications.xml"`
	BuiltinLabel string `env:"BUILTIN_LABEL, default=P-Stream"`
	RelayURL     string `env:"RELAY_URL"`

	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT, default=10s"`
	FetchRetries     uint64        `env:"FETCH_RETRIES, default=0"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY, default=0"`
	SessionCacheSize int           `env:"SESSION_CACHE_SIZE, default=1024"`

	CookieHashKey  string `env:"COOKIE_HASH_KEY"`
	CookieBlockKey string `env:"COOKIE_BLOCK_KEY"`
	HTTPSCookies   bool   `env:"HTTPS_COOKIES, default=false"`
	CorsOrigin     string `env:"CORS_ORIGIN, default=*"`

	WyzieURL         string        `env:"WYZIE_URL, default=https://sub.wyzie.ru"`
	OpenSubtitlesURL string        `env:"OPENSUBTITLES_URL, default=https://rest.opensubtitles.org"`
	FebboxURL        string        `env:"FEBBOX_URL, default=https://fed-subs.pstream.mov"`
	SubtitleCacheTTL time.Duration `env:"SUBTITLE_CACHE_TTL, default=10m"`
}

func main() {
	ctx := context.Background()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	// Determine which logger format to use
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if cfg.LoggerFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(logger.NewContextHandler(handler)))

	if err := runServer(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg config) error {
	kv, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher, err := feeds.NewFetcher(feeds.FetcherConfig{
		Origin:  cfg.Origin,
		Relay:   cfg.RelayURL,
		Timeout: cfg.FetchTimeout,
		Retries: cfg.FetchRetries,
	})
	if err != nil {
		return err
	}

	var (
		p        = prefs.New(kv)
		agg      = aggregate.New(fetcher, aggregate.WithLimit(cfg.FetchConcurrency))
		resolver = feeds.NewResolver(cfg.BuiltinFeed, cfg.BuiltinLabel, p)
	)
	svc, err := notify.NewService(agg, resolver, p, p, cfg.SessionCacheSize)
	if err != nil {
		return err
	}

	providerLimit := rate.Every(200 * time.Millisecond)
	scraper := subtitles.NewScraper(cfg.SubtitleCacheTTL,
		subtitles.NewWyzie(subtitles.ClientConfig{BaseURL: cfg.WyzieURL, Limit: providerLimit}),
		subtitles.NewOpenSubtitles(subtitles.ClientConfig{BaseURL: cfg.OpenSubtitlesURL, Limit: providerLimit}),
		subtitles.NewFebbox(subtitles.ClientConfig{BaseURL: cfg.FebboxURL, Limit: providerLimit}),
	)

	srvr := api.NewServer(api.ServerConfig{
		Port:           cfg.Port,
		CookieHashKey:  cookieKey(cfg.CookieHashKey, 32),
		CookieBlockKey: cookieKey(cfg.CookieBlockKey, 32),
		HTTPSCookies:   cfg.HTTPSCookies,
		CorsOrigin:     cfg.CorsOrigin,
	}, svc, scraper, p)

	var g run.Group
	g.Add(func() error {
		slog.Info("starting server", "port", cfg.Port)
		if err := srvr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error serving: %w", err)
		}
		return nil
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srvr.Shutdown(ctx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		slog.Info("shutting down", "signal", sigErr.Signal)
		return nil
	}
	return err
}

// openStore picks the preference backend. Without a database path nothing
// outlives the process.
func openStore(ctx context.Context, path string) (prefs.KV, func(), error) {
	if path == "" {
		slog.Warn("no database configured, preferences are kept in memory")
		return memstore.New(), func() {}, nil
	}

	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, nil, fmt.Errorf("error opening database: %s", err)
	}

	// Retry until the file is usable
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(100*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := dbx.PingContext(ctx); err != nil {
			slog.Warn("database not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		dbx.Close()
		return nil, nil, fmt.Errorf("error pinging database: %s", err)
	}

	// Run all migrations
	if err := migrations.Run(dbx); err != nil {
		dbx.Close()
		return nil, nil, err
	}

	return sqlite.New(dbx), func() { dbx.Close() }, nil
}

// Without configured keys, cookies only survive until the next restart.
func cookieKey(configured string, length int) []byte {
	if configured != "" {
		return []byte(configured)
	}
	slog.Warn("cookie key not configured, generating one")
	return securecookie.GenerateRandomKey(length)
}
