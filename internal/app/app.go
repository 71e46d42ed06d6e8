// Package app wires the classifier, handlers, history log and media catalog
// into one classify→handle→record pipeline.
package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/grabbit-dl/grabbit/internal/db"
	"github.com/grabbit-dl/grabbit/internal/history"
	"github.com/grabbit-dl/grabbit/internal/platform"
)

// App owns the handler registry, the history store, the media catalog, and
// the authenticated service clients, which are constructed once per process
// and reused across invocations.
type App struct {
	registry  *platform.Registry
	history   *history.Store
	catalog   *db.DB
	instagram *platform.InstagramSession
	log       *zap.Logger

	// Invocations run strictly one at a time: one URL submission triggers
	// one classify→handle→record sequence to completion.
	mu sync.Mutex
}

// Invocation is the outcome of one URL submission.
type Invocation struct {
	URL      string            `json:"url"`
	Platform platform.Platform `json:"platform"`
	Result   platform.Result   `json:"result"`
	Record   history.Record    `json:"record"`
}

// New builds the application from config and shared handler options. The
// registry order below is the classification order; it is deliberate and
// first-match-wins.
func New(cfg Config, opts platform.Options, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = cfg.OutputDir
	}

	if err := os.MkdirAll(filepath.Dir(cfg.CatalogFile), 0o755); err != nil {
		logger.Warn("creating catalog directory", zap.Error(err))
	}
	catalog, err := db.Open(cfg.CatalogFile)
	if err != nil {
		// The catalog only feeds the library view; an unusable database
		// must not block downloads.
		logger.Warn("media catalog unavailable", zap.Error(err))
		catalog = nil
	}

	instagram := platform.NewInstagramSession(cfg.InstagramUsername, cfg.InstagramPassword)
	spotify := platform.NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifySecret)

	registry := &platform.Registry{}
	registry.Add(platform.NewYouTubeHandler(opts), "youtube.com", "youtu.be")
	registry.Add(platform.NewInstagramHandler(opts, instagram), "instagram.com")
	registry.Add(platform.NewTikTokHandler(opts), "tiktok.com")
	registry.Add(platform.NewFreepikHandler(opts), "freepik.com")
	registry.Add(platform.NewDribbbleHandler(opts), "dribbble.com")
	registry.Add(platform.NewSpotifyHandler(opts, spotify), "spotify.com")
	registry.Add(platform.NewLottieHandler(opts), "lottiefiles.com")

	return &App{
		registry:  registry,
		history:   history.Open(cfg.HistoryFile),
		catalog:   catalog,
		instagram: instagram,
		log:       logger,
	}, nil
}

// Process runs one full classify→handle→record sequence. Every attempt is
// recorded, including classification misses (as platform Unknown) and
// handler failures.
func (a *App) Process(ctx context.Context, url string) Invocation {
	a.mu.Lock()
	defer a.mu.Unlock()

	handler, found := a.registry.HandlerFor(url)
	if !found {
		a.log.Info("unsupported platform", zap.String("url", url))
		result := platform.Result{
			Success:  false,
			Message:  "Unsupported platform or invalid URL",
			Category: platform.CategoryUnsupported,
		}
		return a.finish(url, platform.Unknown, result)
	}

	p := handler.Platform()
	a.log.Info("dispatching", zap.String("url", url), zap.String("platform", string(p)))
	result := handler.Handle(ctx, url)
	if result.Success {
		a.log.Info("handler succeeded", zap.String("platform", string(p)), zap.String("message", result.Message))
		a.catalogResult(url, p, result)
	} else {
		a.log.Warn("handler failed", zap.String("platform", string(p)), zap.String("message", result.Message))
	}
	return a.finish(url, p, result)
}

func (a *App) finish(url string, p platform.Platform, result platform.Result) Invocation {
	rec, err := a.history.Record(url, p, result)
	if err != nil {
		a.log.Warn("history write failed", zap.Error(err))
	}
	return Invocation{URL: url, Platform: p, Result: result, Record: rec}
}

// catalogResult records a downloaded file in the media catalog when the
// handler reported one. Catalog errors never affect the invocation result.
func (a *App) catalogResult(url string, p platform.Platform, result platform.Result) {
	if a.catalog == nil || result.Payload == nil {
		return
	}
	path, ok := result.Payload["path"].(string)
	if !ok || path == "" {
		return
	}

	isVideo, hasIsVideo := result.Payload["is_video"].(bool)
	record := db.MediaRecord{
		Platform:  string(p),
		FilePath:  path,
		SourceURL: url,
		MediaType: db.ClassifyMediaType(path, isVideo, hasIsVideo),
	}
	if title, ok := result.Payload["title"].(string); ok {
		record.Title = title
	} else if caption, ok := result.Payload["caption"].(string); ok {
		record.Title = caption
	}
	if fi, err := os.Stat(path); err == nil {
		record.FileSize = fi.Size()
	}
	if _, err := a.catalog.UpsertMedia(record); err != nil {
		a.log.Warn("catalog write failed", zap.Error(err))
	}
}

// History exposes the invocation log.
func (a *App) History() *history.Store {
	return a.history
}

// Catalog exposes the media catalog; nil when it failed to open.
func (a *App) Catalog() *db.DB {
	return a.catalog
}

// Platforms lists the supported platforms in classification order.
func (a *App) Platforms() []platform.Platform {
	return a.registry.Platforms()
}

// Close tears down shared clients and the catalog.
func (a *App) Close() {
	if a.instagram != nil {
		a.instagram.Close()
	}
	platform.CloseIdleConnections()
	if a.catalog != nil {
		a.catalog.Close()
	}
}
