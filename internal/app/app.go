// Package app initializes and holds long-lived application services, acting
// as the dependency injection container for the insights service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/storesight/insights-crawler/internal/aggregator"
	"github.com/storesight/insights-crawler/internal/api"
	"github.com/storesight/insights-crawler/internal/archive"
	archivegcs "github.com/storesight/insights-crawler/internal/archive/gcs"
	archivelocal "github.com/storesight/insights-crawler/internal/archive/local"
	archivememory "github.com/storesight/insights-crawler/internal/archive/memory"
	"github.com/storesight/insights-crawler/internal/cache"
	"github.com/storesight/insights-crawler/internal/clock/system"
	"github.com/storesight/insights-crawler/internal/competitors"
	"github.com/storesight/insights-crawler/internal/config"
	collyfetcher "github.com/storesight/insights-crawler/internal/fetcher/colly"
	"github.com/storesight/insights-crawler/internal/fetcher/headless"
	"github.com/storesight/insights-crawler/internal/hash/sha256"
	"github.com/storesight/insights-crawler/internal/headless/detector"
	"github.com/storesight/insights-crawler/internal/id/uuid"
	"github.com/storesight/insights-crawler/internal/insights"
	"github.com/storesight/insights-crawler/internal/logging"
	pubsubpublisher "github.com/storesight/insights-crawler/internal/publisher/pubsub"
	"github.com/storesight/insights-crawler/internal/resolver"
	storagememory "github.com/storesight/insights-crawler/internal/storage/memory"
	storagenoop "github.com/storesight/insights-crawler/internal/storage/noop"
	storagepostgres "github.com/storesight/insights-crawler/internal/storage/postgres"
)

// App holds all shared, long-lived services. It is initialized once at
// startup and fails fast when a critical service cannot be built.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	server   *api.Server
	results  insights.ResultStore
	headless *headless.Fetcher
	pubsub   *gpubsub.Client
}

// New builds the full service graph from configuration.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	logger.Info("initializing services")

	clock := system.New()
	ids := uuid.NewUUIDGenerator()
	hasher := sha256.New()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.HTTPTimeout(),
		MaxRetries:    cfg.HTTP.MaxRetries,
		BackoffBase:   time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		BackoffMax:    time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
	}, logger)

	app := &App{cfg: cfg, logger: logger}

	var headlessFetcher insights.Fetcher
	var promoDetector insights.HeadlessDetector
	if cfg.Headless.Enabled {
		hf, hErr := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if hErr != nil {
			return nil, fmt.Errorf("build headless fetcher: %w", hErr)
		}
		app.headless = hf
		headlessFetcher = hf
		promoDetector = detector.New(cfg.Headless.MinHTMLBytes, nil, nil)
		logger.Info("headless promotion enabled", zap.Int("max_parallel", cfg.Headless.MaxParallel))
	}

	pageArchive, err := app.buildArchive(ctx)
	if err != nil {
		return nil, err
	}

	results, err := app.buildResultStore(ctx, ids, clock)
	if err != nil {
		return nil, err
	}
	app.results = results

	res := resolver.New(fetcher, cfg.ResourceTimeout(), logger)
	runner := aggregator.New(
		res,
		fetcher,
		headlessFetcher,
		promoDetector,
		pageArchive,
		hasher,
		ids,
		clock,
		aggregator.Config{
			Concurrency:     cfg.Pipeline.Concurrency,
			HeroLimit:       cfg.Pipeline.HeroLimit,
			ResourceTimeout: cfg.ResourceTimeout(),
			RunBudget:       cfg.RunBudget(),
		},
		logger,
	)

	var resultCache *cache.Cache
	if cfg.Cache.Enabled {
		resultCache = cache.New(cfg.CacheTTL(), clock)
	}

	var publisher insights.Publisher
	if cfg.PubSub.Enabled {
		client, pubErr := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if pubErr != nil {
			return nil, fmt.Errorf("build pubsub client: %w", pubErr)
		}
		app.pubsub = client
		publisher = pubsubpublisher.New(client)
		logger.Info("pubsub publishing enabled", zap.String("topic", cfg.PubSub.TopicName))
	}

	var finder api.CompetitorFinder
	if cfg.Competitors.Enabled {
		finder = competitors.NewFinder(runner, competitors.Config{
			Candidates:     cfg.Competitors.Candidates,
			MaxResults:     cfg.Competitors.MaxResults,
			PerStoreBudget: time.Duration(cfg.Competitors.PerStoreBudgetSec) * time.Second,
		}, logger)
	}

	app.server = api.NewServer(runner, results, resultCache, publisher, finder, cfg, logger)
	logger.Info("services initialized")
	return app, nil
}

func (a *App) buildArchive(ctx context.Context) (insights.BlobStore, error) {
	switch a.cfg.Archive.Provider {
	case "none", "":
		return nil, nil
	case "memory":
		return archive.WithPrefix(archivememory.NewBlobStore(), a.cfg.Archive.Prefix), nil
	case "local":
		store, err := archivelocal.New(archivelocal.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("build local archive: %w", err)
		}
		return archive.WithPrefix(store, a.cfg.Archive.Prefix), nil
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("build gcs client: %w", err)
		}
		store, err := archivegcs.New(client, archivegcs.Config{Bucket: a.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("build gcs archive: %w", err)
		}
		return archive.WithPrefix(store, a.cfg.Archive.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown archive provider %q", a.cfg.Archive.Provider)
	}
}

func (a *App) buildResultStore(ctx context.Context, ids insights.IDGenerator, clock insights.Clock) (insights.ResultStore, error) {
	switch a.cfg.Storage.Provider {
	case "memory":
		return storagememory.NewStore(ids), nil
	case "noop":
		a.logger.Info("result persistence disabled")
		return storagenoop.NewStore(ids), nil
	case "postgres":
		store, err := storagepostgres.NewStore(ctx, storagepostgres.Config{
			DSN:             a.cfg.Storage.DSN,
			Table:           a.cfg.Storage.Table,
			MaxConns:        a.cfg.Storage.MaxConns,
			MinConns:        a.cfg.Storage.MinConns,
			MaxConnLifetime: time.Duration(a.cfg.Storage.MaxConnLifeMins) * time.Minute,
		}, ids, clock)
		if err != nil {
			return nil, fmt.Errorf("build postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", a.cfg.Storage.Provider)
	}
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Handler returns the HTTP handler for the service.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Close gracefully shuts down all held services.
func (a *App) Close() {
	a.logger.Info("shutting down services")
	if a.results != nil {
		if err := a.results.Close(); err != nil {
			a.logger.Warn("close result store", zap.Error(err))
		}
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("close pubsub client", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		// Best effort; stderr may not be syncable.
		_ = err
	}
}
