package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nao1215/deepscan/internal/browser"
	"github.com/nao1215/deepscan/internal/config"
	"github.com/nao1215/deepscan/internal/crawler"
	"github.com/nao1215/deepscan/internal/database"
	"github.com/nao1215/deepscan/internal/deepscan"
	"github.com/nao1215/deepscan/internal/feed"
	"github.com/nao1215/deepscan/internal/log"
	"github.com/nao1215/deepscan/internal/metrics"
	"github.com/nao1215/deepscan/internal/pipeline"
	"github.com/nao1215/deepscan/internal/redisstore"
	"github.com/nao1215/deepscan/internal/websitescan"
)

// envPrefix is the prefix of environment variables that set command flags.
// DEEPSCAN_WEBSITE_ID sets --website-id.
const envPrefix = "DEEPSCAN"

// storage is the persistence backend: website scans and the scan request queue.
// *database.DB and *redisstore.Store implement it.
type storage interface {
	websitescan.Store
	feed.WorkQueue
	ListWebsiteScanIDs(ctx context.Context, prefix string) ([]string, error)
}

// Compile-time checks.
var (
	_ storage = (*database.DB)(nil)
	_ storage = (*redisstore.Store)(nil)
)

// service holds the collaborators shared by the scan, worker and report commands.
type service struct {
	cfg      *config.ServiceConfig
	logger   *slog.Logger
	recorder *metrics.Recorder
	store    storage
	closer   io.Closer
}

// newViper binds the command's flags to DEEPSCAN_ environment variables.
// Flags given on the command line win over the environment.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	bind := func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = err
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	if bindErr != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
	}
	return v, nil
}

// loadServiceConfig loads the configuration file named by --config, or the
// default one, and validates it.
func loadServiceConfig(v *viper.Viper) (*config.ServiceConfig, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("configuration file not found: %s", v.GetString("config"))
		}
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newLogger creates the sanitizing logger used by all commands.
// Logs go to stderr so that reports on stdout stay machine readable.
func newLogger(v *viper.Viper, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return log.NewSecureJSONLogger(os.Stderr, v.GetBool("verbose"))
	}
	return log.NewSecureLogger(os.Stderr, v.GetBool("verbose"))
}

// openService opens the configured storage backend.
func openService(cfg *config.ServiceConfig, logger *slog.Logger, recorder *metrics.Recorder) (*service, error) {
	svc := &service{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
	}

	switch cfg.Storage.Backend {
	case config.BackendRedis:
		client, err := redisstore.NewClient(redisstore.Config{
			Address:  cfg.Storage.RedisAddress,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		svc.store = redisstore.New(client,
			redisstore.WithKeyPrefix(cfg.Storage.KeyPrefix),
			redisstore.WithLogger(logger),
		)
		svc.closer = client
		logger.Debug("storage opened", "backend", config.BackendRedis, "address", cfg.Storage.RedisAddress)
	default:
		db, err := database.Open(cfg.Storage.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		svc.store = db
		svc.closer = db
		logger.Debug("storage opened", "backend", config.BackendSQLite, "path", db.Path())
	}

	return svc, nil
}

// Close closes the storage backend.
func (s *service) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// websiteScans returns the website scan provider.
func (s *service) websiteScans() *websitescan.Provider {
	return websitescan.NewProvider(s.store)
}

// deepScanner wires the deep scanner to the storage backend.
func (s *service) deepScanner() *deepscan.Scanner {
	writer := websitescan.NewWriter(s.store,
		websitescan.WithMaxAttempts(s.cfg.Writer.MaxAttempts),
		websitescan.WithBackoff(s.cfg.Writer.InitialDelay, s.cfg.Writer.MaxDelay),
		websitescan.WithLogger(s.logger),
		websitescan.WithConflictHook(s.recorder.RecordWriteConflict),
	)
	generator := feed.NewGenerator(s.store,
		feed.WithLogger(s.logger),
		feed.WithQueuedHook(s.recorder.RecordQueued),
	)
	runner := crawler.NewRunner(
		crawler.WithMaxDepth(s.cfg.Crawl.MaxDepth),
		crawler.WithDelay(s.cfg.Crawl.Delay),
		crawler.WithUserAgent(s.cfg.Crawl.UserAgent),
		crawler.WithMaxBodySize(s.cfg.Crawl.MaxBodySize),
		crawler.WithLogger(s.logger),
	)

	return deepscan.NewScanner(s.cfg, s.websiteScans(), runner, writer, generator,
		deepscan.WithLogger(s.logger),
		deepscan.WithRecorder(s.recorder),
	)
}

// newPage creates a page configured from the browser and crawl settings.
func (s *service) newPage(ctx context.Context) (pipeline.Page, error) {
	page, err := browser.NewPage(
		browser.WithProxy(s.cfg.Browser.ProxyAddress),
		browser.WithCookie(s.cfg.Browser.Cookie),
		browser.WithHeaders(s.cfg.Browser.Headers),
		browser.WithTimeout(s.cfg.Crawl.RequestTimeout),
		browser.WithUserAgent(s.cfg.Crawl.UserAgent),
		browser.WithMaxBodySize(int64(s.cfg.Crawl.MaxBodySize)),
		browser.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	if err := page.Create(ctx); err != nil {
		return nil, err
	}
	return page, nil
}

// newPipeline creates the page scan pipeline.
func (s *service) newPipeline() *pipeline.Pipeline {
	return pipeline.DefaultPipeline(s.deepScanner(), s.logger)
}
