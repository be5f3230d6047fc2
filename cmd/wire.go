package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dodoricogino/INMO-enlaces-PDF/config"
	"github.com/dodoricogino/INMO-enlaces-PDF/events"
	"github.com/dodoricogino/INMO-enlaces-PDF/scraper"
	"github.com/dodoricogino/INMO-enlaces-PDF/storage"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// app holds the long-lived pieces shared by every command.
type app struct {
	cfg       *config.Config
	logger    *utils.Logger
	extractor *scraper.Service
	closers   []func() error
}

// newApp builds the logger and the extraction pipeline from cfg.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var extra []slog.Handler
	if cfg.FluentEnabled {
		fh, err := utils.NewFluentHandler(utils.FluentConfig{
			Host:      cfg.FluentHost,
			Port:      cfg.FluentPort,
			TagPrefix: cfg.AppName,
			Level:     cfg.LogLevel,
		})
		if err != nil {
			return nil, err
		}
		extra = append(extra, fh)
		a.closers = append(a.closers, fh.Close)
	}
	a.logger = utils.NewLogger(utils.LogConfig{Level: cfg.LogLevel, JSON: cfg.LogJSON, Extra: extra})

	maps, err := scraper.LoadSelectorMaps(cfg.SelectorsDir)
	if err != nil {
		a.Close()
		return nil, err
	}

	chrome := scraper.NewChromeFetcher(scraper.ChromeOptions{
		Timeout:     cfg.RenderTimeout,
		MaxSessions: cfg.MaxBrowserSessions,
		ChromeBin:   cfg.ChromeBin,
		UserAgent:   cfg.UserAgent,
		Logger:      a.logger,
	})
	a.closers = append(a.closers, func() error { chrome.Close(); return nil })

	fetchers := scraper.FetcherSet{
		Browser: chrome,
		Static: scraper.NewStaticFetcher(scraper.StaticOptions{
			Timeout:   cfg.RenderTimeout,
			UserAgent: cfg.UserAgent,
			Logger:    a.logger,
		}),
	}
	registry, err := scraper.BuildRegistry(maps, fetchers, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.extractor = scraper.NewService(registry, a.logger)
	a.logger.Debug("registry ready", "hosts", registry.Hosts())
	return a, nil
}

// retryConfig is the caller-side retry policy for extractions.
func (a *app) retryConfig() utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts: a.cfg.MaxRetries,
		BaseDelay:   a.cfg.RetryBaseDelay,
		Logger:      a.logger,
		Retryable:   scraper.Retryable,
	}
}

// openStore returns the property store selected by STORE_DRIVER.
func (a *app) openStore() (storage.PropertyStore, error) {
	switch a.cfg.StoreDriver {
	case "", "memory":
		a.logger.Info("using in-memory property store")
		return storage.NewMemoryStore(), nil
	case "postgres":
		store, err := storage.NewPostgresStore(a.cfg.DSN())
		if err != nil {
			return nil, err
		}
		a.logger.Info("connected to PostgreSQL", "host", a.cfg.PostgresHost, "db", a.cfg.PostgresDB)
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want memory or postgres)", a.cfg.StoreDriver)
	}
}

// openPublisher connects to RabbitMQ when RABBITMQ_URL is set.
func (a *app) openPublisher() (events.Publisher, error) {
	if a.cfg.RabbitMQURL == "" {
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewRabbitPublisher(events.RabbitConfig{
		URL:      a.cfg.RabbitMQURL,
		Exchange: a.cfg.EventsExchange,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pub.Close)
	return pub, nil
}

// Close releases everything opened by the app, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
