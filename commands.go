package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"flight-sniper/config"
	"flight-sniper/dashboard"
	"flight-sniper/models"
	"flight-sniper/notify"
	"flight-sniper/scraper"
	"flight-sniper/scraper/gflights"
	"flight-sniper/services"
	"flight-sniper/storage"
	"flight-sniper/utils"
)

func openStore(cfg *config.Config, logger *utils.Logger) (storage.HistoryStore, error) {
	switch cfg.StoreDriver {
	case "sqlite", "":
		logger.Info("Using SQLite history at %s", cfg.SQLitePath)
		st, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		logger.Info("Using PostgreSQL history at %s:%s/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		st, err := storage.NewPostgresStore(cfg.DSN())
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func newFetcher(cfg *config.Config, logger *utils.Logger) scraper.Fetcher {
	var fetcher scraper.Fetcher = gflights.New(cfg, logger)
	if cfg.MemcacheAddr != "" && cfg.FetchCacheTTL > 0 {
		logger.Info("Caching result pages in memcache %s for %v", cfg.MemcacheAddr, cfg.FetchCacheTTL)
		fetcher = scraper.NewCachedFetcher(fetcher, scraper.NewMemcacheCache(cfg.MemcacheAddr), cfg.FetchCacheTTL, logger)
	}
	return fetcher
}

// newNotifier always logs alerts and also publishes them to Redis and Kafka
// when configured. The returned func closes the publishers.
func newNotifier(ctx context.Context, cfg *config.Config, logger *utils.Logger) (notify.Notifier, func()) {
	multi := notify.Multi{notify.NewLogNotifier(logger)}
	var closers []func() error

	if cfg.RedisAddr != "" {
		rn, err := notify.NewRedisNotifier(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLen)
		if err != nil {
			logger.Warn("Redis alerts disabled: %v", err)
		} else {
			logger.Info("Publishing alerts to Redis stream %s", cfg.RedisStream)
			multi = append(multi, rn)
			closers = append(closers, rn.Close)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("Publishing alerts to Kafka topic %s", cfg.KafkaTopic)
		multi = append(multi, kn)
		closers = append(closers, kn.Close)
	}

	return multi, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Closing notifier: %v", err)
			}
		}
	}
}

func scanRequest(w config.Watch) (services.ScanRequest, error) {
	route, err := models.NewRoute(w.Origin, w.Destination)
	if err != nil {
		return services.ScanRequest{}, fmt.Errorf("watch %s: %w", w.Name, err)
	}

	target, err := decimal.NewFromString(w.TargetPrice)
	if err != nil {
		return services.ScanRequest{}, fmt.Errorf("watch %s: target price %q: %w", w.Name, w.TargetPrice, err)
	}

	req := services.ScanRequest{Route: route, Days: w.Days, TargetPrice: target}
	if w.StartDate != "" {
		start, err := time.ParseInLocation(models.DateLayout, w.StartDate, time.Local)
		if err != nil {
			return services.ScanRequest{}, fmt.Errorf("watch %s: start date %q: %w", w.Name, w.StartDate, err)
		}
		req.StartDate = start
	}
	return req, nil
}

func runScan(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Flight Sniper starting ===")

	watches, err := cfg.Watches()
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, closeNotifier := newNotifier(ctx, cfg, logger)
	defer closeNotifier()

	return scanWatches(ctx, cfg, logger, store, notifier, watches)
}

func scanWatches(ctx context.Context, cfg *config.Config, logger *utils.Logger,
	store storage.HistoryStore, notifier notify.Notifier, watches []config.Watch) error {
	scanner := services.NewScanner(newFetcher(cfg, logger), store, notifier, logger,
		services.WithReporter(services.LogReporter{Logger: logger}),
		services.WithPrefetch(cfg.FetchConcurrency, time.Duration(cfg.RateLimitMs)*time.Millisecond),
	)
	insights := services.NewInsightService(logger)

	var errs []error
	for _, w := range watches {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := scanRequest(w)
		if err != nil {
			logger.Error("%v", err)
			errs = append(errs, err)
			continue
		}

		summary, err := scanner.Run(ctx, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("watch %s: %w", w.Name, err))
		}
		if summary == nil {
			continue
		}

		records, lerr := store.ListRoute(ctx, req.Route)
		if lerr != nil {
			logger.Warn("Could not load %s history for the report: %v", req.Route, lerr)
		}
		insights.Print(summary, insights.Generate(req.Route, records))
	}
	return errors.Join(errs...)
}

func runWatch(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	if cfg.WatchInterval <= 0 {
		return fmt.Errorf("WATCH_INTERVAL_MINUTES must be positive, got %v", cfg.WatchInterval)
	}

	watches, err := cfg.Watches()
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, closeNotifier := newNotifier(ctx, cfg, logger)
	defer closeNotifier()

	logger.Info("Watching %d routes every %v", len(watches), cfg.WatchInterval)
	ticker := time.NewTicker(cfg.WatchInterval)
	defer ticker.Stop()

	for {
		if err := scanWatches(ctx, cfg, logger, store, notifier, watches); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Scan round finished with errors: %v", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("Watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	h := dashboard.NewHandler(store, services.NewInsightService(logger), logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           dashboard.NewRouter(h, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Dashboard API listening on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Dashboard API stopped")
	return nil
}

func runPurge(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	switch len(args) {
	case 0:
		n, err := store.DeleteAll(ctx)
		if err != nil {
			return err
		}
		logger.Warn("Deleted all %d records", n)
	case 2:
		route, err := models.NewRoute(args[0], args[1])
		if err != nil {
			return err
		}
		n, err := store.DeleteRoute(ctx, route)
		if err != nil {
			return err
		}
		logger.Warn("Deleted %d records of %s", n, route)
	default:
		return errors.New("purge takes no arguments or ORIGIN DESTINATION")
	}
	return nil
}
