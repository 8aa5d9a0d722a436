package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/adapter/connector"
	httpAdapter "github.com/cwygoda/jobwatch/internal/adapter/http"
	"github.com/cwygoda/jobwatch/internal/adapter/notify"
	redisAdapter "github.com/cwygoda/jobwatch/internal/adapter/redis"
	"github.com/cwygoda/jobwatch/internal/adapter/sqlite"
	"github.com/cwygoda/jobwatch/internal/config"
	"github.com/cwygoda/jobwatch/internal/domain"
	"github.com/cwygoda/jobwatch/internal/logger"
	"github.com/cwygoda/jobwatch/internal/monitor"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobwatch: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobwatch: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Errorw("jobwatch failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting jobwatch",
		"port", cfg.Port,
		"database", cfg.DBPath,
		"config", cfg.ConfigFile,
		"seen_store", cfg.SeenStore)

	repo, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "initialize database")
	}
	defer repo.Close()

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = redisAdapter.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer rdb.Close()
	}

	var seenRepo domain.SeenJobRepository = repo
	if cfg.SeenStore == config.SeenStoreRedis {
		seenRepo = redisAdapter.NewSeenStore(rdb, cfg.Redis.SeenKey)
	}

	registry, err := connector.FromConfig(cfg.Connectors)
	if err != nil {
		return errors.Wrap(err, "register connectors")
	}
	if len(registry.Platforms()) == 0 {
		log.Warnw("no connectors configured; searches will return nothing")
	}

	watch := domain.NewWatchListStore(repo, registry.Platforms())
	seen := domain.NewSeenJobRegistry(seenRepo)
	ledger := domain.NewApplicationLedger(repo)
	if err := watch.Load(ctx); err != nil {
		return errors.Wrap(err, "load watch list")
	}
	if err := seen.Load(ctx); err != nil {
		return errors.Wrap(err, "load seen jobs")
	}
	if err := ledger.Load(ctx); err != nil {
		return errors.Wrap(err, "load applications")
	}
	log.Infow("state loaded",
		"watch_items", watch.Len(),
		"seen_jobs", seen.Count(),
		"applications", len(ledger.All()))

	notifier, err := buildNotifier(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}

	apps := domain.NewApplicationService(registry, ledger, log.Named("manual"),
		cfg.Monitor.ManualDelayMin, cfg.Monitor.ManualDelayMax)

	mon := monitor.New(monitor.Deps{
		WatchList:  watch,
		Seen:       seen,
		Ledger:     ledger,
		Quota:      domain.NewQuotaTracker(cfg.Monitor.DailyLimit, time.Now()),
		Connectors: registry,
		Notifier:   notifier,
	}, monitor.Options{
		CheckInterval:      cfg.Monitor.CheckInterval,
		QuotaCheckInterval: cfg.Monitor.QuotaCheckInterval,
		ItemDelay:          cfg.Monitor.ItemDelay,
		ApplyDelayMin:      cfg.Monitor.ApplyDelayMin,
		ApplyDelayMax:      cfg.Monitor.ApplyDelayMax,
	}, log.Named("monitor"))

	if cfg.Monitor.AutoStart {
		if err := mon.Start(); err != nil {
			return errors.Wrap(err, "start monitor")
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := httpAdapter.NewServer(apps, watch, mon, log.Named("http"), addr)

	errCh := make(chan error, 1)
	go func() {
		log.Infow("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Infow("received signal, shutting down")
	case err := <-errCh:
		mon.Close()
		mon.Wait()
		return errors.Wrap(err, "http server")
	}

	mon.Close()
	mon.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("HTTP server shutdown error", "error", err)
	}

	log.Infow("shutdown complete")
	return nil
}

// buildNotifier assembles the configured notification sinks, falling back
// to the log sink when none is enabled.
func buildNotifier(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.SugaredLogger) (domain.Notifier, error) {
	var sinks []domain.Notifier

	if cfg.Notify.Email.Enabled {
		client, err := notify.NewSESClient(ctx, cfg.Notify.Email.Region)
		if err != nil {
			return nil, errors.Wrap(err, "initialize email")
		}
		sinks = append(sinks, notify.NewSESNotifier(client, cfg.Notify.Email.From, log.Named("email")))
	}
	if cfg.Notify.Events.Enabled {
		sinks = append(sinks, notify.NewEventPublisher(rdb, cfg.Notify.Events.Prefix, log.Named("events")))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, notify.NewLogNotifier(log.Named("notify")))
	}
	return notify.NewMulti(sinks...), nil
}
