package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/alerting"
	"github.com/hamed0406/statusledger/internal/config"
	"github.com/hamed0406/statusledger/internal/delegate"
	"github.com/hamed0406/statusledger/internal/httpapi"
	apimw "github.com/hamed0406/statusledger/internal/httpapi/middleware"
	"github.com/hamed0406/statusledger/internal/logging"
	"github.com/hamed0406/statusledger/internal/notify"
	"github.com/hamed0406/statusledger/internal/probe"
	"github.com/hamed0406/statusledger/internal/repo"
	"github.com/hamed0406/statusledger/internal/repo/memory"
	"github.com/hamed0406/statusledger/internal/repo/postgres"
	redisstore "github.com/hamed0406/statusledger/internal/repo/redis"
	"github.com/hamed0406/statusledger/internal/scheduler"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file (default: config.yaml in . or configs)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Stderr: cfg.LogStderr})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("uptimed_exit", zap.Error(err))
		_ = logger.Sync()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (err error) {
	if len(cfg.Targets) == 0 {
		logger.Warn("no_targets_configured")
	}

	var rdb *goredis.Client
	if cfg.UsesRedis() {
		rdb, err = redisstore.Dial(ctx, cfg.Redis.Options())
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, rdb.Close()) }()
	}

	store, closeStore, err := openStore(ctx, cfg, rdb, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore()) }()

	adapter := delegate.NewAdapter(buildChecker(cfg), cfg.Monitor.Location, logger)
	if rdb != nil {
		adapter.Actor = delegate.NewActorDelegate(rdb)
	}

	engine := alerting.NewEngine(cfg.Notification.GracePeriodMinutes, cfg.Notification.SkipNotificationIDs)
	dispatcher := alerting.NewDispatcher(logger, buildNotifier(cfg), cfg.TimeLocation())

	cycle := scheduler.NewCycle(logger, cfg.Targets, store, adapter, engine, dispatcher,
		cfg.Monitor.Concurrency, cfg.Monitor.KVWriteCooldownMinutes)
	cycle.Key = cfg.Store.Key
	cycle.Hooks = buildHooks(cfg, rdb, logger)
	runner := scheduler.NewRunner(logger, cycle, cfg.Monitor.Interval)

	api := httpapi.NewServer(logger, store, cfg.Store.Key, cfg.Targets, cfg.Page)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(httpapi.RouterOptions{
			Keys:        apimw.Keys{Public: cfg.API.PublicKeys, Admin: cfg.API.AdminKeys},
			BasicAuth:   cfg.API.PasswordProtection,
			PublicRPM:   cfg.API.PublicRPM,
			PublicBurst: cfg.API.PublicBurst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.Int("targets", len(cfg.Targets)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	cancelRun()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = multierr.Append(err, srv.Shutdown(shutdownCtx))
	<-done
	logger.Info("uptimed_stopped")
	return err
}

func openStore(ctx context.Context, cfg *config.Config, rdb *goredis.Client, logger *zap.Logger) (repo.SnapshotStore, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := postgres.New(ctx, cfg.Store.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "redis":
		return redisstore.New(rdb), nop, nil
	default:
		logger.Warn("memory_store_in_use", zap.String("hint", "state is lost on restart"))
		return memory.New(), nop, nil
	}
}

func buildChecker(cfg *config.Config) probe.Checker {
	httpC := probe.Checker(probe.NewHTTPChecker())
	if cfg.Monitor.DNSAnnotate {
		httpC = probe.NewDNSAnnotator(httpC)
	}
	var chk probe.Checker = probe.NewKindRouter(httpC, probe.NewTCPChecker())
	if cfg.Monitor.RetryAttempts > 0 {
		chk = &probe.RetryChecker{
			Inner:    chk,
			Attempts: cfg.Monitor.RetryAttempts + 1,
			Backoff:  cfg.Monitor.RetryBackoff,
		}
	}
	return chk
}

// buildNotifier returns nil when no transport is configured.
func buildNotifier(cfg *config.Config) notify.Notifier {
	var m notify.Multi
	if a := notify.NewApprise(cfg.Notification.AppriseAPIServer, cfg.Notification.RecipientURL); a != nil {
		m = append(m, a)
	}
	if t := notify.NewTeams(cfg.Notification.TeamsWebhookURL); t != nil {
		m = append(m, t)
	}
	if s := notify.NewSlack(cfg.Notification.SlackWebhookURL); s != nil {
		m = append(m, s)
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

func buildHooks(cfg *config.Config, rdb *goredis.Client, logger *zap.Logger) scheduler.Hooks {
	var hs scheduler.MultiHooks
	if cfg.Hooks.Log {
		hs = append(hs, scheduler.LogHooks{Logger: logger})
	}
	if cfg.Hooks.RedisChannel != "" && rdb != nil {
		hs = append(hs, scheduler.NewRedisHooks(rdb, cfg.Hooks.RedisChannel))
	}
	if len(hs) == 0 {
		return scheduler.NopHooks{}
	}
	return hs
}
