// Command remote-checker runs checks on behalf of uptimed from another
// location, over HTTP (POST /check) and/or as a named redis actor.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/config"
	"github.com/hamed0406/statusledger/internal/delegate"
	"github.com/hamed0406/statusledger/internal/logging"
	"github.com/hamed0406/statusledger/internal/probe"
	redisstore "github.com/hamed0406/statusledger/internal/repo/redis"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(logging.Options{
		Dir:    cfg.LogDir,
		File:   "remote-checker.log",
		Level:  cfg.LogLevel,
		Stderr: cfg.LogStderr,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Remote.Addr == "" && cfg.Remote.ActorName == "" {
		log.Fatal("nothing to serve: set remote.addr and/or remote.actor_name")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := probe.NewDefault()
	var wg sync.WaitGroup

	if cfg.Remote.ActorName != "" {
		rdb, err := redisstore.Dial(ctx, cfg.Redis.Options())
		if err != nil {
			logger.Fatal("redis_dial_error", zap.Error(err))
		}
		defer rdb.Close()

		actor := delegate.NewActor(rdb, cfg.Remote.ActorName, cfg.Remote.Location, checker, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = actor.Run(ctx)
		}()
	}

	if cfg.Remote.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Remote.Addr,
			Handler:           delegate.NewHandler(cfg.Remote.Location, checker, logger).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		logger.Info("remote_listen", zap.String("addr", cfg.Remote.Addr), zap.String("location", cfg.Remote.Location))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("remote_listen_error", zap.Error(err))
			stop()
		}
	}

	wg.Wait()
	logger.Info("remote_checker_stopped")
}
