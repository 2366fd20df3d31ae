package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleets-server/internal/auth"
	"fleets-server/internal/catalog"
	"fleets-server/internal/ledger"
	"fleets-server/internal/mission"
	"fleets-server/internal/notify"
	"fleets-server/internal/scheduler"
	"fleets-server/internal/server"
	serverHandlers "fleets-server/internal/server/handlers"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/database"
	"fleets-server/internal/shared/logger"
	"fleets-server/internal/shared/redis"
	"fleets-server/internal/store"
	"fleets-server/internal/store/memory"
	"fleets-server/internal/store/postgres"
	"fleets-server/internal/universe"
	"fleets-server/internal/user"

	"golang.org/x/sync/errgroup"
)

const (
	notificationBuffer = 64
	shutdownTimeout    = 10 * time.Second
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init()
	if err := run(log); err != nil {
		log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.GlobalConfig
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := catalog.Load(cfg.Catalog.Path, log)
	if err != nil {
		return err
	}

	var (
		st     store.Store
		pinger serverHandlers.Pinger
	)
	if cfg.Database.Enabled {
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.RunMigrations(ctx, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		st = postgres.New(db, log)
		pinger = db
	} else {
		log.Warn("Database disabled, game state lives in memory only")
		st = memory.New(log)
		if _, err := universe.NewGenerator(st, cfg.Universe, log).Generate(ctx); err != nil {
			return err
		}
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var queue scheduler.Queue = scheduler.NewMemoryQueue()
	if rdb != nil {
		queue = scheduler.NewRedisQueue(rdb.Client, cfg.Missions.Scheduler.QueueKey)
	}

	hub := notify.NewHub(notificationBuffer, log)
	sched := scheduler.New(queue, st, cfg.Missions.Scheduler, log)
	users := user.NewService(c, st, log)
	units := ledger.New(c, st, hub, users, log)
	missions := mission.NewService(c, st, units, users, hub, sched, cfg.Missions, log)
	authService := auth.NewService(cfg.Auth, log)
	websocket := notify.NewWebsocketServer(hub, cfg.Frontend.URL)

	routes := server.NewRoutes(cfg, pinger, queue, authService, users, missions, units, websocket, log)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if _, err := sched.Recover(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(gctx, missions)
	})

	g.Go(func() error {
		log.Info("Fleets server starting", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
