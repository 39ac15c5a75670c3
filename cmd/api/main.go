package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/bugtrackerpro/service-core/internal/activity"
	activityrepo "github.com/bugtrackerpro/service-core/internal/activity/repo"
	"github.com/bugtrackerpro/service-core/internal/auth"
	"github.com/bugtrackerpro/service-core/internal/bug"
	bugrepo "github.com/bugtrackerpro/service-core/internal/bug/repo"
	"github.com/bugtrackerpro/service-core/internal/dashboard"
	"github.com/bugtrackerpro/service-core/internal/notification"
	"github.com/bugtrackerpro/service-core/internal/router"
	"github.com/bugtrackerpro/service-core/internal/store"
	"github.com/bugtrackerpro/service-core/internal/user"
	userrepo "github.com/bugtrackerpro/service-core/internal/user/repo"
	"github.com/bugtrackerpro/service-core/pkg/database"
	"github.com/bugtrackerpro/service-core/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting bugtracker-core")

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// pick the record store backend: Postgres when STORE_BACKEND=postgres,
	// in-memory otherwise
	var recordStore store.Store
	if os.Getenv("STORE_BACKEND") == "postgres" {
		cfg := database.ConfigFromEnv()
		sqlDB, err := database.Connect(cfg)
		if err != nil {
			sugar.Fatalf("db connect: %v", err)
		}
		defer sqlDB.Close()

		sqlxDB := sqlx.NewDb(sqlDB, "postgres")
		pg := store.NewPostgresStore(sqlxDB)
		if err := pg.EnsureTable(ctx); err != nil {
			sugar.Fatalf("ensure record_store table: %v", err)
		}
		recordStore = pg
	} else {
		recordStore = store.NewMemoryStore()
	}

	// schema-version check: wipes all collections on mismatch
	if err := store.EnsureVersion(ctx, recordStore); err != nil {
		sugar.Fatalf("ensure schema version: %v", err)
	}

	// wire repositories and services
	activitySvc := activity.NewService(activityrepo.NewActivityRepo(recordStore))
	tokens := auth.NewTokenManager(auth.ConfigFromEnv())
	sessions := auth.NewSessionStore(recordStore)
	usersRepo := userrepo.NewUserRepo(recordStore)
	userSvc := user.NewService(usersRepo, nil, tokens, sessions, activitySvc, sugar)
	notifier := notification.NewLogNotifier(sugar)
	bugSvc := bug.NewService(bugrepo.NewBugRepo(recordStore), usersRepo, activitySvc, notifier, sugar)
	dashSvc := dashboard.NewService(bugrepo.NewBugRepo(recordStore), usersRepo, activitySvc, dashboard.ConfigFromEnv())

	if user.SeedEnabled() {
		if err := userSvc.SeedDefaults(ctx); err != nil {
			sugar.Fatalf("seed default users: %v", err)
		}
		sugar.Info("default users seeded")
	}

	sugar.Info("service is running; press Ctrl+C to stop")

	// mount http server
	handler := router.RegisterRoutes(sugar, userSvc, bugSvc, dashSvc)
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
