package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shayra-ai/license-server/internal/checker"
	"github.com/shayra-ai/license-server/internal/closer"
	"github.com/shayra-ai/license-server/internal/server/config"
	"github.com/shayra-ai/license-server/internal/server/handler/http/middleware"
	v1 "github.com/shayra-ai/license-server/internal/server/handler/http/v1"
	"github.com/shayra-ai/license-server/internal/server/service"
	"github.com/shayra-ai/license-server/internal/server/storage/memory"
	"github.com/shayra-ai/license-server/internal/server/storage/postgres"
	"github.com/shayra-ai/license-server/internal/server/storage/sqlite"
	"github.com/shayra-ai/license-server/internal/transactions"
	"golang.org/x/sync/errgroup"
)

type licenseStorage interface {
	service.LicenseStorage
	service.AdminStorage
}

func main() {

	conf := config.MustLoad()

	var logger *slog.Logger

	if conf.IsProduction() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	slog.SetDefault(logger)

	logger.Info("running license server", "env", conf.Env, "address", conf.Address)

	closings := closer.NewCloser()
	defer func() {
		if err := closings.Close(); err != nil {
			slog.Error("closing error", "error", err)
		}
	}()

	check := checker.NewChecker()

	router := chi.NewMux()

	router.Use(middleware.GzipCompress, middleware.GzipDecompress)

	var (
		storage licenseStorage
		tm      interface {
			Do(ctx context.Context, fn func(context.Context) error) error
		}
	)

	switch {
	case conf.DatabaseDsn != "":
		pool, err := pgxpool.New(context.Background(), conf.DatabaseDsn)
		if err != nil {
			log.Fatalf("failed to connect to database: %v\n", err)
		}

		db := stdlib.OpenDBFromPool(pool)
		closings.Register("closing database connection", db)

		check.Register(checker.Wrap(db.Ping))

		st, err := postgres.NewLicenseStorage(db)
		if err != nil {
			log.Fatalf("failed to init database storage: %v\n", err)
		}

		storage = st
		tm = postgres.NewTransactionManager(db)

	case conf.DatabasePath != "":
		db, err := sqlx.Open("sqlite3", conf.DatabasePath)
		if err != nil {
			log.Fatalf("failed to open database file: %v\n", err)
		}

		closings.Register("closing database connection", db)

		check.Register(checker.Wrap(db.Ping))

		st, err := sqlite.NewLicenseStorage(db)
		if err != nil {
			log.Fatalf("failed to init database storage: %v\n", err)
		}

		storage = st
		tm = sqlite.NewTransactionManager(db)

	default:
		slog.Info("creating file")
		file, err := os.OpenFile(conf.StoragePath, os.O_RDWR|os.O_CREATE|os.O_SYNC, 0666)
		if err != nil {
			log.Fatalf("failed to open file: %v\n", err)
		}

		closings.Register("closing file", file)

		slog.Info("init memory storage")
		st, err := memory.NewLicenseStorage(file, int64(conf.StoreInterval), conf.Restore)
		if err != nil {
			log.Fatalf("failed to init storage: %v\n", err)
		}

		closings.Register("closing license storage", st)

		storage = st
		tm = transactions.DiscardManager{}
	}

	v1.NewLicenseHandler(service.NewLicenseService(storage, tm, conf.FreeDailyLimit)).Register(router)
	v1.NewAdminHandler(service.NewAdminService(storage, tm, conf.SecretKey), conf.AdminKey).Register(router)
	v1.NewHealthCheckHandler(check).Register(router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:         conf.Address,
		Handler:      middleware.RequestLogging(router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,

		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	slog.Info("running server")

	g.Go(func() error {
		return httpServer.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()
		timeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return httpServer.Shutdown(timeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "reason", err.Error())
	}
}
