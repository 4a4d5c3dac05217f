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

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/propledger/internal/archive"
	"github.com/MrJamesThe3rd/propledger/internal/auth"
	"github.com/MrJamesThe3rd/propledger/internal/config"
	"github.com/MrJamesThe3rd/propledger/internal/database"
	apiHttp "github.com/MrJamesThe3rd/propledger/internal/http"
	importHandler "github.com/MrJamesThe3rd/propledger/internal/http/importtx"
	propertyHandler "github.com/MrJamesThe3rd/propledger/internal/http/property"
	txHandler "github.com/MrJamesThe3rd/propledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/propledger/internal/importer"
	"github.com/MrJamesThe3rd/propledger/internal/logging"
	"github.com/MrJamesThe3rd/propledger/internal/property"
	propertyStore "github.com/MrJamesThe3rd/propledger/internal/property/store"
	"github.com/MrJamesThe3rd/propledger/internal/transaction"
	txStore "github.com/MrJamesThe3rd/propledger/internal/transaction/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.ConnectionString(), database.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	var archiver importer.Archiver

	if cfg.ArchiveEnabled() {
		client, err := archive.NewS3Client(ctx, archive.Options{
			Bucket:   cfg.Archive.Bucket,
			Prefix:   cfg.Archive.Prefix,
			Region:   cfg.Archive.Region,
			Endpoint: cfg.Archive.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("configuring import archive: %w", err)
		}

		archiver = archive.New(client, cfg.Archive.Bucket, cfg.Archive.Prefix)
		slog.Info("archiving committed imports", "bucket", cfg.Archive.Bucket)
	}

	var (
		transactionService = transaction.NewService(txStore.New(db))
		propertyService    = property.NewService(propertyStore.New(db))
		importService      = importer.NewService(transactionService, archiver)
	)

	var (
		propertyH    = propertyHandler.NewHandler(propertyService)
		transactionH = txHandler.NewHandler(transactionService, propertyService)
		importH      = importHandler.NewHandler(importService, propertyService, cfg.Upload.MaxBytes)
	)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)

	router := apiHttp.New(apiHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Authenticate:   verifier.Middleware,
	}, propertyH, transactionH, importH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
