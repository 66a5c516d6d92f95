package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/employee-directory/internal/config"
	appHTTP "github.com/cmlabs-hris/employee-directory/internal/handler/http"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/blobstore"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/cron"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/imageenc"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/jwt"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/sse"
	"github.com/cmlabs-hris/employee-directory/internal/repository/blob"
	serviceAuth "github.com/cmlabs-hris/employee-directory/internal/service/auth"
	employeeService "github.com/cmlabs-hris/employee-directory/internal/service/employee"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

const version = "v1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(!cfg.IsProduction())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "employee-directory"),
		slog.String("version", version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := blobstore.Open(ctx, blobstore.Options{
		Type:        cfg.Storage.Type,
		Path:        cfg.Storage.Path,
		DatabaseURL: cfg.DatabaseURL(),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Type, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}()
	slog.Info("Record store opened", "type", cfg.Storage.Type)

	scheduler := cron.NewScheduler(logger)
	if gc, ok := store.(cron.GarbageCollector); ok {
		cron.NewStoreJobs(gc).RegisterJobs(scheduler, cfg.Cron.BadgerGCInterval)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	hub := sse.NewHub()
	employeeRepo := blob.NewEmployeeRepository(store)
	encoder := imageenc.New(cfg.Image.MaxDimension, cfg.Image.MaxUploadBytes)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	authService := serviceAuth.NewAuthService(JWTService, cfg.Admin.Username, cfg.Admin.PasswordHash)
	employeeSvc := employeeService.NewEmployeeService(
		employeeRepo,
		encoder,
		employeeService.NewMillisClock(),
		hub,
		cfg.List.PageSize,
		logger,
	)

	authHandler := appHTTP.NewAuthHandler(authService)
	employeeHandler := appHTTP.NewEmployeeHandler(employeeSvc, JWTService, hub, cfg.Image.MaxUploadBytes)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Logger:         logger,
			LogLevel:       slog.LevelInfo,
		},
		JWTService,
		authHandler,
		employeeHandler,
	)

	// Event streams never go idle on their own; cancelling the base context on
	// shutdown ends them.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "addr", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
