package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskhub/internal/auth"
	"taskhub/internal/models"
	"taskhub/internal/server"
	"taskhub/internal/storage/sqlite"
	"taskhub/internal/util"
)

func main() {
	addrFlag := flag.String("addr", util.EnvOrDefault("TASKHUB_ADDR", ":8080"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("TASKHUB_DB_PATH", "data/taskhub.db"), "Path to sqlite database file")
	sessionTTL := flag.Duration("session-ttl", util.EnvDurationOrDefault("TASKHUB_SESSION_TTL", 24*time.Hour), "Session token lifetime")
	resetTTL := flag.Duration("reset-ttl", util.EnvDurationOrDefault("TASKHUB_RESET_TTL", 48*time.Hour), "Password reset token lifetime")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("taskhub API starting")

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	authSvc := auth.New(store, logger, *sessionTTL, *resetTTL)

	if err := bootstrapAdmin(store, logger); err != nil {
		logger.Error("admin bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sweeper, err := auth.NewSweeper(store, logger)
	if err != nil {
		logger.Error("unable to schedule credential sweep", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := server.New(store, authSvc, logger)

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// bootstrapAdmin creates the initial company-admin account when the
// environment names one and it does not exist yet. Without it a fresh
// database has no principal able to log in.
func bootstrapAdmin(store *sqlite.Store, logger *slog.Logger) error {
	email := util.EnvOrDefault("TASKHUB_ADMIN_EMAIL", "")
	password := util.EnvOrDefault("TASKHUB_ADMIN_PASSWORD", "")
	if email == "" || password == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sqlite.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user, err := store.CreateUser(ctx, models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleCompanyAdmin,
	})
	if err != nil {
		return err
	}
	logger.Info("created admin account", slog.String("email", user.Email))
	return nil
}
