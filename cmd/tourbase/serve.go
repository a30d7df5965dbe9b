// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tourbase/tourbase/internal/auth"
	"github.com/tourbase/tourbase/internal/config"
	"github.com/tourbase/tourbase/internal/httpapi"
	"github.com/tourbase/tourbase/internal/logging"
	"github.com/tourbase/tourbase/internal/mail"
	"github.com/tourbase/tourbase/internal/observability"
	"github.com/tourbase/tourbase/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand. Flag names mirror the dotted
// config keys, so --server.addr overrides server.addr from the file.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server, and the metrics and health endpoints
when a metrics address is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	def := config.Defaults()
	cmd.Flags().String("server.addr", def.Server.Addr, "HTTP listen address")
	cmd.Flags().String("server.base_url", def.Server.BaseURL, "public base URL used in emails")
	cmd.Flags().String("server.environment", def.Server.Environment, "environment (development or production)")
	cmd.Flags().String("server.metrics_addr", def.Server.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().Duration("auth.token_ttl", def.Auth.TokenTTL, "session token lifetime")
	cmd.Flags().Int("auth.bcrypt_cost", def.Auth.BcryptCost, "bcrypt work factor")
	cmd.Flags().String("log.format", def.Log.Format, "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	logging.SetDefault(logging.Options{
		Service: "tourbase",
		Version: version,
		Format:  cfg.Log.Format,
	})

	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (or set DATABASE_URL)")
	}

	slog.Info("starting server",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
	)

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("connected to database")

	users := store.NewPostgresUserRepository(pool)

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return err
	}

	var mailer auth.Mailer
	if cfg.SMTP.Host != "" {
		mailer, err = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return err
		}
	} else {
		slog.Warn("no SMTP host configured, emails will be logged instead of sent")
		mailer = mail.NewLogMailer(slog.Default())
	}

	accounts, err := auth.NewService(users, hasher, issuer, mailer, cfg.Server.BaseURL)
	if err != nil {
		return err
	}
	resets, err := auth.NewPasswordResetService(users, hasher, issuer, mailer, cfg.Server.BaseURL)
	if err != nil {
		return err
	}
	resolver, err := auth.NewResolver(users, issuer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Server.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Server.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer, err := httpapi.NewServer(httpapi.Options{
		Accounts:    accounts,
		Resets:      resets,
		Resolver:    resolver,
		CookieTTL:   issuer.TTL(),
		Environment: cfg.Server.Environment,
		Metrics:     metrics,
		Logger:      slog.Default(),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiServer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errChan <- serveErr
		}
	}()

	cmd.Println("Server started on " + cfg.Server.Addr)
	slog.Info("server ready", "addr", cfg.Server.Addr)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		return oops.Code("SERVER_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping HTTP server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error, so a background server failure takes the whole process
// through the normal shutdown path. It exits when an error arrives, the
// channel closes, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
