package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ewhitmore/upkeep/internal/config"
	"github.com/ewhitmore/upkeep/internal/logging"
	"github.com/ewhitmore/upkeep/internal/push"
	"github.com/ewhitmore/upkeep/internal/server"
	"github.com/ewhitmore/upkeep/internal/storage/sqlite"
)

const reminderLogRetention = 90 * 24 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := logging.Setup(cfg.Logging.Level)

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
		if !pushSvc.Enabled() {
			logger.Info("push reminders disabled, no VAPID keys configured")
		}

		srv := server.New(store, pushSvc, logger)

		httpServer := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      srv.Router(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if sched := srv.PushScheduler(); sched != nil {
			sched.Start(ctx)
			defer sched.Stop()
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("listening", "addr", httpServer.Addr, "backend", cfg.Storage.Backend)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if n, err := store.DeleteExpiredSessions(time.Now()); err != nil {
						logger.Error("session cleanup", "error", err)
					} else if n > 0 {
						logger.Debug("session cleanup", "deleted", n)
					}
					if err := store.DeleteReminderLogBefore(time.Now().Add(-reminderLogRetention)); err != nil {
						logger.Error("reminder log cleanup", "error", err)
					}
					if s, ok := store.(*sqlite.Store); ok {
						if _, err := s.DB().ExecContext(ctx, "PRAGMA optimize"); err != nil {
							logger.Error("db optimize", "error", err)
						}
					}
					srv.RateLimiter().Cleanup()
				}
			}
		})

		g.Go(func() error {
			<-ctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}
