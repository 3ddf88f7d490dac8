package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/taskcal/taskcal/internal/cache"
	"github.com/taskcal/taskcal/internal/config"
	"github.com/taskcal/taskcal/internal/google"
	"github.com/taskcal/taskcal/internal/http/controllers/events"
	"github.com/taskcal/taskcal/internal/http/controllers/health"
	"github.com/taskcal/taskcal/internal/http/controllers/integrations"
	"github.com/taskcal/taskcal/internal/http/controllers/todos"
	"github.com/taskcal/taskcal/internal/http/router"
	"github.com/taskcal/taskcal/internal/integration"
	"github.com/taskcal/taskcal/internal/metrics"
	"github.com/taskcal/taskcal/internal/observability/logger"
	"github.com/taskcal/taskcal/internal/security/secretbox"
	"github.com/taskcal/taskcal/internal/store/pg"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:           "taskcal",
		Short:         "Task and calendar service with Google Calendar integration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to YAML config (optional, env-only config works too)")

	root.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.App.LogLevel,
				ServiceName: "taskcal",
			})
			defer logger.Sync()
			log := logger.L()

			if !secretbox.Ready() {
				return errors.New("TASKCAL_MASTER_KEY is not set or invalid (need base64 of 32 bytes)")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := pg.New(ctx, pg.Config{
				DSN:             cfg.Storage.DSN,
				MaxConns:        cfg.Storage.MaxConns,
				ConnMaxLifetime: cfg.ConnMaxLifetimeDuration(),
			})
			if err != nil {
				return err
			}
			defer store.Close()

			cacheClient, err := cache.New(cache.Config{
				Driver:   cfg.Cache.Driver,
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
				Prefix:   cfg.Cache.Redis.Prefix,
			})
			if err != nil {
				return err
			}
			defer cacheClient.Close()

			provider := google.New(
				cfg.Google.ClientID,
				cfg.Google.ClientSecret,
				cfg.Google.RedirectURL,
				[]string{google.CalendarReadScope, "openid", "email", "profile"},
			)

			nonces := integration.NewNonceStore(cacheClient)
			tokenSvc := integration.NewTokenService(store.Credentials, provider)
			flowSvc := integration.NewFlowService(store.Credentials, nonces, provider)
			calendarSvc := integration.NewCalendarService(store.Credentials, tokenSvc, provider)

			metricsHandler, err := metrics.Register(metrics.Config{
				Pool: func() *pgxpool.Pool { return store.Pool() },
			})
			if err != nil {
				return err
			}

			handler := router.New(router.Deps{
				Integrations:   integrations.New(flowSvc, calendarSvc, cfg.Server.FrontendURL),
				Todos:          todos.New(store.Todos),
				Events:         events.New(store.Events),
				Health:         health.New(store.Pool(), cacheClient),
				Metrics:        metricsHandler,
				JWTSecret:      cfg.Auth.JWTSecret,
				AllowedOrigins: cfg.Server.CORSAllowedOrigins,
			})

			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      handler,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", logger.String("addr", cfg.Server.Addr), logger.String("env", cfg.App.Env))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations in lexical order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return fmt.Errorf("open pool: %w", err)
			}
			defer pool.Close()

			files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("no migrations found in", dir)
				return nil
			}
			sort.Strings(files)

			for _, f := range files {
				b, err := os.ReadFile(f)
				if err != nil {
					return err
				}
				if strings.TrimSpace(string(b)) == "" {
					continue
				}
				if _, err := pool.Exec(ctx, string(b)); err != nil {
					return fmt.Errorf("exec %s: %w", filepath.Base(f), err)
				}
				fmt.Println("applied", filepath.Base(f))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "migrations/postgres", "migrations directory")
	return cmd
}
