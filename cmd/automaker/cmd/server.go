package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/NomadicDaddy/automaker/api"
	"github.com/NomadicDaddy/automaker/auth"
	"github.com/NomadicDaddy/automaker/internal/config"
)

var (
	port    int
	dataDir string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the automation server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir = dataDir
		}

		logger := newLogger(cfg.LogLevel)
		if cfg.APIKey == "" {
			logger.Warn("no API key configured; all logins will be rejected")
		}

		sessions, err := openSessionStore(cfg)
		if err != nil {
			return err
		}
		defer sessions.Close()

		validator := auth.NewKeyValidator(cfg.APIKey)

		opts := []api.Option{api.WithLogger(logger)}
		if cfg.SecureCookies {
			opts = append(opts, api.WithSecureCookies())
		}
		a := api.New(validator, sessions, opts...)
		defer a.Close()

		r := chi.NewRouter()
		r.Use(chimw.RequestID)
		r.Use(chimw.RealIP)
		r.Use(chimw.Logger)
		r.Use(chimw.Recoverer)
		r.Use(api.SecurityHeaders)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api", a.Router())

		// Everything else runs behind the gate. Downstream feature handlers
		// mount inside this group.
		r.Group(func(r chi.Router) {
			r.Use(a.RequireAuth)
			r.Handle("/*", http.NotFoundHandler())
		})

		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on %s:%d (sessions: %s)...\n", cfg.Host, cfg.Port, cfg.SessionBackend)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func openSessionStore(cfg config.Config) (auth.SessionStore, error) {
	switch cfg.SessionBackend {
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := auth.NewBoltSessionStoreFromFile(filepath.Join(cfg.DataDir, "sessions.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		return store, nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		return auth.NewRedisSessionStore(redis.NewClient(opts)), nil
	default:
		return auth.NewMemorySessionStore(), nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 3008, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
}
