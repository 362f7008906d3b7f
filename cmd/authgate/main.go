package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/authgate/internal/auth"
	"github.com/dropDatabas3/authgate/internal/auth/identity"
	"github.com/dropDatabas3/authgate/internal/config"
	"github.com/dropDatabas3/authgate/internal/httpapi"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/security/password"
	"github.com/dropDatabas3/authgate/internal/store/core"
	"github.com/dropDatabas3/authgate/internal/store/memory"
	"github.com/dropDatabas3/authgate/internal/store/pg"
	"github.com/dropDatabas3/authgate/internal/store/redis"
	"github.com/dropDatabas3/authgate/internal/token"
	pgmigrations "github.com/dropDatabas3/authgate/migrations/postgres"
)

func main() {
	var configPath, envFile string

	root := &cobra.Command{
		Use:           "authgate",
		Short:         "HTTP authentication service with interchangeable strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (optional)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to .env file (optional)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath, envFile)
		},
	}

	hashpwCmd := &cobra.Command{
		Use:   "hashpw <password>",
		Short: "Hash a password for seeding a user store",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			phc, err := password.NewHasher().Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Println(phc)
			return nil
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), configPath, envFile)
		},
	}

	root.AddCommand(serveCmd, hashpwCmd, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(configPath, envFile string) (*config.Config, error) {
	// Missing .env is fine; env vars may come from the environment itself.
	_ = godotenv.Load(envFile)
	return config.Load(configPath)
}

func runServe(ctx context.Context, configPath, envFile string) error {
	cfg, err := loadConfig(configPath, envFile)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "authgate"})
	defer func() { _ = logger.Sync() }()
	log := logger.With(logger.Component("main"))

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher := password.NewHasher()
	strategy, err := buildStrategy(cfg, store, hasher)
	if err != nil {
		return err
	}

	handler := httpapi.NewRouter(auth.NewRegistrar(store, hasher), strategy, httpapi.RouterConfig{
		RequireSecureTransport: cfg.Server.RequireHTTPS,
		DisableMetrics:         !cfg.Metrics.Enabled,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	log.Info("server starting",
		logger.String("addr", cfg.Server.Addr),
		logger.Strategy(strategy.Name()),
		logger.String("storage", cfg.Storage.Driver),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMigrate(ctx context.Context, configPath, envFile string) error {
	cfg, err := loadConfig(configPath, envFile)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("migrate requires storage.driver=postgres, have %q", cfg.Storage.Driver)
	}
	store, err := pg.Open(ctx, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx, pgmigrations.FS); err != nil {
		return err
	}
	fmt.Println("schema applied")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), func() {}, nil
	case "redis":
		s := redis.New(cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		if err := s.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := pg.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func buildStrategy(cfg *config.Config, store core.Store, hasher password.Hasher) (auth.Strategy, error) {
	switch cfg.Auth.Strategy {
	case "token":
		codec, err := token.NewCodec([]byte(cfg.JWT.Secret))
		if err != nil {
			return nil, err
		}
		return auth.NewTokenStrategy(codec, store, hasher, auth.TokenConfig{
			AccessTTL:  cfg.AccessTTL(),
			RefreshTTL: cfg.RefreshTTL(),
		}), nil
	case "session":
		return auth.NewSessionStrategy(store, hasher, auth.SessionConfig{
			TTL:        cfg.SessionTTL(),
			CookieName: cfg.Auth.Session.CookieName,
		}), nil
	case "delegated":
		manager := identity.NewLocalManager(store, cfg.SessionTTL())
		return auth.NewDelegatedStrategy(store, hasher, manager), nil
	}
	return nil, fmt.Errorf("unknown auth strategy %q", cfg.Auth.Strategy)
}
