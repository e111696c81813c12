package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/msomdec/kormkit/internal/config"
	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/handler"
	"github.com/msomdec/kormkit/internal/korm"
	"github.com/msomdec/kormkit/internal/migrations"
)

func main() {
	configPath := flag.String("config", envOrDefault("KORM_CONFIG", "appsettings.yaml"), "Configuration file (YAML or JSON)")
	addr := flag.String("http", ":"+envOrDefault("PORT", "8080"), "Address to listen on")
	logLevel := flag.String("log-level", envOrDefault("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	migrationsDir := flag.String("migrations-dir", envOrDefault("MIGRATIONS_DIR", "migrations"), "Directory holding one sub-directory of *.sql scripts per database")
	printSchema := flag.Bool("print-schema", false, "Print the JSON schema of the configuration file and exit")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if *printSchema {
		schema, err := config.Schema()
		if err != nil {
			slog.Error("failed to generate schema", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(schema))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(os.Environ()); err != nil {
		slog.Error("invalid environment configuration", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := korm.NewServices()
	for _, name := range registrationOrder(cfg.Names()) {
		b, err := svc.AddConfig(cfg, name)
		if err != nil {
			slog.Error("failed to register database", "name", name, "error", err)
			os.Exit(1)
		}
		dir := *migrationsDir + "/" + name
		if _, err := os.Stat(dir); err == nil {
			b.AddMigrations(migrations.WithScripts(os.DirFS(dir), "."))
		}
		if err := b.Migrate(ctx); err != nil {
			slog.Error("failed to run migrations", "name", name, "error", err)
			os.Exit(1)
		}
	}

	opts := handler.DefaultMigrationOptions()
	opts.TokenSecret = os.Getenv("MIGRATION_TOKEN_SECRET")
	if opts.TokenSecret != "" && len(opts.TokenSecret) < 32 {
		slog.Error("MIGRATION_TOKEN_SECRET must be at least 32 characters for HMAC-SHA256 security")
		os.Exit(1)
	}
	cache := migrations.NewCache(opts.SlidingExpiration)
	go cache.Run(ctx)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler.New(svc, cache, opts),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "databases", svc.Registry().Names())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// registrationOrder puts the default connection first so it becomes the
// primary database.
func registrationOrder(names []string) []string {
	if i := slices.Index(names, domain.DefaultConnectionName); i > 0 {
		names = slices.Concat([]string{domain.DefaultConnectionName}, names[:i], names[i+1:])
	}
	return names
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
