package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prakriti/intake/internal/config"
	"github.com/prakriti/intake/internal/domain/intake"
	"github.com/prakriti/intake/internal/platform/db"
	"github.com/prakriti/intake/internal/platform/metrics"
	"github.com/prakriti/intake/internal/platform/middleware"
	"github.com/prakriti/intake/internal/platform/session"
	"github.com/prakriti/intake/internal/platform/slotstore"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "intake-server",
		Short: "Patient intake API and handoff tools",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(resultCmd())
	rootCmd.AddCommand(vocabularyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// loadConfig reads and validates configuration for every subcommand.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func slotConfig(cfg *config.Config) slotstore.Config {
	return slotstore.Config{
		Driver:     cfg.SlotDriver,
		SQLitePath: cfg.SQLitePath,
		Redis: slotstore.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		DatabaseURL: cfg.DatabaseURL,
		DBSchema:    cfg.DBSchema,
		DBMaxConns:  cfg.DBMaxConns,
		DBMinConns:  cfg.DBMinConns,
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the intake API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres handoff slot table",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			schema := schemaFlag(cmd, cfg)

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, db.EmbeddedMigrations())
			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			schema := schemaFlag(cmd, cfg)

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.EmbeddedMigrations()).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migration status for schema: %s\n", schema)
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func schemaFlag(cmd *cobra.Command, cfg *config.Config) string {
	if s, _ := cmd.Flags().GetString("schema"); s != "" {
		return s
	}
	return cfg.DBSchema
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Validate a JSON draft and commit it to a handoff slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			scope, _ := cmd.Flags().GetString("session")
			if file == "" || scope == "" {
				return fmt.Errorf("--file and --session are required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env, os.Stderr)

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read draft: %w", err)
			}

			ctx := context.Background()
			store, err := slotstore.Open(ctx, slotConfig(cfg), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ch := intake.NewChannel(store, intake.SessionKey(scope, cfg.HandoffKey), cfg.SessionTTL, logger)
			receipt, err := commitDraft(ctx, ch, raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Patient data submitted successfully!")
			return writeJSON(cmd.OutOrStdout(), receipt)
		},
	}
	cmd.Flags().String("file", "", "Path to a JSON intake draft")
	cmd.Flags().String("session", "", "Session scope for the handoff key")
	return cmd
}

// commitDraft runs a serialized draft through the same checks the HTTP API
// applies: input domain, then required groups, then the handoff.
func commitDraft(ctx context.Context, ch *intake.Channel, raw []byte) (*intake.Receipt, error) {
	var draft intake.Record
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	if err := intake.AcceptsRecord(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", intake.ErrInvalidInput, err)
	}
	valid, err := intake.Validate(draft)
	if err != nil {
		return nil, err
	}
	return ch.Commit(ctx, valid)
}

func resultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Print the record committed to a handoff slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, _ := cmd.Flags().GetString("session")
			if scope == "" {
				return fmt.Errorf("--session is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env, os.Stderr)

			ctx := context.Background()
			store, err := slotstore.Open(ctx, slotConfig(cfg), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ch := intake.NewChannel(store, intake.SessionKey(scope, cfg.HandoffKey), cfg.SessionTTL, logger)
			rec, ok := ch.Read(ctx)
			if !ok {
				return errors.New("no assessment submitted yet")
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().String("session", "", "Session scope for the handoff key")
	return cmd
}

func vocabularyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocabulary",
		Short: "Print the intake vocabularies as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), intake.DescribeVocabulary())
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newServer wires the echo instance. The returned service is used by the
// background sweeper.
func newServer(cfg *config.Config, store slotstore.Store, logger zerolog.Logger) (*echo.Echo, *intake.Service) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	apiV1 := e.Group("/api/v1")

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.MetricsEnabled {
		recorder = metrics.Prometheus{}
		e.GET("/metrics", metrics.Handler())
	}

	svc := intake.NewService(intake.NewMemorySessionRepo(), store, intake.ServiceConfig{
		HandoffKey: cfg.HandoffKey,
		SessionTTL: cfg.SessionTTL,
		Metrics:    recorder,
	}, logger)
	intake.NewHandler(svc, session.NewIssuer([]byte(cfg.SessionSecret)), !cfg.IsDev()).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/slot", db.HealthHandler(cfg.SlotDriver, store))

	return e, svc
}

// sweep drops expired sessions and, for backends that need it, expired
// slot rows.
func sweep(ctx context.Context, svc *intake.Service, store slotstore.Store, logger zerolog.Logger) {
	n, err := svc.SweepExpired(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("session sweep failed")
	} else if n > 0 {
		logger.Debug().Int("sessions", n).Msg("expired sessions removed")
	}

	if sw, ok := store.(slotstore.Sweeper); ok {
		rows, err := sw.Sweep(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("slot sweep failed")
		} else if rows > 0 {
			logger.Debug().Int64("slots", rows).Msg("expired slots removed")
		}
	}
}

func runServer() error {
	// Logger
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}
	logger := newLogger(env, os.Stdout)

	// Config
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres slots need their table before the first commit.
	if cfg.SlotDriver == slotstore.DriverPostgres {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		count, err := db.NewMigrator(pool, db.EmbeddedMigrations()).Up(ctx, cfg.DBSchema)
		pool.Close()
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int("applied", count).Str("schema", cfg.DBSchema).Msg("migrations checked")
	}

	// Handoff slot store
	store, err := slotstore.Open(ctx, slotConfig(cfg), logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.SlotDriver).Msg("failed to open slot store")
	}
	defer store.Close()
	logger.Info().Str("driver", cfg.SlotDriver).Msg("slot store ready")

	e, svc := newServer(cfg, store, logger)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep(ctx, svc, store, logger)
			}
		}
	}()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
