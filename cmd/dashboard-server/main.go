package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/practice/dashboard/internal/config"
	"github.com/practice/dashboard/internal/domain/appointment"
	"github.com/practice/dashboard/internal/domain/credential"
	"github.com/practice/dashboard/internal/domain/doctor"
	"github.com/practice/dashboard/internal/domain/patient"
	"github.com/practice/dashboard/internal/domain/session"
	"github.com/practice/dashboard/internal/domain/timing"
	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/audit"
	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/db"
	"github.com/practice/dashboard/internal/platform/liststate"
	"github.com/practice/dashboard/internal/platform/middleware"
	"github.com/practice/dashboard/internal/platform/modal"
	"github.com/practice/dashboard/internal/platform/query"
	"github.com/practice/dashboard/internal/platform/view"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dashboard-server",
		Short: "Practice management dashboard server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// openAuditPool connects to the audit database named by cfg.
func openAuditPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if !cfg.AuditEnabled() {
		return nil, fmt.Errorf("DATABASE_URL is not set; the audit trail has no database")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run audit database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openAuditPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openAuditPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the backend API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout)
			defer cancel()
			if err := checkBackend(ctx, apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.APITimeout))); err != nil {
				return err
			}
			fmt.Printf("Backend API at %s is reachable.\n", cfg.APIBaseURL)
			return nil
		},
	}
}

// checkBackend reads one page of doctors. Any answer other than a transport
// or server failure means the API is up.
func checkBackend(ctx context.Context, client *apiclient.Client) error {
	_, err := apiclient.NewResource[doctor.Doctor](client, "/api/v1/doctors").List(ctx, apiclient.Paged(0, 1))
	switch apiclient.KindOf(err) {
	case apiclient.KindServer, apiclient.KindNetwork:
		return fmt.Errorf("backend API unreachable: %w", err)
	}
	return nil
}

// resolveSigningKey decodes SESSION_SIGNING_KEY. Hex values are decoded;
// anything else is used as raw bytes. Empty disables verification.
func resolveSigningKey(envValue string) []byte {
	if envValue == "" {
		return nil
	}
	if decoded, err := hex.DecodeString(envValue); err == nil && len(decoded) >= 16 {
		return decoded
	}
	return []byte(envValue)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// server is the wired application.
type server struct {
	echo   *echo.Echo
	cache  *query.Client
	modals *modal.Store
}

// newServer wires every feature onto a fresh echo instance. rec stores the
// audit trail; pool is nil when the trail is not persisted.
func newServer(cfg *config.Config, logger zerolog.Logger, rec audit.Recorder, pool *pgxpool.Pool) *server {
	cache := query.NewClient(query.Options{
		StaleTime: cfg.QueryStaleTime,
		GCTime:    2 * cfg.QueryStaleTime,
		Retry:     cfg.QueryRetry,
		Logger:    logger.With().Str("component", "query").Logger(),
	})
	modals := modal.NewStore(cfg.ConfirmationTTL, logger.With().Str("component", "modal").Logger())
	branches := appctx.NewBranchStore()

	deps := crud.Deps{
		Client:    apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.APITimeout), apiclient.WithLogger(logger)),
		Cache:     cache,
		Audit:     rec,
		Modals:    modals,
		Views:     liststate.NewStore(),
		PageSize:  cfg.PageSize,
		FetchSize: cfg.ListFetchSize,
		Logger:    logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	ui := e.Group("/ui")
	ui.Use(appctx.Middleware(appctx.Config{
		CookieName: cfg.SessionCookieName,
		SigningKey: resolveSigningKey(cfg.SessionSigningKey),
		Branches:   branches,
		Logger:     logger,
	}))
	ui.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	appctx.NewHandler(branches).RegisterRoutes(ui)
	view.NewConfirmationHandler(modals).RegisterRoutes(ui)
	audit.NewHandler(rec, deps.Views, cfg.PageSize, cfg.ListFetchSize).RegisterRoutes(ui)

	doctors := doctor.NewService(deps)
	doctor.NewHandler(doctors, deps).RegisterRoutes(ui)
	patient.NewHandler(patient.NewService(deps), deps).RegisterRoutes(ui)
	session.NewHandler(session.NewService(deps, doctors), deps).RegisterRoutes(ui)
	credential.NewHandler(credential.NewService(deps), deps).RegisterRoutes(ui)
	timing.NewHandler(timing.NewService(deps), deps).RegisterRoutes(ui)
	appointment.NewHandler(appointment.NewService(deps, doctors), deps).RegisterRoutes(ui)

	return &server{echo: e, cache: cache, modals: modals}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		logger := newLogger(nil)
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Audit trail
	var (
		rec  audit.Recorder
		pool *pgxpool.Pool
	)
	if cfg.AuditEnabled() {
		pool, err = openAuditPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to audit database")
		}
		defer pool.Close()
		rec = audit.NewPGStore(pool)
		logger.Info().Msg("audit trail stored in postgres")
	} else {
		rec = audit.NewLogStore(logger.With().Str("component", "audit").Logger(), 1000)
		logger.Info().Msg("audit trail logged only; set DATABASE_URL to persist it")
	}

	srv := newServer(cfg, logger, rec, pool)
	srv.cache.StartCleanup(ctx, time.Minute)
	srv.modals.StartCleanup(ctx, time.Minute)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("api", cfg.APIBaseURL).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
