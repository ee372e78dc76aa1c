package main

import (
	"context"
	"fmt"
	"io/fs"
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

	"github.com/dentalcare/clinic/internal/config"
	"github.com/dentalcare/clinic/internal/domain/admin"
	"github.com/dentalcare/clinic/internal/domain/billing"
	"github.com/dentalcare/clinic/internal/domain/clinical"
	"github.com/dentalcare/clinic/internal/domain/scheduling"
	"github.com/dentalcare/clinic/internal/platform/auth"
	"github.com/dentalcare/clinic/internal/platform/blobstore"
	"github.com/dentalcare/clinic/internal/platform/db"
	"github.com/dentalcare/clinic/internal/platform/middleware"
	"github.com/dentalcare/clinic/internal/platform/notification"
	"github.com/dentalcare/clinic/internal/platform/reporting"
	"github.com/dentalcare/clinic/internal/platform/sequence"
	"github.com/dentalcare/clinic/internal/platform/websocket"
	"github.com/dentalcare/clinic/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Dental clinic management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationsFS returns the embedded migrations unless the --dir flag or
// MIGRATIONS_DIR points at a directory on disk.
func migrationsFS(dir string, cfg *config.Config) fs.FS {
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func openPool(ctx context.Context) (*pgxpool.Pool, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return pool, cfg, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, cfg, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsFS(dir, cfg))
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.SchemaName("default"), "Target schema for migrations")
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, cfg, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsFS(dir, cfg))
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
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
	}
	statusCmd.Flags().String("schema", db.SchemaName("default"), "Target schema for migrations")
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage clinics",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a clinic schema and apply migrations to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, cfg, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating clinic schema: %s\n", db.SchemaName(name))
			if err := db.CreateTenantSchema(ctx, pool, name, db.NewMigrator(pool, migrationsFS(dir, cfg))); err != nil {
				return err
			}
			fmt.Println("Clinic created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Clinic identifier (alphanumeric)")
	createCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")

	cmd.AddCommand(createCmd)
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	var st *stores
	if cfg.Store == config.StoreMemory {
		st = newMemoryStores()
		logger.Warn().Msg("using in-memory stores; data is lost on restart")
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		st = newPGStores(pool)
	}

	images, err := newImageStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open image store")
	}

	e := newServer(cfg, logger, st, images, newEmailSender(cfg, logger))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.Store).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newImageStore(cfg *config.Config) (blobstore.ImageStore, error) {
	if cfg.Store == config.StoreMemory {
		return blobstore.NewMemoryStore(cfg.BlobPublicURL), nil
	}
	return blobstore.NewDiskStore(cfg.BlobDir, cfg.BlobPublicURL)
}

func newEmailSender(cfg *config.Config, logger zerolog.Logger) notification.EmailSender {
	if !cfg.SMTPEnabled() {
		return notification.LogSender{Logger: logger}
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// newServer wires middleware and every handler onto a fresh echo instance.
func newServer(cfg *config.Config, logger zerolog.Logger, st *stores, images blobstore.ImageStore,
	mail notification.EmailSender) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", db.ClinicHeader},
	}))

	// Auth middleware
	signingKey := []byte(cfg.JWTSigningKey)
	revocations := auth.NewRevocationStore()
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(signingKey))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:      cfg.JWTIssuer,
			SigningKey:  signingKey,
			Skipper:     auth.AuthSkipper,
			Revocations: revocations,
		}))
	}

	// Tenant middleware
	if st.pool != nil {
		e.Use(db.TenantMiddleware(st.pool, cfg.DefaultTenant, db.HealthSkipper))
	} else {
		e.Use(db.StaticTenant(cfg.DefaultTenant))
	}

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
			"store":  cfg.Store,
		})
	})
	e.GET("/health/db", db.HealthHandler(st.pinger))

	// Live events
	hub := websocket.NewHub(logger)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	// Identifiers
	ids := sequence.NewGenerator(st.sequences, st.floors)
	sequence.NewHandler(ids).RegisterRoutes(apiV1)

	// Scheduling
	schedulingSvc := scheduling.NewService(st.appointments, ids, hub)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)

	// Clinical
	clinicalSvc := clinical.NewService(st.examinations, st.procedures, st.plans, st.prescriptions,
		schedulingSvc, hub)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(apiV1)

	// Billing
	billingSvc := billing.NewService(st.receipts, st.invoices, schedulingSvc, ids, hub)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)

	// Admin and sign-in
	adminSvc := admin.NewService(st.branches, st.services, st.users, st.otps, ids, admin.Options{
		Images:      images,
		Mailer:      notification.NewMailer(mail, nil, cfg.ClinicName),
		Tokens:      auth.NewTokenIssuer(cfg.JWTIssuer, signingKey, cfg.JWTTTL),
		Revocations: revocations,
		OTPTTL:      cfg.OTPTTL,
	})
	admin.NewHandler(adminSvc, images).RegisterRoutes(apiV1)

	// Dashboard
	reporting.NewHandler(reporting.NewService(st.reports)).RegisterRoutes(apiV1)

	// Stored images
	blobstore.NewHandler(images).RegisterRoutes(e)

	return e
}
