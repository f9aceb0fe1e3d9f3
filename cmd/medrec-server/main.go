package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medrec/medrec/internal/config"
	"github.com/medrec/medrec/internal/domain/consultation"
	"github.com/medrec/medrec/internal/domain/facility"
	"github.com/medrec/medrec/internal/domain/patient"
	"github.com/medrec/medrec/internal/domain/stats"
	"github.com/medrec/medrec/internal/domain/user"
	"github.com/medrec/medrec/internal/platform/audit"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/authz"
	"github.com/medrec/medrec/internal/platform/crypto"
	"github.com/medrec/medrec/internal/platform/db"
	"github.com/medrec/medrec/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medrec-server",
		Short: "Role-scoped medical record API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
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
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// seedAdminCmd creates an active super-admin account. Registration through
// the API only produces pending clinicians, so the first admin has to come
// from here.
func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an active super-admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			familyName, _ := cmd.Flags().GetString("family-name")
			givenName, _ := cmd.Flags().GetString("given-name")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			if err := auth.ValidatePassword(password); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			u := &user.User{
				Email:        strings.ToLower(strings.TrimSpace(email)),
				PasswordHash: hash,
				FamilyName:   familyName,
				GivenName:    givenName,
				Role:         authz.RoleAdmin,
				IsActive:     true,
			}
			if err := user.NewRepo(pool).Create(ctx, u); err != nil {
				return err
			}

			fmt.Printf("Created super-admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Admin email address")
	cmd.Flags().String("password", "", "Admin password")
	cmd.Flags().String("family-name", "Admin", "Family name")
	cmd.Flags().String("given-name", "Super", "Given name")
	return cmd
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	keys, err := crypto.NewKeyProvider(cfg.EncryptionSecret, cfg.IsProduction(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize encryption keys")
	}
	codec, err := crypto.NewFieldCodec(keys)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize field codec")
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL())
	recorder := audit.NewPGRecorder(pool, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Repositories and services. The patient service reads consultation
	// sections through the consultation repo; the consultation service asks
	// the patient service for scope checks before writing sections.
	userRepo := user.NewRepo(pool)
	userSvc := user.NewService(userRepo, tokens, recorder)
	userHandler := user.NewHandler(userSvc)

	facilityRepo := facility.NewRepo(pool)
	facilitySvc := facility.NewService(facilityRepo)
	facilityHandler := facility.NewHandler(facilitySvc)

	consultationRepo := consultation.NewRepo(pool, codec)

	patientRepo := patient.NewRepo(pool, codec)
	patientSvc := patient.NewService(patientRepo, consultationRepo, recorder)
	patientHandler := patient.NewHandler(patientSvc)

	consultationSvc := consultation.NewService(consultationRepo, patientSvc, recorder)
	consultationHandler := consultation.NewHandler(consultationSvc)

	statsSvc := stats.NewService(stats.NewRepo(pool))
	statsHandler := stats.NewHandler(statsSvc)

	auditHandler := audit.NewHandler(audit.NewReader(pool))

	// Public routes
	public := e.Group("/api/v1")
	userHandler.RegisterPublicRoutes(public)

	// Authenticated routes
	api := e.Group("/api/v1", auth.Middleware(tokens), audit.Middleware(recorder))
	userHandler.RegisterRoutes(api)
	facilityHandler.RegisterRoutes(api)
	patientHandler.RegisterRoutes(api)
	consultationHandler.RegisterRoutes(api)
	statsHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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
