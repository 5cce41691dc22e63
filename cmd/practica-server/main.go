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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/practica/practica/internal/config"
	"github.com/practica/practica/internal/domain/ledger"
	"github.com/practica/practica/internal/domain/patient"
	"github.com/practica/practica/internal/domain/payment"
	"github.com/practica/practica/internal/domain/report"
	"github.com/practica/practica/internal/domain/session"
	"github.com/practica/practica/internal/domain/stats"
	"github.com/practica/practica/internal/platform/auth"
	"github.com/practica/practica/internal/platform/backup"
	"github.com/practica/practica/internal/platform/db"
	"github.com/practica/practica/internal/platform/export"
	"github.com/practica/practica/internal/platform/metrics"
	"github.com/practica/practica/internal/platform/middleware"
)

// ledgerStore adapts the domain repositories to the ledger.Store interface,
// avoiding circular imports between the ledger and the CRUD packages.
type ledgerStore struct {
	patients patient.Repository
	sessions session.Repository
	reports  report.Repository
}

func newLedgerStore(patients patient.Repository, sessions session.Repository, reports report.Repository) *ledgerStore {
	return &ledgerStore{patients: patients, sessions: sessions, reports: reports}
}

func (s *ledgerStore) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrPatientNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *ledgerStore) SavePatient(ctx context.Context, p *patient.Patient) error {
	// The ledger only ever changes the balance.
	return s.patients.UpdateBalance(ctx, p.ID, p.Balance)
}

func (s *ledgerStore) PendingSessions(ctx context.Context, patientID uuid.UUID) ([]*session.Session, error) {
	return s.sessions.ListPendingByPatient(ctx, patientID)
}

func (s *ledgerStore) UnsettledReports(ctx context.Context, patientID uuid.UUID) ([]*report.Report, error) {
	return s.reports.ListUnsettledByPatient(ctx, patientID)
}

func (s *ledgerStore) SaveSession(ctx context.Context, sess *session.Session) error {
	return s.sessions.Update(ctx, sess)
}

func (s *ledgerStore) SaveReport(ctx context.Context, r *report.Report) error {
	return s.reports.Update(ctx, r)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "practica-server",
		Short: "Psychology practice billing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the billing API server",
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

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	promMetrics := metrics.New()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(promMetrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.AuthSecret),
		}))
	}

	// Repositories
	patientRepo := patient.NewRepoPG(pool)
	sessionRepo := session.NewRepoPG(pool)
	paymentRepo := payment.NewRepoPG(pool)
	reportRepo := report.NewRepoPG(pool)

	// The ledger owns all balance arithmetic; the CRUD services call back
	// into it after their mutations.
	ledgerSvc := ledger.NewService(newLedgerStore(patientRepo, sessionRepo, reportRepo))
	ledgerSvc.SetMetrics(promMetrics)

	patientSvc := patient.NewService(patientRepo)
	sessionSvc := session.NewService(sessionRepo, patientRepo)
	sessionSvc.SetLedger(ledgerSvc)
	reportSvc := report.NewService(reportRepo)
	reportSvc.SetLedger(ledgerSvc)
	paymentSvc := payment.NewService(paymentRepo, ledgerSvc)
	statsSvc := stats.NewService(patientRepo, sessionRepo, paymentRepo, reportRepo)
	exportSvc := export.NewService(patientRepo, sessionRepo, paymentRepo, reportRepo)
	backupSvc := backup.NewService(backup.NewStorePG(pool), cfg.BackupDir)

	// Routes
	apiV1 := e.Group("/api/v1")
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	session.NewHandler(sessionSvc).RegisterRoutes(apiV1)
	payment.NewHandler(paymentSvc).RegisterRoutes(apiV1)
	report.NewHandler(reportSvc).RegisterRoutes(apiV1)
	stats.NewHandler(statsSvc).RegisterRoutes(apiV1)
	export.NewHandler(exportSvc, statsSvc).RegisterRoutes(apiV1)
	backup.NewHandler(backupSvc).RegisterRoutes(apiV1)

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", promMetrics.Handler())

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
