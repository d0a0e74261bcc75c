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

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medsave/rxwizard/internal/config"
	"github.com/medsave/rxwizard/internal/domain/derive"
	"github.com/medsave/rxwizard/internal/domain/prescription"
	"github.com/medsave/rxwizard/internal/domain/registry"
	"github.com/medsave/rxwizard/internal/platform/auth"
	"github.com/medsave/rxwizard/internal/platform/medsave"
	"github.com/medsave/rxwizard/internal/platform/middleware"
	"github.com/medsave/rxwizard/internal/platform/postal"
	"github.com/medsave/rxwizard/internal/platform/session"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "rx-server",
		Short: "Prescription wizard API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(regnoCmd())
	rootCmd.AddCommand(patientsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the prescription wizard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func regnoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regno",
		Short: "Registration number tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "next",
		Short: "Allocate and print the next patient registration number",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			client := medsave.New(medSaveConfig(cfg), logger)
			a := newAllocator(cfg, client).Next(cmd.Context(), time.Now())
			if !a.Authoritative {
				logger.Warn().Str("reason", a.Reason).Msg("registration number is a fallback")
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.Number)
			return nil
		},
	})
	return cmd
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Patient registry tools",
	}

	var page int
	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export one page of patients to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			client := medsave.New(medSaveConfig(cfg), logger)
			svc := registry.NewService(client, newAllocator(cfg, client), logger)
			data, err := svc.ExportPatients(cmd.Context(), page, registry.PatientFilter{})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	exportCmd.Flags().IntVar(&page, "page", 1, "page of patients to export")
	exportCmd.Flags().StringVar(&out, "out", "patients.xlsx", "output file")
	cmd.AddCommand(exportCmd)

	return cmd
}

// setup loads and validates the config and builds the logger it describes.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, newLogger(cfg), nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(logLevel(cfg.LogLevel))
}

func logLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func medSaveConfig(cfg *config.Config) medsave.Config {
	return medsave.Config{
		BaseURL: cfg.MedSaveAPIURL,
		Timeout: cfg.MedSaveTimeout,
		Retries: cfg.MedSaveRetries,
	}
}

func newAllocator(cfg *config.Config, client *medsave.Client) *derive.Allocator {
	return derive.NewAllocator(client,
		derive.WithPageSize(cfg.RegNoPageSize),
		derive.WithMaxPages(cfg.RegNoMaxPages),
	)
}

// sessionRepository opens the configured draft store. The returned func
// releases it.
func sessionRepository(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (session.Repository, func(), error) {
	if cfg.SessionBackend != config.BackendRedis {
		mem := session.NewMemory(cfg.SessionTTL)
		cleanupCtx, cancel := context.WithCancel(ctx)
		mem.StartCleanup(cleanupCtx, time.Minute)
		return mem, cancel, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return session.NewRedis(client, cfg.SessionTTL, logger), func() { client.Close() }, nil
}

type services struct {
	wizard   *prescription.Service
	registry *registry.Service
	issuer   *auth.Issuer
}

func newServices(cfg *config.Config, logger zerolog.Logger, sessions session.Repository) (*services, error) {
	key, generated, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("SESSION_SIGNING_KEY not set, using a random key; draft tokens will not survive a restart")
	}
	issuer, err := auth.NewIssuer(key, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	policy, err := prescription.ParsePolicy(cfg.ValidationPolicy)
	if err != nil {
		return nil, err
	}

	client := medsave.New(medSaveConfig(cfg), logger)
	allocator := newAllocator(cfg, client)

	wizard := prescription.NewService(prescription.Deps{
		Sessions:    sessions,
		Records:     client,
		Postal:      postal.New(cfg.PostalAPIURL, cfg.MedSaveTimeout, logger),
		Tokens:      issuer,
		Allocator:   allocator,
		Logger:      logger,
		Policy:      policy,
		SearchQuiet: cfg.SearchDebounce,
	})
	return &services{
		wizard:   wizard,
		registry: registry.NewService(client, allocator, logger),
		issuer:   issuer,
	}, nil
}

func newServer(cfg *config.Config, logger zerolog.Logger, svc *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	// Draft routes carry the hospital logo as a data URL.
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.DraftBodyLimit, "/api/v1/drafts"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/api/v1/patients/export"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	apiV1 := e.Group("/api/v1")
	prescription.NewHandler(svc.wizard, svc.issuer).RegisterRoutes(apiV1)
	registry.NewHandler(svc.registry).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sessions, closeSessions, err := sessionRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session store")
	}
	defer closeSessions()
	logger.Info().Str("backend", cfg.SessionBackend).Msg("session store ready")

	svc, err := newServices(cfg, logger, sessions)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}
	e := newServer(cfg, logger, svc)

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
