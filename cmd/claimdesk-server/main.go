package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/claimdesk/claimdesk/internal/config"
	"github.com/claimdesk/claimdesk/internal/dataio"
	"github.com/claimdesk/claimdesk/internal/domain/claims"
	"github.com/claimdesk/claimdesk/internal/platform/auth"
	"github.com/claimdesk/claimdesk/internal/platform/db"
	"github.com/claimdesk/claimdesk/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "claimdesk-server",
		Short: "Claims review and bulk data API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(exportCmd())

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

func connect(ctx context.Context, logger zerolog.Logger) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("connected to database")
	return cfg, pool, nil
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

func runServer() error {
	logger := newLogger()

	ctx := context.Background()
	cfg, pool, err := connect(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer pool.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("51M")) // import uploads are capped at 50 MB per file
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Repositories and services
	claimRepo := claims.NewClaimRepoPG(pool)
	detailRepo := claims.NewDetailRepoPG(pool)
	flagRepo := claims.NewFlagRepoPG(pool)
	noteRepo := claims.NewNoteRepoPG(pool)

	svc := claims.NewService(claimRepo, detailRepo, flagRepo, noteRepo)
	importer := dataio.NewImporter(claimRepo, detailRepo, dataio.PgxTxRunner{Pool: pool}, logger)
	exporter := dataio.NewExporter(claimRepo, detailRepo)

	apiV1 := e.Group("/api/v1")
	claims.NewHandler(svc).RegisterRoutes(apiV1)
	dataio.NewHandler(importer, exporter, svc).RegisterRoutes(apiV1)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Msg("starting server")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := context.Background()
			cfg, pool, err := connect(ctx, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			m := db.NewMigrator(pool, cfg.MigrationsDir)
			n, err := m.Up(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := context.Background()
			cfg, pool, err := connect(ctx, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			m := db.NewMigrator(pool, cfg.MigrationsDir)
			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = fmt.Sprintf("applied %s", s.AppliedAt.Format("2006-01-02 15:04:05"))
				}
				fmt.Printf("%3d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}

func loadCmd() *cobra.Command {
	var (
		claimsFile  string
		detailsFile string
		format      string
		mode        string
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Bulk-load claims from files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			f, err := dataio.ParseFormat(format)
			if err != nil {
				return err
			}
			m, err := dataio.ParseMode(mode)
			if err != nil {
				return err
			}

			claimsData, err := os.ReadFile(claimsFile)
			if err != nil {
				return fmt.Errorf("read claims file: %w", err)
			}
			var detailsData []byte
			if detailsFile != "" {
				if detailsData, err = os.ReadFile(detailsFile); err != nil {
					return fmt.Errorf("read details file: %w", err)
				}
			}

			ctx := context.Background()
			_, pool, err := connect(ctx, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			claimRepo := claims.NewClaimRepoPG(pool)
			detailRepo := claims.NewDetailRepoPG(pool)
			importer := dataio.NewImporter(claimRepo, detailRepo, dataio.PgxTxRunner{Pool: pool}, logger)

			res, err := importer.Run(ctx, claimsData, detailsData, f, m)
			if err != nil {
				return err
			}

			fmt.Printf("Claims:  %d created, %d updated, %d skipped\n",
				res.ClaimsCreated, res.ClaimsUpdated, res.ClaimsSkipped)
			fmt.Printf("Details: %d created, %d updated, %d skipped\n",
				res.DetailsCreated, res.DetailsUpdated, res.DetailsSkipped)
			printErrors(res.Errors)
			return nil
		},
	}

	cmd.Flags().StringVar(&claimsFile, "claims-file", "", "path to the claims file (required)")
	cmd.Flags().StringVar(&detailsFile, "details-file", "", "path to the optional details file")
	cmd.Flags().StringVar(&format, "format", "csv", "file format: csv or json")
	cmd.Flags().StringVar(&mode, "mode", "add", "import mode: add, overwrite or update")
	cmd.MarkFlagRequired("claims-file")

	return cmd
}

// printErrors shows the first few record errors and summarizes the rest.
func printErrors(errs []string) {
	const shown = 5
	if len(errs) == 0 {
		return
	}
	fmt.Printf("Errors:  %d\n", len(errs))
	for i, e := range errs {
		if i == shown {
			fmt.Printf("  ... and %d more errors.\n", len(errs)-shown)
			break
		}
		fmt.Printf("  %s\n", e)
	}
}

func exportCmd() *cobra.Command {
	var (
		format string
		scope  string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored claims to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			f, err := dataio.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx := context.Background()
			_, pool, err := connect(ctx, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			exporter := dataio.NewExporter(claims.NewClaimRepoPG(pool), claims.NewDetailRepoPG(pool))

			var data []byte
			switch {
			case f == dataio.FormatJSON:
				data, err = exporter.ExportJSON(ctx)
			case scope == "details":
				data, err = exporter.ExportDetailsCSV(ctx)
			default:
				data, err = exporter.ExportClaimsCSV(ctx)
			}
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			logger.Info().Str("file", out).Int("bytes", len(data)).Msg("export written")
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or json")
	cmd.Flags().StringVar(&scope, "type", "claims", "csv export scope: claims or details")
	cmd.Flags().StringVar(&out, "out", "-", "output file (default stdout)")

	return cmd
}
