package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mnh/careline/internal/config"
	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/internal/domain/search"
	"github.com/mnh/careline/internal/platform/auth"
	"github.com/mnh/careline/internal/platform/db"
	"github.com/mnh/careline/internal/platform/mcp"
	"github.com/mnh/careline/internal/platform/middleware"
	"github.com/mnh/careline/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "careline-server",
		Short: "Maternal and newborn care search API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(searchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := loadBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			count, err := db.NewMigrator(b.sqlDB, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := loadBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			statuses, err := db.NewMigrator(b.sqlDB, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd, statuses)
			return nil
		},
	})

	return cmd
}

func printStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func searchCmd() *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a search from the command line and print the JSON result",
		Example: "  careline-server search --model patient -p gender=FEMALE -p minAge=18\n" +
			"  careline-server search -p q=preeclampsia",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params)
			if err != nil {
				return err
			}
			if model, _ := cmd.Flags().GetString("model"); model != "" {
				values.Set("model", model)
			}

			ctx := cmd.Context()
			b, err := loadBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			result, err := search.NewService(b.store, search.WithMaxLimit(b.cfg.SearchMaxLimit)).Run(ctx, values)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().String("model", "", "patient, appointment, medicalRecord, content or global")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Search parameter as key=value (repeatable)")
	return cmd
}

func parseParams(params []string) (url.Values, error) {
	values := url.Values{}
	for _, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		values.Add(key, value)
	}
	return values, nil
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// backend is the store for the configured driver plus the handles the
// health check and migrator need.
type backend struct {
	cfg   *config.Config
	store records.Store
	sqlDB *sql.DB
	ping  db.Pinger
	stats func() db.PoolStats
	close func()
}

func loadBackend(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return openBackend(ctx, cfg)
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		sqlxDB, err := db.OpenSQL(ctx, cfg.DatabaseURL, int(cfg.DBMaxConns), int(cfg.DBMinConns))
		if err != nil {
			return nil, err
		}
		return &backend{
			cfg:   cfg,
			store: records.NewSQLStore(sqlxDB),
			sqlDB: sqlxDB.DB,
			ping:  db.PingerFunc(sqlxDB.PingContext),
			stats: db.SQLStats(sqlxDB.DB),
			close: func() { sqlxDB.Close() },
		}, nil
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		return &backend{
			cfg:   cfg,
			store: records.NewPGStore(pool),
			sqlDB: sqlDB,
			ping:  pool,
			stats: db.PgxStats(pool),
			close: func() {
				sqlDB.Close()
				pool.Close()
			},
		}, nil
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	b, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer b.close()
	logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")

	e := newServer(cfg, logger, b)

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

func newServer(cfg *config.Config, logger zerolog.Logger, b *backend) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "Mcp-Session-Id"},
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(b.ping, b.stats))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}

	searchSvc := search.NewService(b.store,
		search.WithMaxLimit(cfg.SearchMaxLimit),
		search.WithLogger(logger),
	)
	recordSvc := records.NewService(b.store)

	api := e.Group("/api/v1", authMW, middleware.Audit(logger))
	search.NewHandler(searchSvc, logger).RegisterRoutes(api)
	records.NewHandler(recordSvc, logger).RegisterRoutes(api)

	if cfg.MCPEnabled {
		mcpHTTP := echo.WrapHandler(mcpserver.NewStreamableHTTPServer(mcp.NewServer(searchSvc, recordSvc, version)))
		guard := []echo.MiddlewareFunc{authMW, auth.RequireRole(auth.ClinicalReadRoles...)}
		e.POST("/mcp", mcpHTTP, guard...)
		e.GET("/mcp", mcpHTTP, guard...)
		e.DELETE("/mcp", mcpHTTP, guard...)
		logger.Info().Msg("mcp endpoint enabled at /mcp")
	}

	return e
}
