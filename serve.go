package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/audit"
	"github.com/preceptorhub/preceptor-engine/pkg/config"
	"github.com/preceptorhub/preceptor-engine/pkg/database"
	"github.com/preceptorhub/preceptor-engine/pkg/handlers"
	"github.com/preceptorhub/preceptor-engine/pkg/logging"
	"github.com/preceptorhub/preceptor-engine/pkg/middleware"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
	"github.com/preceptorhub/preceptor-engine/pkg/retry"
	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

const shutdownTimeout = 15 * time.Second

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if migrateOnStart {
			if err := migrateUp(cfg); err != nil {
				return err
			}
		}

		db, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return serve(ctx, cfg, newRouter(cfg, db))
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

// openDB connects the pool described by cfg.Database, waiting out a
// database that is still starting.
func openDB(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	logger.Info("Connecting to database",
		logging.DSN(cfg.Database.URL()),
		zap.Int32("max_connections", cfg.Database.MaxConnections))

	policy := retry.DefaultConfig()
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			logging.Error(err))
	}

	db, err := retry.DoWithResult(ctx, policy, func(ctx context.Context) (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:             cfg.Database.URL(),
			MaxConnections:  cfg.Database.MaxConnections,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
	})
	if err != nil {
		return nil, errors.New("failed to connect to database: " + logging.SanitizeError(err))
	}
	return db, nil
}

// newRouter wires repositories, services and handlers onto one mux.
func newRouter(cfg *config.Config, db *database.DB) http.Handler {
	scopeFn := database.NewScopeFunc(db)
	validator := services.NewInputValidator()

	schools := repositories.NewSchoolRepository()
	sites := repositories.NewPracticeSiteRepository()
	programTypes := repositories.NewProgramTypeRepository()
	rotationTypes := repositories.NewRotationTypeRepository()
	experienceTypes := repositories.NewExperienceTypeRepository()
	preceptors := repositories.NewPreceptorRepository()
	reviews := repositories.NewReviewRepository()

	denormalizer := services.NewDenormalizer(repositories.NewNameLookupRepository(), scopeFn, logger)
	resolver := services.NewAffiliationResolver(repositories.NewAffiliationRepository(),
		schools, sites, programTypes, preceptors, validator, scopeFn, logger)
	aggregator := services.NewReviewAggregator(reviews, preceptors, cfg.Search.CandidateLimit, logger)
	listLimit := cfg.Listing.CatalogListingSize

	catalogService := services.NewCatalogService(schools, sites, programTypes, rotationTypes, experienceTypes,
		denormalizer, validator, listLimit, logger)
	preceptorService := services.NewPreceptorService(preceptors, resolver, validator, listLimit, logger)
	reviewService := services.NewReviewService(reviews, preceptors, rotationTypes, experienceTypes,
		resolver, aggregator, denormalizer, validator, cfg.Listing, logger)
	searchService := services.NewSearchService(preceptors, reviews, rotationTypes, experienceTypes,
		resolver, aggregator, denormalizer, cfg.Search, cfg.Listing, logger)
	schoolProgramService := services.NewSchoolProgramService(repositories.NewSchoolProgramRepository(),
		schools, programTypes, denormalizer, validator, listLimit, logger)
	waitlistService := services.NewWaitlistService(repositories.NewWaitlistRepository(), validator, logger)

	mux := http.NewServeMux()
	scope := handlers.Middleware(database.WithRequestScope(db, logger))

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewCatalogHandler(catalogService, logger).RegisterRoutes(mux, scope)
	handlers.NewPreceptorHandler(preceptorService, logger).RegisterRoutes(mux, scope)
	handlers.NewAffiliationHandler(resolver, logger).RegisterRoutes(mux, scope)
	handlers.NewReviewHandler(reviewService, logger).RegisterRoutes(mux, scope)
	handlers.NewSearchHandler(searchService, logger).RegisterRoutes(mux, scope)
	handlers.NewSchoolProgramHandler(schoolProgramService, logger).RegisterRoutes(mux, scope)
	handlers.NewWaitlistHandler(waitlistService, logger).RegisterRoutes(mux, scope)

	var handler http.Handler = mux
	handler = middleware.InjectionAudit(audit.NewSecurityAuditor(logger))(handler)
	handler = middleware.RequestLogger(logger)(handler)
	return middleware.Recover(logger)(handler)
}

// serve runs the server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting preceptor-engine",
			zap.String("addr", srv.Addr),
			zap.String("base_url", cfg.BaseURL),
			zap.String("env", cfg.Env),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.UsesTLS()))

		var err error
		if cfg.UsesTLS() {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
