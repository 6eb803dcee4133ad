package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"invoicing-backend/internal/config"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/payments"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/repository/memory"
	"invoicing-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	storeKind   string
	autoMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&storeKind, "store", "postgres", "storage backend: postgres or memory")
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "run schema migrations before serving (postgres only)")
}

func openStore() (repository.Store, error) {
	switch storeKind {
	case "memory":
		return memory.New(), nil
	case "postgres":
		db, err := config.InitDB(cfg)
		if err != nil {
			return nil, err
		}
		if autoMigrate {
			if err := repository.Migrate(db); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return repository.NewGormStore(db), nil
	}
	return nil, fmt.Errorf("unknown store %q", storeKind)
}

func serve(ctx context.Context) error {
	log := logger.WithComponent("server")

	store, err := openStore()
	if err != nil {
		return err
	}
	if cfg.StripeSecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY is empty, payment account calls will be rejected upstream")
	}
	processor := payments.NewStripeProcessor(cfg.StripeSecretKey, payments.WithBaseURL(cfg.StripeAPIURL))

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID", "X-User-Email"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.NewServices(cfg, store, processor))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", storeKind).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
