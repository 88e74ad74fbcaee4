package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"tripledger/internal/api"
	"tripledger/internal/auth"
	"tripledger/internal/logger"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the financial ledger, trip lifecycle, integrity and report operations over HTTP.

Required environment variables:
  JWT_SECRET - HMAC secret the bearer tokens are signed with
  MONGO_URL  - MongoDB connection string (unless STORE_DRIVER=memory)

Optional environment variables:
  HTTP_ADDR       - Listen address (default :8001)
  REDIS_ADDR      - Redis address for the audit history
  REQUEST_TIMEOUT - Per-request timeout (default 30s)`,
	Example: `  # Serve against MongoDB
  tripledger serve

  # Serve an empty in-memory store on another port
  STORE_DRIVER=memory HTTP_ADDR=:9000 tripledger serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("debug", false, "Run gin in debug mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	debug, _ := cmd.Flags().GetBool("debug")
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	server := api.NewServer(api.Deps{
		Ledger:         a.ledger,
		Lifecycle:      a.lifecycle,
		Integrity:      a.integrity,
		Reports:        a.reports,
		Verifier:       auth.NewTokenVerifier(a.cfg.JWTSecret),
		RequestTimeout: a.cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", a.cfg.StoreDriver).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}
