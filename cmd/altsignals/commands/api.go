package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/altsignals/internal/api"
	"github.com/wonny/altsignals/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Serves stored signals and on-demand validation over HTTP.

Endpoints:
  GET /health                 - Health check
  GET /api/companies          - Registered companies
  GET /api/signals            - Query signals (company, type, from, to)
  GET /api/signals/summary    - Signal counts per type
  GET /api/validation         - Run validation for one company

Example:
  go run ./cmd/altsignals api
  go run ./cmd/altsignals api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if apiPort != "" {
		rt.cfg.Port = apiPort
	}

	log := rt.log
	log.WithFields(map[string]interface{}{
		"port": rt.cfg.Port,
		"env":  rt.cfg.Env,
	}).Info("Initializing API server")

	healthHandler := handlers.NewHealthHandler(rt.db, log)
	signalsHandler := handlers.NewSignalsHandler(rt.signals, rt.companies, log)
	validationHandler := handlers.NewValidationHandler(rt.backtestEngine(), rt.companies, log)

	router := api.NewRouter(healthHandler, signalsHandler, validationHandler, log)
	server := api.New(rt.cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", rt.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET /health")
	fmt.Println("  GET /api/companies")
	fmt.Println("  GET /api/signals")
	fmt.Println("  GET /api/signals/summary")
	fmt.Println("  GET /api/validation")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
