package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArranJacques/paplin/internal/api"
	"github.com/ArranJacques/paplin/internal/auth"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and telemetry stream",
	Long: `Open every configured arm and serve the HTTP API under /api/v1.

Telemetry is streamed as Server-Sent Events from /api/v1/telemetry.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Printf("Starting paplin v%s", Version)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	log.Println("Configuration loaded successfully")

	verifier, err := auth.NewVerifierFromConfig(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}
	if verifier == nil {
		log.Println("Authentication disabled")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	server := api.NewServerWithAuth(a.hub, a.arms, auth.NewMiddleware(verifier), &cfg.Timing, cfg.Server)
	server.SetAuditLogger(a.audit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Printf("HTTP server listening on %s", cfg.Server.Addr)
	log.Printf("Health endpoint: http://localhost%s/api/v1/health", cfg.Server.Addr)

	select {
	case <-ctx.Done():
		log.Println("Shutdown requested")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	// Telemetry streams hold connections open, so end them before Shutdown.
	a.hub.Stop()
	log.Println("Telemetry hub stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	} else {
		log.Println("HTTP server stopped gracefully")
	}
	return nil
}
