package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance web server.
Known faces are loaded into the identity index before the server accepts
requests. The server exposes the JSON API under /api/v1 and Prometheus
metrics under /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 5000, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
	serveCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Parallel extractor calls while loading known faces")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	m := metrics.New()
	svc, err := newService(cfg, b, m)
	if err != nil {
		return err
	}
	creds, err := seedCredentials(ctx, cfg, b)
	if err != nil {
		return err
	}

	fmt.Printf("Loading known faces (%s index)...\n", svc.Index().Backend())
	stats, err := svc.Reload(ctx, mustGetInt(cmd, "concurrency"))
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d of %d known faces (%d skipped, %d from cache)\n",
		stats.Loaded, stats.Files, stats.Skipped, stats.Cached)

	sessionRepo := b.sessionRepository()
	if sessionRepo != nil {
		fmt.Printf("Session persistence enabled (%s)\n", b.sql.Dialect())
	}

	port, host, sessionSecret := resolveServeHostPort(cmd)
	if sessionSecret == "" {
		fmt.Println("Warning: no session secret set, using the development default")
	}

	server := web.NewServer(svc, creds, m, web.Options{
		Host:           host,
		Port:           port,
		SessionSecret:  sessionSecret,
		SessionRepo:    sessionRepo,
		AllowedOrigins: middleware.ParseOrigins(os.Getenv("WEB_ALLOWED_ORIGINS")),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
