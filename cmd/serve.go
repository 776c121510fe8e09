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

	"github.com/shieldsec/shield-cli/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the assessment workflow as a local REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("ip-rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("ip-rate-burst")

		logger := appCtx.logger().Named("api")

		svc, err := appCtx.services(cmd.Context())
		if err != nil {
			return err
		}
		hub := api.NewSnapshotHub(logger)
		ctrl, err := svc.NewWorkflow(hub)
		if err != nil {
			return err
		}

		// a failed initial load leaves the controller in Error; clients can POST /reload
		if err := ctrl.LoadOrganizations(cmd.Context()); err != nil {
			logger.Warn("initial organization load failed", zap.Error(err))
		}

		server := api.NewServer(api.Config{
			Workflow:    ctrl,
			Hub:         hub,
			AuthToken:   authToken,
			Logger:      logger,
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// long enough for a submission; the SSE stream clears its own deadline
			WriteTimeout: appCtx.Config.submitTimeout() + 30*time.Second,
			IdleTimeout:  120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		out := cmd.OutOrStdout()
		go func() {
			fmt.Fprintf(out, "%s API server listening on %s (backend: %s)\n", colorInfo("→"), addr, appCtx.Config.API.BaseURL)
			fmt.Fprintf(out, "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(out, "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(out, "%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("ip-rate-limit", 10, "Rate limit per client IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("ip-rate-burst", 20, "Rate limit burst size per client IP")
	serveCmd.Flags().IntVar(&cliConfig.Defaults.SubmitTimeoutSecs, "submit-timeout", cliConfig.Defaults.SubmitTimeoutSecs, "seconds to wait for the backend to finish an assessment")
	rootCmd.AddCommand(serveCmd)
}
