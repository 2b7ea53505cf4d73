package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/triagehq/labelbot/internal/cloud/gcp"
	"github.com/triagehq/labelbot/internal/config"
	"github.com/triagehq/labelbot/internal/queue"
	"github.com/triagehq/labelbot/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook ingest server",
	Long: `Run the HTTP server that receives GitHub webhooks.

The server verifies each delivery's HMAC signature against the shared
webhook secret, normalizes issue-comment events, and enqueues them for
the worker. It never talks to the GitHub API itself.

Example:
  labelbot serve --listen :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "address to listen on (e.g., :8080)")
	serveCmd.Flags().String("topic", "", "Pub/Sub topic for enqueued events")
	serveCmd.Flags().String("project", "", "GCP project ID")
	serveCmd.Flags().String("secret", "", "Secret Manager name of the credentials secret")

	_ = viper.BindPFlag("server.listen_addr", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("queue.topic", serveCmd.Flags().Lookup("topic"))
	_ = viper.BindPFlag("cloud.project", serveCmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("cloud.secret_name", serveCmd.Flags().Lookup("secret"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := gcp.NewLogger(ctx, cfg.Cloud.Project, cfg.Cloud.LogID)
	defer logger.Close()

	// Credentials are fetched once at startup; the server only needs the
	// webhook secret out of them.
	creds, err := fetchCredentials(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, err := queue.NewPublisher(ctx, cfg.Cloud.Project, cfg.Queue.Topic)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	defer publisher.Close()

	mux := http.NewServeMux()
	mux.Handle("/webhook", webhook.NewHandler(creds.WebhookSecret, publisher, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook server listening", map[string]interface{}{
			"addr":  cfg.Server.ListenAddr,
			"topic": cfg.Queue.Topic,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// fetchCredentials opens Secret Manager, loads the bot's secret, and closes
// the client. If the secret cannot be read the process exits: without the
// webhook secret no delivery is trustworthy and without a GitHub identity no
// mutation can land.
func fetchCredentials(ctx context.Context, cfg *config.Config) (*gcp.Credentials, error) {
	fetcher, err := gcp.NewSecretManagerClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	defer fetcher.Close()

	creds, err := gcp.LoadCredentials(ctx, fetcher, cfg.Cloud.SecretName)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return creds, nil
}
