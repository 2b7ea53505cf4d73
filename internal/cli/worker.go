package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/triagehq/labelbot/internal/cloud/gcp"
	"github.com/triagehq/labelbot/internal/config"
	"github.com/triagehq/labelbot/internal/dispatch"
	"github.com/triagehq/labelbot/internal/github"
	"github.com/triagehq/labelbot/internal/policy"
	"github.com/triagehq/labelbot/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the label worker",
	Long: `Run the worker that consumes enqueued comment events.

For each event the worker parses the label command, validates the
requested labels against the repository's label set, and applies the
mutation through the GitHub API. Events that fail are returned to the
queue for redelivery.

Example:
  labelbot worker --subscription labelbot-worker`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().String("subscription", "", "Pub/Sub subscription to consume")
	workerCmd.Flags().String("project", "", "GCP project ID")
	workerCmd.Flags().String("secret", "", "Secret Manager name of the credentials secret")
	workerCmd.Flags().String("repo", "", "GitHub repository served by the bot (owner/name)")
	workerCmd.Flags().String("handle", "", "bot mention handle (e.g., @label-bot)")
	workerCmd.Flags().String("policy", "", "path to the operator policy file")

	_ = viper.BindPFlag("queue.subscription", workerCmd.Flags().Lookup("subscription"))
	_ = viper.BindPFlag("cloud.project", workerCmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("cloud.secret_name", workerCmd.Flags().Lookup("secret"))
	_ = viper.BindPFlag("github.repository", workerCmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("bot.handle", workerCmd.Flags().Lookup("handle"))
	_ = viper.BindPFlag("bot.policy_file", workerCmd.Flags().Lookup("policy"))
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForWorker(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger := gcp.NewLogger(ctx, cfg.Cloud.Project, cfg.Cloud.LogID)
	defer logger.Close()

	creds, err := fetchCredentials(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := newGitHubClient(cfg, creds)
	if err != nil {
		return err
	}

	pol, err := policy.Load(cfg.Bot.PolicyFile)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	handler := dispatch.NewHandler(client, logger, cfg.GitHub.Repository, cfg.Bot.Handle,
		dispatch.WithPolicy(pol),
		dispatch.WithRateLimitGuard(client, cfg.Bot.RateLimitFloor),
	)

	consumer, err := queue.NewConsumer(ctx, cfg.Cloud.Project, cfg.Queue.Subscription)
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	defer consumer.Close()

	logger.Info("worker consuming", map[string]interface{}{
		"subscription": cfg.Queue.Subscription,
		"repository":   cfg.GitHub.Repository,
	})

	if err := consumer.Receive(ctx, handler.HandleDelivery); err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive: %w", err)
	}
	return nil
}

// newGitHubClient builds the API client from whichever identity the secret
// carries: an App installation when a private key is present, otherwise the
// personal access token.
func newGitHubClient(cfg *config.Config, creds *gcp.Credentials) (*github.Client, error) {
	timeout, err := cfg.CallTimeout()
	if err != nil {
		return nil, err
	}

	opts := []github.ClientOption{github.WithCallTimeout(timeout)}
	if cfg.GitHub.APIBaseURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.APIBaseURL))
	}

	if creds.AppPrivateKey != "" {
		if cfg.GitHub.AppID == 0 {
			return nil, fmt.Errorf("credentials carry an App key but github.app_id is not set")
		}
		var authOpts []github.AppAuthOption
		if cfg.GitHub.APIBaseURL != "" {
			authOpts = append(authOpts, github.WithAuthBaseURL(cfg.GitHub.APIBaseURL))
		}
		auth, err := github.NewAppAuth(
			fmt.Sprintf("%d", cfg.GitHub.AppID),
			cfg.GitHub.InstallationID,
			[]byte(creds.AppPrivateKey),
			authOpts...,
		)
		if err != nil {
			return nil, fmt.Errorf("configure app auth: %w", err)
		}
		return github.NewClient(auth.Token, opts...), nil
	}

	return github.NewClient(github.StaticToken(creds.GitHubToken), opts...), nil
}
