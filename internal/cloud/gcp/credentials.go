package gcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// Credentials is the secret payload provisioned for the bot: the GitHub
// identity it acts as and the shared secret GitHub signs webhooks with.
// Fetched once per cold start and held immutable for the process lifetime;
// rotation means a new deployment or restart.
type Credentials struct {
	GitHubUser    string `json:"github_user"`
	GitHubToken   string `json:"github_oauth_token"`
	WebhookSecret string `json:"webhook_secret"`

	// AppPrivateKey carries the GitHub App private key PEM when the bot
	// authenticates as an App instead of a personal access token.
	AppPrivateKey string `json:"app_private_key,omitempty"`
}

// LoadCredentials fetches and decodes the bot's secret.
func LoadCredentials(ctx context.Context, fetcher SecretFetcher, secretName string) (*Credentials, error) {
	raw, err := fetcher.FetchSecret(ctx, secretName)
	if err != nil {
		return nil, fmt.Errorf("fetch credentials secret: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("decode credentials secret: %w", err)
	}

	if creds.GitHubToken == "" && creds.AppPrivateKey == "" {
		return nil, fmt.Errorf("credentials secret carries neither a token nor an App key")
	}
	if creds.WebhookSecret == "" {
		return nil, fmt.Errorf("credentials secret missing webhook_secret")
	}
	return &creds, nil
}
