// Package gcp holds the bot's cloud collaborators: Secret Manager for
// credentials and Cloud Logging for operator-visible output.
package gcp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretFetcher fetches secret payloads. The bot calls it exactly once per
// cold start; nothing re-reads secrets per command.
type SecretFetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

// SecretManagerClient wraps the Secret Manager API.
type SecretManagerClient struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerClient creates a Secret Manager client. The project ID is
// discovered from the environment or the metadata server and used to expand
// bare secret names into full resource paths.
func NewSecretManagerClient(ctx context.Context, opts ...option.ClientOption) (*SecretManagerClient, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}

	projectID, err := ProjectID(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover project ID: %w", err)
	}

	return &SecretManagerClient{client: client, projectID: projectID}, nil
}

// FetchSecret retrieves one secret payload. The path may be a bare secret
// name, a projects/.../secrets/... path, or a full path with a version;
// anything without a version resolves to "latest".
func (c *SecretManagerClient) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: c.resolveSecretPath(secretPath),
	}
	result, err := c.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}

// resolveSecretPath expands the given path into a versioned resource name.
func (c *SecretManagerClient) resolveSecretPath(secretPath string) string {
	if strings.HasPrefix(secretPath, "projects/") {
		if strings.Contains(secretPath, "/versions/") {
			return secretPath
		}
		return secretPath + "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.projectID, path.Base(secretPath))
}

// Close releases the underlying client.
func (c *SecretManagerClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
