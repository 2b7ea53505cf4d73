package gcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const metadataRoot = "http://metadata.google.internal/computeMetadata/v1"

// ProjectID returns the GCP project ID, preferring environment variables
// and falling back to the metadata server (Cloud Run, Cloud Functions, VMs).
func ProjectID(ctx context.Context) (string, error) {
	for _, name := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if id := os.Getenv(name); id != "" {
			return id, nil
		}
	}
	return metadataField(ctx, "project/project-id")
}

// IsRunningOnGCP probes the metadata server with a short timeout. Used to
// pick between Cloud Logging and local structured output.
func IsRunningOnGCP() bool {
	req, err := http.NewRequest(http.MethodGet, metadataRoot+"/", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// metadataField fetches one field from the metadata server.
func metadataField(ctx context.Context, field string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataRoot+"/"+field, nil)
	if err != nil {
		return "", fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch metadata field %s: %w", field, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata server returned status %d for %s", resp.StatusCode, field)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read metadata response: %w", err)
	}

	value := strings.TrimSpace(string(body))
	if value == "" {
		return "", fmt.Errorf("empty value for metadata field %s", field)
	}
	return value, nil
}
