// Package github is the bot's client for the GitHub REST API: label reads
// and writes, plus App installation authentication.
package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// appJWTLifetime is the validity window for App JWTs. GitHub rejects JWTs
// that claim more than 10 minutes.
const appJWTLifetime = 10 * time.Minute

// refreshBuffer is how long before expiry an installation token is treated
// as stale. Installation tokens live one hour; refreshing five minutes
// early keeps in-flight requests off an expiring token.
const refreshBuffer = 5 * time.Minute

// TokenSource yields a bearer token for API requests.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource for a fixed personal access token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) {
		if token == "" {
			return "", fmt.Errorf("empty access token")
		}
		return token, nil
	}
}

// AppAuth authenticates as a GitHub App installation. It signs short-lived
// App JWTs with the App's private key, exchanges them for installation
// access tokens, and caches the token until it nears expiry.
type AppAuth struct {
	mu sync.RWMutex

	appID          string
	installationID int64
	privateKey     *rsa.PrivateKey

	token     string
	expiresAt time.Time

	httpClient *http.Client
	baseURL    string
	nowFunc    func() time.Time
}

// AppAuthOption configures an AppAuth.
type AppAuthOption func(*AppAuth)

// WithAuthHTTPClient sets the HTTP client used for the token exchange.
func WithAuthHTTPClient(c *http.Client) AppAuthOption {
	return func(a *AppAuth) { a.httpClient = c }
}

// WithAuthBaseURL points the token exchange at a different API base URL.
// Used in tests.
func WithAuthBaseURL(url string) AppAuthOption {
	return func(a *AppAuth) { a.baseURL = url }
}

// WithAuthNowFunc overrides the clock. Used in tests.
func WithAuthNowFunc(fn func() time.Time) AppAuthOption {
	return func(a *AppAuth) { a.nowFunc = fn }
}

// NewAppAuth creates an AppAuth from the App ID, installation ID, and the
// PEM-encoded RSA private key. The key is parsed eagerly so a bad secret
// fails at startup rather than on the first command.
func NewAppAuth(appID string, installationID int64, privateKeyPEM []byte, opts ...AppAuthOption) (*AppAuth, error) {
	if appID == "" {
		return nil, fmt.Errorf("app ID cannot be empty")
	}
	if installationID <= 0 {
		return nil, fmt.Errorf("installation ID must be positive")
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse App private key: %w", err)
	}

	a := &AppAuth{
		appID:          appID,
		installationID: installationID,
		privateKey:     key,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        defaultBaseURL,
		nowFunc:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Token returns a valid installation token, refreshing when the cached one
// is missing or inside the refresh buffer.
func (a *AppAuth) Token(ctx context.Context) (string, error) {
	a.mu.RLock()
	if a.freshLocked() {
		token := a.token
		a.mu.RUnlock()
		return token, nil
	}
	a.mu.RUnlock()

	return a.refresh(ctx)
}

// ExpiresAt reports when the cached installation token expires. Zero when
// no token has been fetched yet.
func (a *AppAuth) ExpiresAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.expiresAt
}

// freshLocked reports whether the cached token is usable. Callers hold at
// least the read lock.
func (a *AppAuth) freshLocked() bool {
	return a.token != "" && a.expiresAt.After(a.nowFunc().Add(refreshBuffer))
}

// refresh signs a new App JWT and exchanges it for an installation token.
func (a *AppAuth) refresh(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have refreshed while we waited on the lock.
	if a.freshLocked() {
		return a.token, nil
	}

	signed, err := a.signJWT()
	if err != nil {
		return "", fmt.Errorf("sign App JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, a.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange App JWT: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", newAPIError(resp.StatusCode, body)
	}

	var installation struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(body, &installation); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	a.token = installation.Token
	a.expiresAt = installation.ExpiresAt
	return a.token, nil
}

// signJWT produces an RS256 App JWT valid for the full ten-minute window.
func (a *AppAuth) signJWT() (string, error) {
	now := a.nowFunc()
	claims := jwt.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.privateKey)
}

// parsePrivateKey accepts PKCS#1 ("RSA PRIVATE KEY") and PKCS#8
// ("PRIVATE KEY") PEM blocks, the two formats GitHub issues App keys in.
func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}
