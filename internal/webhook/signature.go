// Package webhook accepts GitHub webhook deliveries, verifies their
// signatures, and enqueues normalized events for the worker.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingSignature means the delivery carried no signature header
	// at all; either the webhook is misconfigured without a secret or the
	// request did not come from GitHub.
	ErrMissingSignature = errors.New("webhook delivery is not signed")

	// ErrSignatureMismatch means the signature did not verify against the
	// shared secret.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
)

// VerifySignature checks the delivery's HMAC signature over body.
// X-Hub-Signature-256 (HMAC-SHA256) is preferred; X-Hub-Signature
// (HMAC-SHA1) is accepted for older webhook configurations.
func VerifySignature(secret, body []byte, header http.Header) error {
	if sig := header.Get("X-Hub-Signature-256"); sig != "" {
		return verify(secret, body, sig, "sha256=")
	}
	if sig := header.Get("X-Hub-Signature"); sig != "" {
		return verify(secret, body, sig, "sha1=")
	}
	return ErrMissingSignature
}

func verify(secret, body []byte, signature, prefix string) error {
	if !strings.HasPrefix(signature, prefix) {
		return ErrSignatureMismatch
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, prefix))
	if err != nil {
		return ErrSignatureMismatch
	}

	var mac []byte
	switch prefix {
	case "sha256=":
		m := hmac.New(sha256.New, secret)
		m.Write(body)
		mac = m.Sum(nil)
	case "sha1=":
		m := hmac.New(sha1.New, secret)
		m.Write(body)
		mac = m.Sum(nil)
	}

	if !hmac.Equal(got, mac) {
		return ErrSignatureMismatch
	}
	return nil
}
