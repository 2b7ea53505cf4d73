package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/triagehq/labelbot/internal/cloud/gcp"
	"github.com/triagehq/labelbot/internal/event"
)

// maxBodySize bounds webhook payloads. GitHub caps deliveries at 25 MB but
// issue-comment payloads are tiny; anything near the cap is not for us.
const maxBodySize = 1 << 20

// Publisher is the slice of the queue the ingest path needs.
type Publisher interface {
	Publish(ctx context.Context, data []byte) (string, error)
}

// Handler is the webhook ingest endpoint. It verifies, normalizes, and
// enqueues; all label work happens in the worker so GitHub's delivery
// timeout never races a mutation.
type Handler struct {
	secret    []byte
	publisher Publisher
	logger    gcp.Logger
}

// NewHandler creates the ingest handler.
func NewHandler(webhookSecret string, publisher Publisher, logger gcp.Logger) *Handler {
	return &Handler{
		secret:    []byte(webhookSecret),
		publisher: publisher,
		logger:    logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxBodySize {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := VerifySignature(h.secret, body, r.Header); err != nil {
		h.logger.Warning("rejected webhook delivery", map[string]interface{}{
			"reason": err.Error(),
			"remote": r.RemoteAddr,
		})
		http.Error(w, "signature verification failed", http.StatusForbidden)
		return
	}

	switch ghEvent := r.Header.Get("X-GitHub-Event"); ghEvent {
	case "ping":
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
		return
	case "issue_comment":
		// fall through to normalization
	default:
		// Signed but irrelevant; acknowledge so GitHub does not retry.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	evt, err := event.FromWebhook(body)
	if err != nil {
		if errors.Is(err, event.ErrIgnored) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.logger.Warning("unparseable issue_comment payload", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	data, err := evt.Marshal()
	if err != nil {
		http.Error(w, "encode event", http.StatusInternalServerError)
		return
	}

	msgID, err := h.publisher.Publish(r.Context(), data)
	if err != nil {
		h.logger.Error("enqueue failed", map[string]interface{}{
			"event_id": evt.ID,
			"error":    err.Error(),
		})
		// 502 makes GitHub's delivery view show the failure for redelivery.
		http.Error(w, "enqueue failed", http.StatusBadGateway)
		return
	}

	h.logger.Info("enqueued issue comment", map[string]interface{}{
		"event_id":   evt.ID,
		"message_id": msgID,
		"repo":       evt.Repo,
		"issue":      evt.IssueNumber,
	})
	w.WriteHeader(http.StatusAccepted)
}
