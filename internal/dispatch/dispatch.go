// Package dispatch runs one inbound event through the parse, validate,
// mutate pipeline and settles the queue delivery according to the outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/triagehq/labelbot/internal/cloud/gcp"
	"github.com/triagehq/labelbot/internal/command"
	"github.com/triagehq/labelbot/internal/event"
	"github.com/triagehq/labelbot/internal/labels"
	"github.com/triagehq/labelbot/internal/policy"
	"github.com/triagehq/labelbot/internal/queue"
)

// State tracks an event through the pipeline.
type State string

const (
	StateReceived     State = "received"
	StateParsed       State = "parsed"
	StateValidated    State = "validated"
	StateMutated      State = "mutated"
	StateAcknowledged State = "acknowledged"

	// StateSkipped is a completed no-op: no command found, commenter not
	// authorized, or nothing applicable. Skipped events are acknowledged.
	StateSkipped State = "skipped"

	// StateFailed means the mutation (or a prerequisite store call) did
	// not land. Failed events are not acknowledged; the queue redelivers
	// them and eventually dead-letters.
	StateFailed State = "failed"
)

// Result is the outcome of processing one event.
type Result struct {
	State      State
	Event      *event.Event
	Command    *command.Command
	Report     *labels.Report
	SkipReason string
	Err        error
}

// RateLimiter reports remaining API budget. Implemented by the GitHub client.
type RateLimiter interface {
	RateLimitRemaining(ctx context.Context) (int, error)
}

// Handler orchestrates the pipeline. One Handler serves many events; all
// per-event state lives in Result, so concurrent invocations do not share
// anything mutable.
type Handler struct {
	store      labels.Store
	mutator    *labels.Mutator
	pol        *policy.Policy
	logger     gcp.Logger
	handle     string
	repository string

	limiter        RateLimiter
	rateLimitFloor int
}

// Option configures a Handler.
type Option func(*Handler)

// WithRateLimitGuard makes the handler fail events (for redelivery) when
// the remaining API budget drops below floor. Zero floor disables the guard.
func WithRateLimitGuard(limiter RateLimiter, floor int) Option {
	return func(h *Handler) {
		h.limiter = limiter
		h.rateLimitFloor = floor
	}
}

// WithPolicy applies an operator policy. Nil is treated as permissive.
func WithPolicy(p *policy.Policy) Option {
	return func(h *Handler) {
		if p != nil {
			h.pol = p
		}
	}
}

// NewHandler creates a dispatch handler for one repository and bot handle.
func NewHandler(store labels.Store, logger gcp.Logger, repository, handle string, opts ...Option) *Handler {
	h := &Handler{
		store:      store,
		mutator:    labels.NewMutator(store),
		pol:        &policy.Policy{},
		logger:     logger,
		handle:     handle,
		repository: repository,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleDelivery decodes and processes one queue delivery, then settles it:
// ack on Skipped and Acknowledged, nack on Failed so the queue's
// redelivery and dead-letter policy take over.
func (h *Handler) HandleDelivery(ctx context.Context, d queue.Delivery) {
	evt, err := event.FromQueueMessage(d.Data())
	if err != nil {
		// Redelivery cannot fix a malformed message; ack it away instead
		// of poisoning the subscription.
		h.logger.Warning("dropping malformed queue message", map[string]interface{}{
			"message_id": d.ID(),
			"error":      err.Error(),
		})
		d.Ack()
		return
	}

	res := h.Process(ctx, evt)
	switch res.State {
	case StateFailed:
		d.Nack()
	default:
		d.Ack()
	}
}

// Process runs the state machine for one event and returns the terminal
// result. It never panics on expected conditions: non-commands and
// inapplicable commands are Skipped, store failures are Failed.
func (h *Handler) Process(ctx context.Context, evt *event.Event) *Result {
	res := &Result{State: StateReceived, Event: evt}

	if h.repository != "" && evt.Repo != h.repository {
		return h.skip(res, fmt.Sprintf("repository %s is not served by this bot", evt.Repo))
	}

	// Received -> Parsed
	cmd, ok := command.Parse(evt.Body, h.handle)
	if !ok {
		return h.skip(res, "no command found")
	}
	res.State = StateParsed
	res.Command = cmd

	if !h.pol.Authorized(evt.Author) {
		return h.skip(res, fmt.Sprintf("user %s is not authorized to command the bot", evt.Author))
	}

	requested, protected := h.pol.Filter(cmd.Labels)
	if len(protected) > 0 {
		h.logger.Warning("command touches protected labels", map[string]interface{}{
			"event_id":  evt.ID,
			"protected": protected,
		})
	}
	if len(requested) == 0 {
		return h.skip(res, "all requested labels are protected")
	}

	if failed := h.checkRateBudget(ctx, res); failed != nil {
		return failed
	}

	// Parsed -> Validated. The label set is fetched fresh per event so a
	// label created moments ago is already usable.
	names, err := h.store.ListLabels(ctx, evt.Repo)
	if err != nil {
		return h.fail(res, fmt.Errorf("list repository labels: %w", err))
	}

	validation, err := labels.Validate(requested, labels.NewSet(names))
	if err != nil {
		if errors.Is(err, labels.ErrNoApplicableLabels) {
			return h.skip(res, "no requested label exists in the repository")
		}
		return h.fail(res, err)
	}
	res.State = StateValidated

	// A replacement must not drop protected labels already on the issue;
	// Filter only screens what the command asked for.
	if cmd.Intent == command.IntentUpdate && len(h.pol.ProtectedLabels) > 0 {
		current, err := h.store.GetIssueLabels(ctx, evt.Repo, evt.IssueNumber)
		if err != nil {
			return h.fail(res, fmt.Errorf("get issue labels: %w", err))
		}
		validation.Valid = h.pol.Preserve(validation.Valid, current)
	}

	// Validated -> Mutated
	report, err := h.mutator.Apply(ctx, evt.Repo, evt.IssueNumber, cmd.Intent, validation)
	if err != nil {
		return h.fail(res, err)
	}
	res.State = StateMutated
	res.Report = report

	// Mutated -> Acknowledged
	res.State = StateAcknowledged
	h.logger.Info("command applied", map[string]interface{}{
		"event_id": evt.ID,
		"repo":     evt.Repo,
		"issue":    evt.IssueNumber,
		"intent":   string(cmd.Intent),
		"applied":  report.Applied(),
	})
	return res
}

// checkRateBudget fails the event for redelivery when the API budget is
// below the floor. Budget lookup errors are logged and waved through: the
// guard is best-effort and must not block commands on its own failure.
func (h *Handler) checkRateBudget(ctx context.Context, res *Result) *Result {
	if h.limiter == nil || h.rateLimitFloor <= 0 {
		return nil
	}

	remaining, err := h.limiter.RateLimitRemaining(ctx)
	if err != nil {
		h.logger.Warning("rate limit check failed", map[string]interface{}{
			"event_id": res.Event.ID,
			"error":    err.Error(),
		})
		return nil
	}
	if remaining < h.rateLimitFloor {
		return h.fail(res, fmt.Errorf("API budget %d below floor %d; deferring for redelivery", remaining, h.rateLimitFloor))
	}
	return nil
}

func (h *Handler) skip(res *Result, reason string) *Result {
	res.State = StateSkipped
	res.SkipReason = reason
	h.logger.Info("event skipped", map[string]interface{}{
		"event_id": res.Event.ID,
		"reason":   reason,
	})
	return res
}

func (h *Handler) fail(res *Result, err error) *Result {
	res.State = StateFailed
	res.Err = err
	h.logger.Error("event failed", map[string]interface{}{
		"event_id": res.Event.ID,
		"error":    err.Error(),
	})
	return res
}
