// Package event defines the normalized inbound event and the adapters that
// produce it from each external payload shape. Business logic never
// branches on where an event came from; it sees only Event.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrIgnored marks payloads that are well-formed but not for this bot:
// comment edits and deletions, or events other than issue comments. Callers
// acknowledge these without processing.
var ErrIgnored = errors.New("event ignored")

// Event is one issue comment to examine for a bot command.
type Event struct {
	// ID correlates log lines for one event across ingest and worker.
	ID string `json:"id"`

	// Repo is the owner/name repository the comment belongs to.
	Repo string `json:"repo"`

	// IssueNumber identifies the issue within the repository.
	IssueNumber int `json:"issue_id"`

	// Author is the commenting user's login.
	Author string `json:"author"`

	// Body is the raw comment text.
	Body string `json:"comment_text"`
}

// webhookPayload is the subset of GitHub's issue_comment webhook body the
// bot reads.
type webhookPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number int `json:"number"`
	} `json:"issue"`
	Comment struct {
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// FromWebhook adapts a GitHub issue_comment webhook body into an Event,
// stamping a fresh ID. Only newly created comments matter: edited and
// deleted actions return ErrIgnored.
func FromWebhook(payload []byte) (*Event, error) {
	var wp webhookPayload
	if err := json.Unmarshal(payload, &wp); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	if wp.Action != "created" {
		return nil, fmt.Errorf("action %q: %w", wp.Action, ErrIgnored)
	}

	evt := &Event{
		ID:          uuid.NewString(),
		Repo:        wp.Repository.FullName,
		IssueNumber: wp.Issue.Number,
		Author:      wp.Comment.User.Login,
		Body:        wp.Comment.Body,
	}
	if err := evt.validate(); err != nil {
		return nil, err
	}
	return evt, nil
}

// FromQueueMessage adapts a queue message carrying the normalized payload.
// Messages published before ID stamping existed get one assigned here so
// log correlation always has something to key on.
func FromQueueMessage(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("decode queue message: %w", err)
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if err := evt.validate(); err != nil {
		return nil, err
	}
	return &evt, nil
}

// Marshal encodes the event for publishing.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Event) validate() error {
	if e.Repo == "" {
		return fmt.Errorf("event missing repository")
	}
	if e.IssueNumber <= 0 {
		return fmt.Errorf("event missing issue number")
	}
	return nil
}
