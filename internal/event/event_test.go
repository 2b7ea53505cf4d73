package event

import (
	"errors"
	"testing"
)

const createdPayload = `{
	"action": "created",
	"issue": {"number": 11925},
	"comment": {
		"body": "@mxnet-label-bot add labels [operator]",
		"user": {"login": "szha"}
	},
	"repository": {"full_name": "apache/incubator-mxnet"}
}`

func TestFromWebhook(t *testing.T) {
	evt, err := FromWebhook([]byte(createdPayload))
	if err != nil {
		t.Fatalf("FromWebhook() error = %v", err)
	}

	if evt.ID == "" {
		t.Error("expected a stamped event ID")
	}
	if evt.Repo != "apache/incubator-mxnet" {
		t.Errorf("repo = %q", evt.Repo)
	}
	if evt.IssueNumber != 11925 {
		t.Errorf("issue = %d", evt.IssueNumber)
	}
	if evt.Author != "szha" {
		t.Errorf("author = %q", evt.Author)
	}
	if evt.Body != "@mxnet-label-bot add labels [operator]" {
		t.Errorf("body = %q", evt.Body)
	}
}

func TestFromWebhook_IgnoredActions(t *testing.T) {
	for _, action := range []string{"edited", "deleted", ""} {
		payload := `{"action": "` + action + `", "issue": {"number": 1}, "repository": {"full_name": "a/b"}}`
		_, err := FromWebhook([]byte(payload))
		if !errors.Is(err, ErrIgnored) {
			t.Errorf("action %q: error = %v, want ErrIgnored", action, err)
		}
	}
}

func TestFromWebhook_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not JSON", "not json at all"},
		{"missing repository", `{"action":"created","issue":{"number":1},"comment":{"body":"x","user":{"login":"u"}}}`},
		{"missing issue number", `{"action":"created","comment":{"body":"x","user":{"login":"u"}},"repository":{"full_name":"a/b"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromWebhook([]byte(tt.payload)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFromQueueMessage_RoundTrip(t *testing.T) {
	orig := &Event{
		ID:          "evt-123",
		Repo:        "apache/incubator-mxnet",
		IssueNumber: 42,
		Author:      "szha",
		Body:        "@mxnet-label-bot remove labels [wip]",
	}
	data, err := orig.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got, err := FromQueueMessage(data)
	if err != nil {
		t.Fatalf("FromQueueMessage() error = %v", err)
	}
	if *got != *orig {
		t.Errorf("round-tripped event = %+v, want %+v", got, orig)
	}
}

func TestFromQueueMessage_StampsMissingID(t *testing.T) {
	evt, err := FromQueueMessage([]byte(`{"repo":"a/b","issue_id":7,"author":"u","comment_text":"hi"}`))
	if err != nil {
		t.Fatalf("FromQueueMessage() error = %v", err)
	}
	if evt.ID == "" {
		t.Error("expected a stamped ID for messages published without one")
	}
}

func TestFromQueueMessage_Invalid(t *testing.T) {
	if _, err := FromQueueMessage([]byte(`{"issue_id":7}`)); err == nil {
		t.Error("expected error for message without repository")
	}
}
