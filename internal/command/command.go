// Package command extracts label-bot commands from issue comment text.
package command

// Intent is the label operation a command requests.
type Intent string

const (
	IntentAdd    Intent = "add"
	IntentRemove Intent = "remove"
	IntentUpdate Intent = "update"
)

// Command is one parsed bot instruction: an intent plus the label names it
// requested, in order of first appearance. Duplicates are preserved here and
// collapsed during validation so the per-command report can mention them.
type Command struct {
	Intent Intent
	Labels []string
}
