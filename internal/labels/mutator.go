package labels

import (
	"context"
	"fmt"

	"github.com/triagehq/labelbot/internal/command"
)

// Report is the per-command outcome of a mutation.
type Report struct {
	Intent  command.Intent
	Results []LabelResult

	// Labels is the issue's full label set after the write.
	Labels []string
}

// Applied returns the labels that were part of the written set, in request order.
func (r *Report) Applied() []string {
	var out []string
	for _, res := range r.Results {
		if res.Outcome == OutcomeApplied {
			out = append(out, res.Name)
		}
	}
	return out
}

// Mutator applies validated label commands to issues. It issues exactly one
// write per command: the resulting label set is computed locally and handed
// to the store's replace call, so atomicity rides on the store's contract.
type Mutator struct {
	store Store
}

// NewMutator creates a Mutator backed by the given store.
func NewMutator(store Store) *Mutator {
	return &Mutator{store: store}
}

// Apply performs the command's operation for the validated labels.
//
//   - add: union the validated labels into the issue's current set
//   - remove: subtract them; removing a label not on the issue is a no-op
//   - update: replace the issue's set with exactly the validated labels
//
// Store failures come back as *MutationError with a classified reason.
func (m *Mutator) Apply(ctx context.Context, repo string, issue int, intent command.Intent, v *Validation) (*Report, error) {
	if v == nil || len(v.Valid) == 0 {
		return nil, ErrNoApplicableLabels
	}

	var desired []string
	switch intent {
	case command.IntentUpdate:
		// No read needed: the new set is exactly the validated list.
		desired = append(desired, v.Valid...)

	case command.IntentAdd, command.IntentRemove:
		current, err := m.store.GetIssueLabels(ctx, repo, issue)
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if intent == command.IntentAdd {
			desired = union(current, v.Valid)
		} else {
			desired = subtract(current, v.Valid)
		}

	default:
		return nil, fmt.Errorf("unknown intent %q", intent)
	}

	if err := m.store.SetIssueLabels(ctx, repo, issue, desired); err != nil {
		return nil, wrapStoreError(err)
	}

	results := make([]LabelResult, len(v.Results))
	copy(results, v.Results)

	return &Report{
		Intent:  intent,
		Results: results,
		Labels:  desired,
	}, nil
}

// union appends the labels from add that are not already in current,
// preserving the current set's order.
func union(current, add []string) []string {
	out := make([]string, 0, len(current)+len(add))
	have := make(map[string]struct{}, len(current))
	for _, l := range current {
		out = append(out, l)
		have[l] = struct{}{}
	}
	for _, l := range add {
		if _, ok := have[l]; !ok {
			out = append(out, l)
			have[l] = struct{}{}
		}
	}
	return out
}

// subtract removes the given labels from current, preserving order.
func subtract(current, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, l := range remove {
		drop[l] = struct{}{}
	}
	out := make([]string, 0, len(current))
	for _, l := range current {
		if _, ok := drop[l]; !ok {
			out = append(out, l)
		}
	}
	return out
}
