// Package labels validates requested label names against a repository's
// label set and applies add/remove/update mutations to an issue through the
// external label store.
package labels

import (
	"context"
	"errors"
)

// ErrNoApplicableLabels signals a well-formed command whose requested labels
// all fail validation. It is a completed no-op for the dispatcher, not a
// failure that should be retried.
var ErrNoApplicableLabels = errors.New("no applicable labels")

// Store is the external label store the bot mutates. Implementations must
// make SetIssueLabels atomic: the full set is written in one call or the
// call fails with no partial mutation visible.
type Store interface {
	// ListLabels returns the names of all labels defined in the repository.
	ListLabels(ctx context.Context, repo string) ([]string, error)

	// GetIssueLabels returns the labels currently on the issue.
	GetIssueLabels(ctx context.Context, repo string, issue int) ([]string, error)

	// SetIssueLabels replaces the issue's label set with exactly the given labels.
	SetIssueLabels(ctx context.Context, repo string, issue int, labels []string) error
}

// Set is a repository's label names at a point in time. It is a read-only
// snapshot for the duration of one command; nothing caches it across commands.
type Set map[string]struct{}

// NewSet builds a Set from a list of label names.
func NewSet(names []string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name exists in the set. Matching is case-sensitive:
// label names are taken verbatim from the store, with no normalization.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Outcome is the per-label result of processing one command.
type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeSkippedNonexistent Outcome = "skipped-nonexistent"
	OutcomeSkippedDuplicate   Outcome = "skipped-duplicate"
)

// LabelResult records what happened to one requested label token.
type LabelResult struct {
	Name    string
	Outcome Outcome
}

// Validation is the result of checking a command's labels against the
// repository's label set.
type Validation struct {
	// Valid holds the labels that exist in the repository, de-duplicated,
	// in order of first appearance.
	Valid []string

	// Results holds one entry per requested token, in input order. Entries
	// for valid labels carry OutcomeApplied once the mutation succeeds;
	// until then the outcome is provisional.
	Results []LabelResult
}

// Validate partitions the requested labels into those that exist in the
// repository and those that do not. Requested labels are de-duplicated
// first, preserving insertion order so reports are deterministic. Labels
// that do not exist are dropped silently; the bot never creates a label as
// a side effect of a command.
//
// Returns ErrNoApplicableLabels when nothing survives; the Validation is
// still returned so the caller can report the dropped labels.
func Validate(requested []string, repo Set) (*Validation, error) {
	v := &Validation{
		Results: make([]LabelResult, 0, len(requested)),
	}

	seen := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		if _, dup := seen[name]; dup {
			v.Results = append(v.Results, LabelResult{Name: name, Outcome: OutcomeSkippedDuplicate})
			continue
		}
		seen[name] = struct{}{}

		if !repo.Has(name) {
			v.Results = append(v.Results, LabelResult{Name: name, Outcome: OutcomeSkippedNonexistent})
			continue
		}

		v.Valid = append(v.Valid, name)
		v.Results = append(v.Results, LabelResult{Name: name, Outcome: OutcomeApplied})
	}

	if len(v.Valid) == 0 {
		return v, ErrNoApplicableLabels
	}
	return v, nil
}
