package labels

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	repo := NewSet([]string{"bug", "feature", "wip"})

	tests := []struct {
		name        string
		requested   []string
		wantValid   []string
		wantErr     error
		wantResults []LabelResult
	}{
		{
			name:      "all exist",
			requested: []string{"bug", "feature"},
			wantValid: []string{"bug", "feature"},
			wantResults: []LabelResult{
				{Name: "bug", Outcome: OutcomeApplied},
				{Name: "feature", Outcome: OutcomeApplied},
			},
		},
		{
			name:      "duplicates collapse to first occurrence",
			requested: []string{"bug", "bug", "feature"},
			wantValid: []string{"bug", "feature"},
			wantResults: []LabelResult{
				{Name: "bug", Outcome: OutcomeApplied},
				{Name: "bug", Outcome: OutcomeSkippedDuplicate},
				{Name: "feature", Outcome: OutcomeApplied},
			},
		},
		{
			name:      "unknown labels dropped silently",
			requested: []string{"operator", "feature request"},
			wantValid: nil,
			wantErr:   ErrNoApplicableLabels,
			wantResults: []LabelResult{
				{Name: "operator", Outcome: OutcomeSkippedNonexistent},
				{Name: "feature request", Outcome: OutcomeSkippedNonexistent},
			},
		},
		{
			name:      "matching is case-sensitive",
			requested: []string{"Bug", "feature"},
			wantValid: []string{"feature"},
			wantResults: []LabelResult{
				{Name: "Bug", Outcome: OutcomeSkippedNonexistent},
				{Name: "feature", Outcome: OutcomeApplied},
			},
		},
		{
			name:      "empty request",
			requested: nil,
			wantValid: nil,
			wantErr:   ErrNoApplicableLabels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Validate(tt.requested, repo)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if v == nil {
				t.Fatal("Validate() returned nil validation")
			}
			if !reflect.DeepEqual(v.Valid, tt.wantValid) {
				t.Errorf("Valid = %v, want %v", v.Valid, tt.wantValid)
			}
			if tt.wantResults != nil && !reflect.DeepEqual(v.Results, tt.wantResults) {
				t.Errorf("Results = %v, want %v", v.Results, tt.wantResults)
			}
		})
	}
}

func TestValidate_PartialMatch(t *testing.T) {
	// Requested [operator, feature request] against a repo that only
	// has "operator".
	repo := NewSet([]string{"operator", "wip"})

	v, err := Validate([]string{"operator", "feature request"}, repo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(v.Valid, []string{"operator"}) {
		t.Errorf("Valid = %v, want [operator]", v.Valid)
	}
}

func TestSet_Has(t *testing.T) {
	s := NewSet([]string{"bug"})
	if !s.Has("bug") {
		t.Error("expected Has(bug) = true")
	}
	if s.Has("Bug") {
		t.Error("expected Has(Bug) = false: no case folding")
	}
}
