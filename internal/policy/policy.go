// Package policy loads the operator's optional policy file: who may drive
// the bot and which labels it must leave alone.
package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy is the decoded policy file. The zero value permits everything,
// which is the behavior when no file is configured.
type Policy struct {
	// AuthorizedUsers lists GitHub logins allowed to issue commands.
	// Empty means any commenter may.
	AuthorizedUsers []string `yaml:"authorized_users"`

	// ProtectedLabels are labels the bot refuses to add, remove, or
	// replace away. Matched verbatim, like all label names.
	ProtectedLabels []string `yaml:"protected_labels"`
}

// Load reads and decodes the policy file at path. An empty path yields the
// permissive zero policy.
func Load(path string) (*Policy, error) {
	if path == "" {
		return &Policy{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return &p, nil
}

// Authorized reports whether the given login may issue commands. Login
// matching is case-insensitive, as GitHub usernames are.
func (p *Policy) Authorized(login string) bool {
	if len(p.AuthorizedUsers) == 0 {
		return true
	}
	for _, u := range p.AuthorizedUsers {
		if strings.EqualFold(u, login) {
			return true
		}
	}
	return false
}

// Filter splits requested labels into those the bot may touch and those
// protected by policy. Order is preserved.
func (p *Policy) Filter(requested []string) (allowed, protected []string) {
	if len(p.ProtectedLabels) == 0 {
		return requested, nil
	}

	guard := make(map[string]struct{}, len(p.ProtectedLabels))
	for _, l := range p.ProtectedLabels {
		guard[l] = struct{}{}
	}

	for _, l := range requested {
		if _, ok := guard[l]; ok {
			protected = append(protected, l)
		} else {
			allowed = append(allowed, l)
		}
	}
	return allowed, protected
}

// Preserve returns desired plus any protected labels in current that the
// replacement would otherwise drop. A full-set replacement screened only
// through Filter would still erase protected labels already on the issue;
// this is the guard for that path. Desired order is kept, preserved labels
// follow in their current order.
func (p *Policy) Preserve(desired, current []string) []string {
	if len(p.ProtectedLabels) == 0 {
		return desired
	}

	guard := make(map[string]struct{}, len(p.ProtectedLabels))
	for _, l := range p.ProtectedLabels {
		guard[l] = struct{}{}
	}
	have := make(map[string]struct{}, len(desired))
	for _, l := range desired {
		have[l] = struct{}{}
	}

	out := desired
	for _, l := range current {
		if _, prot := guard[l]; !prot {
			continue
		}
		if _, ok := have[l]; ok {
			continue
		}
		out = append(out, l)
	}
	return out
}
