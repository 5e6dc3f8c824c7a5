package roles

import (
	"fmt"
	"sort"
	"sync"

	"levee/internal/logging"
	"levee/internal/types"
)

// Enforcer answers permission checks against an injectable role table.
// Safe for concurrent readers; Replace swaps the table atomically so a
// hot-reloaded policy file takes effect mid-run.
type Enforcer struct {
	mu    sync.RWMutex
	table Table
}

// NewEnforcer builds an enforcer over the given table. A nil table gets
// the flood-domain defaults.
func NewEnforcer(table Table) (*Enforcer, error) {
	if table == nil {
		table = DefaultTable()
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Enforcer{table: table}, nil
}

// Replace swaps in a new table. Used by the policy watcher; a table that
// fails validation is rejected and the previous one stays in force.
func (e *Enforcer) Replace(table Table) error {
	if err := table.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.table = table
	e.mu.Unlock()
	logging.Roles("role table replaced (%d categories)", len(table))
	return nil
}

// lookup fails closed for unknown categories.
func (e *Enforcer) lookup(category string) (Spec, types.PermissionResult, bool) {
	e.mu.RLock()
	spec, ok := e.table[category]
	e.mu.RUnlock()
	if !ok {
		return Spec{}, types.Deny(fmt.Sprintf("unknown actor category: %s", category)), false
	}
	return spec, types.PermissionResult{}, true
}

// CheckSkillPermission reports whether the category may propose the skill.
func (e *Enforcer) CheckSkillPermission(category, skill string) types.PermissionResult {
	spec, denied, ok := e.lookup(category)
	if !ok {
		return denied
	}
	if !spec.Allows(skill) {
		logging.RolesDebug("denied skill %s for %s", skill, category)
		return types.Deny(fmt.Sprintf("skill %s not permitted for %s", skill, category))
	}
	return types.Allow()
}

// CheckStateAccess reports whether the category may read the scope.
func (e *Enforcer) CheckStateAccess(category, scope string) types.PermissionResult {
	spec, denied, ok := e.lookup(category)
	if !ok {
		return denied
	}
	for _, s := range spec.CanReadState {
		if s == scope {
			return types.Allow()
		}
	}
	return types.Deny(fmt.Sprintf("scope %s not readable by %s", scope, category))
}

// CheckStateMutation reports whether the category may modify the field.
func (e *Enforcer) CheckStateMutation(category, field string) types.PermissionResult {
	spec, denied, ok := e.lookup(category)
	if !ok {
		return denied
	}
	for _, f := range spec.CanModify {
		if f == field {
			return types.Allow()
		}
	}
	return types.Deny(fmt.Sprintf("field %s not mutable by %s", field, category))
}

// ArtifactType returns the audit artifact tag for a category, or "unknown"
// for categories outside the table.
func (e *Enforcer) ArtifactType(category string) string {
	spec, _, ok := e.lookup(category)
	if !ok {
		return "unknown"
	}
	return spec.ArtifactType
}

// Categories returns the known category names.
func (e *Enforcer) Categories() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.table))
	for c := range e.table {
		out = append(out, c)
	}
	return out
}

// AllSkills returns the sorted union of every category's allowed skills.
// Parsers match against this vocabulary so that a recognizable but
// impermissible skill is denied by the permission check rather than
// silently dropped during parsing.
func (e *Enforcer) AllSkills() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, spec := range e.table {
		for _, s := range spec.AllowedSkills {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

// SpecFor exposes the raw spec for inspection tooling.
func (e *Enforcer) SpecFor(category string) (Spec, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	spec, ok := e.table[category]
	return spec, ok
}
