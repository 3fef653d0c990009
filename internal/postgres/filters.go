package postgres

import (
	"fmt"

	"github.com/jasma-ai/recall/internal/knowledge"
)

// filterConds renders the optional search filters as SQL conditions over
// the aliased entries table. Placeholders are numbered from next;
// the returned args line up with them. Zero-valued filters produce no
// condition, so an empty filter set yields an empty conjunction.
func filterConds(f knowledge.SearchFilters, alias string, next int) (conds []string, args []any) {
	add := func(cond string, arg any) {
		conds = append(conds, fmt.Sprintf(cond, alias, next))
		args = append(args, arg)
		next++
	}

	if f.Project != "" {
		add("%s.project = $%d", f.Project)
	}
	if f.Repo != "" {
		add("%s.repo = $%d", f.Repo)
	}
	if f.Language != "" {
		add("%s.language = $%d", f.Language)
	}
	if f.Severity != "" {
		add("%s.severity = $%d", string(f.Severity))
	}
	if f.Resolved != nil {
		add("%s.resolved = $%d", *f.Resolved)
	}
	if !f.Since.IsZero() {
		add("%s.created_at >= $%d", f.Since)
	}
	if len(f.Tags) > 0 {
		// Array overlap: any shared tag matches.
		add("%s.tags && $%d", f.Tags)
	}
	return conds, args
}
