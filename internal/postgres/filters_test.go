package postgres

import (
	"reflect"
	"testing"
	"time"

	"github.com/jasma-ai/recall/internal/knowledge"
)

func TestFilterConds(t *testing.T) {
	resolved := false
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filters   knowledge.SearchFilters
		next      int
		wantConds []string
		wantArgs  []any
	}{
		{
			name: "empty filters yield no conditions",
		},
		{
			name:      "single filter numbers from next",
			filters:   knowledge.SearchFilters{Project: "recall"},
			next:      2,
			wantConds: []string{"e.project = $2"},
			wantArgs:  []any{"recall"},
		},
		{
			name: "all filters in declaration order",
			filters: knowledge.SearchFilters{
				Project:  "recall",
				Repo:     "github.com/jasma-ai/recall",
				Language: "go",
				Severity: knowledge.SeverityHigh,
				Resolved: &resolved,
				Since:    since,
				Tags:     []string{"pgx", "timeout"},
			},
			next: 3,
			wantConds: []string{
				"e.project = $3",
				"e.repo = $4",
				"e.language = $5",
				"e.severity = $6",
				"e.resolved = $7",
				"e.created_at >= $8",
				"e.tags && $9",
			},
			wantArgs: []any{
				"recall", "github.com/jasma-ai/recall", "go", "high",
				false, since, []string{"pgx", "timeout"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds, args := filterConds(tt.filters, "e", tt.next)
			if !reflect.DeepEqual(conds, tt.wantConds) {
				t.Errorf("conds = %v, want %v", conds, tt.wantConds)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}
