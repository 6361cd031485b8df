// Package filters resolves filter definitions to handlers and orchestrates
// applying client selections to a query builder.
package filters

import (
	"context"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
)

// Handler is the strategy for one filter behavior family. The variant set is
// closed: text, range, boolean, direct, elasticsearch.
//
// ValidateValues returns false (never panics or errors) on malformed shape so
// the validator can aggregate errors across filters in one pass. Apply only
// mutates the builder and is deterministic for the same inputs.
type Handler interface {
	ValidateValues(values []selection.Value) bool
	Apply(b *es.Builder, sel selection.Selection, ent entity.Type) error
	GetValues(ctx context.Context, search string, page, perPage int) (filterdef.ValuesPage, error)
	SupportsExclusion() bool
}

// keywordField returns the exact-match subfield for an analyzed text field.
func keywordField(field string) string {
	return field + ".keyword"
}

// orGroup wraps clauses in a bool/should group requiring at least one match.
func orGroup(clauses []map[string]any) map[string]any {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return map[string]any{
		"bool": map[string]any{
			"should":               clauses,
			"minimum_should_match": 1,
		},
	}
}
