package filters

import (
	"context"
	"strings"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
)

// DirectHandler serves fields with no enumerable values, like first or last
// name. Matching is a straight text/keyword match.
type DirectHandler struct {
	def filterdef.Definition
}

// NewDirectHandler creates a direct filter handler.
func NewDirectHandler(def filterdef.Definition) *DirectHandler {
	return &DirectHandler{def: def}
}

// ValidateValues only checks for non-empty strings.
func (h *DirectHandler) ValidateValues(values []selection.Value) bool {
	for _, v := range values {
		if strings.TrimSpace(v.Value) == "" {
			return false
		}
	}
	return true
}

// SupportsExclusion is false for direct fields.
func (h *DirectHandler) SupportsExclusion() bool { return false }

// Apply adds one match clause per value across the target fields.
func (h *DirectHandler) Apply(b *es.Builder, sel selection.Selection, ent entity.Type) error {
	fields := h.def.Settings.FieldsFor(ent)
	if len(fields) == 0 {
		return nil
	}

	for _, v := range sel.Values {
		clauses := make([]map[string]any, 0, len(fields))
		for _, field := range fields {
			clauses = append(clauses, textMatchClause(field, v.Value))
		}
		b.FilterClause(orGroup(clauses))
	}
	return nil
}

// GetValues always returns an empty page.
func (h *DirectHandler) GetValues(_ context.Context, _ string, page, perPage int) (filterdef.ValuesPage, error) {
	return filterdef.EmptyPage(page, perPage), nil
}
