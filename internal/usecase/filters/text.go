package filters

import (
	"context"
	"strings"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
)

// TextHandler includes/excludes values on one or more text fields. Quoted
// values match exactly against the keyword subfield; unquoted values match
// the analyzed field.
type TextHandler struct {
	def      filterdef.Definition
	registry Registry
}

// NewTextHandler creates a text filter handler.
func NewTextHandler(def filterdef.Definition, registry Registry) *TextHandler {
	return &TextHandler{def: def, registry: registry}
}

// ValidateValues requires every value to be a non-blank string.
func (h *TextHandler) ValidateValues(values []selection.Value) bool {
	for _, v := range values {
		if strings.TrimSpace(v.Value) == "" {
			return false
		}
	}
	return true
}

// SupportsExclusion reports the registry-declared exclusion capability.
func (h *TextHandler) SupportsExclusion() bool {
	return h.def.AllowsExclusion
}

// Apply adds include clauses to the filter bucket (AND) or as one OR group,
// and exclude clauses to must_not.
func (h *TextHandler) Apply(b *es.Builder, sel selection.Selection, ent entity.Type) error {
	fields := h.def.Settings.FieldsFor(ent)
	if len(fields) == 0 {
		return nil
	}

	includes := h.expand(sel.Included())
	excludes := h.expand(sel.ExcludedValues())

	operator := sel.Operator
	if operator == "" {
		operator = selection.OperatorAnd
		if h.def.Settings.LooseText {
			operator = selection.OperatorOr
		}
	}

	clauses := make([]map[string]any, 0, len(includes))
	for _, group := range includes {
		clauses = append(clauses, h.valueClause(group, fields))
	}
	switch {
	case len(clauses) == 0:
	case operator == selection.OperatorOr:
		b.FilterClause(orGroup(clauses))
	default:
		for _, c := range clauses {
			b.FilterClause(c)
		}
	}

	for _, group := range excludes {
		b.MustNotClause(h.valueClause(group, fields))
	}
	return nil
}

// expand splits comma-separated input into discrete values when configured,
// then applies synonym expansion. Each element of the result is one OR group
// of variants for a single logical value.
func (h *TextHandler) expand(values []selection.Value) [][]string {
	var out [][]string
	for _, v := range values {
		raw := []string{v.Value}
		if h.def.Settings.SplitOnComma {
			raw = splitOnComma(v.Value)
		}
		for _, r := range raw {
			if h.def.Settings.Synonyms && !isQuoted(r) {
				out = append(out, expandSynonyms(r))
			} else {
				out = append(out, []string{r})
			}
		}
	}
	return out
}

// valueClause builds the clause for one logical value: an OR group over its
// synonym variants, each variant an OR group over the target fields.
func (h *TextHandler) valueClause(variants []string, fields []string) map[string]any {
	var clauses []map[string]any
	for _, variant := range variants {
		for _, field := range fields {
			clauses = append(clauses, textMatchClause(field, variant))
		}
	}
	return orGroup(clauses)
}

// textMatchClause yields a term query on the keyword subfield for quoted
// input, a match query on the analyzed field otherwise.
func textMatchClause(field, value string) map[string]any {
	if isQuoted(value) {
		exact := strings.Trim(value, `"`)
		return map[string]any{"term": map[string]any{keywordField(field): exact}}
	}
	return map[string]any{"match": map[string]any{field: value}}
}

func isQuoted(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)
}

func splitOnComma(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// GetValues pages stored values when the filter supports lookup, otherwise
// returns an empty page.
func (h *TextHandler) GetValues(ctx context.Context, search string, page, perPage int) (filterdef.ValuesPage, error) {
	if !h.def.SupportsValueLookup {
		return filterdef.EmptyPage(page, perPage), nil
	}
	return h.registry.ListValues(ctx, h.def.ID, search, page, perPage)
}
