package filters

import (
	"context"
	"strings"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
)

// Tri-state boolean selections.
const (
	boolTrue  = "true"
	boolFalse = "false"
	boolAny   = "any"
)

// BooleanHandler maps a tri-state selection to a term filter, or omits the
// clause entirely on "any".
type BooleanHandler struct {
	def filterdef.Definition
}

// NewBooleanHandler creates a boolean filter handler.
func NewBooleanHandler(def filterdef.Definition) *BooleanHandler {
	return &BooleanHandler{def: def}
}

// ValidateValues accepts true/false/any (case-insensitive) or blank.
func (h *BooleanHandler) ValidateValues(values []selection.Value) bool {
	for _, v := range values {
		switch strings.ToLower(strings.TrimSpace(v.Value)) {
		case boolTrue, boolFalse, boolAny, "":
		default:
			return false
		}
	}
	return true
}

// SupportsExclusion is false: the tri-state already covers negation.
func (h *BooleanHandler) SupportsExclusion() bool { return false }

// Apply emits a term filter for true/false and nothing for "any".
func (h *BooleanHandler) Apply(b *es.Builder, sel selection.Selection, ent entity.Type) error {
	fields := h.def.Settings.FieldsFor(ent)
	if len(fields) == 0 {
		return nil
	}
	field := fields[0]

	for _, v := range sel.Values {
		switch strings.ToLower(strings.TrimSpace(v.Value)) {
		case boolTrue:
			b.Filter(field, true, es.OpTerm)
		case boolFalse:
			b.Filter(field, false, es.OpTerm)
		default:
			// "any" and blank place no constraint.
		}
	}
	return nil
}

// GetValues enumerates the fixed tri-state options.
func (h *BooleanHandler) GetValues(_ context.Context, _ string, page, perPage int) (filterdef.ValuesPage, error) {
	data := []filterdef.Value{
		{ID: boolTrue, Value: boolTrue},
		{ID: boolFalse, Value: boolFalse},
		{ID: boolAny, Value: boolAny},
	}
	return filterdef.NewValuesPage(data, len(data), page, perPage), nil
}
