package filters

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
)

// RangeHandler covers numeric and date ranges. Each selected value carries
// optional min/max bounds; dates pass through to engine-native date math.
type RangeHandler struct {
	def filterdef.Definition
}

// NewRangeHandler creates a range filter handler.
func NewRangeHandler(def filterdef.Definition) *RangeHandler {
	return &RangeHandler{def: def}
}

// rangeBounds is the decoded {min?, max?} pair. Bounds stay untyped so date
// math strings ("now-1y") survive untouched.
type rangeBounds struct {
	Min any `json:"min"`
	Max any `json:"max"`
}

func (r rangeBounds) isEmpty() bool { return r.Min == nil && r.Max == nil }

// parseRangeValue accepts either a JSON object `{"min":10,"max":50}` or the
// compact `10..50` form with either side optional.
func parseRangeValue(raw string) (rangeBounds, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return rangeBounds{}, true
	}

	if strings.HasPrefix(trimmed, "{") {
		var b rangeBounds
		if err := json.Unmarshal([]byte(trimmed), &b); err != nil {
			return rangeBounds{}, false
		}
		return b, true
	}

	lo, hi, found := strings.Cut(trimmed, "..")
	if !found {
		return rangeBounds{}, false
	}
	var b rangeBounds
	if lo = strings.TrimSpace(lo); lo != "" {
		b.Min = lo
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		b.Max = hi
	}
	return b, true
}

// ValidateValues requires each value to decode into bounds.
func (h *RangeHandler) ValidateValues(values []selection.Value) bool {
	for _, v := range values {
		if _, ok := parseRangeValue(v.Value); !ok {
			return false
		}
	}
	return true
}

// SupportsExclusion is false for ranges: bounds are inverted by the caller,
// not excluded.
func (h *RangeHandler) SupportsExclusion() bool { return false }

// Apply builds one range clause per selected value using gte/lte. A value
// with neither bound is a no-op.
func (h *RangeHandler) Apply(b *es.Builder, sel selection.Selection, ent entity.Type) error {
	fields := h.def.Settings.FieldsFor(ent)
	if len(fields) == 0 {
		return nil
	}
	field := fields[0]

	for _, v := range sel.Values {
		bounds, ok := parseRangeValue(v.Value)
		if !ok || bounds.isEmpty() {
			continue
		}
		body := map[string]any{}
		if bounds.Min != nil {
			body["gte"] = bounds.Min
		}
		if bounds.Max != nil {
			body["lte"] = bounds.Max
		}
		b.Filter(field, body, es.OpRange)
	}
	return nil
}

// GetValues always returns an empty page: ranges have no enumerable values.
func (h *RangeHandler) GetValues(_ context.Context, _ string, page, perPage int) (filterdef.ValuesPage, error) {
	return filterdef.EmptyPage(page, perPage), nil
}
