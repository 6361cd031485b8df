package filters

import (
	"context"
	"fmt"
	"strings"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
)

// ElasticHandler enumerates values live from the search engine via a terms
// aggregation instead of a static table. It also serves exists-mode filters,
// which match on field presence rather than values.
type ElasticHandler struct {
	def     filterdef.Definition
	engine  Engine
	indexes map[entity.Type]string
}

// NewElasticHandler creates an engine-backed filter handler.
func NewElasticHandler(def filterdef.Definition, engine Engine, indexes map[entity.Type]string) *ElasticHandler {
	return &ElasticHandler{def: def, engine: engine, indexes: indexes}
}

// ValidateValues requires non-blank values; exists-mode accepts anything.
func (h *ElasticHandler) ValidateValues(values []selection.Value) bool {
	if h.def.IsExistsMode() {
		return true
	}
	for _, v := range values {
		if strings.TrimSpace(v.Value) == "" {
			return false
		}
	}
	return true
}

// SupportsExclusion reports the registry-declared exclusion capability.
func (h *ElasticHandler) SupportsExclusion() bool {
	return h.def.AllowsExclusion
}

// Apply emits exists/negated-exists in exists mode, otherwise an OR group of
// term matches for includes and must_not terms for excludes.
func (h *ElasticHandler) Apply(b *es.Builder, sel selection.Selection, ent entity.Type) error {
	fields := h.def.Settings.FieldsFor(ent)
	if len(fields) == 0 {
		return nil
	}
	field := fields[0]

	if h.def.IsExistsMode() {
		existsClause := map[string]any{"exists": map[string]any{"field": field}}
		if len(sel.ExcludedValues()) > 0 {
			b.MustNotClause(existsClause)
		}
		if len(sel.Included()) > 0 {
			b.FilterClause(existsClause)
		}
		return nil
	}

	if included := sel.Included(); len(included) > 0 {
		clauses := make([]map[string]any, len(included))
		for i, v := range included {
			clauses[i] = map[string]any{"term": map[string]any{field: v.Value}}
		}
		b.FilterClause(orGroup(clauses))
	}
	for _, v := range sel.ExcludedValues() {
		b.MustNotClause(map[string]any{"term": map[string]any{field: v.Value}})
	}
	return nil
}

// GetValues runs a terms aggregation on the engine and pages the buckets.
// A search term narrows buckets via a prefix clause on the field.
func (h *ElasticHandler) GetValues(ctx context.Context, search string, page, perPage int) (filterdef.ValuesPage, error) {
	fields := h.def.Settings.FieldsFor(h.def.Entity)
	if len(fields) == 0 || h.def.IsExistsMode() {
		return filterdef.EmptyPage(page, perPage), nil
	}
	field := fields[0]
	index := h.indexes[h.def.Entity]

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	b := es.NewBuilder()
	if search != "" {
		b.Must(field, strings.ToLower(search), es.OpPrefix)
	}
	// Fetch one bucket beyond the requested page so the total signals a
	// following page instead of capping at what this page fetched.
	fetch := page * perPage
	b.TermsAggregation("values", field, fetch+1)

	body, err := b.BuildBody()
	if err != nil {
		return filterdef.ValuesPage{}, err
	}
	body["size"] = 0

	resp, err := h.engine.Search(ctx, index, body)
	if err != nil {
		return filterdef.ValuesPage{}, fmt.Errorf("filter %s values: %w", h.def.ID, err)
	}

	buckets := termsBuckets(resp.Aggregations, "values")
	total := len(buckets)

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	data := make([]filterdef.Value, 0, end-start)
	for _, key := range buckets[start:end] {
		data = append(data, filterdef.Value{ID: key, Value: key})
	}
	return filterdef.NewValuesPage(data, total, page, perPage), nil
}

// termsBuckets extracts bucket keys from a terms aggregation result.
func termsBuckets(aggs map[string]any, name string) []string {
	agg, ok := aggs[name].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := agg["buckets"].([]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for _, b := range raw {
		bucket, ok := b.(map[string]any)
		if !ok {
			continue
		}
		if key, ok := bucket["key"].(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}
