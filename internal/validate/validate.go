// Package validate checks a parsed search request before it reaches the
// filter engine. Violations are collected across all fields and reported
// together, never fail-fast per field.
package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/prospectio/prospect/internal/domain"
	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/parser"
)

// Request bounds.
const (
	MinTermLength = 2
	MaxTermLength = 100
	MaxPage       = 100
	MaxPerPage    = 100
)

// FilterCapabilities is the handler surface the validator needs.
type FilterCapabilities interface {
	SupportsExclusion() bool
	ValidateValues(values []selection.Value) bool
}

// ResolveFunc resolves a filter id to its handler capabilities. It returns an
// error wrapping domain.ErrUnknownFilter for ids absent from the registry.
type ResolveFunc func(ctx context.Context, filterID string) (FilterCapabilities, error)

// SelectionValue is one wire-level selected value with its selection kind.
type SelectionValue struct {
	ID    string         `json:"id"`
	Value string         `json:"value"`
	Kind  selection.Kind `json:"kind"`
}

// FilterSelection is one wire-level filter selection.
type FilterSelection struct {
	FilterID string           `json:"filter_id"`
	Operator string           `json:"operator,omitempty"`
	Values   []SelectionValue `json:"values"`
}

// Request is a parsed search request awaiting validation.
type Request struct {
	Entity  entity.Type
	Term    string
	Page    int
	PerPage int
	Sort    []parser.SortField
	Filters []FilterSelection
}

// Selections converts the wire-level filters into domain selections.
// Call only after Validate has passed.
func (r Request) Selections() []selection.Selection {
	out := make([]selection.Selection, len(r.Filters))
	for i, f := range r.Filters {
		values := make([]selection.Value, len(f.Values))
		for j, v := range f.Values {
			values[j] = selection.Value{
				ID:       v.ID,
				Value:    v.Value,
				Excluded: v.Kind == selection.Excluded,
			}
		}
		out[i] = selection.Selection{FilterID: f.FilterID, Values: values, Operator: f.Operator}
	}
	return out
}

// Validator checks search requests against entity, bounds, sort whitelists,
// and per-filter value shape.
type Validator struct {
	resolve       ResolveFunc
	sortWhitelist map[entity.Type][]string
}

// DefaultSortWhitelist is the per-entity set of sortable fields.
func DefaultSortWhitelist() map[entity.Type][]string {
	return map[entity.Type][]string{
		entity.Company: {"name", "industry", "employee_count", "country", "founded_year"},
		entity.Contact: {"first_name", "last_name", "job_title", "company", "country", "seniority"},
	}
}

// New creates a validator. A nil whitelist falls back to the default.
func New(resolve ResolveFunc, sortWhitelist map[entity.Type][]string) *Validator {
	if sortWhitelist == nil {
		sortWhitelist = DefaultSortWhitelist()
	}
	return &Validator{resolve: resolve, sortWhitelist: sortWhitelist}
}

// Validate returns nil when the request is well-formed, otherwise a
// *domain.ValidationError aggregating every violation.
func (v *Validator) Validate(ctx context.Context, req Request) error {
	verr := domain.NewValidationError()

	if !req.Entity.IsValid() {
		verr.Add("entity", fmt.Sprintf("must be one of %v", entity.All()))
	}

	// An absent or empty term means "browse all" and is always valid.
	if req.Term != "" {
		if n := len(req.Term); n < MinTermLength || n > MaxTermLength {
			verr.Add("term", fmt.Sprintf("length must be between %d and %d", MinTermLength, MaxTermLength))
		}
	}

	if req.Page < 1 || req.Page > MaxPage {
		verr.Add("page", fmt.Sprintf("must be between 1 and %d", MaxPage))
	}
	if req.PerPage < 1 || req.PerPage > MaxPerPage {
		verr.Add("per_page", fmt.Sprintf("must be between 1 and %d", MaxPerPage))
	}

	v.validateSort(req, verr)
	v.validateFilters(ctx, req, verr)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (v *Validator) validateSort(req Request, verr *domain.ValidationError) {
	whitelist := v.sortWhitelist[req.Entity]
	for _, sf := range req.Sort {
		allowed := false
		for _, f := range whitelist {
			if sf.Field == f {
				allowed = true
				break
			}
		}
		if !allowed {
			verr.Add("sort", fmt.Sprintf("field %q is not sortable for %s", sf.Field, req.Entity))
		}
	}
}

func (v *Validator) validateFilters(ctx context.Context, req Request, verr *domain.ValidationError) {
	for _, f := range req.Filters {
		field := "filters." + f.FilterID

		handler, err := v.resolve(ctx, f.FilterID)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownFilter) {
				verr.Add(field, "unknown filter")
			} else {
				verr.Add(field, "filter could not be resolved")
			}
			continue
		}

		values := make([]selection.Value, 0, len(f.Values))
		for _, val := range f.Values {
			if !val.Kind.IsValid() {
				verr.Add(field, fmt.Sprintf("selection kind %q is not valid", val.Kind))
				continue
			}
			// EXCLUDED on a filter without exclusion support is rejected at
			// the boundary, not silently downgraded.
			if val.Kind == selection.Excluded && !handler.SupportsExclusion() {
				verr.Add(field, "filter does not support exclusion")
				continue
			}
			values = append(values, selection.Value{
				ID:       val.ID,
				Value:    val.Value,
				Excluded: val.Kind == selection.Excluded,
			})
		}

		if !handler.ValidateValues(values) {
			verr.Add(field, "values have invalid shape")
		}
	}
}
