// Package filterdef defines filter registry entries and their value pages.
package filterdef

import (
	"github.com/prospectio/prospect/internal/domain/entity"
)

// ValueSource describes where a filter's selectable values come from.
type ValueSource string

const (
	// SourceElasticsearch enumerates values live from the search engine.
	SourceElasticsearch ValueSource = "elasticsearch"
	// SourcePredefined enumerates values from a static table.
	SourcePredefined ValueSource = "predefined"
	// SourceSpecialized enumerates values from a dedicated provider (locations etc).
	SourceSpecialized ValueSource = "specialized"
	// SourceDirect has no enumerable values (free-typed input).
	SourceDirect ValueSource = "direct"
)

// Value types used by the value-page cache policy.
const (
	ValueTypeLocation = "location"
)

// Declared filter types dispatched by the handler factory.
const (
	TypeText    = "text"
	TypeKeyword = "keyword"
	TypeRange   = "range"
	TypeDate    = "date"
	TypeBoolean = "boolean"
	TypeDirect  = "direct"
)

// FilteringMode values recognized in Settings.
const (
	ModeExists = "exists"
)

// Settings holds the free-form per-filter configuration: target field names
// per entity, filtering mode, range bounds, input splitting.
type Settings struct {
	// Fields maps each entity type to the engine field names this filter targets.
	Fields map[entity.Type][]string `json:"fields" yaml:"fields"`
	// Mode is the filtering mode ("exists" switches to presence matching).
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	// SplitOnComma splits raw input values on commas into discrete values.
	SplitOnComma bool `json:"split_on_comma,omitempty" yaml:"split_on_comma,omitempty"`
	// LooseText flips the default include combination from AND to OR.
	LooseText bool `json:"loose_text,omitempty" yaml:"loose_text,omitempty"`
	// RangeMin/RangeMax bound acceptable range selections when set.
	RangeMin *float64 `json:"range_min,omitempty" yaml:"range_min,omitempty"`
	RangeMax *float64 `json:"range_max,omitempty" yaml:"range_max,omitempty"`
	// Synonyms enables domain synonym expansion for include values.
	Synonyms bool `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// FieldsFor returns the target engine fields for an entity.
func (s Settings) FieldsFor(t entity.Type) []string {
	return s.Fields[t]
}

// Definition is an immutable filter registry entry. Created by configuration
// or migration, read-only at request time, cached process-wide.
type Definition struct {
	ID                  string      `json:"id"`
	Group               string      `json:"group"`
	SortOrder           int         `json:"sort_order"`
	ValueSource         ValueSource `json:"value_source"`
	ValueType           string      `json:"value_type"`
	InputType           string      `json:"input_type"`
	Type                string      `json:"type"`
	Entity              entity.Type `json:"entity"`
	Searchable          bool        `json:"searchable"`
	AllowsExclusion     bool        `json:"allows_exclusion"`
	SupportsValueLookup bool        `json:"supports_value_lookup"`
	Settings            Settings    `json:"settings"`
}

// IsExistsMode reports whether the filter matches on field presence.
func (d Definition) IsExistsMode() bool {
	return d.Settings.Mode == ModeExists
}

// Value is one selectable filter value.
type Value struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// PageMetadata describes a page of filter values.
type PageMetadata struct {
	TotalCount    int `json:"total_count"`
	ReturnedCount int `json:"returned_count"`
	Page          int `json:"page"`
	PerPage       int `json:"per_page"`
	TotalPages    int `json:"total_pages"`
}

// ValuesPage is one paginated enumeration of selectable filter values.
type ValuesPage struct {
	Data     []Value      `json:"data"`
	Metadata PageMetadata `json:"metadata"`
}

// NewValuesPage assembles a page with computed metadata.
func NewValuesPage(data []Value, total, page, perPage int) ValuesPage {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return ValuesPage{
		Data: data,
		Metadata: PageMetadata{
			TotalCount:    total,
			ReturnedCount: len(data),
			Page:          page,
			PerPage:       perPage,
			TotalPages:    totalPages,
		},
	}
}

// EmptyPage returns a page with no values.
func EmptyPage(page, perPage int) ValuesPage {
	return NewValuesPage(nil, 0, page, perPage)
}
