package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/prospectio/prospect/internal/domain"
	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
)

// SeedStore serves a static default registry from memory. It backs local runs
// without Postgres and the package tests.
type SeedStore struct {
	defs   []filterdef.Definition
	values map[string][]filterdef.Value
}

// NewSeedStore builds the default company/contact filter registry.
func NewSeedStore() *SeedStore {
	return &SeedStore{defs: seedDefinitions(), values: seedValues()}
}

func (s *SeedStore) ListActive(context.Context) ([]filterdef.Definition, error) {
	out := make([]filterdef.Definition, len(s.defs))
	copy(out, s.defs)
	return out, nil
}

func (s *SeedStore) ListValues(_ context.Context, filterID, search string, page, perPage int) (filterdef.ValuesPage, error) {
	all, ok := s.values[filterID]
	if !ok {
		return filterdef.ValuesPage{}, &domain.UnknownFilterError{FilterID: filterID}
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var matched []filterdef.Value
	for _, v := range all {
		if search == "" || strings.HasPrefix(strings.ToLower(v.Value), strings.ToLower(search)) {
			matched = append(matched, v)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Value < matched[j].Value })

	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return filterdef.NewValuesPage(matched[start:end], len(matched), page, perPage), nil
}

func companyFields(fields ...string) map[entity.Type][]string {
	return map[entity.Type][]string{entity.Company: fields}
}

func contactFields(fields ...string) map[entity.Type][]string {
	return map[entity.Type][]string{entity.Contact: fields}
}

func seedDefinitions() []filterdef.Definition {
	return []filterdef.Definition{
		// Company filters.
		{
			ID: "industry", Group: "firmographic", SortOrder: 1,
			ValueSource: filterdef.SourcePredefined, Type: filterdef.TypeKeyword,
			Entity: entity.Company, AllowsExclusion: true, SupportsValueLookup: true,
			Settings: filterdef.Settings{Fields: companyFields("industry")},
		},
		{
			ID: "employee_count", Group: "firmographic", SortOrder: 2,
			ValueSource: filterdef.SourceDirect, Type: filterdef.TypeRange,
			Entity:   entity.Company,
			Settings: filterdef.Settings{Fields: companyFields("employee_count")},
		},
		{
			ID: "founded_year", Group: "firmographic", SortOrder: 3,
			ValueSource: filterdef.SourceDirect, Type: filterdef.TypeDate,
			Entity:   entity.Company,
			Settings: filterdef.Settings{Fields: companyFields("founded_year")},
		},
		{
			ID: "company_country", Group: "location", SortOrder: 1,
			ValueSource: filterdef.SourceSpecialized, ValueType: filterdef.ValueTypeLocation,
			Type: filterdef.TypeKeyword, Entity: entity.Company,
			AllowsExclusion: true, SupportsValueLookup: true,
			Settings: filterdef.Settings{Fields: companyFields("country")},
		},
		{
			ID: "technologies", Group: "tech", SortOrder: 1,
			ValueSource: filterdef.SourceElasticsearch, Type: filterdef.TypeText,
			Entity: entity.Company, AllowsExclusion: true, Searchable: true,
			Settings: filterdef.Settings{Fields: companyFields("technologies"), SplitOnComma: true},
		},
		{
			ID: "has_funding", Group: "signals", SortOrder: 1,
			ValueSource: filterdef.SourceDirect, Type: filterdef.TypeBoolean,
			Entity:   entity.Company,
			Settings: filterdef.Settings{Fields: companyFields("has_funding")},
		},
		{
			ID: "has_website", Group: "signals", SortOrder: 2,
			ValueSource: filterdef.SourcePredefined, Type: filterdef.TypeKeyword,
			Entity:   entity.Company,
			Settings: filterdef.Settings{Fields: companyFields("website"), Mode: filterdef.ModeExists},
		},

		// Contact filters.
		{
			ID: "job_title", Group: "person", SortOrder: 1,
			ValueSource: filterdef.SourceDirect, Type: filterdef.TypeText,
			Entity: entity.Contact, AllowsExclusion: true, Searchable: true,
			Settings: filterdef.Settings{Fields: contactFields("job_title"), Synonyms: true, SplitOnComma: true},
		},
		{
			ID: "first_name", Group: "person", SortOrder: 2,
			ValueSource: filterdef.SourceDirect, Type: filterdef.TypeDirect,
			Entity:   entity.Contact,
			Settings: filterdef.Settings{Fields: contactFields("first_name")},
		},
		{
			ID: "last_name", Group: "person", SortOrder: 3,
			ValueSource: filterdef.SourceDirect, Type: filterdef.TypeDirect,
			Entity:   entity.Contact,
			Settings: filterdef.Settings{Fields: contactFields("last_name")},
		},
		{
			ID: "seniority", Group: "person", SortOrder: 4,
			ValueSource: filterdef.SourcePredefined, Type: filterdef.TypeKeyword,
			Entity: entity.Contact, AllowsExclusion: true, SupportsValueLookup: true,
			Settings: filterdef.Settings{Fields: contactFields("seniority")},
		},
		{
			ID: "contact_country", Group: "location", SortOrder: 1,
			ValueSource: filterdef.SourceSpecialized, ValueType: filterdef.ValueTypeLocation,
			Type: filterdef.TypeKeyword, Entity: entity.Contact,
			AllowsExclusion: true, SupportsValueLookup: true,
			Settings: filterdef.Settings{Fields: contactFields("country")},
		},
		{
			ID: "has_email", Group: "reachability", SortOrder: 1,
			ValueSource: filterdef.SourceDirect, Type: filterdef.TypeBoolean,
			Entity:   entity.Contact,
			Settings: filterdef.Settings{Fields: contactFields("has_email")},
		},
		{
			ID: "department", Group: "person", SortOrder: 5,
			ValueSource: filterdef.SourceElasticsearch, Type: filterdef.TypeKeyword,
			Entity: entity.Contact, AllowsExclusion: true, Searchable: true,
			Settings: filterdef.Settings{Fields: contactFields("department")},
		},
	}
}

func seedValues() map[string][]filterdef.Value {
	return map[string][]filterdef.Value{
		"industry": {
			{ID: "software", Value: "Software"},
			{ID: "fintech", Value: "Financial Services"},
			{ID: "healthcare", Value: "Healthcare"},
			{ID: "manufacturing", Value: "Manufacturing"},
			{ID: "retail", Value: "Retail"},
			{ID: "education", Value: "Education"},
			{ID: "logistics", Value: "Logistics"},
			{ID: "real-estate", Value: "Real Estate"},
			{ID: "energy", Value: "Energy"},
			{ID: "media", Value: "Media"},
		},
		"seniority": {
			{ID: "c-level", Value: "C-Level"},
			{ID: "vp", Value: "VP"},
			{ID: "director", Value: "Director"},
			{ID: "manager", Value: "Manager"},
			{ID: "senior", Value: "Senior"},
			{ID: "entry", Value: "Entry"},
		},
		"company_country": {
			{ID: "us", Value: "United States"},
			{ID: "gb", Value: "United Kingdom"},
			{ID: "de", Value: "Germany"},
			{ID: "fr", Value: "France"},
			{ID: "nl", Value: "Netherlands"},
			{ID: "es", Value: "Spain"},
			{ID: "it", Value: "Italy"},
			{ID: "ca", Value: "Canada"},
			{ID: "au", Value: "Australia"},
			{ID: "in", Value: "India"},
		},
		"contact_country": {
			{ID: "us", Value: "United States"},
			{ID: "gb", Value: "United Kingdom"},
			{ID: "de", Value: "Germany"},
			{ID: "fr", Value: "France"},
			{ID: "nl", Value: "Netherlands"},
			{ID: "es", Value: "Spain"},
			{ID: "it", Value: "Italy"},
			{ID: "ca", Value: "Canada"},
			{ID: "au", Value: "Australia"},
			{ID: "in", Value: "India"},
		},
	}
}
