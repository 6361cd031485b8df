package filters

import (
	"context"
	"testing"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
)

func rangeDef() filterdef.Definition {
	return filterdef.Definition{
		ID:          "employee_count",
		Type:        filterdef.TypeRange,
		ValueSource: filterdef.SourceDirect,
		Entity:      entity.Company,
		Settings: filterdef.Settings{
			Fields: map[entity.Type][]string{entity.Company: {"employee_count"}},
		},
	}
}

func TestRangeHandler_BoundsToGteLte(t *testing.T) {
	h := NewRangeHandler(rangeDef())
	b := es.NewBuilder()

	sel := selection.Selection{Values: []selection.Value{{Value: `{"min":10,"max":200}`}}}
	if err := h.Apply(b, sel, entity.Company); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	clauses := mustBody(t, b)["filter"].([]map[string]any)
	rangeQ := clauses[0]["range"].(map[string]any)["employee_count"].(map[string]any)
	if rangeQ["gte"] != float64(10) || rangeQ["lte"] != float64(200) {
		t.Errorf("range bounds = %v, want gte 10 lte 200", rangeQ)
	}
}

func TestRangeHandler_CompactForm(t *testing.T) {
	h := NewRangeHandler(rangeDef())
	b := es.NewBuilder()

	sel := selection.Selection{Values: []selection.Value{{Value: "10.."}}}
	if err := h.Apply(b, sel, entity.Company); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	clauses := mustBody(t, b)["filter"].([]map[string]any)
	rangeQ := clauses[0]["range"].(map[string]any)["employee_count"].(map[string]any)
	if rangeQ["gte"] != "10" {
		t.Errorf("gte = %v, want 10", rangeQ["gte"])
	}
	if _, ok := rangeQ["lte"]; ok {
		t.Error("open upper bound must not emit lte")
	}
}

func TestRangeHandler_EmptyBoundsAreNoOp(t *testing.T) {
	h := NewRangeHandler(rangeDef())
	b := es.NewBuilder()

	sel := selection.Selection{Values: []selection.Value{{Value: "{}"}}}
	if err := h.Apply(b, sel, entity.Company); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, ok := mustBody(t, b)["filter"]; ok {
		t.Error("value with neither bound must produce no clause")
	}
}

func TestRangeHandler_DateMathPassesThrough(t *testing.T) {
	h := NewRangeHandler(rangeDef())
	b := es.NewBuilder()

	sel := selection.Selection{Values: []selection.Value{{Value: `{"min":"now-1y"}`}}}
	if err := h.Apply(b, sel, entity.Company); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	clauses := mustBody(t, b)["filter"].([]map[string]any)
	rangeQ := clauses[0]["range"].(map[string]any)["employee_count"].(map[string]any)
	if rangeQ["gte"] != "now-1y" {
		t.Errorf("date math must pass through untouched, got %v", rangeQ["gte"])
	}
}

func TestRangeHandler_ValidateValues(t *testing.T) {
	h := NewRangeHandler(rangeDef())
	if !h.ValidateValues([]selection.Value{{Value: "1..5"}, {Value: `{"min":3}`}, {Value: ""}}) {
		t.Error("well-formed bounds must validate")
	}
	if h.ValidateValues([]selection.Value{{Value: "not-a-range"}}) {
		t.Error("malformed bounds must not validate")
	}
}

func boolDef() filterdef.Definition {
	return filterdef.Definition{
		ID:          "hiring",
		Type:        filterdef.TypeBoolean,
		ValueSource: filterdef.SourcePredefined,
		Entity:      entity.Company,
		Settings: filterdef.Settings{
			Fields: map[entity.Type][]string{entity.Company: {"is_hiring"}},
		},
	}
}

func TestBooleanHandler_TriState(t *testing.T) {
	h := NewBooleanHandler(boolDef())

	for _, tt := range []struct {
		value      string
		wantClause bool
		wantTerm   any
	}{
		{"true", true, true},
		{"false", true, false},
		{"any", false, nil},
	} {
		b := es.NewBuilder()
		sel := selection.Selection{Values: []selection.Value{{Value: tt.value}}}
		if err := h.Apply(b, sel, entity.Company); err != nil {
			t.Fatalf("Apply(%q): %v", tt.value, err)
		}
		boolQ := mustBody(t, b)
		clauses, ok := boolQ["filter"].([]map[string]any)
		if ok != tt.wantClause {
			t.Errorf("Apply(%q): clause present=%v, want %v", tt.value, ok, tt.wantClause)
			continue
		}
		if tt.wantClause {
			termQ := clauses[0]["term"].(map[string]any)
			if termQ["is_hiring"] != tt.wantTerm {
				t.Errorf("Apply(%q): term = %v, want %v", tt.value, termQ, tt.wantTerm)
			}
		}
	}
}

func TestBooleanHandler_ValidateValues(t *testing.T) {
	h := NewBooleanHandler(boolDef())
	if !h.ValidateValues([]selection.Value{{Value: "True"}, {Value: "any"}}) {
		t.Error("tri-state values must validate")
	}
	if h.ValidateValues([]selection.Value{{Value: "yes"}}) {
		t.Error("unknown value must not validate")
	}
}

func TestDirectHandler(t *testing.T) {
	def := filterdef.Definition{
		ID:          "last_name",
		Type:        filterdef.TypeDirect,
		ValueSource: filterdef.SourceDirect,
		Entity:      entity.Contact,
		Settings: filterdef.Settings{
			Fields: map[entity.Type][]string{entity.Contact: {"last_name"}},
		},
	}
	h := NewDirectHandler(def)

	if h.SupportsExclusion() {
		t.Error("direct handler must not support exclusion")
	}
	if h.ValidateValues([]selection.Value{{Value: ""}}) {
		t.Error("empty string must not validate")
	}

	page, err := h.GetValues(context.Background(), "", 1, 20)
	if err != nil {
		t.Fatalf("GetValues: %v", err)
	}
	if len(page.Data) != 0 || page.Metadata.TotalCount != 0 {
		t.Errorf("direct handler must enumerate no values, got %+v", page)
	}

	b := es.NewBuilder()
	sel := selection.Selection{Values: []selection.Value{{Value: "Smith"}}}
	if err := h.Apply(b, sel, entity.Contact); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	clauses := mustBody(t, b)["filter"].([]map[string]any)
	if _, ok := clauses[0]["match"]; !ok {
		t.Errorf("direct apply should be a straight match, got %v", clauses[0])
	}
}

func existsDef() filterdef.Definition {
	return filterdef.Definition{
		ID:          "has_email",
		Type:        filterdef.TypeText,
		ValueSource: filterdef.SourcePredefined,
		Entity:      entity.Contact,
		Settings: filterdef.Settings{
			Mode:   filterdef.ModeExists,
			Fields: map[entity.Type][]string{entity.Contact: {"email"}},
		},
		AllowsExclusion: true,
	}
}

func TestElasticHandler_ExistsMode(t *testing.T) {
	h := NewElasticHandler(existsDef(), nil, nil)

	b := es.NewBuilder()
	sel := selection.Selection{Values: []selection.Value{{Value: "any"}}}
	if err := h.Apply(b, sel, entity.Contact); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	clauses := mustBody(t, b)["filter"].([]map[string]any)
	if _, ok := clauses[0]["exists"]; !ok {
		t.Errorf("exists mode should emit exists clause, got %v", clauses[0])
	}

	b = es.NewBuilder()
	sel = selection.Selection{Values: []selection.Value{{Value: "any", Excluded: true}}}
	if err := h.Apply(b, sel, entity.Contact); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	notClauses := mustBody(t, b)["must_not"].([]map[string]any)
	if _, ok := notClauses[0]["exists"]; !ok {
		t.Errorf("excluded exists should emit negated exists, got %v", notClauses[0])
	}
}

func TestElasticHandler_TermValues(t *testing.T) {
	def := filterdef.Definition{
		ID:          "industry",
		ValueSource: filterdef.SourceElasticsearch,
		Entity:      entity.Company,
		Settings: filterdef.Settings{
			Fields: map[entity.Type][]string{entity.Company: {"industry"}},
		},
		AllowsExclusion: true,
	}
	h := NewElasticHandler(def, nil, nil)

	b := es.NewBuilder()
	sel := selection.Selection{Values: []selection.Value{
		{Value: "Software"},
		{Value: "Fintech"},
		{Value: "Tobacco", Excluded: true},
	}}
	if err := h.Apply(b, sel, entity.Company); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	boolQ := mustBody(t, b)
	includes := boolQ["filter"].([]map[string]any)
	if len(includes) != 1 {
		t.Fatalf("includes should fold into one OR group, got %d", len(includes))
	}
	group := includes[0]["bool"].(map[string]any)
	if got := len(group["should"].([]map[string]any)); got != 2 {
		t.Errorf("expected 2 OR'd includes, got %d", got)
	}
	excludes := boolQ["must_not"].([]map[string]any)
	if len(excludes) != 1 {
		t.Errorf("expected 1 exclude term, got %d", len(excludes))
	}
}

func TestElasticHandler_GetValues(t *testing.T) {
	def := filterdef.Definition{
		ID:          "industry",
		ValueSource: filterdef.SourceElasticsearch,
		Entity:      entity.Company,
		Settings: filterdef.Settings{
			Fields: map[entity.Type][]string{entity.Company: {"industry"}},
		},
	}
	engine := &mockEngine{
		resp: &es.Response{
			Aggregations: map[string]any{
				"values": map[string]any{
					"buckets": []any{
						map[string]any{"key": "Software", "doc_count": float64(10)},
						map[string]any{"key": "Fintech", "doc_count": float64(5)},
						map[string]any{"key": "Retail", "doc_count": float64(2)},
					},
				},
			},
		},
	}
	h := NewElasticHandler(def, engine, map[entity.Type]string{entity.Company: "companies"})

	page, err := h.GetValues(context.Background(), "", 1, 2)
	if err != nil {
		t.Fatalf("GetValues: %v", err)
	}
	if len(page.Data) != 2 || page.Data[0].Value != "Software" {
		t.Errorf("page data = %+v", page.Data)
	}
	if page.Metadata.TotalCount != 3 || page.Metadata.TotalPages != 2 {
		t.Errorf("metadata = %+v", page.Metadata)
	}
	if engine.lastIndex != "companies" {
		t.Errorf("searched index %q, want companies", engine.lastIndex)
	}
	if size, ok := engine.lastBody["size"]; !ok || size != 0 {
		t.Errorf("value lookup must be a size:0 aggregation query, got size=%v", size)
	}

	// One bucket beyond the page must be requested, so a full page with more
	// buckets behind it yields TotalPages > page instead of capping at what
	// was fetched.
	terms := engine.lastBody["aggs"].(map[string]any)["values"].(map[string]any)["terms"].(map[string]any)
	if terms["size"] != 3 {
		t.Errorf("aggregation size = %v, want 3", terms["size"])
	}
}

type mockEngine struct {
	resp      *es.Response
	err       error
	lastIndex string
	lastBody  map[string]any
}

func (m *mockEngine) Search(_ context.Context, index string, body map[string]any) (*es.Response, error) {
	m.lastIndex = index
	m.lastBody = body
	return m.resp, m.err
}
