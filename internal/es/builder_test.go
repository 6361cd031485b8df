package es

import (
	"errors"
	"testing"

	"github.com/prospectio/prospect/internal/domain"
)

func buildQuery(t *testing.T, b *Builder) map[string]any {
	t.Helper()
	q, err := b.BuildQuery()
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	return q
}

func boolPart(t *testing.T, q map[string]any) map[string]any {
	t.Helper()
	boolQ, ok := q["bool"].(map[string]any)
	if !ok {
		t.Fatalf("expected bool query, got %v", q)
	}
	return boolQ
}

func TestBuildQuery_OnlyShould_InjectsMinimumShouldMatch(t *testing.T) {
	b := NewBuilder().
		Should("industry", "software", OpTerm).
		Should("industry", "fintech", OpTerm)

	boolQ := boolPart(t, buildQuery(t, b))
	if got := boolQ["minimum_should_match"]; got != 1 {
		t.Errorf("expected minimum_should_match=1, got %v", got)
	}
}

func TestBuildQuery_ShouldWithMust_NoAutoInjection(t *testing.T) {
	b := NewBuilder().
		Must("country", "DE", OpTerm).
		Should("industry", "software", OpTerm)

	boolQ := boolPart(t, buildQuery(t, b))
	if _, ok := boolQ["minimum_should_match"]; ok {
		t.Error("minimum_should_match must not be injected when must clauses exist")
	}
}

func TestBuildQuery_ExplicitBoolParamOverrides(t *testing.T) {
	b := NewBuilder().
		Should("industry", "software", OpTerm).
		BoolParam("minimum_should_match", 2)

	boolQ := boolPart(t, buildQuery(t, b))
	if got := boolQ["minimum_should_match"]; got != 2 {
		t.Errorf("explicit minimum_should_match should win, got %v", got)
	}
}

func TestClause_Operators(t *testing.T) {
	tests := []struct {
		op   Op
		want string // top-level clause key
	}{
		{OpTerm, "term"},
		{OpEq, "term"},
		{OpMatch, "match"},
		{OpPrefix, "prefix"},
		{OpWildcard, "wildcard"},
		{OpRange, "range"},
		{OpGt, "range"},
		{OpGte, "range"},
		{OpLt, "range"},
		{OpLte, "range"},
	}
	for _, tt := range tests {
		clause, err := Clause("f", "v", tt.op)
		if err != nil {
			t.Fatalf("Clause(%q): %v", tt.op, err)
		}
		if _, ok := clause[tt.want]; !ok {
			t.Errorf("Clause(%q) = %v, want key %q", tt.op, clause, tt.want)
		}
	}
}

func TestClause_UnsupportedOperator(t *testing.T) {
	_, err := Clause("f", "v", Op("between"))
	if !errors.Is(err, domain.ErrUnsupportedOperator) {
		t.Fatalf("expected ErrUnsupportedOperator, got %v", err)
	}
}

func TestBuilder_UnsupportedOperatorFailsBuild(t *testing.T) {
	b := NewBuilder().Must("f", "v", Op("between"))
	if _, err := b.BuildQuery(); !errors.Is(err, domain.ErrUnsupportedOperator) {
		t.Fatalf("expected ErrUnsupportedOperator from BuildQuery, got %v", err)
	}
	if _, err := b.BuildBody(); !errors.Is(err, domain.ErrUnsupportedOperator) {
		t.Fatalf("expected ErrUnsupportedOperator from BuildBody, got %v", err)
	}
}

func TestPaginate_Clamping(t *testing.T) {
	tests := []struct {
		page, count        int
		wantFrom, wantSize int
	}{
		{1, 25, 0, 25},
		{3, 25, 50, 25},
		{0, 25, 0, 25},
		{-5, 10, 0, 10},
		{2, 0, 10, 10},
		{2, 5000, 1000, 1000},
	}
	for _, tt := range tests {
		b := NewBuilder().Paginate(tt.page, tt.count)
		if b.From() != tt.wantFrom || b.Size() != tt.wantSize {
			t.Errorf("Paginate(%d,%d) = from %d size %d, want from %d size %d",
				tt.page, tt.count, b.From(), b.Size(), tt.wantFrom, tt.wantSize)
		}
	}
}

func TestBuildBody_AssemblesSections(t *testing.T) {
	b := NewBuilder().
		Must("name", "acme", OpMatch).
		Sort("name", "desc").
		Select("name", "industry").
		Highlight("name").
		TermsAggregation("industries", "industry", 20).
		MinScore(0.5).
		TrackTotalHits().
		SearchAfter([]any{"acme", "c-19"}).
		Paginate(2, 50)

	body, err := b.BuildBody()
	if err != nil {
		t.Fatalf("BuildBody: %v", err)
	}

	for _, key := range []string{"query", "sort", "_source", "highlight", "aggs", "min_score", "track_total_hits", "search_after"} {
		if _, ok := body[key]; !ok {
			t.Errorf("body missing %q", key)
		}
	}
	if body["from"] != 50 || body["size"] != 50 {
		t.Errorf("from/size = %v/%v, want 50/50", body["from"], body["size"])
	}
}

func TestCountBody_SizeZero(t *testing.T) {
	b := NewBuilder().Filter("country", "DE", OpTerm)
	body, err := b.CountBody()
	if err != nil {
		t.Fatalf("CountBody: %v", err)
	}
	if body["size"] != 0 {
		t.Errorf("count body size = %v, want 0", body["size"])
	}
	if _, ok := body["query"]; !ok {
		t.Error("count body must reuse the boolean query")
	}
}

func TestKNN_FilterProjection(t *testing.T) {
	knn := KNN{Field: "embedding", QueryVector: []float32{0.1}, K: 5, NumCandidates: 50}

	// Single filter clause passed directly.
	b := NewBuilder().Filter("country", "DE", OpTerm).KNNSearch(knn)
	body, err := b.BuildBody()
	if err != nil {
		t.Fatalf("BuildBody: %v", err)
	}
	knnBody := body["knn"].(map[string]any)
	if _, ok := knnBody["filter"].(map[string]any)["term"]; !ok {
		t.Errorf("single filter clause should be passed directly, got %v", knnBody["filter"])
	}

	// Multiple clauses wrapped in nested bool/filter.
	b = NewBuilder().
		Filter("country", "DE", OpTerm).
		Filter("size", map[string]any{"gte": 10}, OpRange).
		KNNSearch(knn)
	body, err = b.BuildBody()
	if err != nil {
		t.Fatalf("BuildBody: %v", err)
	}
	knnBody = body["knn"].(map[string]any)
	wrapped, ok := knnBody["filter"].(map[string]any)["bool"]
	if !ok {
		t.Fatalf("multiple filter clauses should be wrapped in bool, got %v", knnBody["filter"])
	}
	if clauses := wrapped.(map[string]any)["filter"].([]map[string]any); len(clauses) != 2 {
		t.Errorf("expected 2 projected clauses, got %d", len(clauses))
	}
}

func TestMapPage(t *testing.T) {
	resp := &Response{
		Total: 101,
		Hits: []Hit{
			{ID: "a", Source: map[string]any{"name": "Acme"}, Highlights: map[string][]string{"name": {"<em>Acme</em>"}}},
			{ID: "b", Source: map[string]any{"name": "Globex"}},
		},
	}
	page := MapPage(resp, 2, 25)
	if page.CurrentPage != 2 || page.PerPage != 25 {
		t.Errorf("page metadata = %d/%d, want 2/25", page.CurrentPage, page.PerPage)
	}
	if page.LastPage != 5 {
		t.Errorf("LastPage = %d, want ceil(101/25)=5", page.LastPage)
	}
	if len(page.Data) != 2 || page.Data[0].ID != "a" {
		t.Errorf("unexpected records: %+v", page.Data)
	}
	if page.Data[0].Highlights == nil {
		t.Error("highlights should survive mapping")
	}
}
