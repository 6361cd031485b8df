package search

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/prospectio/prospect/internal/cache"
	"github.com/prospectio/prospect/internal/domain"
	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/es"
	"github.com/prospectio/prospect/internal/parser"
	"github.com/prospectio/prospect/internal/repository/registry"
	"github.com/prospectio/prospect/internal/usecase/filters"
	"github.com/prospectio/prospect/internal/validate"
)

type mockEngine struct {
	resp      *es.Response
	count     int64
	err       error
	lastIndex string
	lastBody  map[string]any
}

func (m *mockEngine) Search(_ context.Context, index string, body map[string]any) (*es.Response, error) {
	m.lastIndex = index
	m.lastBody = body
	if m.err != nil {
		return nil, m.err
	}
	if m.resp == nil {
		return &es.Response{}, nil
	}
	return m.resp, nil
}

func (m *mockEngine) Count(_ context.Context, index string, body map[string]any) (int64, error) {
	m.lastIndex = index
	m.lastBody = body
	return m.count, nil
}

func testService(engine *mockEngine) *Service {
	return testServiceWithMetrics(engine, nil, nil)
}

func testServiceWithMetrics(engine *mockEngine, requests *prometheus.CounterVec, duration *prometheus.HistogramVec) *Service {
	cfg := DefaultConfig()
	reg := registry.NewSeedStore()
	factory := filters.NewFactory(engine, reg, cfg.Indexes)
	manager := filters.NewManager(reg, factory, cache.NewMemory(), filters.DefaultTTLConfig(), zap.NewNop(), nil)
	return New(engine, manager, cfg, zap.NewNop(), requests, duration)
}

func TestParseQuery(t *testing.T) {
	svc := testService(&mockEngine{})

	raw := "sort=name:desc&query=(term:fintech,page:2,per_page:10,industry:List(Software,Retail),exclude:(company_country:United%20States))"
	req, err := svc.ParseQuery(entity.Company, raw)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}

	if req.Term != "fintech" || req.Page != 2 || req.PerPage != 10 {
		t.Errorf("params = %q %d %d", req.Term, req.Page, req.PerPage)
	}
	if len(req.Sort) != 1 || req.Sort[0] != (parser.SortField{Field: "name", Direction: "desc"}) {
		t.Errorf("sort = %v", req.Sort)
	}

	byID := map[string]validate.FilterSelection{}
	for _, f := range req.Filters {
		byID[f.FilterID] = f
	}
	ind := byID["industry"]
	if len(ind.Values) != 2 {
		t.Fatalf("industry values = %v", ind.Values)
	}
	got := []string{ind.Values[0].Value, ind.Values[1].Value}
	sort.Strings(got)
	if got[0] != "Retail" || got[1] != "Software" {
		t.Errorf("industry values = %v", got)
	}
	excl := byID["company_country"]
	if len(excl.Values) != 1 || excl.Values[0].Kind != "EXCLUDED" || excl.Values[0].Value != "United States" {
		t.Errorf("exclusion = %+v", excl.Values)
	}
}

func TestParseQuery_Defaults(t *testing.T) {
	svc := testService(&mockEngine{})
	req, err := svc.ParseQuery(entity.Contact, "")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if req.Page != 1 || req.PerPage != DefaultPerPage || req.Term != "" || len(req.Filters) != 0 {
		t.Errorf("defaults = %+v", req)
	}
}

func TestSearch_EndToEnd(t *testing.T) {
	engine := &mockEngine{resp: &es.Response{
		Total: 42,
		Hits: []es.Hit{
			{ID: "c1", Source: map[string]any{"name": "Acme"}},
		},
	}}
	svc := testService(engine)

	req := validate.Request{
		Entity:  entity.Company,
		Term:    `saas AND "data analytics"`,
		Page:    2,
		PerPage: 10,
		Sort:    []parser.SortField{{Field: "name", Direction: "asc"}},
		Filters: []validate.FilterSelection{{
			FilterID: "industry",
			Values:   []validate.SelectionValue{{Value: "Software", Kind: "INCLUDED"}},
		}},
	}

	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if engine.lastIndex != "companies" {
		t.Errorf("index = %q", engine.lastIndex)
	}
	if page.Total != 42 || page.CurrentPage != 2 || page.LastPage != 5 {
		t.Errorf("page = %+v", page)
	}
	if len(page.Data) != 1 || page.Data[0].ID != "c1" {
		t.Errorf("data = %+v", page.Data)
	}

	body := engine.lastBody
	if body["from"] != 10 || body["size"] != 10 {
		t.Errorf("pagination = %v %v", body["from"], body["size"])
	}
	boolQ := body["query"].(map[string]any)["bool"].(map[string]any)

	// The free-text expression lands in must as one AND group of multi_match
	// clauses; the filter selection lands in the filter bucket.
	must := boolQ["must"].([]map[string]any)
	if len(must) != 1 {
		t.Fatalf("must = %v", must)
	}
	andGroup := must[0]["bool"].(map[string]any)["must"].([]map[string]any)
	if len(andGroup) != 2 {
		t.Fatalf("and group = %v", andGroup)
	}
	phrase := andGroup[1]["multi_match"].(map[string]any)
	if phrase["type"] != "phrase" || phrase["query"] != "data analytics" {
		t.Errorf("phrase clause = %v", phrase)
	}
	if _, ok := boolQ["filter"]; !ok {
		t.Error("industry selection missing from filter bucket")
	}
}

func TestSearch_ValidationRejects(t *testing.T) {
	svc := testService(&mockEngine{})

	req := validate.Request{Entity: entity.Company, Page: 1, PerPage: 10}
	req.Sort = []parser.SortField{{Field: "revenue", Direction: "desc"}}

	_, err := svc.Search(context.Background(), req)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v", err)
	}
}

func TestSearch_UnknownFilterAborts(t *testing.T) {
	engine := &mockEngine{}
	svc := testService(engine)

	req := validate.Request{
		Entity: entity.Company, Page: 1, PerPage: 10,
		Filters: []validate.FilterSelection{{
			FilterID: "nope",
			Values:   []validate.SelectionValue{{Value: "x", Kind: "INCLUDED"}},
		}},
	}
	if _, err := svc.Search(context.Background(), req); err == nil {
		t.Fatal("unknown filter must abort the search")
	}
	if engine.lastBody != nil {
		t.Error("no query may reach the engine after an aborted build")
	}
}

func TestCount(t *testing.T) {
	engine := &mockEngine{count: 7}
	svc := testService(engine)

	n, err := svc.Count(context.Background(), validate.Request{Entity: entity.Contact, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 7 {
		t.Errorf("count = %d", n)
	}
	if engine.lastIndex != "contacts" {
		t.Errorf("index = %q", engine.lastIndex)
	}
	if _, ok := engine.lastBody["from"]; ok {
		t.Error("count body must not paginate")
	}
}

func TestSearch_RecordsMetrics(t *testing.T) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests"}, []string{"entity", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "duration"}, []string{"entity"})

	engine := &mockEngine{}
	svc := testServiceWithMetrics(engine, requests, duration)
	req := validate.Request{Entity: entity.Company, Page: 1, PerPage: 10}

	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := testutil.ToFloat64(requests.WithLabelValues("company", "ok")); got != 1 {
		t.Errorf("ok count = %f, want 1", got)
	}
	if testutil.CollectAndCount(duration) == 0 {
		t.Error("no duration observed")
	}

	engine.err = errors.New("engine down")
	if _, err := svc.Search(context.Background(), req); err == nil {
		t.Fatal("expected engine failure")
	}
	if got := testutil.ToFloat64(requests.WithLabelValues("company", "error")); got != 1 {
		t.Errorf("error count = %f, want 1", got)
	}
}

func TestExprClause_OrGroup(t *testing.T) {
	expr, err := parser.ParseTerm("a OR b")
	if err != nil {
		t.Fatalf("ParseTerm: %v", err)
	}
	clause := exprClause(expr, []string{"name"})
	boolQ := clause["bool"].(map[string]any)
	if boolQ["minimum_should_match"] != 1 {
		t.Errorf("or group = %v", clause)
	}
	if len(boolQ["should"].([]map[string]any)) != 2 {
		t.Errorf("or group = %v", clause)
	}
}
