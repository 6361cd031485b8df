// Package search ties the request pipeline together: raw query state in,
// validated and filtered engine query out, paginated hits back.
package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/domain/term"
	"github.com/prospectio/prospect/internal/es"
	"github.com/prospectio/prospect/internal/parser"
	"github.com/prospectio/prospect/internal/validate"
)

// Defaults applied when the request leaves them unset.
const (
	DefaultPerPage = 25
)

// Config maps each entity to its index and free-text search fields.
type Config struct {
	Indexes      map[entity.Type]string
	SearchFields map[entity.Type][]string
}

// DefaultConfig returns the standard index names and search fields.
func DefaultConfig() Config {
	return Config{
		Indexes: map[entity.Type]string{
			entity.Company: "companies",
			entity.Contact: "contacts",
		},
		SearchFields: map[entity.Type][]string{
			entity.Company: {"name^3", "description", "industry", "technologies"},
			entity.Contact: {"first_name^2", "last_name^2", "job_title", "company_name"},
		},
	}
}

// Service runs the search pipeline: parse, validate, apply filters, execute.
type Service struct {
	engine    Engine
	manager   FilterEngine
	validator *validate.Validator
	cfg       Config
	logger    *zap.Logger
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New creates a search service. The validator resolves filter capabilities
// through the same manager that will later apply them. requests (labelled
// entity, status) and duration (labelled entity) may be nil.
func New(engine Engine, manager FilterEngine, cfg Config, logger *zap.Logger, requests *prometheus.CounterVec, duration *prometheus.HistogramVec) *Service {
	resolve := func(ctx context.Context, filterID string) (validate.FilterCapabilities, error) {
		return manager.Handler(ctx, filterID)
	}
	return &Service{
		engine:    engine,
		manager:   manager,
		validator: validate.New(resolve, nil),
		cfg:       cfg,
		logger:    logger,
		requests:  requests,
		duration:  duration,
	}
}

// ParseQuery decodes a raw query string into a request. Recognized keys:
// entity, term, page, per_page, sort, query (legacy or JSON filter encoding).
// Variables under the reserved `exclude` key become excluded selections.
func (s *Service) ParseQuery(ent entity.Type, raw string) (validate.Request, error) {
	parsed, err := parser.ParseQueryString(raw)
	if err != nil {
		return validate.Request{}, err
	}

	req := validate.Request{
		Entity:  ent,
		Page:    1,
		PerPage: DefaultPerPage,
		Sort:    parsed.Sort,
	}

	vars := parsed.Variables
	if v, ok := stringVar(vars, "term"); ok {
		req.Term = v
		delete(vars, "term")
	}
	if v, ok := stringVar(vars, "page"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			req.Page = n
		}
		delete(vars, "page")
	}
	if v, ok := stringVar(vars, "per_page"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			req.PerPage = n
		}
		delete(vars, "per_page")
	}

	if excluded, ok := vars["exclude"].(map[string]any); ok {
		delete(vars, "exclude")
		for filterID, raw := range excluded {
			req.Filters = append(req.Filters, selectionFromVar(filterID, raw, selection.Excluded))
		}
	}
	for filterID, raw := range vars {
		req.Filters = append(req.Filters, selectionFromVar(filterID, raw, selection.Included))
	}
	return req, nil
}

// Search validates the request, builds the query and returns one page of hits.
func (s *Service) Search(ctx context.Context, req validate.Request) (es.Page, error) {
	b, err := s.buildQuery(ctx, req)
	if err != nil {
		return es.Page{}, err
	}
	b.Paginate(req.Page, req.PerPage)
	for _, sf := range req.Sort {
		b.Sort(sf.Field, sf.Direction)
	}

	body, err := b.BuildBody()
	if err != nil {
		return es.Page{}, fmt.Errorf("build search body: %w", err)
	}
	start := time.Now()
	resp, err := s.engine.Search(ctx, s.cfg.Indexes[req.Entity], body)
	s.observe(req.Entity, err, time.Since(start))
	if err != nil {
		return es.Page{}, fmt.Errorf("execute search: %w", err)
	}

	s.logger.Debug("search executed",
		zap.String("entity", string(req.Entity)),
		zap.Int64("total", resp.Total),
		zap.Int("page", req.Page),
	)
	return es.MapPage(resp, req.Page, req.PerPage), nil
}

// Count validates the request and returns the total match count.
func (s *Service) Count(ctx context.Context, req validate.Request) (int64, error) {
	b, err := s.buildQuery(ctx, req)
	if err != nil {
		return 0, err
	}
	body, err := b.CountBody()
	if err != nil {
		return 0, fmt.Errorf("build count body: %w", err)
	}
	start := time.Now()
	n, err := s.engine.Count(ctx, s.cfg.Indexes[req.Entity], body)
	s.observe(req.Entity, err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("execute count: %w", err)
	}
	return n, nil
}

// observe records one engine execution on the request counter and duration
// histogram.
func (s *Service) observe(ent entity.Type, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	if s.requests != nil {
		s.requests.WithLabelValues(string(ent), status).Inc()
	}
	if s.duration != nil {
		s.duration.WithLabelValues(string(ent)).Observe(elapsed.Seconds())
	}
}

func (s *Service) buildQuery(ctx context.Context, req validate.Request) (*es.Builder, error) {
	if err := s.validator.Validate(ctx, req); err != nil {
		return nil, err
	}

	b := es.NewBuilder()
	if req.Term != "" {
		expr, err := parser.ParseTerm(req.Term)
		if err != nil {
			return nil, err
		}
		b.MustClause(exprClause(expr, s.cfg.SearchFields[req.Entity]))
	}
	if err := s.manager.ApplyFilters(ctx, b, req.Entity, req.Selections()); err != nil {
		return nil, err
	}
	return b, nil
}

// exprClause renders a parsed term expression onto engine clauses: words and
// phrases become multi_match, AND groups bool/must, OR groups bool/should
// with minimum_should_match 1.
func exprClause(expr term.Expr, fields []string) map[string]any {
	switch e := expr.(type) {
	case term.Term:
		return es.MultiMatchClause(fields, e.Text, "")
	case term.Phrase:
		return es.MultiMatchClause(fields, e.Text, "phrase")
	case term.And:
		clauses := make([]map[string]any, len(e.Operands))
		for i, op := range e.Operands {
			clauses[i] = exprClause(op, fields)
		}
		return map[string]any{"bool": map[string]any{"must": clauses}}
	case term.Or:
		clauses := make([]map[string]any, len(e.Operands))
		for i, op := range e.Operands {
			clauses[i] = exprClause(op, fields)
		}
		return map[string]any{"bool": map[string]any{
			"should":               clauses,
			"minimum_should_match": 1,
		}}
	default:
		return map[string]any{"match_none": map[string]any{}}
	}
}

func stringVar(vars map[string]any, key string) (string, bool) {
	v, ok := vars[key].(string)
	return v, ok
}

// selectionFromVar converts one decoded query variable (scalar, list, or
// JSON list) into a filter selection.
func selectionFromVar(filterID string, raw any, kind selection.Kind) validate.FilterSelection {
	var values []validate.SelectionValue
	add := func(v string) {
		values = append(values, validate.SelectionValue{Value: v, Kind: kind})
	}
	switch v := raw.(type) {
	case string:
		add(v)
	case []string:
		for _, item := range v {
			add(item)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			} else {
				add(fmt.Sprint(item))
			}
		}
	default:
		add(fmt.Sprint(v))
	}
	return validate.FilterSelection{FilterID: filterID, Values: values}
}
