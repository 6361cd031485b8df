// Package es builds Elasticsearch-style search payloads and maps responses.
// The engine itself is an opaque collaborator behind the Client interface.
package es

import (
	"github.com/prospectio/prospect/internal/domain"
)

// Op is a clause operator understood by the builder.
type Op string

// Supported clause operators. OpTerm (the zero value) is an exact term match.
const (
	OpTerm     Op = ""
	OpEq       Op = "="
	OpMatch    Op = "like"
	OpPrefix   Op = "prefix"
	OpWildcard Op = "wildcard"
	OpRange    Op = "range"
	OpGt       Op = ">"
	OpGte      Op = ">="
	OpLt       Op = "<"
	OpLte      Op = "<="
)

// Pagination bounds.
const (
	MaxPageSize = 1000
)

// KNN is the nearest-neighbor stub passed through to the engine. Filter
// clauses accumulated on the builder are projected into its pre-filter at
// build time.
type KNN struct {
	Field         string    `json:"field"`
	QueryVector   []float32 `json:"query_vector"`
	K             int       `json:"k"`
	NumCandidates int       `json:"num_candidates"`
}

// Builder accumulates a single boolean search query. It is request-scoped,
// single-use, and never shared between goroutines.
type Builder struct {
	must    []map[string]any
	should  []map[string]any
	filter  []map[string]any
	mustNot []map[string]any

	boolParams map[string]any

	from           int
	size           int
	sorts          []any
	source         []string
	highlight      map[string]any
	aggs           map[string]any
	minScore       float64
	trackTotalHits bool
	knn            *KNN
	searchAfter    []any

	err error
}

// NewBuilder starts an empty query.
func NewBuilder() *Builder {
	return &Builder{size: 10}
}

// Err returns the first clause-construction error, if any. Build methods
// also return it, so fluent chains fail at the end.
func (b *Builder) Err() error { return b.err }

// Must adds a required clause for field/value under the given operator.
func (b *Builder) Must(field string, value any, op Op) *Builder {
	b.must = b.appendClause(b.must, field, value, op)
	return b
}

// Should adds an optional (OR-semantics) clause.
func (b *Builder) Should(field string, value any, op Op) *Builder {
	b.should = b.appendClause(b.should, field, value, op)
	return b
}

// Filter adds a non-scoring required clause.
func (b *Builder) Filter(field string, value any, op Op) *Builder {
	b.filter = b.appendClause(b.filter, field, value, op)
	return b
}

// MustNot adds an excluding clause.
func (b *Builder) MustNot(field string, value any, op Op) *Builder {
	b.mustNot = b.appendClause(b.mustNot, field, value, op)
	return b
}

// MustClause adds a pre-built raw clause to the must bucket.
func (b *Builder) MustClause(clause map[string]any) *Builder {
	b.must = append(b.must, clause)
	return b
}

// ShouldClause adds a pre-built raw clause to the should bucket.
func (b *Builder) ShouldClause(clause map[string]any) *Builder {
	b.should = append(b.should, clause)
	return b
}

// FilterClause adds a pre-built raw clause to the filter bucket.
func (b *Builder) FilterClause(clause map[string]any) *Builder {
	b.filter = append(b.filter, clause)
	return b
}

// MustNotClause adds a pre-built raw clause to the must_not bucket.
func (b *Builder) MustNotClause(clause map[string]any) *Builder {
	b.mustNot = append(b.mustNot, clause)
	return b
}

func (b *Builder) appendClause(bucket []map[string]any, field string, value any, op Op) []map[string]any {
	clause, err := Clause(field, value, op)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return bucket
	}
	return append(bucket, clause)
}

// Clause translates field/value/operator into one engine clause.
// Unsupported operators fail fast with UnsupportedOperatorError.
func Clause(field string, value any, op Op) (map[string]any, error) {
	switch op {
	case OpTerm, OpEq:
		return map[string]any{"term": map[string]any{field: value}}, nil
	case OpMatch:
		return map[string]any{"match": map[string]any{field: value}}, nil
	case OpPrefix:
		return map[string]any{"prefix": map[string]any{field: value}}, nil
	case OpWildcard:
		return map[string]any{"wildcard": map[string]any{field: value}}, nil
	case OpRange:
		return map[string]any{"range": map[string]any{field: value}}, nil
	case OpGt:
		return map[string]any{"range": map[string]any{field: map[string]any{"gt": value}}}, nil
	case OpGte:
		return map[string]any{"range": map[string]any{field: map[string]any{"gte": value}}}, nil
	case OpLt:
		return map[string]any{"range": map[string]any{field: map[string]any{"lt": value}}}, nil
	case OpLte:
		return map[string]any{"range": map[string]any{field: map[string]any{"lte": value}}}, nil
	default:
		return nil, &domain.UnsupportedOperatorError{Operator: string(op)}
	}
}

// MultiMatch adds a must clause matching the query across multiple fields.
func (b *Builder) MultiMatch(fields []string, query string) *Builder {
	b.must = append(b.must, MultiMatchClause(fields, query, ""))
	return b
}

// MultiMatchClause builds a multi_match clause. matchType may be empty or
// e.g. "phrase".
func MultiMatchClause(fields []string, query, matchType string) map[string]any {
	mm := map[string]any{
		"query":  query,
		"fields": fields,
	}
	if matchType != "" {
		mm["type"] = matchType
	}
	return map[string]any{"multi_match": mm}
}

// Fuzzy adds a must clause with fuzzy matching on one field.
func (b *Builder) Fuzzy(field, value, fuzziness string) *Builder {
	if fuzziness == "" {
		fuzziness = "AUTO"
	}
	b.must = append(b.must, map[string]any{
		"fuzzy": map[string]any{
			field: map[string]any{"value": value, "fuzziness": fuzziness},
		},
	})
	return b
}

// Highlight enables highlighting for the given fields.
func (b *Builder) Highlight(fields ...string) *Builder {
	hf := make(map[string]any, len(fields))
	for _, f := range fields {
		hf[f] = map[string]any{}
	}
	b.highlight = map[string]any{"fields": hf}
	return b
}

// Aggregation registers a named aggregation body.
func (b *Builder) Aggregation(name string, agg map[string]any) *Builder {
	if b.aggs == nil {
		b.aggs = make(map[string]any)
	}
	b.aggs[name] = agg
	return b
}

// TermsAggregation registers a terms aggregation over a field.
func (b *Builder) TermsAggregation(name, field string, size int) *Builder {
	return b.Aggregation(name, map[string]any{
		"terms": map[string]any{"field": field, "size": size},
	})
}

// Sort appends a sort on one field.
func (b *Builder) Sort(field, direction string) *Builder {
	if direction == "" {
		direction = "asc"
	}
	b.sorts = append(b.sorts, map[string]any{field: map[string]any{"order": direction}})
	return b
}

// SortRaw appends a pre-built sort entry.
func (b *Builder) SortRaw(sort any) *Builder {
	b.sorts = append(b.sorts, sort)
	return b
}

// Select restricts returned source fields.
func (b *Builder) Select(fields ...string) *Builder {
	b.source = fields
	return b
}

// MinScore sets the minimum document score.
func (b *Builder) MinScore(score float64) *Builder {
	b.minScore = score
	return b
}

// TrackTotalHits requests an exact total hit count.
func (b *Builder) TrackTotalHits() *Builder {
	b.trackTotalHits = true
	return b
}

// KNNSearch attaches a nearest-neighbor stub.
func (b *Builder) KNNSearch(cfg KNN) *Builder {
	b.knn = &cfg
	return b
}

// SearchAfter sets the deep-pagination cursor.
func (b *Builder) SearchAfter(values []any) *Builder {
	b.searchAfter = values
	return b
}

// BoolParam sets an explicit bool-query parameter (e.g. minimum_should_match),
// overriding anything the builder would inject on its own.
func (b *Builder) BoolParam(key string, value any) *Builder {
	if b.boolParams == nil {
		b.boolParams = make(map[string]any)
	}
	b.boolParams[key] = value
	return b
}

// Paginate sets from/size. Page is clamped to >= 1, count to [1, MaxPageSize].
func (b *Builder) Paginate(page, count int) *Builder {
	if page < 1 {
		page = 1
	}
	if count < 1 {
		count = 1
	}
	if count > MaxPageSize {
		count = MaxPageSize
	}
	b.from = (page - 1) * count
	b.size = count
	return b
}

// From returns the computed result offset.
func (b *Builder) From() int { return b.from }

// Size returns the page size.
func (b *Builder) Size() int { return b.size }

// BuildQuery assembles the boolean query. When only should clauses exist,
// minimum_should_match=1 is injected: without it an empty bool with an
// unsatisfied should bucket matches everything.
func (b *Builder) BuildQuery() (map[string]any, error) {
	if b.err != nil {
		return nil, b.err
	}

	boolQ := make(map[string]any)
	if len(b.must) > 0 {
		boolQ["must"] = b.must
	}
	if len(b.should) > 0 {
		boolQ["should"] = b.should
		if len(b.must) == 0 {
			boolQ["minimum_should_match"] = 1
		}
	}
	if len(b.filter) > 0 {
		boolQ["filter"] = b.filter
	}
	if len(b.mustNot) > 0 {
		boolQ["must_not"] = b.mustNot
	}
	// Explicit bool params override anything injected above.
	for k, v := range b.boolParams {
		boolQ[k] = v
	}

	return map[string]any{"bool": boolQ}, nil
}

// BuildBody assembles the full search payload sent to the engine.
func (b *Builder) BuildBody() (map[string]any, error) {
	query, err := b.BuildQuery()
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"query": query,
		"from":  b.from,
		"size":  b.size,
	}
	if len(b.sorts) > 0 {
		body["sort"] = b.sorts
	}
	if len(b.source) > 0 {
		body["_source"] = b.source
	}
	if b.highlight != nil {
		body["highlight"] = b.highlight
	}
	if len(b.aggs) > 0 {
		body["aggs"] = b.aggs
	}
	if b.minScore > 0 {
		body["min_score"] = b.minScore
	}
	if b.trackTotalHits {
		body["track_total_hits"] = true
	}
	if len(b.searchAfter) > 0 {
		body["search_after"] = b.searchAfter
	}
	if b.knn != nil {
		body["knn"] = b.knnBody()
	}
	return body, nil
}

// CountBody assembles a size:0 payload reusing the built boolean query.
func (b *Builder) CountBody() (map[string]any, error) {
	query, err := b.BuildQuery()
	if err != nil {
		return nil, err
	}
	return map[string]any{"query": query, "size": 0}, nil
}

// knnBody projects accumulated filter clauses into the knn pre-filter. A
// single clause is passed directly; multiple clauses are wrapped in a bool.
func (b *Builder) knnBody() map[string]any {
	body := map[string]any{
		"field":          b.knn.Field,
		"query_vector":   b.knn.QueryVector,
		"k":              b.knn.K,
		"num_candidates": b.knn.NumCandidates,
	}
	switch len(b.filter) {
	case 0:
	case 1:
		body["filter"] = b.filter[0]
	default:
		body["filter"] = map[string]any{"bool": map[string]any{"filter": b.filter}}
	}
	return body
}
