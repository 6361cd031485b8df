package es

import "context"

// Client is the opaque request/response boundary to the search engine.
// Implementations send the serialized payload and return hits/aggregations.
type Client interface {
	Search(ctx context.Context, index string, body map[string]any) (*Response, error)
	Count(ctx context.Context, index string, body map[string]any) (int64, error)
}

// Hit is a single raw document hit.
type Hit struct {
	ID         string              `json:"_id"`
	Score      float64             `json:"_score"`
	Source     map[string]any      `json:"_source"`
	Highlights map[string][]string `json:"highlight,omitempty"`
	Sort       []any               `json:"sort,omitempty"`
}

// Response is the engine's answer to one search payload.
type Response struct {
	Total        int64          `json:"total"`
	Hits         []Hit          `json:"hits"`
	Aggregations map[string]any `json:"aggregations,omitempty"`
}
