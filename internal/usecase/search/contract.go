package search

import (
	"context"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
	"github.com/prospectio/prospect/internal/usecase/filters"
)

// FilterEngine is the filter-manager surface the search pipeline consumes.
type FilterEngine interface {
	Handler(ctx context.Context, filterID string) (filters.Handler, error)
	ApplyFilters(ctx context.Context, b *es.Builder, ent entity.Type, sels []selection.Selection) error
}

// Engine executes serialized query payloads against the search backend.
type Engine interface {
	Search(ctx context.Context, index string, body map[string]any) (*es.Response, error)
	Count(ctx context.Context, index string, body map[string]any) (int64, error)
}
