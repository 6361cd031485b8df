package filters

import (
	"context"

	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/es"
)

// Registry supplies filter definitions and their predefined values.
type Registry interface {
	// ListActive returns the active definitions ordered by group then sort order.
	ListActive(ctx context.Context) ([]filterdef.Definition, error)
	// ListValues pages through the stored values for one filter, optionally
	// narrowed by a free-text search.
	ListValues(ctx context.Context, filterID, search string, page, perPage int) (filterdef.ValuesPage, error)
}

// Engine is the search-engine surface handlers use for live value lookups.
type Engine interface {
	Search(ctx context.Context, index string, body map[string]any) (*es.Response, error)
}
