package filters

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/prospectio/prospect/internal/cache"
	"github.com/prospectio/prospect/internal/domain"
	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
	"github.com/prospectio/prospect/internal/domain/selection"
	"github.com/prospectio/prospect/internal/es"
)

// Cache keys and lifetimes. Stale reads for up to one TTL window are an
// accepted tradeoff of the process-wide registry cache.
const (
	registryCacheKey = "filters:active"
	registryTTL      = 60 * time.Second
)

// TTLConfig holds the value-page cache lifetimes by source class.
type TTLConfig struct {
	Long  time.Duration
	Short time.Duration
}

// DefaultTTLConfig returns the standard value-page lifetimes.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{Long: 6 * time.Hour, Short: 5 * time.Minute}
}

// Manager owns the active-filter registry, resolves handlers, and applies
// selection batches to a query builder.
type Manager struct {
	registry   Registry
	factory    *Factory
	cache      cache.Cache
	ttl        TTLConfig
	logger     *zap.Logger
	cacheTotal *prometheus.CounterVec
}

// NewManager creates a filter manager. cacheTotal may be nil to skip
// instrumentation.
func NewManager(registry Registry, factory *Factory, c cache.Cache, ttl TTLConfig, logger *zap.Logger, cacheTotal *prometheus.CounterVec) *Manager {
	if ttl.Long == 0 && ttl.Short == 0 {
		ttl = DefaultTTLConfig()
	}
	return &Manager{
		registry:   registry,
		factory:    factory,
		cache:      c,
		ttl:        ttl,
		logger:     logger,
		cacheTotal: cacheTotal,
	}
}

// ActiveFilters returns the cached, ordered list of active filter
// definitions (group, then sort order).
func (m *Manager) ActiveFilters(ctx context.Context) ([]filterdef.Definition, error) {
	data, err := cache.GetOrPopulate(ctx, m.cache, registryCacheKey, registryTTL, func(ctx context.Context) ([]byte, error) {
		defs, err := m.registry.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active filters: %w", err)
		}
		sort.SliceStable(defs, func(i, j int) bool {
			if defs[i].Group != defs[j].Group {
				return defs[i].Group < defs[j].Group
			}
			return defs[i].SortOrder < defs[j].SortOrder
		})
		return json.Marshal(defs)
	})
	if err != nil {
		return nil, err
	}

	var defs []filterdef.Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode cached registry: %w", err)
	}
	return defs, nil
}

// InvalidateRegistry busts the registry cache so the next read repopulates.
func (m *Manager) InvalidateRegistry(ctx context.Context) error {
	return m.cache.Delete(ctx, registryCacheKey)
}

// Filter returns one active definition by id.
func (m *Manager) Filter(ctx context.Context, filterID string) (filterdef.Definition, error) {
	defs, err := m.ActiveFilters(ctx)
	if err != nil {
		return filterdef.Definition{}, err
	}
	for _, d := range defs {
		if d.ID == filterID {
			return d, nil
		}
	}
	return filterdef.Definition{}, &domain.UnknownFilterError{FilterID: filterID}
}

// Handler resolves the handler for one active filter.
func (m *Manager) Handler(ctx context.Context, filterID string) (Handler, error) {
	def, err := m.Filter(ctx, filterID)
	if err != nil {
		return nil, err
	}
	return m.factory.Make(def), nil
}

// ApplyFilters applies a batch of selections to the builder. An unknown
// filter fails the whole batch before any clause is added: a partially
// applied filter set is worse than no query.
func (m *Manager) ApplyFilters(ctx context.Context, b *es.Builder, ent entity.Type, sels []selection.Selection) error {
	handlers := make([]Handler, len(sels))
	for i, sel := range sels {
		h, err := m.Handler(ctx, sel.FilterID)
		if err != nil {
			return err
		}
		handlers[i] = h
	}

	for i, sel := range sels {
		h := handlers[i]
		// Defense in depth: the validator already rejects EXCLUDED on
		// non-exclusion filters, but requests reaching this point through
		// another path get the silent downgrade.
		if !h.SupportsExclusion() {
			sel = sel.WithoutExclusion()
		}
		if err := h.Apply(b, sel, ent); err != nil {
			return fmt.Errorf("apply filter %s: %w", sel.FilterID, err)
		}
	}
	return nil
}

// FilterValues enumerates selectable values for one filter. The cache is
// skipped entirely when a search term is present: search results must stay
// fresh and cache poorly.
func (m *Manager) FilterValues(ctx context.Context, filterID, search string, page, perPage int) (filterdef.ValuesPage, error) {
	def, err := m.Filter(ctx, filterID)
	if err != nil {
		return filterdef.ValuesPage{}, err
	}
	handler := m.factory.Make(def)

	ttl, cacheable := m.valuesTTL(def)
	if search != "" || !cacheable {
		return handler.GetValues(ctx, search, page, perPage)
	}

	key := fmt.Sprintf("filters:values:%s:%d:%d", filterID, page, perPage)
	if data, err := m.cache.Get(ctx, key); err == nil {
		m.countCache("hit")
		var page filterdef.ValuesPage
		if err := json.Unmarshal(data, &page); err == nil {
			return page, nil
		}
		// Unreadable entry: fall through and recompute.
		m.logger.Warn("discarding undecodable filter values cache entry", zap.String("key", key))
	}
	m.countCache("miss")

	values, err := handler.GetValues(ctx, search, page, perPage)
	if err != nil {
		return filterdef.ValuesPage{}, err
	}
	if data, err := json.Marshal(values); err == nil {
		_ = m.cache.Set(ctx, key, data, ttl)
	}
	return values, nil
}

// valuesTTL selects the cache lifetime by (value source, value type):
// predefined and specialized locations cache long, engine-enumerated values
// cache short, everything else stays uncached.
func (m *Manager) valuesTTL(def filterdef.Definition) (time.Duration, bool) {
	switch def.ValueSource {
	case filterdef.SourcePredefined:
		return m.ttl.Long, true
	case filterdef.SourceSpecialized:
		if def.ValueType == filterdef.ValueTypeLocation {
			return m.ttl.Long, true
		}
		return 0, false
	case filterdef.SourceElasticsearch:
		return m.ttl.Short, true
	default:
		return 0, false
	}
}

func (m *Manager) countCache(result string) {
	if m.cacheTotal != nil {
		m.cacheTotal.WithLabelValues(result).Inc()
	}
}
