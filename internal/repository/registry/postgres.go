// Package registry supplies filter definitions and their predefined values.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
)

const (
	schemaSQL = `
CREATE TABLE IF NOT EXISTS filter_definitions (
    id                    TEXT PRIMARY KEY,
    filter_group          TEXT NOT NULL DEFAULT '',
    sort_order            INT NOT NULL DEFAULT 0,
    value_source          TEXT NOT NULL DEFAULT '',
    value_type            TEXT NOT NULL DEFAULT '',
    input_type            TEXT NOT NULL DEFAULT '',
    type                  TEXT NOT NULL DEFAULT '',
    entity                TEXT NOT NULL,
    searchable            BOOLEAN NOT NULL DEFAULT FALSE,
    allows_exclusion      BOOLEAN NOT NULL DEFAULT FALSE,
    supports_value_lookup BOOLEAN NOT NULL DEFAULT FALSE,
    active                BOOLEAN NOT NULL DEFAULT TRUE,
    settings              JSONB
);
CREATE TABLE IF NOT EXISTS filter_values (
    filter_id TEXT NOT NULL REFERENCES filter_definitions (id),
    value_id  TEXT NOT NULL,
    value     TEXT NOT NULL,
    PRIMARY KEY (filter_id, value_id)
);`

	listActiveSQL = `
SELECT id, filter_group, sort_order, value_source, value_type, input_type, type,
       entity, searchable, allows_exclusion, supports_value_lookup, settings
FROM filter_definitions
WHERE active
ORDER BY filter_group, sort_order, id`

	listValuesSQL = `
SELECT value_id, value
FROM filter_values
WHERE filter_id = $1 AND ($2 = '' OR value ILIKE $2 || '%')
ORDER BY value
LIMIT $3 OFFSET $4`

	countValuesSQL = `
SELECT COUNT(*)
FROM filter_values
WHERE filter_id = $1 AND ($2 = '' OR value ILIKE $2 || '%')`
)

// PostgresStore reads filter definitions and predefined values from Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the registry tables when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]filterdef.Definition, error) {
	rows, err := s.db.QueryContext(ctx, listActiveSQL)
	if err != nil {
		return nil, fmt.Errorf("list filter definitions: %w", err)
	}
	defer rows.Close()

	var defs []filterdef.Definition
	for rows.Next() {
		var (
			def      filterdef.Definition
			ent      string
			settings []byte
		)
		if err := rows.Scan(&def.ID, &def.Group, &def.SortOrder, &def.ValueSource,
			&def.ValueType, &def.InputType, &def.Type, &ent,
			&def.Searchable, &def.AllowsExclusion, &def.SupportsValueLookup, &settings); err != nil {
			return nil, fmt.Errorf("scan filter definition: %w", err)
		}
		def.Entity = entity.Type(ent)
		if len(settings) > 0 {
			if err := json.Unmarshal(settings, &def.Settings); err != nil {
				return nil, fmt.Errorf("decode settings for filter %s: %w", def.ID, err)
			}
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (s *PostgresStore) ListValues(ctx context.Context, filterID, search string, page, perPage int) (filterdef.ValuesPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countValuesSQL, filterID, search).Scan(&total); err != nil {
		return filterdef.ValuesPage{}, fmt.Errorf("count values for filter %s: %w", filterID, err)
	}

	rows, err := s.db.QueryContext(ctx, listValuesSQL, filterID, search, perPage, (page-1)*perPage)
	if err != nil {
		return filterdef.ValuesPage{}, fmt.Errorf("list values for filter %s: %w", filterID, err)
	}
	defer rows.Close()

	var values []filterdef.Value
	for rows.Next() {
		var v filterdef.Value
		if err := rows.Scan(&v.ID, &v.Value); err != nil {
			return filterdef.ValuesPage{}, fmt.Errorf("scan value for filter %s: %w", filterID, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return filterdef.ValuesPage{}, err
	}
	return filterdef.NewValuesPage(values, total, page, perPage), nil
}
