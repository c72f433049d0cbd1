// Package sqlite stores records in a SQLite table and evaluates filters
// either by pushing the query DSL down into SQL or by loading rows and
// applying an in-memory predicate.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/asaidimu/go-criteria/core/filter"
	"github.com/asaidimu/go-criteria/core/predicate"
	"github.com/asaidimu/go-criteria/core/query"
	"github.com/asaidimu/go-criteria/core/schema"
)

// Store is a table of documents described by a RecordSchema.
type Store struct {
	db        *sqlx.DB
	table     string
	schema    *schema.RecordSchema
	generator *Generator
	logger    *zap.Logger
}

// NewStore wraps db. The table is not created until CreateTable is called.
func NewStore(db *sql.DB, table string, sc *schema.RecordSchema, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	if sc == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	generator, err := NewGenerator(table, sc)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:        sqlx.NewDb(db, dialectSQLite),
		table:     table,
		schema:    sc,
		generator: generator,
		logger:    logger.With(zap.String("table", table)),
	}, nil
}

// Generator returns the SQL generator bound to the store's table and schema.
func (s *Store) Generator() *Generator {
	return s.generator
}

// CreateTable creates the table if it does not exist yet.
func (s *Store) CreateTable(ctx context.Context) error {
	ddl, err := CreateTableSQL(s.table, s.schema, true)
	if err != nil {
		return err
	}
	s.logger.Debug("Executing SQL DDL", zap.String("sql", ddl))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Insert writes docs in a single statement. Documents are validated against
// the schema first; unknown fields are rejected.
func (s *Store) Insert(ctx context.Context, docs ...schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	validator := schema.NewValidator(s.schema)
	records := make([]map[string]any, 0, len(docs))
	for i, doc := range docs {
		if ok, issues := validator.Validate(doc, false); !ok {
			return fmt.Errorf("document %d: %s: %s", i, issues[0].Path, issues[0].Message)
		}
		records = append(records, doc)
	}

	sqlQuery, params, err := s.generator.GenerateInsertSQL(records)
	if err != nil {
		return fmt.Errorf("failed to generate INSERT SQL: %w", err)
	}
	s.logger.Debug("Executing SQL INSERT", zap.String("sql", sqlQuery), zap.Any("params", params))
	if _, err := s.db.ExecContext(ctx, sqlQuery, params...); err != nil {
		s.logger.Error("Failed to execute INSERT query", zap.Error(err), zap.String("sql", sqlQuery))
		return fmt.Errorf("failed to execute INSERT query: %w", err)
	}
	return nil
}

// Select returns the documents matching filter, evaluated by SQLite.
func (s *Store) Select(ctx context.Context, filter *query.QueryFilter) ([]schema.Document, error) {
	return s.Query(ctx, &query.QueryDSL{Filters: filter})
}

// Query runs a complete QueryDSL, sorting and pagination included, in SQL.
func (s *Store) Query(ctx context.Context, dsl *query.QueryDSL) ([]schema.Document, error) {
	sqlQuery, params, err := s.generator.GenerateSelectSQL(dsl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SQL query: %w", err)
	}
	s.logger.Debug("Executing SQL SELECT", zap.String("sql", sqlQuery), zap.Any("params", params))

	rows, err := s.db.QueryxContext(ctx, sqlQuery, params...)
	if err != nil {
		s.logger.Error("Failed to execute SELECT query", zap.Error(err), zap.String("sql", sqlQuery))
		return nil, fmt.Errorf("failed to execute SELECT query: %w", err)
	}
	defer rows.Close()

	results := []schema.Document{}
	for rows.Next() {
		raw := make(map[string]any)
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, decodeRow(s.logger, s.schema, raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return results, nil
}

// Count returns the number of rows matching filter.
func (s *Store) Count(ctx context.Context, filter *query.QueryFilter) (int64, error) {
	sqlQuery, params, err := s.generator.GenerateCountSQL(filter)
	if err != nil {
		return 0, fmt.Errorf("failed to generate COUNT SQL: %w", err)
	}
	s.logger.Debug("Executing SQL COUNT", zap.String("sql", sqlQuery), zap.Any("params", params))
	var n int64
	if err := s.db.GetContext(ctx, &n, sqlQuery, params...); err != nil {
		return 0, fmt.Errorf("failed to execute COUNT query: %w", err)
	}
	return n, nil
}

// Find loads every row and keeps those satisfying p. Use it for predicates
// that cannot be pushed down, such as custom operators or expressions.
func (s *Store) Find(ctx context.Context, p predicate.Predicate[schema.Document]) ([]schema.Document, error) {
	if p == nil {
		return nil, predicate.ErrNilPredicate
	}
	rows, err := s.Select(ctx, nil)
	if err != nil {
		return nil, err
	}
	matched, err := filter.Slice(rows, p)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Rows matched in memory", zap.Int("loaded", len(rows)), zap.Int("matched", len(matched)))
	return matched, nil
}

// Delete removes the rows matching filter and returns how many were deleted.
// A nil filter is refused with ErrUnsafeDelete.
func (s *Store) Delete(ctx context.Context, filter *query.QueryFilter) (int64, error) {
	sqlQuery, params, err := s.generator.GenerateDeleteSQL(filter, false)
	if err != nil {
		return 0, fmt.Errorf("failed to generate DELETE SQL: %w", err)
	}
	s.logger.Debug("Executing SQL DELETE", zap.String("sql", sqlQuery), zap.Any("params", params))
	result, err := s.db.ExecContext(ctx, sqlQuery, params...)
	if err != nil {
		s.logger.Error("Failed to execute DELETE query", zap.Error(err), zap.String("sql", sqlQuery))
		return 0, fmt.Errorf("failed to execute DELETE query: %w", err)
	}
	return result.RowsAffected()
}
