package query

// QueryGenerator translates the abstract QueryDSL into statements for a
// concrete SQL dialect. Filters that a dialect cannot express must be
// reported as errors, never dropped.
type QueryGenerator interface {
	// GenerateSelectSQL creates a SELECT statement and its parameters,
	// including filters, sorting and pagination.
	GenerateSelectSQL(dsl *QueryDSL) (string, []any, error)

	// GenerateCountSQL creates a statement counting the rows that match filters.
	GenerateCountSQL(filters *QueryFilter) (string, []any, error)

	// GenerateInsertSQL creates a single or batch INSERT statement.
	GenerateInsertSQL(records []map[string]any) (string, []any, error)

	// GenerateDeleteSQL creates a DELETE statement. A nil filter is refused
	// unless unsafeDelete is set.
	GenerateDeleteSQL(filters *QueryFilter, unsafeDelete bool) (string, []any, error)
}
