package sqlite

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/doug-martin/goqu/v9"
	// registers the "sqlite3" dialect with goqu
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	jsoniter "github.com/json-iterator/go"

	"github.com/asaidimu/go-criteria/core/query"
	"github.com/asaidimu/go-criteria/core/schema"
)

const dialectSQLite = "sqlite3"

var (
	// ErrNotPushable is returned for filters SQL cannot express the same way
	// the in-memory predicates do: xor groups and custom operators.
	ErrNotPushable = errors.New("filter cannot be pushed down to SQL")
	// ErrUnsafeDelete is returned when deleting without a filter.
	ErrUnsafeDelete = errors.New("delete without a filter requires unsafeDelete")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// column is the part of goqu's identifier and literal expressions used to
// build comparisons.
type column interface {
	exp.Expression
	Eq(any) exp.BooleanExpression
	Neq(any) exp.BooleanExpression
	Lt(any) exp.BooleanExpression
	Lte(any) exp.BooleanExpression
	Gt(any) exp.BooleanExpression
	Gte(any) exp.BooleanExpression
	In(...any) exp.BooleanExpression
	NotIn(...any) exp.BooleanExpression
	IsNull() exp.BooleanExpression
	IsNotNull() exp.BooleanExpression
	Asc() exp.OrderedExpression
	Desc() exp.OrderedExpression
}

// Generator is a schema-aware query generator for SQLite. Without a schema
// every field is treated as a plain column.
type Generator struct {
	table  string
	schema *schema.RecordSchema
}

var _ query.QueryGenerator = (*Generator)(nil)

// NewGenerator creates a generator for table.
func NewGenerator(table string, sc *schema.RecordSchema) (*Generator, error) {
	if table == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	return &Generator{table: table, schema: sc}, nil
}

// WhereExpression translates a filter tree into a goqu expression. A nil
// filter yields a nil expression.
func WhereExpression(filter *query.QueryFilter) (exp.Expression, error) {
	g := &Generator{}
	return g.WhereExpression(filter)
}

// SelectSQL renders "SELECT * FROM table WHERE ..." with positional parameters.
func SelectSQL(table string, filter *query.QueryFilter) (string, []any, error) {
	g, err := NewGenerator(table, nil)
	if err != nil {
		return "", nil, err
	}
	return g.GenerateSelectSQL(&query.QueryDSL{Filters: filter})
}

// WhereExpression translates filter using the generator's schema for nested
// paths and value encoding.
func (g *Generator) WhereExpression(filter *query.QueryFilter) (exp.Expression, error) {
	if filter == nil {
		return nil, nil
	}
	return g.expression(filter, "$")
}

func (g *Generator) expression(filter *query.QueryFilter, path string) (exp.Expression, error) {
	switch {
	case filter.Condition != nil && filter.Group != nil, filter.Condition == nil && filter.Group == nil:
		return nil, fmt.Errorf("%s: %w", path, query.ErrInvalidFilter)
	case filter.Condition != nil:
		e, err := g.condition(filter.Condition)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return e, nil
	}

	group := filter.Group
	if len(group.Conditions) == 0 {
		return nil, fmt.Errorf("%s: %w", path, query.ErrEmptyGroup)
	}
	children := make([]exp.Expression, 0, len(group.Conditions))
	for i := range group.Conditions {
		child, err := g.expression(&group.Conditions[i], fmt.Sprintf("%s.%s[%d]", path, group.Operator, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	switch group.Operator {
	case query.LogicalOperatorAnd:
		return goqu.And(children...), nil
	case query.LogicalOperatorOr:
		return goqu.Or(children...), nil
	case query.LogicalOperatorNot:
		if len(children) != 1 {
			return nil, fmt.Errorf("%s: not group takes exactly one condition, got %d", path, len(children))
		}
		return goqu.L("NOT (?)", children[0]), nil
	case query.LogicalOperatorNor:
		return goqu.L("NOT (?)", goqu.Or(children...)), nil
	case query.LogicalOperatorXor:
		return nil, fmt.Errorf("%s: %w: xor", path, ErrNotPushable)
	}
	return nil, fmt.Errorf("%s: %w: %q", path, query.ErrUnsupportedLogical, group.Operator)
}

func (g *Generator) condition(cond *query.FilterCondition) (exp.Expression, error) {
	if !cond.Operator.IsStandard() {
		return nil, fmt.Errorf("%w: custom operator %q", ErrNotPushable, cond.Operator)
	}
	col, err := g.column(cond.Field)
	if err != nil {
		return nil, err
	}
	value, err := g.prepareValue(cond.Field, cond.Value)
	if err != nil {
		return nil, err
	}

	switch cond.Operator {
	case query.ComparisonOperatorEq:
		if value == nil {
			return col.IsNull(), nil
		}
		return col.Eq(value), nil
	case query.ComparisonOperatorNeq:
		if value == nil {
			return col.IsNotNull(), nil
		}
		return col.Neq(value), nil
	case query.ComparisonOperatorLt:
		return col.Lt(value), nil
	case query.ComparisonOperatorLte:
		return col.Lte(value), nil
	case query.ComparisonOperatorGt:
		return col.Gt(value), nil
	case query.ComparisonOperatorGte:
		return col.Gte(value), nil
	case query.ComparisonOperatorIn, query.ComparisonOperatorNin:
		values, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("%s %s: expected a list, got %T", cond.Field, cond.Operator, cond.Value)
		}
		if cond.Operator == query.ComparisonOperatorIn {
			return col.In(values...), nil
		}
		return col.NotIn(values...), nil
	case query.ComparisonOperatorContains, query.ComparisonOperatorNotContains:
		e := g.contains(cond.Field, col, value)
		if cond.Operator == query.ComparisonOperatorNotContains {
			return goqu.L("NOT (?)", e), nil
		}
		return e, nil
	case query.ComparisonOperatorStartsWith:
		return goqu.L("? GLOB ?", col, globEscape(fmt.Sprint(value))+"*"), nil
	case query.ComparisonOperatorEndsWith:
		return goqu.L("? GLOB ?", col, "*"+globEscape(fmt.Sprint(value))), nil
	case query.ComparisonOperatorExists:
		return col.IsNotNull(), nil
	case query.ComparisonOperatorNotExists:
		return col.IsNull(), nil
	}
	return nil, fmt.Errorf("%w: %s", query.ErrUnknownOperator, cond.Operator)
}

// contains tests list membership on array columns (stored as JSON) and a
// case-sensitive substring everywhere else.
func (g *Generator) contains(field string, col column, value any) exp.Expression {
	if def := g.field(field); def != nil && def.Type == schema.FieldTypeArray && !strings.Contains(field, ".") {
		return goqu.L("EXISTS (SELECT 1 FROM json_each(?) WHERE json_each.value = ?)", col, value)
	}
	return goqu.L("? GLOB ?", col, "*"+globEscape(fmt.Sprint(value))+"*")
}

// column resolves a field path to a column or, for dotted paths into object
// columns, a json_extract accessor.
func (g *Generator) column(fieldPath string) (column, error) {
	if fieldPath == "" {
		return nil, fmt.Errorf("field path cannot be empty")
	}
	parts := strings.Split(fieldPath, ".")
	if g.schema != nil {
		if _, ok := g.schema.Fields[parts[0]]; !ok {
			return nil, fmt.Errorf("field '%s' not found in schema", parts[0])
		}
	}
	if len(parts) == 1 {
		return goqu.C(fieldPath), nil
	}
	if def := g.field(parts[0]); def != nil && def.Type != schema.FieldTypeObject {
		return nil, fmt.Errorf("field '%s' of type %s does not support nested querying", parts[0], def.Type)
	}
	return goqu.L("json_extract(?, ?)", goqu.C(parts[0]), "$."+strings.Join(parts[1:], ".")), nil
}

func (g *Generator) field(name string) *schema.FieldDefinition {
	if g.schema == nil {
		return nil
	}
	return g.schema.Fields[name]
}

// prepareValue maps a filter operand to the value SQLite stores: booleans
// become 0/1 and lists are normalised to []any.
func (g *Generator) prepareValue(field string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			item, err := g.prepareValue(field, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	}
	return nil, fmt.Errorf("field '%s': unsupported operand type %T", field, value)
}

// GenerateSelectSQL implements query.QueryGenerator.
func (g *Generator) GenerateSelectSQL(dsl *query.QueryDSL) (string, []any, error) {
	ds := goqu.Dialect(dialectSQLite).From(g.table)
	if dsl == nil {
		return ds.Prepared(true).ToSQL()
	}

	where, err := g.WhereExpression(dsl.Filters)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		ds = ds.Where(where)
	}
	for _, s := range dsl.Sort {
		col, err := g.column(s.Field)
		if err != nil {
			return "", nil, err
		}
		if s.Direction == query.SortDirectionDesc {
			ds = ds.OrderAppend(col.Desc())
		} else {
			ds = ds.OrderAppend(col.Asc())
		}
	}
	if p := dsl.Pagination; p != nil {
		if p.Limit > 0 {
			ds = ds.Limit(uint(p.Limit))
		}
		if p.Offset > 0 {
			if p.Limit <= 0 {
				// SQLite only accepts OFFSET after a LIMIT.
				ds = ds.Limit(math.MaxInt32)
			}
			ds = ds.Offset(uint(p.Offset))
		}
	}
	return ds.Prepared(true).ToSQL()
}

// GenerateCountSQL implements query.QueryGenerator.
func (g *Generator) GenerateCountSQL(filters *query.QueryFilter) (string, []any, error) {
	ds := goqu.Dialect(dialectSQLite).From(g.table).Select(goqu.COUNT(goqu.Star()))
	where, err := g.WhereExpression(filters)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		ds = ds.Where(where)
	}
	return ds.Prepared(true).ToSQL()
}

// GenerateInsertSQL implements query.QueryGenerator. Rows missing a column
// that another row sets are padded with NULL; object and array values are
// stored as JSON text.
func (g *Generator) GenerateInsertSQL(records []map[string]any) (string, []any, error) {
	if len(records) == 0 {
		return "", nil, fmt.Errorf("no records to insert")
	}

	columns := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			columns[k] = struct{}{}
		}
	}

	rows := make([]any, 0, len(records))
	for _, r := range records {
		row := make(goqu.Record, len(columns))
		for col := range columns {
			v, err := encodeValue(g.field(col), r[col])
			if err != nil {
				return "", nil, fmt.Errorf("column '%s': %w", col, err)
			}
			row[col] = v
		}
		rows = append(rows, row)
	}
	return goqu.Dialect(dialectSQLite).Insert(g.table).Rows(rows...).Prepared(true).ToSQL()
}

// GenerateDeleteSQL implements query.QueryGenerator.
func (g *Generator) GenerateDeleteSQL(filters *query.QueryFilter, unsafeDelete bool) (string, []any, error) {
	if filters == nil && !unsafeDelete {
		return "", nil, ErrUnsafeDelete
	}
	ds := goqu.Dialect(dialectSQLite).Delete(g.table)
	where, err := g.WhereExpression(filters)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		ds = ds.Where(where)
	}
	return ds.Prepared(true).ToSQL()
}

// globEscape quotes GLOB metacharacters so s matches literally.
func globEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			sb.WriteByte('[')
			sb.WriteRune(r)
			sb.WriteByte(']')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
