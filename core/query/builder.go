package query

import (
	"github.com/asaidimu/go-criteria/core/schema"
)

// QueryBuilder provides a fluent API for building QueryDSL structures.
// Successive top-level Where and WhereGroup calls are combined with AND.
type QueryBuilder struct {
	query   QueryDSL
	filters []QueryFilter
}

// NewQueryBuilder creates a new, empty query builder instance.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{}
}

// Build returns the constructed QueryDSL object.
func (qb *QueryBuilder) Build() QueryDSL {
	out := qb.query
	switch len(qb.filters) {
	case 0:
		out.Filters = nil
	case 1:
		f := qb.filters[0]
		out.Filters = &f
	default:
		out.Filters = &QueryFilter{Group: &FilterGroup{
			Operator:   LogicalOperatorAnd,
			Conditions: append([]QueryFilter(nil), qb.filters...),
		}}
	}
	return out
}

// Filter returns only the filter tree of the query, or nil.
func (qb *QueryBuilder) Filter() *QueryFilter {
	return qb.Build().Filters
}

// Reset clears all configurations from the query builder.
func (qb *QueryBuilder) Reset() *QueryBuilder {
	qb.query = QueryDSL{}
	qb.filters = nil
	return qb
}

// Where begins a condition on a field.
func (qb *QueryBuilder) Where(field string) *FilterConditionBuilder[*QueryBuilder] {
	return &FilterConditionBuilder[*QueryBuilder]{
		field: field,
		add: func(f QueryFilter) *QueryBuilder {
			qb.filters = append(qb.filters, f)
			return qb
		},
	}
}

// WhereGroup begins a group of conditions combined with operator.
func (qb *QueryBuilder) WhereGroup(operator schema.LogicalOperator) *FilterGroupBuilder {
	return &FilterGroupBuilder{root: qb, operator: operator}
}

// FilterConditionBuilder completes a single condition and hands control back to
// the builder that started it: the query itself or an enclosing group.
type FilterConditionBuilder[P any] struct {
	field string
	add   func(QueryFilter) P
}

// Eq adds an equality condition.
func (b *FilterConditionBuilder[P]) Eq(value FilterValue) P {
	return b.addCondition(ComparisonOperatorEq, value)
}

// Neq adds a not-equal condition.
func (b *FilterConditionBuilder[P]) Neq(value FilterValue) P {
	return b.addCondition(ComparisonOperatorNeq, value)
}

// Lt adds a less-than condition.
func (b *FilterConditionBuilder[P]) Lt(value FilterValue) P {
	return b.addCondition(ComparisonOperatorLt, value)
}

// Lte adds a less-than-or-equal condition.
func (b *FilterConditionBuilder[P]) Lte(value FilterValue) P {
	return b.addCondition(ComparisonOperatorLte, value)
}

// Gt adds a greater-than condition.
func (b *FilterConditionBuilder[P]) Gt(value FilterValue) P {
	return b.addCondition(ComparisonOperatorGt, value)
}

// Gte adds a greater-than-or-equal condition.
func (b *FilterConditionBuilder[P]) Gte(value FilterValue) P {
	return b.addCondition(ComparisonOperatorGte, value)
}

// In checks that the field's value is one of values.
func (b *FilterConditionBuilder[P]) In(values ...FilterValue) P {
	return b.addCondition(ComparisonOperatorIn, toAnySlice(values))
}

// Nin checks that the field's value is none of values.
func (b *FilterConditionBuilder[P]) Nin(values ...FilterValue) P {
	return b.addCondition(ComparisonOperatorNin, toAnySlice(values))
}

// Contains checks for a substring, or for membership when the field is a list.
func (b *FilterConditionBuilder[P]) Contains(value FilterValue) P {
	return b.addCondition(ComparisonOperatorContains, value)
}

// NotContains is the negation of Contains.
func (b *FilterConditionBuilder[P]) NotContains(value FilterValue) P {
	return b.addCondition(ComparisonOperatorNotContains, value)
}

// StartsWith checks a string prefix.
func (b *FilterConditionBuilder[P]) StartsWith(value FilterValue) P {
	return b.addCondition(ComparisonOperatorStartsWith, value)
}

// EndsWith checks a string suffix.
func (b *FilterConditionBuilder[P]) EndsWith(value FilterValue) P {
	return b.addCondition(ComparisonOperatorEndsWith, value)
}

// Exists checks that the field is present and not null.
func (b *FilterConditionBuilder[P]) Exists() P {
	return b.addCondition(ComparisonOperatorExists, nil)
}

// NotExists checks that the field is absent or null.
func (b *FilterConditionBuilder[P]) NotExists() P {
	return b.addCondition(ComparisonOperatorNotExists, nil)
}

// Custom uses an operator registered with the Compiler.
func (b *FilterConditionBuilder[P]) Custom(operator ComparisonOperator, value FilterValue) P {
	return b.addCondition(operator, value)
}

func (b *FilterConditionBuilder[P]) addCondition(operator ComparisonOperator, value FilterValue) P {
	return b.add(QueryFilter{Condition: &FilterCondition{
		Field:    b.field,
		Operator: operator,
		Value:    value,
	}})
}

// FilterGroupBuilder collects the conditions of one group.
type FilterGroupBuilder struct {
	root       *QueryBuilder
	parent     *FilterGroupBuilder
	operator   schema.LogicalOperator
	conditions []QueryFilter
}

// Where adds a condition to the group.
func (g *FilterGroupBuilder) Where(field string) *FilterConditionBuilder[*FilterGroupBuilder] {
	return &FilterConditionBuilder[*FilterGroupBuilder]{
		field: field,
		add: func(f QueryFilter) *FilterGroupBuilder {
			g.conditions = append(g.conditions, f)
			return g
		},
	}
}

// WhereGroup opens a nested group; close it with EndGroup.
func (g *FilterGroupBuilder) WhereGroup(operator schema.LogicalOperator) *FilterGroupBuilder {
	return &FilterGroupBuilder{root: g.root, parent: g, operator: operator}
}

// EndGroup closes a nested group and returns to its parent. On a top-level
// group it behaves like End and returns nil.
func (g *FilterGroupBuilder) EndGroup() *FilterGroupBuilder {
	if g.parent == nil {
		g.End()
		return nil
	}
	g.parent.conditions = append(g.parent.conditions, g.filter())
	return g.parent
}

// End closes this group and every open ancestor, then returns to the query builder.
func (g *FilterGroupBuilder) End() *QueryBuilder {
	current := g
	for current.parent != nil {
		current = current.EndGroup()
	}
	current.root.filters = append(current.root.filters, current.filter())
	return current.root
}

func (g *FilterGroupBuilder) filter() QueryFilter {
	return QueryFilter{Group: &FilterGroup{
		Operator:   g.operator,
		Conditions: g.conditions,
	}}
}

// OrderBy adds a sorting configuration to the query.
func (qb *QueryBuilder) OrderBy(field string, direction SortDirection) *QueryBuilder {
	qb.query.Sort = append(qb.query.Sort, SortConfiguration{
		Field:     field,
		Direction: direction,
	})
	return qb
}

// OrderByAsc adds an ascending sort order for a specific field.
func (qb *QueryBuilder) OrderByAsc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDirectionAsc)
}

// OrderByDesc adds a descending sort order for a specific field.
func (qb *QueryBuilder) OrderByDesc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDirectionDesc)
}

// Limit sets the maximum number of records to be returned by the query.
func (qb *QueryBuilder) Limit(limit int) *QueryBuilder {
	if qb.query.Pagination == nil {
		qb.query.Pagination = &PaginationOptions{}
	}
	qb.query.Pagination.Limit = limit
	return qb
}

// Offset sets the number of matching records to skip.
func (qb *QueryBuilder) Offset(offset int) *QueryBuilder {
	if qb.query.Pagination == nil {
		qb.query.Pagination = &PaginationOptions{}
	}
	qb.query.Pagination.Offset = offset
	return qb
}

// CreateSimpleFilter builds a single-condition filter.
func CreateSimpleFilter(field string, operator ComparisonOperator, value FilterValue) QueryFilter {
	return QueryFilter{Condition: &FilterCondition{
		Field:    field,
		Operator: operator,
		Value:    value,
	}}
}

// CreateFilterGroup builds a group filter.
func CreateFilterGroup(operator schema.LogicalOperator, conditions ...QueryFilter) QueryFilter {
	return QueryFilter{Group: &FilterGroup{
		Operator:   operator,
		Conditions: conditions,
	}}
}

func toAnySlice(values []FilterValue) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
