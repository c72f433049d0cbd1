// Package query defines a serialisable Domain-Specific Language (DSL) for
// filter trees, a fluent builder and a text parser for it, and the compiler
// that turns a DSL tree into an executable predicate.
package query

import (
	"github.com/asaidimu/go-criteria/core/predicate"
	"github.com/asaidimu/go-criteria/core/schema"
)

// Logical operators for combining filter conditions.
const (
	LogicalOperatorAnd = schema.LogicalAnd
	LogicalOperatorOr  = schema.LogicalOr
	LogicalOperatorNot = schema.LogicalNot
	LogicalOperatorNor = schema.LogicalNor
	LogicalOperatorXor = schema.LogicalXor
)

// ComparisonOperator defines the set of operators that can be used in a filter condition.
type ComparisonOperator = predicate.Operator

// Supported comparison operators.
const (
	ComparisonOperatorEq          = predicate.OpEq
	ComparisonOperatorNeq         = predicate.OpNeq
	ComparisonOperatorLt          = predicate.OpLt
	ComparisonOperatorLte         = predicate.OpLte
	ComparisonOperatorGt          = predicate.OpGt
	ComparisonOperatorGte         = predicate.OpGte
	ComparisonOperatorIn          = predicate.OpIn
	ComparisonOperatorNin         = predicate.OpNin
	ComparisonOperatorContains    = predicate.OpContains
	ComparisonOperatorNotContains = predicate.OpNotContains
	ComparisonOperatorStartsWith  = predicate.OpStartsWith
	ComparisonOperatorEndsWith    = predicate.OpEndsWith
	ComparisonOperatorExists      = predicate.OpExists
	ComparisonOperatorNotExists   = predicate.OpNotExists
)

// FilterValue represents the value used in a filter condition.
type FilterValue any

// FilterCondition defines a single condition for filtering records.
type FilterCondition struct {
	Field    string             `json:"field" yaml:"field"`
	Operator ComparisonOperator `json:"operator" yaml:"operator"`
	Value    FilterValue        `json:"value,omitempty" yaml:"value,omitempty"`
}

// FilterGroup combines multiple filter conditions using a logical operator.
// A "not" group holds exactly one condition.
type FilterGroup struct {
	Operator   schema.LogicalOperator `json:"operator" yaml:"operator"`
	Conditions []QueryFilter          `json:"conditions" yaml:"conditions"`
}

// QueryFilter is a union type that can represent either a single filter condition
// or a group of conditions.
type QueryFilter struct {
	Condition *FilterCondition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Group     *FilterGroup     `json:"group,omitempty" yaml:"group,omitempty"`
}

// SortDirection specifies the direction for sorting.
type SortDirection string

// Supported sort directions.
const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// SortConfiguration defines the sorting order for a specific field.
type SortConfiguration struct {
	Field     string        `json:"field" yaml:"field"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

// PaginationOptions defines offset pagination of a result.
type PaginationOptions struct {
	Limit  int `json:"limit" yaml:"limit"`
	Offset int `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// QueryDSL is the top-level structure that represents a complete query.
type QueryDSL struct {
	Filters    *QueryFilter        `json:"filters,omitempty" yaml:"filters,omitempty"`
	Sort       []SortConfiguration `json:"sort,omitempty" yaml:"sort,omitempty"`
	Pagination *PaginationOptions  `json:"pagination,omitempty" yaml:"pagination,omitempty"`
}

// QueryResult represents the result of a query.
type QueryResult struct {
	Data  []schema.Document `json:"data"`
	Count int               `json:"count"`
	// Total is the number of matches before pagination.
	Total int `json:"total"`
}

// Fields returns every field referenced by the filter tree, in first-seen order.
func (f *QueryFilter) Fields() []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(*QueryFilter)
	walk = func(node *QueryFilter) {
		if node == nil {
			return
		}
		if node.Condition != nil {
			if _, ok := seen[node.Condition.Field]; !ok {
				seen[node.Condition.Field] = struct{}{}
				out = append(out, node.Condition.Field)
			}
		}
		if node.Group != nil {
			for i := range node.Group.Conditions {
				walk(&node.Group.Conditions[i])
			}
		}
	}
	walk(f)
	return out
}
