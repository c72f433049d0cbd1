package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-criteria/core/schema"
)

func TestComparisonOperator_IsStandard(t *testing.T) {
	tests := []struct {
		operator ComparisonOperator
		expected bool
	}{
		{ComparisonOperatorEq, true},
		{ComparisonOperatorNeq, true},
		{ComparisonOperatorLt, true},
		{ComparisonOperatorLte, true},
		{ComparisonOperatorGt, true},
		{ComparisonOperatorGte, true},
		{ComparisonOperatorIn, true},
		{ComparisonOperatorNin, true},
		{ComparisonOperatorContains, true},
		{ComparisonOperatorNotContains, true},
		{ComparisonOperatorStartsWith, true},
		{ComparisonOperatorEndsWith, true},
		{ComparisonOperatorExists, true},
		{ComparisonOperatorNotExists, true},
		{"customOp", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.operator), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.operator.IsStandard())
		})
	}
}

func TestQueryFilter_Fields(t *testing.T) {
	t.Run("nil filter has no fields", func(t *testing.T) {
		var f *QueryFilter
		assert.Empty(t, f.Fields())
	})

	t.Run("fields are listed once in first-seen order", func(t *testing.T) {
		f := CreateFilterGroup(schema.LogicalAnd,
			CreateSimpleFilter("stock", ComparisonOperatorGt, 0),
			CreateFilterGroup(schema.LogicalOr,
				CreateSimpleFilter("category", ComparisonOperatorEq, "Electronics"),
				CreateSimpleFilter("stock", ComparisonOperatorLt, 100),
			),
			CreateSimpleFilter("dimensions.width", ComparisonOperatorExists, nil),
		)
		assert.Equal(t, []string{"stock", "category", "dimensions.width"}, f.Fields())
	})
}

func TestQueryDSL_DecodesFromJSON(t *testing.T) {
	input := `{
		"filters": {
			"group": {
				"operator": "or",
				"conditions": [
					{"condition": {"field": "price", "operator": "lte", "value": 1000}},
					{"condition": {"field": "stock", "operator": "gt", "value": 0}}
				]
			}
		},
		"sort": [{"field": "price", "direction": "desc"}],
		"pagination": {"limit": 2}
	}`

	var dsl QueryDSL
	require.NoError(t, json.Unmarshal([]byte(input), &dsl))

	require.NotNil(t, dsl.Filters)
	require.NotNil(t, dsl.Filters.Group)
	assert.Equal(t, schema.LogicalOr, dsl.Filters.Group.Operator)
	require.Len(t, dsl.Filters.Group.Conditions, 2)
	assert.Equal(t, ComparisonOperatorLte, dsl.Filters.Group.Conditions[0].Condition.Operator)
	assert.Equal(t, float64(1000), dsl.Filters.Group.Conditions[0].Condition.Value)
	assert.Equal(t, []SortConfiguration{{Field: "price", Direction: SortDirectionDesc}}, dsl.Sort)
	assert.Equal(t, &PaginationOptions{Limit: 2}, dsl.Pagination)
}
