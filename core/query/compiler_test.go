package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-criteria/core/predicate"
	"github.com/asaidimu/go-criteria/core/schema"
)

func products() []schema.Document {
	return []schema.Document{
		{"name": "Laptop", "price": 1500, "category": "Electronics", "stock": 5},
		{"name": "Phone", "price": 800, "category": "Electronics", "stock": 0},
		{"name": "Shirt", "price": 100, "category": "Fashion", "stock": 20},
	}
}

func matchNames(t *testing.T, p predicate.Predicate[schema.Document], rows []schema.Document) []string {
	t.Helper()
	var names []string
	for _, row := range rows {
		ok, err := p.IsSatisfiedBy(row)
		require.NoError(t, err)
		if ok {
			names = append(names, row["name"].(string))
		}
	}
	return names
}

func TestCompiler_Compile(t *testing.T) {
	tests := []struct {
		name     string
		filter   QueryFilter
		expected []string
	}{
		{
			name: "and of category and stock matches only the laptop",
			filter: CreateFilterGroup(schema.LogicalAnd,
				CreateSimpleFilter("category", ComparisonOperatorEq, "Electronics"),
				CreateSimpleFilter("stock", ComparisonOperatorGt, 0),
			),
			expected: []string{"Laptop"},
		},
		{
			name: "or of price and stock matches every product",
			filter: CreateFilterGroup(schema.LogicalOr,
				CreateSimpleFilter("price", ComparisonOperatorLte, 1000),
				CreateSimpleFilter("stock", ComparisonOperatorGt, 0),
			),
			expected: []string{"Laptop", "Phone", "Shirt"},
		},
		{
			name: "not inverts its single condition",
			filter: CreateFilterGroup(schema.LogicalNot,
				CreateSimpleFilter("category", ComparisonOperatorEq, "Electronics"),
			),
			expected: []string{"Shirt"},
		},
		{
			name: "nor matches when no condition holds",
			filter: CreateFilterGroup(schema.LogicalNor,
				CreateSimpleFilter("category", ComparisonOperatorEq, "Fashion"),
				CreateSimpleFilter("stock", ComparisonOperatorGt, 0),
			),
			expected: []string{"Phone"},
		},
		{
			name: "xor matches when exactly one condition holds",
			filter: CreateFilterGroup(schema.LogicalXor,
				CreateSimpleFilter("category", ComparisonOperatorEq, "Electronics"),
				CreateSimpleFilter("stock", ComparisonOperatorGt, 0),
			),
			expected: []string{"Phone", "Shirt"},
		},
		{
			name:     "in matches list membership",
			filter:   CreateSimpleFilter("name", ComparisonOperatorIn, []any{"Phone", "Shirt", "Watch"}),
			expected: []string{"Phone", "Shirt"},
		},
		{
			name:     "startswith compares the prefix",
			filter:   CreateSimpleFilter("category", ComparisonOperatorStartsWith, "Elec"),
			expected: []string{"Laptop", "Phone"},
		},
	}

	c := NewCompiler[schema.Document](nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.Compile(&tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, matchNames(t, p, products()))
		})
	}
}

func TestCompiler_CompileNilFilterMatchesEverything(t *testing.T) {
	p, err := NewCompiler[schema.Document](nil).Compile(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Laptop", "Phone", "Shirt"}, matchNames(t, p, products()))
}

func TestCompiler_CompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter QueryFilter
		target error
	}{
		{
			name:   "node with neither condition nor group",
			filter: QueryFilter{},
			target: ErrInvalidFilter,
		},
		{
			name: "node with both condition and group",
			filter: QueryFilter{
				Condition: &FilterCondition{Field: "a", Operator: ComparisonOperatorEq, Value: 1},
				Group:     &FilterGroup{Operator: schema.LogicalAnd},
			},
			target: ErrInvalidFilter,
		},
		{
			name:   "empty group",
			filter: CreateFilterGroup(schema.LogicalAnd),
			target: ErrEmptyGroup,
		},
		{
			name:   "unknown logical operator",
			filter: CreateFilterGroup("implies", CreateSimpleFilter("a", ComparisonOperatorEq, 1)),
			target: ErrUnsupportedLogical,
		},
		{
			name:   "unregistered custom operator",
			filter: CreateSimpleFilter("a", "near", 1),
			target: ErrUnknownOperator,
		},
		{
			name:   "ordering against a boolean",
			filter: CreateSimpleFilter("a", ComparisonOperatorGt, true),
			target: predicate.ErrInvalidValue,
		},
	}

	c := NewCompiler[schema.Document](nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(&tt.filter)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("not group with two conditions", func(t *testing.T) {
		f := CreateFilterGroup(schema.LogicalNot,
			CreateSimpleFilter("a", ComparisonOperatorEq, 1),
			CreateSimpleFilter("b", ComparisonOperatorEq, 2),
		)
		_, err := c.Compile(&f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one condition")
	})

	t.Run("errors carry the path of the failing node", func(t *testing.T) {
		f := CreateFilterGroup(schema.LogicalAnd,
			CreateSimpleFilter("a", ComparisonOperatorEq, 1),
			CreateFilterGroup(schema.LogicalOr),
		)
		_, err := c.Compile(&f)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "$.and[1]"), err.Error())
	})
}

func TestCompiler_MissingFieldIsAnError(t *testing.T) {
	f := CreateSimpleFilter("discount", ComparisonOperatorGt, 0)
	p, err := NewCompiler[schema.Document](nil).Compile(&f)
	require.NoError(t, err)

	_, err = p.IsSatisfiedBy(products()[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, predicate.ErrTypeMismatch)

	var mismatch *predicate.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "discount", mismatch.Field)
	assert.Equal(t, predicate.ReasonMissingField, mismatch.Reason)
}

func TestCompiler_RegisterOperator(t *testing.T) {
	c := NewCompiler[schema.Document](nil)
	c.RegisterOperator("between", func(record schema.Record, field string, args FilterValue) (bool, error) {
		bounds, ok := args.([]any)
		if !ok || len(bounds) != 2 {
			return false, errors.New("between needs two bounds")
		}
		v, present := record.Get(field)
		if !present {
			return false, errors.New("missing " + field)
		}
		lo, _ := predicate.CompareValues(v, bounds[0])
		hi, _ := predicate.CompareValues(v, bounds[1])
		return lo >= 0 && hi <= 0, nil
	})

	f := CreateSimpleFilter("price", "between", []any{100, 1000})
	p, err := c.Compile(&f)
	require.NoError(t, err)
	assert.Equal(t, []string{"Phone", "Shirt"}, matchNames(t, p, products()))
	assert.Equal(t, []string{"price"}, predicate.RequiredFields(p))

	t.Run("errors from the function propagate", func(t *testing.T) {
		bad := CreateSimpleFilter("price", "between", 5)
		p, err := c.Compile(&bad)
		require.NoError(t, err)
		_, err = p.IsSatisfiedBy(products()[0])
		assert.EqualError(t, err, "between needs two bounds")
	})
}

func TestCompiler_WithSchema(t *testing.T) {
	sc := schema.NewRecordSchema("products",
		schema.FieldDefinition{Name: "name", Type: schema.FieldTypeString},
		schema.FieldDefinition{Name: "price", Type: schema.FieldTypeNumber},
		schema.FieldDefinition{Name: "stock", Type: schema.FieldTypeInteger},
		schema.FieldDefinition{Name: "dimensions", Type: schema.FieldTypeObject},
	)
	c := NewCompiler[schema.Document](nil).WithSchema(sc)

	t.Run("undeclared field fails at compile time", func(t *testing.T) {
		f := CreateSimpleFilter("discount", ComparisonOperatorGt, 0)
		_, err := c.Compile(&f)
		assert.ErrorIs(t, err, predicate.ErrUnknownField)
	})

	t.Run("operand of the wrong type fails at compile time", func(t *testing.T) {
		f := CreateSimpleFilter("price", ComparisonOperatorEq, "cheap")
		_, err := c.Compile(&f)
		assert.ErrorIs(t, err, predicate.ErrTypeMismatch)
	})

	t.Run("nested path into an object field is accepted", func(t *testing.T) {
		f := CreateSimpleFilter("dimensions.width", ComparisonOperatorGt, 10)
		_, err := c.Compile(&f)
		assert.NoError(t, err)
	})

	t.Run("well-typed filter compiles and evaluates", func(t *testing.T) {
		f := CreateSimpleFilter("stock", ComparisonOperatorGte, 5)
		p, err := c.Compile(&f)
		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Shirt"}, matchNames(t, p, products()))
	})
}

func TestCompiler_CompilesOverJSONRecords(t *testing.T) {
	records, err := schema.ParseJSONRecords([]byte(`[
		{"name": "Laptop", "dimensions": {"width": 35}},
		{"name": "Phone", "dimensions": {"width": 7}}
	]`))
	require.NoError(t, err)

	f := CreateSimpleFilter("dimensions.width", ComparisonOperatorGt, 10)
	p, err := NewCompiler[schema.JSONRecord](nil).Compile(&f)
	require.NoError(t, err)

	first, err := p.IsSatisfiedBy(records[0])
	require.NoError(t, err)
	second, err := p.IsSatisfiedBy(records[1])
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)
}
