package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-criteria/core/schema"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		expected   QueryFilter
	}{
		{
			name:       "single comparison",
			expression: `category == "Electronics"`,
			expected:   CreateSimpleFilter("category", ComparisonOperatorEq, "Electronics"),
		},
		{
			name:       "numbers decode as float64",
			expression: `price <= 1000`,
			expected:   CreateSimpleFilter("price", ComparisonOperatorLte, float64(1000)),
		},
		{
			name:       "negative and fractional numbers",
			expression: `balance > -12.5`,
			expected:   CreateSimpleFilter("balance", ComparisonOperatorGt, -12.5),
		},
		{
			name:       "single quoted string",
			expression: `name != 'Bob\'s phone'`,
			expected:   CreateSimpleFilter("name", ComparisonOperatorNeq, "Bob's phone"),
		},
		{
			name:       "double quotes inside single quotes",
			expression: `name == 'say "hi"'`,
			expected:   CreateSimpleFilter("name", ComparisonOperatorEq, `say "hi"`),
		},
		{
			name:       "escaped double quote inside single quotes",
			expression: `name == 'a\"b'`,
			expected:   CreateSimpleFilter("name", ComparisonOperatorEq, `a"b`),
		},
		{
			name:       "escape sequences inside single quotes",
			expression: `name == 'tab\there'`,
			expected:   CreateSimpleFilter("name", ComparisonOperatorEq, "tab\there"),
		},
		{
			name:       "escaped double quotes",
			expression: `name == "say \"hi\""`,
			expected:   CreateSimpleFilter("name", ComparisonOperatorEq, `say "hi"`),
		},
		{
			name:       "booleans and null",
			expression: `active == true and deleted_at == null`,
			expected: CreateFilterGroup(schema.LogicalAnd,
				CreateSimpleFilter("active", ComparisonOperatorEq, true),
				CreateSimpleFilter("deleted_at", ComparisonOperatorEq, nil),
			),
		},
		{
			name:       "dotted field path",
			expression: `dimensions.width >= 10`,
			expected:   CreateSimpleFilter("dimensions.width", ComparisonOperatorGte, float64(10)),
		},
		{
			name:       "in takes a list of mixed values",
			expression: `tag in ["new", 3, false]`,
			expected:   CreateSimpleFilter("tag", ComparisonOperatorIn, []any{"new", float64(3), false}),
		},
		{
			name:       "empty list",
			expression: `tag in []`,
			expected:   CreateSimpleFilter("tag", ComparisonOperatorIn, []any{}),
		},
		{
			name:       "word operators",
			expression: `name startswith "Lap" or name endswith "top" or name contains "pt"`,
			expected: CreateFilterGroup(schema.LogicalOr,
				CreateSimpleFilter("name", ComparisonOperatorStartsWith, "Lap"),
				CreateSimpleFilter("name", ComparisonOperatorEndsWith, "top"),
				CreateSimpleFilter("name", ComparisonOperatorContains, "pt"),
			),
		},
		{
			name:       "and binds tighter than or",
			expression: `a == 1 or b == 2 and c == 3`,
			expected: CreateFilterGroup(schema.LogicalOr,
				CreateSimpleFilter("a", ComparisonOperatorEq, float64(1)),
				CreateFilterGroup(schema.LogicalAnd,
					CreateSimpleFilter("b", ComparisonOperatorEq, float64(2)),
					CreateSimpleFilter("c", ComparisonOperatorEq, float64(3)),
				),
			),
		},
		{
			name:       "parentheses override precedence",
			expression: `(a == 1 or b == 2) and c == 3`,
			expected: CreateFilterGroup(schema.LogicalAnd,
				CreateFilterGroup(schema.LogicalOr,
					CreateSimpleFilter("a", ComparisonOperatorEq, float64(1)),
					CreateSimpleFilter("b", ComparisonOperatorEq, float64(2)),
				),
				CreateSimpleFilter("c", ComparisonOperatorEq, float64(3)),
			),
		},
		{
			name:       "not applies to the following factor only",
			expression: `not a == 1 and b == 2`,
			expected: CreateFilterGroup(schema.LogicalAnd,
				CreateFilterGroup(schema.LogicalNot,
					CreateSimpleFilter("a", ComparisonOperatorEq, float64(1)),
				),
				CreateSimpleFilter("b", ComparisonOperatorEq, float64(2)),
			),
		},
		{
			name:       "double negation is kept",
			expression: `not not a == 1`,
			expected: CreateFilterGroup(schema.LogicalNot,
				CreateFilterGroup(schema.LogicalNot,
					CreateSimpleFilter("a", ComparisonOperatorEq, float64(1)),
				),
			),
		},
		{
			name:       "keywords inside identifiers are identifiers",
			expression: `notes == "x" and in_stock == true`,
			expected: CreateFilterGroup(schema.LogicalAnd,
				CreateSimpleFilter("notes", ComparisonOperatorEq, "x"),
				CreateSimpleFilter("in_stock", ComparisonOperatorEq, true),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.expression)
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tt.expected, *f)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		positioned bool
	}{
		{name: "empty expression", expression: "   "},
		{name: "missing value", expression: "price >", positioned: true},
		{name: "missing operator", expression: `price 10`, positioned: true},
		{name: "unbalanced parenthesis", expression: `(a == 1`, positioned: true},
		{name: "dangling connective", expression: `a == 1 and`, positioned: true},
		{name: "in without a list", expression: `a in 3`},
		{name: "unterminated list", expression: `a in [1, 2`, positioned: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.expression)
			require.Error(t, err)
			assert.Nil(t, f)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.expression, perr.Expression)
			assert.NotEmpty(t, perr.Message)
			if tt.positioned {
				assert.Equal(t, 1, perr.Line)
				assert.Positive(t, perr.Column)
			}
		})
	}
}

func TestParse_RoundTripsThroughCompiler(t *testing.T) {
	f, err := Parse(`category == "Electronics" and (stock > 0 or not price <= 1000)`)
	require.NoError(t, err)

	p, err := NewCompiler[schema.Document](nil).Compile(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"Laptop"}, matchNames(t, p, products()))
}

func TestMustParse(t *testing.T) {
	assert.NotPanics(t, func() { MustParse("a == 1") })
	assert.Panics(t, func() { MustParse("a ==") })
}
