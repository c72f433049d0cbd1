package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar:
//
//	expr       = and ( "or" and )*
//	and        = unary ( "and" unary )*
//	unary      = "not" unary | "(" expr ")" | comparison
//	comparison = field op value
//	op         = "==" | "!=" | "<" | "<=" | ">" | ">=" | "in" | "contains" | "startswith" | "endswith"
//	value      = string | number | "true" | "false" | "null" | "[" value ( "," value )* "]"

type exprAST struct {
	Terms []*andAST `parser:"@@ ( 'or' @@ )*"`
}

type andAST struct {
	Factors []*unaryAST `parser:"@@ ( 'and' @@ )*"`
}

type unaryAST struct {
	Not        *unaryAST      `parser:"  'not' @@"`
	Group      *exprAST       `parser:"| '(' @@ ')'"`
	Comparison *comparisonAST `parser:"| @@"`
}

type comparisonAST struct {
	Field    string    `parser:"@Ident"`
	Operator string    `parser:"@( Operator | 'in' | 'contains' | 'startswith' | 'endswith' )"`
	Value    *valueAST `parser:"@@"`
}

type valueAST struct {
	String *string  `parser:"  @String"`
	Number *float64 `parser:"| @Number"`
	Bool   *string  `parser:"| @( 'true' | 'false' )"`
	Null   bool     `parser:"| @'null'"`
	List   *listAST `parser:"| @@"`
}

type listAST struct {
	Open  bool        `parser:"@'['"`
	Items []*valueAST `parser:"( @@ ( ',' @@ )* )? ']'"`
}

var expressionLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "whitespace", Pattern: `\s+`, Action: nil},
		{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`, Action: nil},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`, Action: nil},
		{Name: "Operator", Pattern: `==|!=|>=|<=|>|<`, Action: nil},
		{Name: "Keyword", Pattern: `\b(?:and|or|not|in|contains|startswith|endswith|true|false|null)\b`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)*`, Action: nil},
		{Name: "Punct", Pattern: `[()\[\],]`, Action: nil},
	},
})

var expressionParser = participle.MustBuild[exprAST](
	participle.Lexer(expressionLexer),
	participle.Elide("whitespace"),
	participle.UseLookahead(2),
)

var textOperators = map[string]ComparisonOperator{
	"==":         ComparisonOperatorEq,
	"!=":         ComparisonOperatorNeq,
	"<":          ComparisonOperatorLt,
	"<=":         ComparisonOperatorLte,
	">":          ComparisonOperatorGt,
	">=":         ComparisonOperatorGte,
	"in":         ComparisonOperatorIn,
	"contains":   ComparisonOperatorContains,
	"startswith": ComparisonOperatorStartsWith,
	"endswith":   ComparisonOperatorEndsWith,
}

// ParseError reports where a text expression failed to parse.
type ParseError struct {
	Expression string
	Line       int
	Column     int
	Message    string
	Err        error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse %q: %s", e.Expression, e.Message)
	}
	return fmt.Sprintf("parse %q: %d:%d: %s", e.Expression, e.Line, e.Column, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse converts a text expression such as
//
//	category == "Electronics" and (stock > 0 or not price <= 1000)
//
// into a QueryFilter. "and" binds tighter than "or"; runs of the same
// connective become a single group.
func Parse(expression string) (*QueryFilter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &ParseError{Expression: expression, Message: "empty expression"}
	}
	tree, err := expressionParser.ParseString("", expression)
	if err != nil {
		perr := &ParseError{Expression: expression, Message: err.Error(), Err: err}
		var pe participle.Error
		if errors.As(err, &pe) {
			perr.Message = pe.Message()
			perr.Line = pe.Position().Line
			perr.Column = pe.Position().Column
		}
		return nil, perr
	}
	f, err := tree.filter()
	if err != nil {
		return nil, &ParseError{Expression: expression, Message: err.Error(), Err: err}
	}
	return f, nil
}

// MustParse is like Parse but panics on error.
func MustParse(expression string) *QueryFilter {
	f, err := Parse(expression)
	if err != nil {
		panic(err)
	}
	return f
}

func (e *exprAST) filter() (*QueryFilter, error) {
	if len(e.Terms) == 1 {
		return e.Terms[0].filter()
	}
	conditions := make([]QueryFilter, 0, len(e.Terms))
	for _, term := range e.Terms {
		f, err := term.filter()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, *f)
	}
	return &QueryFilter{Group: &FilterGroup{Operator: LogicalOperatorOr, Conditions: conditions}}, nil
}

func (a *andAST) filter() (*QueryFilter, error) {
	if len(a.Factors) == 1 {
		return a.Factors[0].filter()
	}
	conditions := make([]QueryFilter, 0, len(a.Factors))
	for _, factor := range a.Factors {
		f, err := factor.filter()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, *f)
	}
	return &QueryFilter{Group: &FilterGroup{Operator: LogicalOperatorAnd, Conditions: conditions}}, nil
}

func (u *unaryAST) filter() (*QueryFilter, error) {
	switch {
	case u.Not != nil:
		inner, err := u.Not.filter()
		if err != nil {
			return nil, err
		}
		return &QueryFilter{Group: &FilterGroup{
			Operator:   LogicalOperatorNot,
			Conditions: []QueryFilter{*inner},
		}}, nil
	case u.Group != nil:
		return u.Group.filter()
	}
	return u.Comparison.filter()
}

func (c *comparisonAST) filter() (*QueryFilter, error) {
	op, ok := textOperators[c.Operator]
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", c.Operator)
	}
	value, err := c.Value.value()
	if err != nil {
		return nil, err
	}
	if op == ComparisonOperatorIn {
		if _, isList := value.([]any); !isList {
			return nil, fmt.Errorf("%s in: expected a list", c.Field)
		}
	}
	f := CreateSimpleFilter(c.Field, op, value)
	return &f, nil
}

func (v *valueAST) value() (any, error) {
	switch {
	case v.String != nil:
		return unquote(*v.String)
	case v.Number != nil:
		return *v.Number, nil
	case v.Bool != nil:
		return *v.Bool == "true", nil
	case v.Null:
		return nil, nil
	case v.List != nil:
		items := make([]any, 0, len(v.List.Items))
		for _, item := range v.List.Items {
			x, err := item.value()
			if err != nil {
				return nil, err
			}
			items = append(items, x)
		}
		return items, nil
	}
	return nil, errors.New("missing value")
}

// unquote decodes a string literal. Single-quoted literals are rewritten as
// double-quoted ones first: \' loses its backslash and only bare " is escaped.
func unquote(s string) (string, error) {
	if strings.HasPrefix(s, "'") {
		body := s[1 : len(s)-1]
		var sb strings.Builder
		sb.Grow(len(body) + 2)
		sb.WriteByte('"')
		for i := 0; i < len(body); i++ {
			switch c := body[i]; {
			case c == '\\' && i+1 < len(body):
				i++
				if body[i] != '\'' {
					sb.WriteByte('\\')
				}
				sb.WriteByte(body[i])
			case c == '"':
				sb.WriteString(`\"`)
			default:
				sb.WriteByte(c)
			}
		}
		sb.WriteByte('"')
		s = sb.String()
	}
	out, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("invalid string literal %s: %w", s, err)
	}
	return out, nil
}
