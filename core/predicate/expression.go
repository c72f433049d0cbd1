package predicate

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/asaidimu/go-criteria/core/schema"
)

// expression is a leaf written in the expr language, for tests that do not fit
// a single field comparison (`price * (1 - discount) < 100`).
type expression[R schema.Record] struct {
	source  string
	program *vm.Program
	fields  []string
}

// Expression compiles source into a leaf predicate. Every identifier in source
// that is not a function or a let binding is treated as a required record field; a record lacking one is a
// type mismatch rather than a silent non-match.
func Expression[R schema.Record](source string) (Predicate[R], error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", source, err)
	}
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", source, err)
	}

	collector := &identifierCollector{
		identifiers: make(map[string]struct{}),
		callees:     make(map[string]struct{}),
		declared:    make(map[string]struct{}),
	}
	ast.Walk(&tree.Node, collector)

	return &expression[R]{
		source:  source,
		program: program,
		fields:  collector.fields(),
	}, nil
}

func (e *expression[R]) RequiredFields() []string {
	return e.fields
}

func (e *expression[R]) String() string {
	return "expr(" + e.source + ")"
}

func (e *expression[R]) IsSatisfiedBy(record R) (bool, error) {
	env, err := environment(record)
	if err != nil {
		return false, err
	}
	for _, field := range e.fields {
		if _, ok := env[field]; !ok {
			return false, missingField(field)
		}
	}

	out, err := expr.Run(e.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", e.source, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, &TypeMismatchError{Field: e.source, Reason: ReasonNotBoolean, Value: out}
	}
	return result, nil
}

// environment turns a record into the map the expr VM reads variables from.
func environment(record any) (map[string]any, error) {
	switch r := record.(type) {
	case schema.Document:
		return r, nil
	case map[string]any:
		return r, nil
	case schema.JSONRecord:
		return r.Document(), nil
	case interface{ Document() schema.Document }:
		return r.Document(), nil
	}
	return nil, &TypeMismatchError{Reason: ReasonUnsupportedRec, Value: record}
}

type identifierCollector struct {
	identifiers map[string]struct{}
	callees     map[string]struct{}
	declared    map[string]struct{} // names bound with let
}

func (c *identifierCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.identifiers[n.Value] = struct{}{}
	case *ast.VariableDeclaratorNode:
		c.declared[n.Name] = struct{}{}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.callees[id.Value] = struct{}{}
		}
	}
}

func (c *identifierCollector) fields() []string {
	out := make([]string, 0, len(c.identifiers))
	for name := range c.identifiers {
		if _, isCall := c.callees[name]; isCall {
			continue
		}
		if _, isLocal := c.declared[name]; isLocal {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
