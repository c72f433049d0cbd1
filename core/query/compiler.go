package query

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/asaidimu/go-criteria/core/predicate"
	"github.com/asaidimu/go-criteria/core/schema"
)

var (
	// ErrInvalidFilter is returned for a node that sets neither or both of Condition and Group.
	ErrInvalidFilter = errors.New("filter must set exactly one of condition or group")
	// ErrEmptyGroup is returned for a group without conditions.
	ErrEmptyGroup = errors.New("filter group has no conditions")
	// ErrUnsupportedLogical is returned for an unknown group operator.
	ErrUnsupportedLogical = errors.New("unsupported logical operator")
	// ErrUnknownOperator is returned for a comparison operator that is neither
	// standard nor registered.
	ErrUnknownOperator = predicate.ErrUnknownOperator
)

// PredicateFunction implements a custom comparison operator. It receives the
// whole record so it can read more than the named field.
type PredicateFunction func(record schema.Record, field string, args FilterValue) (bool, error)

// Compiler turns QueryFilter trees into predicates over records of type R.
// Custom operators may be registered at any time; a compiled predicate keeps
// the function it was compiled with.
type Compiler[R schema.Record] struct {
	functions map[ComparisonOperator]PredicateFunction
	schema    *schema.RecordSchema
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewCompiler creates a Compiler. A nil logger disables logging.
func NewCompiler[R schema.Record](logger *zap.Logger) *Compiler[R] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler[R]{
		functions: make(map[ComparisonOperator]PredicateFunction),
		logger:    logger,
	}
}

// WithSchema makes every compiled condition validate its field and operand
// against s at compile time.
func (c *Compiler[R]) WithSchema(s *schema.RecordSchema) *Compiler[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schema = s
	return c
}

// RegisterOperator registers a function for a custom comparison operator.
func (c *Compiler[R]) RegisterOperator(operator ComparisonOperator, fn PredicateFunction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.functions[operator] = fn
	c.logger.Info("Registered filter function", zap.String("operator", string(operator)))
}

// RegisterOperators registers multiple custom operators from a map.
func (c *Compiler[R]) RegisterOperators(functionMap map[ComparisonOperator]PredicateFunction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for operator, fn := range functionMap {
		c.functions[operator] = fn
		c.logger.Info("Registered filter function", zap.String("operator", string(operator)))
	}
}

// Compile builds the predicate for filter. A nil filter matches every record.
// All structural problems are reported here rather than during evaluation.
func (c *Compiler[R]) Compile(filter *QueryFilter) (predicate.Predicate[R], error) {
	if filter == nil {
		return predicate.True[R](), nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.compile(filter, "$")
}

func (c *Compiler[R]) compile(filter *QueryFilter, path string) (predicate.Predicate[R], error) {
	switch {
	case filter.Condition != nil && filter.Group != nil, filter.Condition == nil && filter.Group == nil:
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidFilter)
	case filter.Condition != nil:
		p, err := c.compileCondition(filter.Condition)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return p, nil
	}

	group := filter.Group
	if len(group.Conditions) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyGroup)
	}
	children := make([]predicate.Predicate[R], 0, len(group.Conditions))
	for i := range group.Conditions {
		child, err := c.compile(&group.Conditions[i], fmt.Sprintf("%s.%s[%d]", path, group.Operator, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	switch group.Operator {
	case LogicalOperatorAnd:
		return predicate.All(children...)
	case LogicalOperatorOr:
		return predicate.Any(children...)
	case LogicalOperatorNot:
		if len(children) != 1 {
			return nil, fmt.Errorf("%s: not group takes exactly one condition, got %d", path, len(children))
		}
		return predicate.Not(children[0])
	case LogicalOperatorNor:
		anyOf, err := predicate.Any(children...)
		if err != nil {
			return nil, err
		}
		return predicate.Not(anyOf)
	case LogicalOperatorXor:
		return predicate.OneOf(children...)
	}
	return nil, fmt.Errorf("%s: %w: %q", path, ErrUnsupportedLogical, group.Operator)
}

func (c *Compiler[R]) compileCondition(cond *FilterCondition) (predicate.Predicate[R], error) {
	if cond.Operator.IsStandard() {
		if c.schema != nil {
			return predicate.WhereIn[R](c.schema, cond.Field, cond.Operator, cond.Value)
		}
		return predicate.Where[R](cond.Field, cond.Operator, cond.Value)
	}

	fn, ok := c.functions[cond.Operator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, cond.Operator)
	}
	field, args := cond.Field, cond.Value
	name := fmt.Sprintf("%s %s %v", field, cond.Operator, args)
	return predicate.Check(name, []string{field}, func(record R) (bool, error) {
		return fn(record, field, args)
	}), nil
}
