package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/asaidimu/go-criteria/core/filter"
	"github.com/asaidimu/go-criteria/core/predicate"
	"github.com/asaidimu/go-criteria/core/schema"
)

// DataProcessor runs a QueryDSL against in-memory documents: it compiles the
// filter tree, applies it with a stable filter, then sorts and paginates.
type DataProcessor struct {
	compiler *Compiler[schema.Document]
	logger   *zap.Logger
}

// NewDataProcessor creates a new DataProcessor instance.
func NewDataProcessor(logger *zap.Logger) *DataProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataProcessor{
		compiler: NewCompiler[schema.Document](logger),
		logger:   logger,
	}
}

// Compiler exposes the processor's compiler, e.g. to attach a schema.
func (p *DataProcessor) Compiler() *Compiler[schema.Document] {
	return p.compiler
}

// RegisterFilterFunction registers a Go function for a custom operator.
func (p *DataProcessor) RegisterFilterFunction(operator ComparisonOperator, fn PredicateFunction) {
	p.compiler.RegisterOperator(operator, fn)
}

// RegisterFilterFunctions registers multiple custom operators from a map.
func (p *DataProcessor) RegisterFilterFunctions(functionMap map[ComparisonOperator]PredicateFunction) {
	p.compiler.RegisterOperators(functionMap)
}

// ProcessRows filters, sorts and paginates rows. The input slice is not modified.
func (p *DataProcessor) ProcessRows(rows []schema.Document, dsl *QueryDSL) ([]schema.Document, error) {
	result, err := p.Query(rows, dsl)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Query is ProcessRows with the pre-pagination total reported.
func (p *DataProcessor) Query(rows []schema.Document, dsl *QueryDSL) (*QueryResult, error) {
	if dsl == nil {
		dsl = &QueryDSL{}
	}

	pred, err := p.compiler.Compile(dsl.Filters)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	matched, err := filter.Slice(rows, pred)
	if err != nil {
		return nil, fmt.Errorf("filter failed: %w", err)
	}
	p.logger.Debug("Rows remaining after filters",
		zap.Int("input", len(rows)),
		zap.Int("count", len(matched)),
	)

	if len(dsl.Sort) > 0 {
		sortDocuments(matched, dsl.Sort)
	}

	total := len(matched)
	page := paginate(matched, dsl.Pagination)
	p.logger.Debug("Rows returned after pagination", zap.Int("count", len(page)))

	return &QueryResult{Data: page, Count: len(page), Total: total}, nil
}

// Match evaluates a single document against filters. A nil filter matches.
func (p *DataProcessor) Match(ctx context.Context, filters *QueryFilter, data schema.Document) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	pred, err := p.compiler.Compile(filters)
	if err != nil {
		return false, err
	}
	return pred.IsSatisfiedBy(data)
}

// DetermineFieldsToSelect lists the fields a query reads: filter fields first,
// then sort fields, without duplicates.
func (p *DataProcessor) DetermineFieldsToSelect(dsl *QueryDSL) []string {
	if dsl == nil {
		return nil
	}
	fields := dsl.Filters.Fields()
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f] = struct{}{}
	}
	for _, s := range dsl.Sort {
		if _, ok := seen[s.Field]; !ok {
			seen[s.Field] = struct{}{}
			fields = append(fields, s.Field)
		}
	}
	return fields
}

// sortDocuments sorts in place and keeps equal rows in filter order. Missing
// and null values sort before everything else in ascending order.
func sortDocuments(rows []schema.Document, config []SortConfiguration) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, s := range config {
			a, _ := rows[i].Get(s.Field)
			b, _ := rows[j].Get(s.Field)
			cmp := compareForSort(a, b)
			if cmp == 0 {
				continue
			}
			if s.Direction == SortDirectionDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareForSort orders values of different types by sortRank first, so
// columns mixing types still sort consistently: null, booleans, numbers,
// strings, then anything else.
func compareForSort(a, b any) int {
	ra, rb := sortRank(a), sortRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankNull:
		return 0
	case rankBool:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case rankNumber, rankString:
		c, _ := predicate.CompareValues(a, b)
		return c
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankOther
)

func sortRank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case string:
		return rankString
	}
	if _, ok := predicate.CompareValues(v, 0); ok {
		return rankNumber
	}
	return rankOther
}

func paginate(rows []schema.Document, page *PaginationOptions) []schema.Document {
	if page == nil {
		return rows
	}
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start >= len(rows) {
		return []schema.Document{}
	}
	end := len(rows)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	return rows[start:end]
}
