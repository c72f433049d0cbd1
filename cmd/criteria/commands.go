package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asaidimu/go-criteria/core/filter"
	"github.com/asaidimu/go-criteria/core/predicate"
	"github.com/asaidimu/go-criteria/core/query"
	"github.com/asaidimu/go-criteria/core/schema"
	"github.com/asaidimu/go-criteria/sqlite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	engineDSL  = "dsl"
	engineExpr = "expr"
)

func (a *app) filterCommand(stdin io.Reader) *cobra.Command {
	var (
		expr    string
		input   string
		workers int
		engine  string
		count   bool
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the records of a JSON array that satisfy an expression",
		Long: `Read a JSON array of objects and print, as a JSON array, the objects that
satisfy the expression, in their original order.

With --engine expr the expression is an expr-lang boolean expression
instead, e.g. 'price <= 1000 && stock > 0'.

Examples:
  criteria filter --expr 'stock > 0' --input items.json
  criteria filter --expr @cheap_electronics --input - --workers 8 < items.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := a.config.resolveExpression(expr)
			if err != nil {
				return fail(ExitInputError, err)
			}
			p, err := buildRecordPredicate(engine, source)
			if err != nil {
				return fail(ExitInvalidExpr, err)
			}

			data, err := readInput(input, stdin)
			if err != nil {
				return fail(ExitInputError, err)
			}
			records, err := schema.ParseJSONRecords(data)
			if err != nil {
				return fail(ExitInputError, err)
			}

			if !cmd.Flags().Changed("workers") {
				workers = a.config.Workers
			}
			a.logger.Debug("Filtering records",
				zap.String("predicate", predicate.Describe(p)),
				zap.Int("records", len(records)),
				zap.Int("workers", workers),
			)
			matched, err := filter.Parallel(commandContext(cmd), records, p, workers)
			if err != nil {
				return fail(ExitEvaluationError, err)
			}
			if matched == nil {
				matched = []schema.JSONRecord{}
			}

			if count {
				fmt.Fprintln(a.stdout, len(matched))
				return nil
			}
			out, err := json.MarshalIndent(matched, "", "  ")
			if err != nil {
				return fail(ExitEvaluationError, fmt.Errorf("failed to encode output: %w", err))
			}
			fmt.Fprintln(a.stdout, string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "Filter expression, or @name of a configured query")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON input file, - for stdin")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Evaluation goroutines, 0 for one per CPU")
	cmd.Flags().StringVar(&engine, "engine", engineDSL, "Expression language: dsl or expr")
	cmd.Flags().BoolVar(&count, "count", false, "Print only the number of matches")
	_ = cmd.MarkFlagRequired("expr")
	return cmd
}

func (a *app) explainCommand() *cobra.Command {
	var (
		expr   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how an expression compiles",
		Long: `Print the compiled predicate tree and the record fields it reads.
With --json the parsed filter tree is printed in its serialised form.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			source, err := a.config.resolveExpression(expr)
			if err != nil {
				return fail(ExitInputError, err)
			}
			f, err := query.Parse(source)
			if err != nil {
				return fail(ExitInvalidExpr, err)
			}
			if asJSON {
				out, err := json.MarshalIndent(f, "", "  ")
				if err != nil {
					return fail(ExitEvaluationError, err)
				}
				fmt.Fprintln(a.stdout, string(out))
				return nil
			}

			p, err := query.NewCompiler[schema.Document](a.logger).Compile(f)
			if err != nil {
				return fail(ExitInvalidExpr, err)
			}
			fmt.Fprintf(a.stdout, "predicate: %s\n", predicate.Describe(p))
			fmt.Fprintf(a.stdout, "fields:    %s\n", strings.Join(predicate.RequiredFields(p), ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "Filter expression, or @name of a configured query")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the filter tree as JSON")
	_ = cmd.MarkFlagRequired("expr")
	return cmd
}

func (a *app) sqlCommand() *cobra.Command {
	var (
		expr  string
		table string
	)
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Render an expression as a SQLite SELECT statement",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			source, err := a.config.resolveExpression(expr)
			if err != nil {
				return fail(ExitInputError, err)
			}
			f, err := query.Parse(source)
			if err != nil {
				return fail(ExitInvalidExpr, err)
			}
			statement, args, err := sqlite.SelectSQL(table, f)
			if err != nil {
				return fail(ExitInvalidExpr, err)
			}
			params, err := json.Marshal(args)
			if err != nil {
				return fail(ExitEvaluationError, err)
			}
			fmt.Fprintln(a.stdout, statement)
			fmt.Fprintf(a.stdout, "-- args: %s\n", params)
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "Filter expression, or @name of a configured query")
	cmd.Flags().StringVarP(&table, "table", "t", "records", "Table name")
	_ = cmd.MarkFlagRequired("expr")
	return cmd
}

func buildRecordPredicate(engine, source string) (predicate.Predicate[schema.JSONRecord], error) {
	switch engine {
	case engineDSL:
		f, err := query.Parse(source)
		if err != nil {
			return nil, err
		}
		return query.NewCompiler[schema.JSONRecord](nil).Compile(f)
	case engineExpr:
		return predicate.Expression[schema.JSONRecord](source)
	}
	return nil, fmt.Errorf("unknown engine %q, want %s or %s", engine, engineDSL, engineExpr)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// commandContext is the context commands run under when the caller did not set one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
