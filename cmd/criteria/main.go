// Package main provides the criteria CLI: filter JSON records with a text
// expression, explain how an expression compiles, or render it as SQL.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitInvalidExpr     = 1
	ExitInputError      = 2
	ExitEvaluationError = 3
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	return &exitError{code: code, err: err}
}

type app struct {
	configPath string
	verbose    bool

	config *Config
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand(stdin)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra's own usage errors: unknown flags, missing required flags.
	return ExitInputError
}

func (a *app) rootCommand(stdin io.Reader) *cobra.Command {
	root := &cobra.Command{
		Use:   "criteria",
		Short: "criteria - composable record filters",
		Long: `criteria evaluates boolean filter expressions over JSON records.

Expressions combine field comparisons with and, or, not and parentheses:

  category == "Electronics" and (stock > 0 or not price <= 1000)

An expression given as @name is looked up in the queries section of the
configuration file.

Exit codes:
  0 - Success
  1 - Invalid expression
  2 - Input or configuration error
  3 - Evaluation error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return fail(ExitInputError, err)
			}
			logger, err := newLogger(a.verbose, cfg.LogLevel)
			if err != nil {
				return fail(ExitInputError, err)
			}
			a.config = cfg
			a.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(a.filterCommand(stdin))
	root.AddCommand(a.explainCommand())
	root.AddCommand(a.sqlCommand())
	return root
}
