// Command symrename runs scenario files through the path explorer and
// prints the renamed equations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/speakeasy-api/symrename/pkg/logging"
	"github.com/speakeasy-api/symrename/pkg/playground"
	"github.com/speakeasy-api/symrename/pkg/scenario"
	"github.com/speakeasy-api/symrename/renaming"
	"github.com/speakeasy-api/symrename/symex"
)

const (
	exitError     = 1
	exitViolation = 2
)

type runOptions struct {
	output      string
	query       string
	logLevel    string
	propagation bool
	noMemo      bool
	maxSteps    int
	color       string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the process exit code. Contract
// violations from the renaming engine exit with a distinct status.
func execute(args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			cv, ok := renaming.AsContractViolation(r)
			if !ok {
				panic(r)
			}
			fmt.Fprintf(stderr, "fatal: %s\n", cv)
			code = exitViolation
		}
	}()

	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return exitError
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "symrename",
		Short:         "Explore scenario programs and print their SSA equations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newRunCommand(stdout, stderr), newDumpCommand(stdout))
	return root
}

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run SCENARIO",
		Short: "Run a scenario and print the equations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.Context(), args[0], opts, cmd.Flags().Changed, stdout, stderr)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "table", "output format: table, yaml or json")
	flags.StringVarP(&opts.query, "query", "q", "", "jq filter applied to the json document")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: error, warn, info or debug")
	flags.BoolVar(&opts.propagation, "constant-propagation", false, "substitute known constants for versioned reads")
	flags.BoolVar(&opts.noMemo, "no-memo", false, "disable state memoization")
	flags.IntVar(&opts.maxSteps, "max-steps", 0, "override the step limit")
	flags.StringVar(&opts.color, "color", "auto", "color table output: auto, always or never")
	return cmd
}

func newDumpCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "dump SCENARIO",
		Short: "Print the compiled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}
			return s.Program.Dump(stdout)
		},
	}
}

func runScenario(ctx context.Context, path string, o *runOptions, changed func(string) bool, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := o.validate(); err != nil {
		return err
	}
	s, err := scenario.LoadFile(path)
	if err != nil {
		return err
	}

	opts := s.Options
	if o.logLevel != "" {
		opts.LogLevel = o.logLevel
	}
	opts.Logger = logging.NewLogger(logging.ParseLogLevel(opts.LogLevel), stderr)
	if changed("constant-propagation") {
		opts.ConstantPropagation = o.propagation
	}
	if o.noMemo {
		opts.EnableMemo = false
	}
	if o.maxSteps > 0 {
		opts.MaxSteps = o.maxSteps
	}

	result, err := symex.Run(ctx, s.Program, opts)
	if err != nil {
		return err
	}

	switch o.output {
	case "yaml":
		return writeYAML(stdout, result)
	case "json":
		return writeJSON(ctx, stdout, result, o.query)
	default:
		return writeTable(stdout, result, useColor(o.color, stdout))
	}
}

// validate checks the output flags before any exploration runs.
func (o *runOptions) validate() error {
	switch o.output {
	case "table", "yaml", "json":
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}
	if o.query == "" {
		return nil
	}
	if o.output != "json" {
		return fmt.Errorf("--query requires --output json")
	}
	_, err := playground.ParseQuery(o.query)
	return err
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
