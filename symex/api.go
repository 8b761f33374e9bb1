// Package symex is a depth-first path explorer over symrename programs.
// It drives the renaming engine the way a symbolic executor does: frame
// instances per call, one SSA version per write, and phi assignments where
// the two sides of a branch meet.
package symex

import (
	"context"
	"fmt"

	"github.com/speakeasy-api/symrename"
)

// Run explores every path of prog and returns the emitted equations.
//
// Example:
//
//	prog, _ := scenario.Load(f)
//	result, err := symex.Run(context.Background(), prog.Program, prog.Options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, eq := range result.Equations {
//	    fmt.Println(eq)
//	}
//
// Contract violations raised by the renaming engine are not converted to
// errors; they panic with a *renaming.ContractViolation annotated with the
// pc that raised them.
func Run(ctx context.Context, prog *symrename.Program, opts ...Options) (*Result, error) {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if prog == nil {
		return nil, fmt.Errorf("program cannot be nil")
	}
	return Exec(ctx, prog.GetCodes(), opt)
}

// Exec explores raw instruction values. Each code must expose GetOp,
// GetValue and OpString.
func Exec(ctx context.Context, codes []any, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return newEnv(ctx, opts).execute(codes)
}

// String returns a string representation of the result for debugging.
func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}
	warnings := ""
	if len(r.Warnings) > 0 {
		warnings = fmt.Sprintf(" (warnings: %d)", len(r.Warnings))
	}
	return fmt.Sprintf("Result{Equations: %d, Paths: %d%s}", len(r.Equations), len(r.Paths), warnings)
}
