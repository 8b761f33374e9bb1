package playground

import (
	"context"
	"fmt"
	"strings"

	"github.com/speakeasy-api/symrename/pkg/logging"
	"github.com/speakeasy-api/symrename/pkg/scenario"
	"github.com/speakeasy-api/symrename/renaming"
	"github.com/speakeasy-api/symrename/symex"
)

// Response is what the browser build returns for one run.
type Response struct {
	Report   *Report `json:"report,omitempty"`
	Results  []any   `json:"results,omitempty"` // query output, when a query was given
	Program  string  `json:"program"`
	Warnings string  `json:"warnings,omitempty"` // FormatWarnings of Report.Warnings
	Error    string  `json:"error,omitempty"`
}

// Run compiles the scenario in src, explores it and optionally filters the
// report with a jq query. Contract violations are reported in
// Response.Error rather than panicking, since a browser session should
// survive a bad program. Load and query errors are returned.
func Run(ctx context.Context, src, query string) (resp *Response, err error) {
	s, err := scenario.Load(strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	var prog strings.Builder
	if err := s.Program.Dump(&prog); err != nil {
		return nil, err
	}
	resp = &Response{Program: prog.String()}

	opts := s.Options
	if opts.Logger == nil {
		opts.Logger = logging.NewNoopLogger()
	}

	result, cv, err := explore(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	if cv != nil {
		resp.Error = FormatViolation(cv)
		return resp, nil
	}

	resp.Report = NewReport(result)
	resp.Warnings = FormatWarnings(result.Warnings)
	if strings.TrimSpace(query) != "" {
		resp.Results, err = resp.Report.Query(ctx, query)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func explore(ctx context.Context, s *scenario.Scenario, opts symex.Options) (result *symex.Result, cv *renaming.ContractViolation, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, ok := renaming.AsContractViolation(r)
			if !ok {
				panic(r)
			}
			cv = v
		}
	}()
	result, err = symex.Run(ctx, s.Program, opts)
	return result, nil, err
}

// RunJSON is Run with the response encoded as JSON.
func RunJSON(ctx context.Context, src, query string) (string, error) {
	resp, err := Run(ctx, src, query)
	if err != nil {
		return "", err
	}
	b, err := JSON(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	return string(b), nil
}
