// Package playground runs scenarios from source text and renders the
// result for the CLI and the browser build.
package playground

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/go-yaml"
	"github.com/itchyny/gojq"

	"github.com/speakeasy-api/symrename/symex"
)

// EquationRow is the serialized form of one equation.
type EquationRow struct {
	Kind    string `yaml:"kind" json:"kind"`
	PC      int    `yaml:"pc" json:"pc"`
	Lineage string `yaml:"lineage" json:"lineage"`
	Guard   string `yaml:"guard" json:"guard"`
	LHS     string `yaml:"lhs,omitempty" json:"lhs,omitempty"`
	RHS     string `yaml:"rhs" json:"rhs"`
	Text    string `yaml:"-" json:"-"`
}

// PathRow is the serialized form of one completed path. Written lists the
// level 2 name of every slot in the path's final SSA table.
type PathRow struct {
	Lineage string   `yaml:"lineage" json:"lineage"`
	Guard   string   `yaml:"guard" json:"guard"`
	Written []string `yaml:"written,omitempty" json:"written,omitempty"`
}

// Report is the serializable view of a symex.Result.
type Report struct {
	Equations []EquationRow `yaml:"equations" json:"equations"`
	Paths     []PathRow     `yaml:"paths" json:"paths"`
	Warnings  []string      `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Steps     int           `yaml:"steps" json:"steps"`
	States    int           `yaml:"states" json:"states"`
}

// NewReport flattens r into strings.
func NewReport(r *symex.Result) *Report {
	out := &Report{
		Equations: make([]EquationRow, 0, len(r.Equations)),
		Paths:     make([]PathRow, 0, len(r.Paths)),
		Warnings:  r.Warnings,
		Steps:     r.Steps,
		States:    r.States,
	}
	for _, eq := range r.Equations {
		row := EquationRow{
			Kind:    eq.Kind.String(),
			PC:      eq.PC,
			Lineage: eq.Lineage,
			Guard:   exprString(eq.Guard),
			RHS:     exprString(eq.RHS),
			Text:    eq.String(),
		}
		if eq.LHS != nil {
			row.LHS = eq.LHS.String()
		}
		out.Equations = append(out.Equations, row)
	}
	for _, p := range r.Paths {
		row := PathRow{Lineage: p.Lineage, Guard: exprString(p.Guard)}
		if p.SSA != nil {
			for _, key := range p.SSA.Variables() {
				if sym, ok := p.SSA.Symbol(key); ok {
					row.Written = append(row.Written, p.SSA.IdentName(sym))
				}
			}
		}
		out.Paths = append(out.Paths, row)
	}
	return out
}

func exprString(e fmt.Stringer) string {
	if e == nil {
		return ""
	}
	return e.String()
}

// Value converts the report into the plain values gojq operates on.
func (r *Report) Value() map[string]any {
	eqs := make([]any, len(r.Equations))
	for i, eq := range r.Equations {
		m := map[string]any{
			"kind":    eq.Kind,
			"pc":      eq.PC,
			"lineage": eq.Lineage,
			"guard":   eq.Guard,
			"rhs":     eq.RHS,
		}
		if eq.LHS != "" {
			m["lhs"] = eq.LHS
		}
		eqs[i] = m
	}
	paths := make([]any, len(r.Paths))
	for i, p := range r.Paths {
		paths[i] = map[string]any{
			"lineage": p.Lineage,
			"guard":   p.Guard,
			"written": anySlice(p.Written),
		}
	}
	return map[string]any{
		"equations": eqs,
		"paths":     paths,
		"warnings":  anySlice(r.Warnings),
		"steps":     r.Steps,
		"states":    r.States,
	}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// YAML encodes the report as YAML.
func (r *Report) YAML() ([]byte, error) {
	b, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return b, nil
}

// Query runs a jq filter over the report and returns every value it
// produces. A query that fails to parse, or raises an error while
// running, returns that error.
func (r *Report) Query(ctx context.Context, filter string) ([]any, error) {
	query, err := ParseQuery(filter)
	if err != nil {
		return nil, err
	}
	var results []any
	iter := query.RunWithContext(ctx, r.Value())
	for {
		v, ok := iter.Next()
		if !ok {
			return results, nil
		}
		if err, ok := v.(error); ok {
			if err, ok := err.(*gojq.HaltError); ok && err.Value() == nil {
				return results, nil
			}
			return nil, fmt.Errorf("query: %w", err)
		}
		results = append(results, v)
	}
}

// JSON encodes v indented, without HTML escaping since level names
// contain '&'.
func JSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
