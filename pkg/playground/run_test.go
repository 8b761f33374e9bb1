package playground

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func readScenario(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("../scenario/testdata/" + name)
	assert.NilError(t, err)
	return string(b)
}

func TestRunFork(t *testing.T) {
	resp, err := Run(context.Background(), readScenario(t, "fork.yaml"), "")
	assert.NilError(t, err)
	assert.Equal(t, resp.Error, "")
	assert.Check(t, is.Contains(resp.Program, "  4: branch  c else 6\n"))

	eqs := resp.Report.Equations
	last := eqs[len(eqs)-1]
	assert.Equal(t, last.Kind, "phi")
	assert.Equal(t, last.LHS, "x@1!0&3#3")
	assert.Equal(t, last.RHS, "(c@1!0&0#0 ? 7 : 5)")
	assert.Equal(t, last.Text, "x@1!0&3#3 == (c@1!0&0#0 ? 7 : 5)")
	assert.Check(t, len(resp.Report.Paths) > 0)
	assert.Equal(t, resp.Warnings, "")
}

func TestRunQuery(t *testing.T) {
	resp, err := Run(context.Background(), readScenario(t, "fork.yaml"), `.equations[] | select(.kind == "phi") | .lhs`)
	assert.NilError(t, err)
	assert.DeepEqual(t, resp.Results, []any{"x@1!0&3#3"})

	_, err = Run(context.Background(), readScenario(t, "fork.yaml"), ".[")
	assert.ErrorContains(t, err, "invalid jq expression")

	_, err = Run(context.Background(), readScenario(t, "fork.yaml"), `error("boom")`)
	assert.ErrorContains(t, err, "boom")
}

func TestRunViolation(t *testing.T) {
	src := `symbols:
  x: int32
program:
  - decl: x
  - assign: [x, 1]
  - dead: x
  - read: x
`
	resp, err := Run(context.Background(), src, "")
	assert.NilError(t, err)
	assert.Check(t, resp.Report == nil)
	assert.Check(t, is.Contains(resp.Error, "Location: instruction 3"))
	assert.Check(t, is.Contains(resp.Error, "contract violation"))
}

func TestRunLoadError(t *testing.T) {
	_, err := Run(context.Background(), "program:\n  - fly\n", "")
	assert.ErrorContains(t, err, `unknown instruction "fly"`)
}

func TestRunJSON(t *testing.T) {
	out, err := RunJSON(context.Background(), readScenario(t, "fork.yaml"), "")
	assert.NilError(t, err)
	assert.Check(t, is.Contains(out, "x@1!0&3#3"))
	assert.Check(t, !strings.Contains(out, `\u0026`))

	var decoded struct {
		Report struct {
			Equations []struct {
				Kind string `json:"kind"`
				LHS  string `json:"lhs"`
			} `json:"equations"`
		} `json:"report"`
		Program string `json:"program"`
	}
	assert.NilError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Check(t, len(decoded.Report.Equations) > 0)
	assert.Check(t, decoded.Program != "")
}

func TestReportYAML(t *testing.T) {
	resp, err := Run(context.Background(), readScenario(t, "fork.yaml"), "")
	assert.NilError(t, err)
	b, err := resp.Report.YAML()
	assert.NilError(t, err)
	out := string(b)
	assert.Check(t, is.Contains(out, "kind: phi"))
	assert.Check(t, is.Contains(out, "lhs: "))
	assert.Check(t, is.Contains(out, "x@1!0&3#3"))
	assert.Check(t, !strings.Contains(out, "text:"))
}

func TestFormatQuery(t *testing.T) {
	got, err := FormatQuery("  .equations|length ")
	assert.NilError(t, err)
	assert.Equal(t, got, ".equations | length")

	_, err = FormatQuery("   ")
	assert.ErrorContains(t, err, "empty jq expression")
}

func TestFormatWarnings(t *testing.T) {
	assert.Equal(t, FormatWarnings(nil), "")

	got := FormatWarnings([]string{
		"join at pc=7 without an open branch",
		"call depth 32 exceeded at pc=4 on thread 1, path cut",
		"something else",
	})
	assert.Check(t, is.Contains(got, "3 warning(s)"))
	assert.Check(t, is.Contains(got, "- A join was reached with no branch left to merge.\n  Location: instruction 7\n"))
	assert.Check(t, is.Contains(got, "Location: instruction 4, thread 1"))
	assert.Check(t, is.Contains(got, `Raise "maxCallDepth"`))
	assert.Check(t, is.Contains(got, "- Explorer warning.\n  Details: something else\n"))
}
