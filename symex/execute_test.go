package symex

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/speakeasy-api/symrename"
	"github.com/speakeasy-api/symrename/irep"
	"github.com/speakeasy-api/symrename/pkg/logging"
	"github.com/speakeasy-api/symrename/renaming"
)

var i32 = irep.Int(32)

func equationStrings(r *Result) []string {
	out := make([]string, len(r.Equations))
	for i, eq := range r.Equations {
		out[i] = eq.String()
	}
	return out
}

func mustBuild(t *testing.T, b *symrename.Builder) *symrename.Program {
	t.Helper()
	p, err := b.Build()
	assert.NilError(t, err)
	return p
}

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Logger = logging.NewNoopLogger()
	return opts
}

// forkProgram reads x, writes 5, forks on c and writes 7 on the then side.
func forkProgram(t *testing.T) *symrename.Program {
	names := irep.NewInterner()
	x := names.Symbol("x", i32)
	c := names.Symbol("c", irep.BoolType)

	b := symrename.NewBuilder(names)
	b.Decl(x)
	b.Decl(c)
	b.Read(x)
	b.Assign(x, irep.NewInt(5, i32))
	br := b.Branch(c, -1)
	b.Assign(x, irep.NewInt(7, i32))
	assert.NilError(t, b.Patch(br, b.PC()))
	b.Join()
	return mustBuild(t, b)
}

func TestForkAndJoin(t *testing.T) {
	tests := []struct {
		name        string
		propagation bool
		want        []string
	}{
		{
			name: "symbolic",
			want: []string{
				"read x@1!0&0#0",
				"x@1!0&1#1 == 5",
				"x@1!0&2#2 == 7",
				"x@1!0&3#3 == (c@1!0&0#0 ? x@1!0&2#2 : x@1!0&1#1)",
			},
		},
		{
			name:        "constant propagation",
			propagation: true,
			want: []string{
				"read x@1!0&0#0",
				"x@1!0&1#1 == 5",
				"x@1!0&2#2 == 7",
				"x@1!0&3#3 == (c@1!0&0#0 ? 7 : 5)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietOptions()
			opts.ConstantPropagation = tt.propagation
			result, err := Run(context.Background(), forkProgram(t), opts)
			assert.NilError(t, err)

			if diff := cmp.Diff(tt.want, equationStrings(result)); diff != "" {
				t.Errorf("equations mismatch (-want +got):\n%s", diff)
			}

			assert.Equal(t, result.Equations[2].Guard.String(), "c@1!0&0#0")
			assert.Equal(t, result.Equations[3].Kind, Phi)
			assert.Equal(t, result.Equations[3].Guard.String(), "true")

			assert.Equal(t, len(result.Paths), 1)
			path := result.Paths[0]
			assert.Equal(t, path.Lineage, "0.J")
			assert.Equal(t, path.Guard.String(), "true")
			assert.Equal(t, len(result.Warnings), 0)
		})
	}
}

func TestRecursiveCallsGetDistinctFrames(t *testing.T) {
	names := irep.NewInterner()
	n := names.Symbol("n", i32)
	g := names.Global("g", i32)

	b := symrename.NewBuilder(names)
	b.Assign(g, irep.NewInt(0, i32))
	b.Call(5, n)
	b.Read(g)
	end := b.Jump(-1)
	b.Nop()
	b.Assign(n, g)
	b.Assign(g, irep.NewBinaryExpr(irep.ADD, g, irep.NewInt(1, i32)))
	b.Branch(irep.NewBinaryExpr(irep.LT, g, irep.NewInt(2, i32)), 9)
	b.Call(5, n)
	b.Join()
	b.Read(n)
	b.Ret()
	assert.NilError(t, b.Patch(end, b.PC()))
	prog := mustBuild(t, b)

	opts := quietOptions()
	opts.ConstantPropagation = true
	result, err := Run(context.Background(), prog, opts)
	assert.NilError(t, err)

	want := []string{
		"g&1#1 == 0",
		"n@1!0&2#1 == 0",
		"g&3#2 == 1",
		"n@2!0&4#1 == 1",
		"g&5#3 == 2",
		"read 1",
		"read 0",
		"read 2",
	}
	if diff := cmp.Diff(want, equationStrings(result)); diff != "" {
		t.Errorf("equations mismatch (-want +got):\n%s", diff)
	}

	// Returning drops the callee's locals from the SSA table.
	assert.Equal(t, len(result.Paths), 1)
	final := result.Paths[0].SSA
	assert.Equal(t, final.Len(), 1)
	gl := renaming.NewFrameLevel(0).Rename(g).(*irep.Symbol)
	assert.Equal(t, final.CurrentNumber(gl), uint32(3))
}

func TestCallDepthCutsPath(t *testing.T) {
	names := irep.NewInterner()
	n := names.Symbol("n", i32)

	b := symrename.NewBuilder(names)
	b.Call(0, n)
	prog := mustBuild(t, b)

	opts := quietOptions()
	opts.MaxCallDepth = 3
	result, err := Run(context.Background(), prog, opts)
	assert.NilError(t, err)
	assert.Equal(t, len(result.Paths), 0)
	assert.Equal(t, len(result.Warnings), 1)
	assert.Check(t, strings.Contains(result.Warnings[0], "call depth 3 exceeded"))
}

func TestThreadsPartitionLocals(t *testing.T) {
	names := irep.NewInterner()
	x := names.Symbol("x", i32)
	g := names.Global("g", i32)

	b := symrename.NewBuilder(names)
	b.Decl(x)
	b.Assign(x, irep.NewInt(1, i32))
	b.Thread(1)
	b.Decl(x)
	b.Assign(x, irep.NewInt(2, i32))
	b.Assign(g, x)
	b.Thread(0)
	b.Read(x)
	prog := mustBuild(t, b)

	result, err := Run(context.Background(), prog, quietOptions())
	assert.NilError(t, err)
	want := []string{
		"x@1!0&1#1 == 1",
		"x@2!1&2#1 == 2",
		"g&3#1 == x@2!1&2#1",
		"read x@1!0&1#1",
	}
	if diff := cmp.Diff(want, equationStrings(result)); diff != "" {
		t.Errorf("equations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, result.Paths[0].SSA.Len(), 3)
}

func TestDeadLocalIsUnreadable(t *testing.T) {
	names := irep.NewInterner()
	x := names.Symbol("x", i32)

	b := symrename.NewBuilder(names)
	b.Decl(x)
	b.Assign(x, irep.NewInt(1, i32))
	b.Dead(x)
	b.Read(x)
	prog := mustBuild(t, b)

	var cv *renaming.ContractViolation
	func() {
		defer func() {
			r := recover()
			var ok bool
			cv, ok = renaming.AsContractViolation(r)
			assert.Check(t, ok, "expected a contract violation, got %v", r)
		}()
		_, _ = Run(context.Background(), prog, quietOptions())
	}()
	assert.Assert(t, cv != nil)
	assert.Equal(t, cv.Key, "x")
	assert.DeepEqual(t, cv.Context, []string{"pc=3 op=read state=0"})
	assert.ErrorContains(t, cv, "(pc=3 op=read state=0)")
}

func TestDeadLocalBeforeReturn(t *testing.T) {
	names := irep.NewInterner()
	y := names.Symbol("y", i32)
	g := names.Global("g", i32)

	b := symrename.NewBuilder(names)
	b.Call(3, y)
	b.Read(g)
	end := b.Jump(-1)
	b.Assign(y, irep.NewInt(1, i32))
	b.Assign(g, y)
	b.Dead(y)
	b.Dead(y)
	b.Ret()
	assert.NilError(t, b.Patch(end, b.PC()))
	prog := mustBuild(t, b)

	result, err := Run(context.Background(), prog, quietOptions())
	assert.NilError(t, err)
	assert.DeepEqual(t, equationStrings(result), []string{
		"y@1!0&1#1 == 1",
		"g&2#1 == y@1!0&1#1",
		"read g&2#1",
	})

	assert.Equal(t, len(result.Paths), 1)
	final := result.Paths[0].SSA
	assert.Equal(t, final.Len(), 1)
	yl := renaming.NewFrameLevel(0)
	yl.Install(y, 1)
	_, ok := final.Slot(renaming.NewSSAKey(yl.Rename(y).(*irep.Symbol)))
	assert.Check(t, !ok)
}

func TestJoinReachedByOneSide(t *testing.T) {
	names := irep.NewInterner()
	x := names.Symbol("x", i32)
	c := names.Symbol("c", irep.BoolType)

	b := symrename.NewBuilder(names)
	b.Decl(c)
	b.Decl(x)
	br := b.Branch(c, -1)
	b.Assign(x, irep.NewInt(1, i32))
	jmp := b.Jump(-1)
	assert.NilError(t, b.Patch(br, b.PC()))
	b.Assume(irep.NewBool(false))
	b.Assign(x, irep.NewInt(2, i32))
	assert.NilError(t, b.Patch(jmp, b.PC()))
	b.Join()
	b.Read(x)
	prog := mustBuild(t, b)

	result, err := Run(context.Background(), prog, quietOptions())
	assert.NilError(t, err)
	want := []string{
		"x@1!0&1#1 == 1",
		"read x@1!0&1#1",
	}
	if diff := cmp.Diff(want, equationStrings(result)); diff != "" {
		t.Errorf("equations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, len(result.Paths), 1)
	assert.Equal(t, result.Paths[0].Guard.String(), "c@1!0&0#0")
}

func TestAssumeStrengthensGuard(t *testing.T) {
	names := irep.NewInterner()
	x := names.Symbol("x", i32)

	b := symrename.NewBuilder(names)
	b.Decl(x)
	b.Assume(irep.NewBinaryExpr(irep.GT, x, irep.NewInt(0, i32)))
	b.Assume(irep.NewBool(true))
	b.Read(x)
	prog := mustBuild(t, b)

	result, err := Run(context.Background(), prog, quietOptions())
	assert.NilError(t, err)
	assert.Equal(t, len(result.Equations), 2)
	assert.Equal(t, result.Equations[0].String(), "assume (x@1!0&0#0 > 0)")
	assert.Equal(t, result.Equations[1].Guard.String(), "(x@1!0&0#0 > 0)")
}

func TestMemoization(t *testing.T) {
	b := symrename.NewBuilder(nil)
	b.Jump(0)
	prog := mustBuild(t, b)

	t.Run("memo prunes revisited states", func(t *testing.T) {
		result, err := Run(context.Background(), prog, quietOptions())
		assert.NilError(t, err)
		assert.Equal(t, len(result.Paths), 0)
	})

	t.Run("step limit without memo", func(t *testing.T) {
		opts := quietOptions()
		opts.EnableMemo = false
		opts.MaxSteps = 50
		_, err := Run(context.Background(), prog, opts)
		assert.ErrorContains(t, err, "exceeded maximum steps (50)")
	})
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, forkProgram(t), quietOptions())
	assert.Check(t, errors.Is(err, context.Canceled))
}

func TestJoinWithoutBranchWarns(t *testing.T) {
	b := symrename.NewBuilder(nil)
	b.Join()
	result, err := Run(context.Background(), mustBuild(t, b), quietOptions())
	assert.NilError(t, err)
	assert.DeepEqual(t, result.Warnings, []string{"join at pc=0 without an open branch"})
	assert.Equal(t, len(result.Paths), 1)
}

func TestDebugTrace(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = logging.NewLoggerWithoutTimestamps(logging.LevelDebug, &buf)
	_, err := Run(context.Background(), forkProgram(t), opts)
	assert.NilError(t, err)

	out := buf.String()
	assert.Check(t, strings.Contains(out, "[DEBUG] Executing branch"))
	assert.Check(t, strings.Contains(out, "Merged branch 1"))
	assert.Check(t, strings.Contains(out, " phi=name#"))
	assert.Check(t, strings.Contains(out, "Terminal state reached"))
}

func TestRunRejectsInvalidInput(t *testing.T) {
	_, err := Run(context.Background(), nil)
	assert.ErrorContains(t, err, "program cannot be nil")

	opts := DefaultOptions()
	opts.MaxSteps = 0
	_, err = Exec(context.Background(), nil, opts)
	assert.ErrorContains(t, err, "invalid options")
}
