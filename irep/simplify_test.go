package irep

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestSimplifyFoldsLiterals(t *testing.T) {
	i32 := Int(32)
	tests := []struct {
		name string
		in   Expr
		want string
	}{
		{"add", NewBinaryExpr(ADD, NewInt(2, i32), NewInt(3, i32)), "5"},
		{"nested", NewBinaryExpr(MUL, NewBinaryExpr(SUB, NewInt(9, i32), NewInt(4, i32)), NewInt(2, i32)), "10"},
		{"compare", NewBinaryExpr(LT, NewInt(1, i32), NewInt(2, i32)), "true"},
		{"unsigned_compare", NewBinaryExpr(LT, NewInt(-1, Uint(8)), NewInt(2, Uint(8))), "false"},
		{"not", NewNotExpr(NewBool(false)), "true"},
		{"if_true", NewIfExpr(NewBool(true), NewInt(7, i32), NewInt(5, i32)), "7"},
		{"overflow", NewBinaryExpr(ADD, NewInt(127, Int(8)), NewInt(1, Int(8))), "-128"},
		{"div_zero", NewBinaryExpr(DIV, NewInt(1, i32), NewInt(0, i32)), "(1 / 0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Simplify(tt.in).String(), tt.want)
		})
	}
}

func TestSimplifyLeavesSymbolicOperands(t *testing.T) {
	in := NewInterner()
	c := in.Symbol("c", BoolType)
	x := in.Symbol("x", Int(32))

	// No short-circuit reasoning over symbolic operands.
	and := NewBinaryExpr(AND, NewBool(false), c)
	assert.Equal(t, Simplify(and), Expr(and))

	sel := NewIfExpr(c, NewInt(7, Int(32)), NewInt(5, Int(32)))
	assert.Equal(t, Simplify(sel), Expr(sel))

	same := NewIfExpr(c, x, x)
	assert.Equal(t, Simplify(same), Expr(x))

	partial := NewBinaryExpr(ADD, x, NewBinaryExpr(ADD, NewInt(1, Int(32)), NewInt(1, Int(32))))
	assert.Equal(t, Simplify(partial).String(), "(x + 2)")
	assert.Equal(t, partial.String(), "(x + (1 + 1))")
}
