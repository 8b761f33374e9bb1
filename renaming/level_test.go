package renaming

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/speakeasy-api/symrename/irep"
)

func TestLevelDispatch(t *testing.T) {
	in := irep.NewInterner()
	x := in.Symbol("x", i32)
	fl := NewFrameLevel(1)
	fl.Install(x, 2)
	ssa := NewSSALevel()

	for _, tc := range []struct {
		level  Level
		target irep.Level
	}{
		{fl, irep.Level1},
		{ssa, irep.Level2},
	} {
		assert.Equal(t, Target(tc.level), tc.target)
	}

	l1 := Rename(fl, x)
	assert.Equal(t, l1.String(), "x@2!1")
	l2 := Rename(ssa, l1)
	assert.Equal(t, l2.String(), "x@2!1&0#0")

	back, changed := Peel(ssa, l2)
	assert.Check(t, changed)
	assert.Equal(t, back.String(), "x@2!1")
	back, changed = Peel(fl, back)
	assert.Check(t, changed)
	assert.Equal(t, back.String(), "x")

	ssa.MakeAssignment(l1.(*irep.Symbol), nil, nil)
	RemoveSymbol(ssa, l1.(*irep.Symbol))
	assert.Equal(t, ssa.Len(), 0)
	RemoveSymbol(fl, x)
	assert.Check(t, !fl.Installed(x.Name))
}

func TestOriginalNameUnsupportedTarget(t *testing.T) {
	in := irep.NewInterner()
	x := level1(in.Symbol("x", i32))
	cv := expectViolation(t, func() { OriginalName(x, irep.Level2) })
	assert.Equal(t, cv.Op, "OriginalName")
}

func TestOriginalNameLeavesLiterals(t *testing.T) {
	e := irep.NewBinaryExpr(irep.ADD, irep.NewInt(1, i32), irep.NewInt(2, i32))
	out, changed := OriginalName(e, irep.Level0)
	assert.Check(t, !changed)
	assert.Equal(t, out, irep.Expr(e))
}

// A read of x, an assignment of 5, a fork, and a second assignment on one
// branch yield a phi set of exactly {x}.
func TestForkAndMergeScenario(t *testing.T) {
	in := irep.NewInterner()
	x := in.Symbol("x", i32)

	frames := NewFrameLevel(0)
	frames.Install(x, 0)
	ssa := NewSSALevel()

	read := RenameAll(x, frames, ssa).(*irep.Symbol)
	assert.Equal(t, read.Version, uint32(0))

	lhs := frames.Rename(x).(*irep.Symbol)
	w := ssa.MakeAssignment(lhs, nil, irep.NewInt(5, i32))
	assert.Equal(t, w.Version, uint32(1))
	slot, _ := ssa.Slot(NewSSAKey(lhs))
	assert.Equal(t, slot.Constant.String(), "5")

	branchA, branchB := ssa.Clone(), ssa.Clone()
	wa := branchA.MakeAssignment(lhs, nil, irep.NewInt(7, i32))
	assert.Equal(t, wa.Version, uint32(2))
	assert.Equal(t, branchB.CurrentNumber(lhs), uint32(1))

	phi := GetPhiSet(branchA, branchB)
	assert.Equal(t, phi.Cardinality(), 1)
	assert.Check(t, phi.Contains(NewSSAKey(lhs)))

	// The merge reads both sides at their own versions.
	then := branchA.Rename(lhs).(*irep.Symbol)
	els := branchB.Rename(lhs).(*irep.Symbol)
	assert.Equal(t, then.Version, uint32(2))
	assert.Equal(t, els.Version, uint32(1))
}
