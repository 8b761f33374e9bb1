package symrename

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/speakeasy-api/symrename/irep"
)

func TestBuilderPatchAndDump(t *testing.T) {
	b := NewBuilder(nil)
	names := b.p.Names()
	x := names.Symbol("x", irep.Int(32))
	c := names.Symbol("c", irep.BoolType)

	b.Decl(x)
	b.Decl(c)
	b.Assign(x, irep.NewInt(5, irep.Int(32)))
	br := b.Branch(c, -1)
	b.Assign(x, irep.NewInt(7, irep.Int(32)))
	assert.NilError(t, b.Patch(br, b.PC()))
	b.Join()
	b.Read(x)

	p, err := b.Build()
	assert.NilError(t, err)
	assert.Equal(t, p.Len(), 7)

	var buf bytes.Buffer
	assert.NilError(t, p.Dump(&buf))
	want := `  0: decl    x
  1: decl    c
  2: assign  x := 5
  3: branch  c else 5
  4: assign  x := 7
  5: join
  6: read    x
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Dump mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderRejectsBadTargets(t *testing.T) {
	b := NewBuilder(nil)
	b.Jump(10)
	_, err := b.Build()
	assert.ErrorContains(t, err, "target 10 out of range")

	b = NewBuilder(nil)
	b.Nop()
	assert.ErrorContains(t, b.Patch(0, 1), "has no target")
	assert.ErrorContains(t, b.Patch(3, 1), "out of range")
}

func TestCodeAccessors(t *testing.T) {
	b := NewBuilder(nil)
	b.Thread(2)
	b.Call(0, b.p.Names().Symbol("n", irep.Int(32)))
	codes := b.p.GetCodes()
	assert.Equal(t, len(codes), 2)

	for i, want := range []struct {
		op   int
		name string
	}{
		{int(opthread), "thread"},
		{int(opcall), "call"},
	} {
		c := codes[i].(interface {
			GetOp() int
			OpString() string
			GetValue() any
		})
		assert.Equal(t, c.GetOp(), want.op)
		assert.Equal(t, c.OpString(), want.name)
	}
	assert.Equal(t, codes[0].(*Code).GetValue(), any(uint32(2)))
	assert.Equal(t, codes[1].(*Code).String(), "call 0 n")
}
