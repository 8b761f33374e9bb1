package symrename

import (
	"fmt"
	"io"

	"github.com/speakeasy-api/symrename/irep"
)

// Program is a compiled instruction list together with the interner that
// produced its symbols.
type Program struct {
	codes []*Code
	names *irep.Interner
}

// GetCodes returns the instructions as opaque values. The explorer reads
// them through GetOp, GetValue and OpString.
func (p *Program) GetCodes() []any {
	out := make([]any, len(p.codes))
	for i, c := range p.codes {
		out[i] = c
	}
	return out
}

// Len returns the number of instructions.
func (p *Program) Len() int { return len(p.codes) }

// Names returns the interner shared by every symbol in the program.
func (p *Program) Names() *irep.Interner { return p.names }

// Dump writes one instruction per line.
func (p *Program) Dump(w io.Writer) error {
	for i, c := range p.codes {
		var err error
		if c.v == nil {
			_, err = fmt.Fprintf(w, "%3d: %s\n", i, c.OpString())
		} else {
			_, err = fmt.Fprintf(w, "%3d: %-7s %v\n", i, c.OpString(), c.v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Builder appends instructions to a Program. Forward targets are emitted
// as placeholders and fixed up with Patch once the target pc is known.
type Builder struct {
	p *Program
}

// NewBuilder starts a program whose symbols come from names. A nil names
// allocates a fresh interner.
func NewBuilder(names *irep.Interner) *Builder {
	if names == nil {
		names = irep.NewInterner()
	}
	return &Builder{p: &Program{names: names}}
}

// Names returns the interner symbols of this program must come from.
func (b *Builder) Names() *irep.Interner { return b.p.names }

// PC returns the index the next instruction will occupy.
func (b *Builder) PC() int { return len(b.p.codes) }

func (b *Builder) append(op opcode, v any) int {
	b.p.codes = append(b.p.codes, &Code{op: op, v: v})
	return len(b.p.codes) - 1
}

// Nop appends a no-op.
func (b *Builder) Nop() int { return b.append(opnop, nil) }

// Decl appends a declaration of a local.
func (b *Builder) Decl(sym *irep.Symbol) int { return b.append(opdecl, sym) }

// Assign appends lhs := rhs.
func (b *Builder) Assign(lhs *irep.Symbol, rhs irep.Expr) int {
	return b.append(opassign, Assign{LHS: lhs, RHS: rhs})
}

// Read appends an observation of e.
func (b *Builder) Read(e irep.Expr) int { return b.append(opread, e) }

// Assume appends a path constraint.
func (b *Builder) Assume(cond irep.Expr) int { return b.append(opassume, cond) }

// Branch appends a two-way fork. Pass -1 for a forward else target and
// Patch it later.
func (b *Builder) Branch(cond irep.Expr, els int) int {
	return b.append(opbranch, Branch{Cond: cond, Else: els})
}

// Jump appends an unconditional jump.
func (b *Builder) Jump(target int) int { return b.append(opjump, target) }

// Join appends the merge point of the innermost open branch.
func (b *Builder) Join() int { return b.append(opjoin, nil) }

// Call appends a call to target, instantiating locals in a fresh frame.
func (b *Builder) Call(target int, locals ...*irep.Symbol) int {
	return b.append(opcall, Call{Target: target, Locals: locals})
}

// Ret appends a return to the caller.
func (b *Builder) Ret() int { return b.append(opret, nil) }

// Dead appends the end of a local's lifetime.
func (b *Builder) Dead(sym *irep.Symbol) int { return b.append(opdead, sym) }

// Thread appends a switch of the active modeled thread.
func (b *Builder) Thread(id uint32) int { return b.append(opthread, id) }

// Patch rewrites the jump target of the instruction at pc.
func (b *Builder) Patch(pc, target int) error {
	if pc < 0 || pc >= len(b.p.codes) {
		return fmt.Errorf("patch: pc %d out of range", pc)
	}
	c := b.p.codes[pc]
	switch v := c.v.(type) {
	case int:
		c.v = target
	case Branch:
		v.Else = target
		c.v = v
	case Call:
		v.Target = target
		c.v = v
	default:
		return fmt.Errorf("patch: %s at pc %d has no target", c.op, pc)
	}
	return nil
}

// Build validates jump targets and returns the program.
func (b *Builder) Build() (*Program, error) {
	n := len(b.p.codes)
	check := func(pc, target int) error {
		if target < 0 || target > n {
			return fmt.Errorf("pc %d: target %d out of range [0, %d]", pc, target, n)
		}
		return nil
	}
	for pc, c := range b.p.codes {
		var err error
		switch v := c.v.(type) {
		case Branch:
			err = check(pc, v.Else)
		case Call:
			err = check(pc, v.Target)
		case int:
			if c.op == opjump {
				err = check(pc, v)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return b.p, nil
}
