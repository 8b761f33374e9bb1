// Package symrename holds the instruction encoding consumed by the path
// explorer in package symex. A Program is a flat list of codes with
// pc-relative jump targets; pkg/scenario compiles YAML into one.
package symrename

import (
	"fmt"

	"github.com/speakeasy-api/symrename/irep"
)

// Code is one instruction.
type Code struct {
	v  any
	op opcode
}

// GetOp returns the opcode as an int for the explorer's dispatch table.
func (c *Code) GetOp() int {
	return int(c.op)
}

// GetValue returns the opcode operand.
func (c *Code) GetValue() any {
	return c.v
}

// OpString returns the string representation of the opcode.
func (c *Code) OpString() string {
	return c.op.String()
}

func (c *Code) String() string {
	if c.v == nil {
		return c.op.String()
	}
	return fmt.Sprintf("%s %v", c.op, c.v)
}

type opcode int

const (
	opnop opcode = iota
	opdecl
	opassign
	opread
	opassume
	opbranch
	opjump
	opjoin
	opcall
	opret
	opdead
	opthread
)

func (op opcode) String() string {
	switch op {
	case opnop:
		return "nop"
	case opdecl:
		return "decl"
	case opassign:
		return "assign"
	case opread:
		return "read"
	case opassume:
		return "assume"
	case opbranch:
		return "branch"
	case opjump:
		return "jump"
	case opjoin:
		return "join"
	case opcall:
		return "call"
	case opret:
		return "ret"
	case opdead:
		return "dead"
	case opthread:
		return "thread"
	default:
		panic(op)
	}
}

// Assign is the operand of an assign code: LHS := RHS.
type Assign struct {
	LHS *irep.Symbol
	RHS irep.Expr
}

func (a Assign) String() string { return fmt.Sprintf("%s := %s", a.LHS, a.RHS) }

// Branch is the operand of a branch code. Execution continues at pc+1
// when Cond holds and at Else otherwise. Both sides meet at the next join.
type Branch struct {
	Cond irep.Expr
	Else int
}

func (b Branch) String() string { return fmt.Sprintf("%s else %d", b.Cond, b.Else) }

// Call is the operand of a call code. Locals receive fresh frame
// instances before control transfers to Target.
type Call struct {
	Target int
	Locals []*irep.Symbol
}

func (c Call) String() string {
	s := fmt.Sprintf("%d", c.Target)
	for _, l := range c.Locals {
		s += " " + l.String()
	}
	return s
}
