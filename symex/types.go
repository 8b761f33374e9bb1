package symex

import (
	"fmt"

	"github.com/speakeasy-api/symrename/irep"
	"github.com/speakeasy-api/symrename/renaming"
)

// EquationKind classifies an emitted equation.
type EquationKind int

const (
	Assignment EquationKind = iota
	Phi
	Read
	Assume
)

func (k EquationKind) String() string {
	switch k {
	case Assignment:
		return "assign"
	case Phi:
		return "phi"
	case Read:
		return "read"
	case Assume:
		return "assume"
	default:
		return fmt.Sprintf("EquationKind<%d>", int(k))
	}
}

// Equation is one step of the SSA program, over fully renamed symbols.
type Equation struct {
	Kind    EquationKind
	PC      int
	Lineage string       // path that emitted it
	Guard   irep.Expr    // path condition at emission
	LHS     *irep.Symbol // written identity; nil for reads and assumptions
	RHS     irep.Expr
}

func (e Equation) String() string {
	if e.LHS == nil {
		return fmt.Sprintf("%s %s", e.Kind, e.RHS)
	}
	return fmt.Sprintf("%s == %s", e.LHS, e.RHS)
}

// Path summarizes one completed path.
type Path struct {
	Lineage string
	Guard   irep.Expr
	SSA     *renaming.SSALevel // final SSA table of the path
}

// Result contains the equations and diagnostic information.
type Result struct {
	Equations []Equation
	Paths     []Path
	Warnings  []string
	Steps     int // instructions executed
	States    int // states created, including the root
}
