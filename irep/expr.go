// Package irep is the expression tree consumed by the renaming engine:
// symbol references, literals, operators and the conditional select used
// for phi merges. Nodes are treated as immutable once built.
package irep

import (
	"fmt"
	"strconv"
)

// Expr represents an expression tree node.
type Expr interface {
	Type() Type
	String() string
	expr()
}

func (*Symbol) expr()     {}
func (*Constant) expr()   {}
func (*BinaryExpr) expr() {}
func (*NotExpr) expr()    {}
func (*IfExpr) expr()     {}

// Level is the renaming level a symbol reference has been qualified to.
type Level uint8

const (
	Level0       Level = iota // lexical name only
	Level1                    // name + frame instance + thread
	Level2                    // level 1 + node + SSA version
	Level1Global              // global, never frame-tagged
	Level2Global              // global + node + SSA version
)

var levelNames = [...]string{
	Level0:       "level0",
	Level1:       "level1",
	Level2:       "level2",
	Level1Global: "level1_global",
	Level2Global: "level2_global",
}

// String returns the level name.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level<%d>", l)
}

// IsGlobal reports whether l is one of the global levels.
func (l Level) IsGlobal() bool { return l == Level1Global || l == Level2Global }

// Symbol is a reference to a program variable. The zero values of Frame,
// Thread, Node and Version are meaningful only at the levels that set them.
type Symbol struct {
	Name    Name
	Ident   string
	Typ     Type
	Level   Level
	Frame   uint32
	Thread  uint32
	Node    uint32
	Version uint32
	Global  bool
}

// NewSymbol returns an unrenamed (level 0) reference.
func NewSymbol(name Name, ident string, typ Type) *Symbol {
	return &Symbol{Name: name, Ident: ident, Typ: typ}
}

// Type returns the symbol's type.
func (s *Symbol) Type() Type { return s.Typ }

// Clone returns a shallow copy that can be rewritten independently.
func (s *Symbol) Clone() *Symbol {
	c := *s
	return &c
}

// String renders the fully qualified identity:
// x, x@frame!thread, x@frame!thread&node#version, x&node#version.
func (s *Symbol) String() string {
	switch s.Level {
	case Level0, Level1Global:
		return s.Ident
	case Level1:
		return fmt.Sprintf("%s@%d!%d", s.Ident, s.Frame, s.Thread)
	case Level2:
		return fmt.Sprintf("%s@%d!%d&%d#%d", s.Ident, s.Frame, s.Thread, s.Node, s.Version)
	case Level2Global:
		return fmt.Sprintf("%s&%d#%d", s.Ident, s.Node, s.Version)
	default:
		panic("unreachable")
	}
}

// Constant is an integer or boolean literal.
type Constant struct {
	Typ   Type
	Value int64
}

// NewInt returns an integer constant truncated to typ.
func NewInt(v int64, typ Type) *Constant {
	return &Constant{Typ: typ, Value: wrap(v, typ)}
}

// NewBool returns a boolean constant.
func NewBool(b bool) *Constant {
	if b {
		return &Constant{Typ: BoolType, Value: 1}
	}
	return &Constant{Typ: BoolType, Value: 0}
}

// Type returns the constant's type.
func (c *Constant) Type() Type { return c.Typ }

// IsTrue reports whether c is the boolean true.
func (c *Constant) IsTrue() bool { return c.Typ.IsBool() && c.Value != 0 }

// IsFalse reports whether c is the boolean false.
func (c *Constant) IsFalse() bool { return c.Typ.IsBool() && c.Value == 0 }

// String returns the literal text.
func (c *Constant) String() string {
	if c.Typ.IsBool() {
		return strconv.FormatBool(c.Value != 0)
	}
	if c.Typ.Kind == KindUnsigned {
		return strconv.FormatUint(uint64(c.Value), 10)
	}
	return strconv.FormatInt(c.Value, 10)
}

// BinaryOp represents a binary expression operation.
type BinaryOp int

// BinaryExpr operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	DIV
	MOD
	arithmetic_op_end

	compare_op_begin
	EQ
	NE
	LT
	LE
	GT
	GE
	compare_op_end

	logical_op_begin
	AND
	OR
	logical_op_end
)

var binaryOps = [...]string{
	ADD: "+",
	SUB: "-",
	MUL: "*",
	DIV: "/",
	MOD: "%",
	EQ:  "==",
	NE:  "!=",
	LT:  "<",
	LE:  "<=",
	GT:  ">",
	GE:  ">=",
	AND: "&&",
	OR:  "||",
}

var binaryOpNames = map[string]BinaryOp{
	"add": ADD, "sub": SUB, "mul": MUL, "div": DIV, "mod": MOD,
	"eq": EQ, "ne": NE, "lt": LT, "le": LE, "gt": GT, "ge": GE,
	"and": AND, "or": OR,
}

// LookupBinaryOp returns the operator for a scenario keyword such as "add".
func LookupBinaryOp(name string) (BinaryOp, bool) {
	op, ok := binaryOpNames[name]
	return op, ok
}

// String returns the operator symbol.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// IsLogical returns true if op is a boolean connective.
func (op BinaryOp) IsLogical() bool {
	return op > logical_op_begin && op < logical_op_end
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// NewBinaryExpr returns a new instance of BinaryExpr.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// Type returns bool for comparisons and connectives, the operand type otherwise.
func (e *BinaryExpr) Type() Type {
	if e.Op.IsCompare() || e.Op.IsLogical() {
		return BoolType
	}
	return e.LHS.Type()
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.LHS, e.Op, e.RHS)
}

// NotExpr is boolean negation.
type NotExpr struct {
	X Expr
}

// NewNotExpr returns !x.
func NewNotExpr(x Expr) *NotExpr { return &NotExpr{X: x} }

// Type returns bool.
func (e *NotExpr) Type() Type { return BoolType }

// String returns the string representation of the expression.
func (e *NotExpr) String() string { return "!" + e.X.String() }

// IfExpr selects Then when Cond holds and Else otherwise. Phi merges are
// expressed with it.
type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

// NewIfExpr returns cond ? then : els.
func NewIfExpr(cond, then, els Expr) *IfExpr {
	return &IfExpr{Cond: cond, Then: then, Else: els}
}

// Type returns the type of the selected operands.
func (e *IfExpr) Type() Type { return e.Then.Type() }

// String returns the string representation of the expression.
func (e *IfExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", e.Cond, e.Then, e.Else)
}
