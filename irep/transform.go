package irep

// MapSymbols rewrites every symbol reference in e through fn. The input
// tree is never modified: nodes on the path to a rewritten symbol are
// copied and untouched subtrees are shared. fn signals "no change" by
// returning its argument. When nothing changes, e itself is returned.
func MapSymbols(e Expr, fn func(*Symbol) Expr) Expr {
	switch e := e.(type) {
	case nil:
		return nil
	case *Symbol:
		return fn(e)
	case *Constant:
		return e
	case *BinaryExpr:
		lhs := MapSymbols(e.LHS, fn)
		rhs := MapSymbols(e.RHS, fn)
		if lhs == e.LHS && rhs == e.RHS {
			return e
		}
		return &BinaryExpr{Op: e.Op, LHS: lhs, RHS: rhs}
	case *NotExpr:
		x := MapSymbols(e.X, fn)
		if x == e.X {
			return e
		}
		return &NotExpr{X: x}
	case *IfExpr:
		cond := MapSymbols(e.Cond, fn)
		then := MapSymbols(e.Then, fn)
		els := MapSymbols(e.Else, fn)
		if cond == e.Cond && then == e.Then && els == e.Else {
			return e
		}
		return &IfExpr{Cond: cond, Then: then, Else: els}
	default:
		panic("unreachable")
	}
}

// Symbols returns the symbol references in e, depth first, left to right.
func Symbols(e Expr) []*Symbol {
	var out []*Symbol
	MapSymbols(e, func(s *Symbol) Expr {
		out = append(out, s)
		return s
	})
	return out
}

// Equal reports whether a and b are structurally identical trees.
func Equal(a, b Expr) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case *Symbol:
		b, ok := b.(*Symbol)
		return ok && *a == *b
	case *Constant:
		b, ok := b.(*Constant)
		return ok && *a == *b
	case *BinaryExpr:
		b, ok := b.(*BinaryExpr)
		return ok && a.Op == b.Op && Equal(a.LHS, b.LHS) && Equal(a.RHS, b.RHS)
	case *NotExpr:
		b, ok := b.(*NotExpr)
		return ok && Equal(a.X, b.X)
	case *IfExpr:
		b, ok := b.(*IfExpr)
		return ok && Equal(a.Cond, b.Cond) && Equal(a.Then, b.Then) && Equal(a.Else, b.Else)
	default:
		panic("unreachable")
	}
}

// And returns lhs && rhs, dropping literal true operands.
func And(lhs, rhs Expr) Expr {
	if c, ok := lhs.(*Constant); ok && c.IsTrue() {
		return rhs
	}
	if c, ok := rhs.(*Constant); ok && c.IsTrue() {
		return lhs
	}
	return NewBinaryExpr(AND, lhs, rhs)
}
