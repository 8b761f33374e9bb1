package irep

// Simplify folds subtrees whose operands are all literals. It never
// reasons about partially symbolic operands: (false && x) stays as written.
// The input is not modified.
func Simplify(e Expr) Expr {
	switch e := e.(type) {
	case nil:
		return nil
	case *Symbol, *Constant:
		return e
	case *BinaryExpr:
		lhs := Simplify(e.LHS)
		rhs := Simplify(e.RHS)
		lc, lok := lhs.(*Constant)
		rc, rok := rhs.(*Constant)
		if lok && rok {
			if c, ok := foldBinary(e.Op, lc, rc); ok {
				return c
			}
		}
		if lhs == e.LHS && rhs == e.RHS {
			return e
		}
		return &BinaryExpr{Op: e.Op, LHS: lhs, RHS: rhs}
	case *NotExpr:
		x := Simplify(e.X)
		if c, ok := x.(*Constant); ok && c.Typ.IsBool() {
			return NewBool(c.Value == 0)
		}
		if x == e.X {
			return e
		}
		return &NotExpr{X: x}
	case *IfExpr:
		cond := Simplify(e.Cond)
		then := Simplify(e.Then)
		els := Simplify(e.Else)
		if c, ok := cond.(*Constant); ok {
			if c.Value != 0 {
				return then
			}
			return els
		}
		if Equal(then, els) {
			return then
		}
		if cond == e.Cond && then == e.Then && els == e.Else {
			return e
		}
		return &IfExpr{Cond: cond, Then: then, Else: els}
	default:
		panic("unreachable")
	}
}

// foldBinary evaluates op over two literals. Division by zero is left unfolded.
func foldBinary(op BinaryOp, l, r *Constant) (*Constant, bool) {
	typ := l.Typ
	unsigned := typ.Kind == KindUnsigned
	a, b := l.Value, r.Value
	switch op {
	case ADD:
		return NewInt(a+b, typ), true
	case SUB:
		return NewInt(a-b, typ), true
	case MUL:
		return NewInt(a*b, typ), true
	case DIV:
		if b == 0 {
			return nil, false
		}
		if unsigned {
			return NewInt(int64(uint64(a)/uint64(b)), typ), true
		}
		return NewInt(a/b, typ), true
	case MOD:
		if b == 0 {
			return nil, false
		}
		if unsigned {
			return NewInt(int64(uint64(a)%uint64(b)), typ), true
		}
		return NewInt(a%b, typ), true
	case EQ:
		return NewBool(a == b), true
	case NE:
		return NewBool(a != b), true
	case LT:
		if unsigned {
			return NewBool(uint64(a) < uint64(b)), true
		}
		return NewBool(a < b), true
	case LE:
		if unsigned {
			return NewBool(uint64(a) <= uint64(b)), true
		}
		return NewBool(a <= b), true
	case GT:
		if unsigned {
			return NewBool(uint64(a) > uint64(b)), true
		}
		return NewBool(a > b), true
	case GE:
		if unsigned {
			return NewBool(uint64(a) >= uint64(b)), true
		}
		return NewBool(a >= b), true
	case AND:
		return NewBool(a != 0 && b != 0), true
	case OR:
		return NewBool(a != 0 || b != 0), true
	default:
		return nil, false
	}
}
