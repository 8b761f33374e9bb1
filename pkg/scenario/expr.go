package scenario

import (
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/symrename/irep"
)

// expr compiles an expression node. Scalars are literals or symbol names;
// mappings have one operator key: a binary operator name such as add or
// lt with a two-element sequence, not with one operand, or if with
// [cond, then, else]. Untyped integer literals take the type of a typed
// sibling operand, falling back to hint.
func (c *compiler) expr(n *yaml.Node, hint irep.Type) (irep.Expr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return c.scalar(n, hint)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, nodeErrorf(n, "expression must have exactly one operator")
		}
		key, arg := n.Content[0].Value, n.Content[1]
		switch key {
		case "not":
			x, err := c.expr(arg, irep.BoolType)
			if err != nil {
				return nil, err
			}
			return irep.NewNotExpr(x), nil
		case "if":
			args, err := operands(arg, 3, key)
			if err != nil {
				return nil, err
			}
			cond, err := c.expr(args[0], irep.BoolType)
			if err != nil {
				return nil, err
			}
			armHint := c.siblingType(args[1:], hint)
			then, err := c.expr(args[1], armHint)
			if err != nil {
				return nil, err
			}
			els, err := c.expr(args[2], armHint)
			if err != nil {
				return nil, err
			}
			return irep.NewIfExpr(cond, then, els), nil
		}
		op, ok := irep.LookupBinaryOp(key)
		if !ok {
			return nil, nodeErrorf(n.Content[0], "unknown operator %q", key)
		}
		args, err := operands(arg, 2, key)
		if err != nil {
			return nil, err
		}
		operandHint := irep.BoolType
		if !op.IsLogical() {
			fallback := hint
			if op.IsCompare() || fallback.IsBool() {
				fallback = irep.Int(32)
			}
			operandHint = c.siblingType(args, fallback)
		}
		lhs, err := c.expr(args[0], operandHint)
		if err != nil {
			return nil, err
		}
		rhs, err := c.expr(args[1], operandHint)
		if err != nil {
			return nil, err
		}
		return irep.NewBinaryExpr(op, lhs, rhs), nil
	default:
		return nil, nodeErrorf(n, "expected a scalar or an operator mapping")
	}
}

func (c *compiler) scalar(n *yaml.Node, hint irep.Type) (irep.Expr, error) {
	switch n.Value {
	case "true":
		return irep.NewBool(true), nil
	case "false":
		return irep.NewBool(false), nil
	}
	if v, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
		if hint.IsBool() {
			return nil, nodeErrorf(n, "integer literal %s where a condition is expected", n.Value)
		}
		return irep.NewInt(v, hint), nil
	}
	if sym, ok := c.scenario.Symbols.Get(n.Value); ok {
		return sym, nil
	}
	return nil, nodeErrorf(n, "undeclared symbol %q", n.Value)
}

// siblingType returns the type of the first operand whose type does not
// depend on context, or fallback.
func (c *compiler) siblingType(nodes []*yaml.Node, fallback irep.Type) irep.Type {
	if t, ok := c.firstStatic(nodes); ok {
		return t
	}
	return fallback
}

func (c *compiler) staticType(n *yaml.Node) (irep.Type, bool) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "true" || n.Value == "false" {
			return irep.BoolType, true
		}
		if sym, ok := c.scenario.Symbols.Get(n.Value); ok {
			return sym.Typ, true
		}
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return irep.Type{}, false
		}
		key := n.Content[0].Value
		if key == "not" {
			return irep.BoolType, true
		}
		if key == "if" {
			if args, err := operands(n.Content[1], 3, key); err == nil {
				return c.firstStatic(args[1:])
			}
			return irep.Type{}, false
		}
		if op, ok := irep.LookupBinaryOp(key); ok {
			if op.IsCompare() || op.IsLogical() {
				return irep.BoolType, true
			}
			if args, err := operands(n.Content[1], 2, key); err == nil {
				return c.firstStatic(args)
			}
		}
	}
	return irep.Type{}, false
}

func (c *compiler) firstStatic(nodes []*yaml.Node) (irep.Type, bool) {
	for _, n := range nodes {
		if t, ok := c.staticType(n); ok {
			return t, true
		}
	}
	return irep.Type{}, false
}

func operands(n *yaml.Node, want int, op string) ([]*yaml.Node, error) {
	if n.Kind != yaml.SequenceNode || len(n.Content) != want {
		return nil, errors.Wrapf(errors.Errorf("%s expects %d operands", op, want), "line %d", n.Line)
	}
	return n.Content, nil
}
