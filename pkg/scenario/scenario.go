// Package scenario loads YAML program descriptions for the path explorer.
//
// A scenario declares typed symbols, optional explorer options, and a list
// of instructions. Labels name the pc of the instruction that follows them
// and may be used as jump, branch and call targets:
//
//	options:
//	  constantPropagation: true
//	symbols:
//	  x: int32
//	  c: bool
//	  g: {type: int32, global: true}
//	program:
//	  - decl: x
//	  - assign: [x, 5]
//	  - branch: {cond: c, else: merge}
//	  - assign: [x, {add: [x, 2]}]
//	  - label: merge
//	  - join
//	  - read: x
package scenario

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/symrename"
	"github.com/speakeasy-api/symrename/irep"
	"github.com/speakeasy-api/symrename/symex"
)

// Scenario is a compiled scenario file.
type Scenario struct {
	Name    string
	Options symex.Options
	Symbols *sequencedmap.Map[string, *irep.Symbol] // declaration order
	Labels  map[string]int
	Program *symrename.Program
}

type symbolDecl struct {
	Type   string `yaml:"type"`
	Global bool   `yaml:"global"`
}

// LoadFile reads and compiles the scenario at path.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open scenario")
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return s, nil
}

// Load reads and compiles one scenario document.
func Load(r io.Reader) (*Scenario, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, errors.Wrap(err, "parse scenario")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty scenario")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nodeErrorf(root, "scenario must be a mapping")
	}

	s := &Scenario{
		Options: symex.DefaultOptions(),
		Symbols: sequencedmap.New[string, *irep.Symbol](),
		Labels:  make(map[string]int),
	}
	c := &compiler{
		scenario: s,
		builder:  symrename.NewBuilder(nil),
	}

	var program *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "name":
			s.Name = value.Value
		case "options":
			opts, err := decodeOptions(value)
			if err != nil {
				return nil, err
			}
			s.Options = opts
		case "symbols":
			if err := c.declare(value); err != nil {
				return nil, err
			}
		case "program":
			program = value
		default:
			return nil, nodeErrorf(key, "unknown section %q", key.Value)
		}
	}
	if program == nil {
		return nil, errors.New("scenario has no program section")
	}
	if err := c.compile(program); err != nil {
		return nil, err
	}
	p, err := c.builder.Build()
	if err != nil {
		return nil, errors.Wrap(err, "program")
	}
	s.Program = p
	return s, nil
}

// decodeOptions applies an options block over the defaults through
// symex.LoadOptions, so unknown keys are rejected here too.
func decodeOptions(n *yaml.Node) (symex.Options, error) {
	if n.Kind != yaml.MappingNode {
		return symex.Options{}, nodeErrorf(n, "options must be a mapping")
	}
	raw, err := yaml.Marshal(n)
	if err != nil {
		return symex.Options{}, errors.Wrapf(err, "line %d: options", n.Line)
	}
	opts, err := symex.LoadOptions(bytes.NewReader(raw))
	if err != nil {
		return symex.Options{}, errors.Wrapf(err, "line %d: options", n.Line)
	}
	return opts, nil
}

type compiler struct {
	scenario *Scenario
	builder  *symrename.Builder
}

func (c *compiler) declare(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return nodeErrorf(n, "symbols must be a mapping")
	}
	names := c.builder.Names()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if _, ok := c.scenario.Symbols.Get(key.Value); ok {
			return nodeErrorf(key, "symbol %q declared twice", key.Value)
		}
		var decl symbolDecl
		switch value.Kind {
		case yaml.ScalarNode:
			decl.Type = value.Value
		case yaml.MappingNode:
			if err := value.Decode(&decl); err != nil {
				return errors.Wrapf(err, "line %d: symbol %q", value.Line, key.Value)
			}
		default:
			return nodeErrorf(value, "symbol %q: expected a type or a mapping", key.Value)
		}
		typ, err := irep.ParseType(decl.Type)
		if err != nil {
			return errors.Wrapf(err, "line %d: symbol %q", value.Line, key.Value)
		}
		sym := names.Symbol(key.Value, typ)
		sym.Global = decl.Global
		c.scenario.Symbols.Set(key.Value, sym)
	}
	return nil
}

// compile runs two passes: labels first, so forward references resolve,
// then instructions.
func (c *compiler) compile(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return nodeErrorf(n, "program must be a sequence")
	}
	pc := 0
	for _, item := range n.Content {
		op, value, err := splitInstruction(item)
		if err != nil {
			return err
		}
		if op != "label" {
			pc++
			continue
		}
		if value == nil || value.Kind != yaml.ScalarNode {
			return nodeErrorf(item, "label requires a name")
		}
		if _, ok := c.scenario.Labels[value.Value]; ok {
			return nodeErrorf(value, "label %q defined twice", value.Value)
		}
		c.scenario.Labels[value.Value] = pc
	}
	for _, item := range n.Content {
		op, value, _ := splitInstruction(item)
		if err := c.instruction(item, op, value); err != nil {
			return err
		}
	}
	return nil
}

// splitInstruction returns the opcode name and operand of a program item:
// either a bare scalar such as "join" or a single-key mapping.
func splitInstruction(n *yaml.Node) (string, *yaml.Node, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return "", nil, nodeErrorf(n, "instruction must have exactly one key")
		}
		return n.Content[0].Value, n.Content[1], nil
	default:
		return "", nil, nodeErrorf(n, "instruction must be a scalar or a mapping")
	}
}

func (c *compiler) instruction(item *yaml.Node, op string, v *yaml.Node) error {
	b := c.builder
	needOperand := func() error {
		if v == nil {
			return nodeErrorf(item, "%s requires an operand", op)
		}
		return nil
	}

	switch op {
	case "label":
		return nil
	case "nop":
		b.Nop()
	case "join":
		b.Join()
	case "ret":
		b.Ret()
	case "decl", "dead":
		if err := needOperand(); err != nil {
			return err
		}
		sym, err := c.symbol(v)
		if err != nil {
			return err
		}
		if op == "decl" {
			b.Decl(sym)
		} else {
			b.Dead(sym)
		}
	case "read", "assume":
		if err := needOperand(); err != nil {
			return err
		}
		hint := irep.Int(32)
		if op == "assume" {
			hint = irep.BoolType
		}
		e, err := c.expr(v, hint)
		if err != nil {
			return err
		}
		if op == "read" {
			b.Read(e)
		} else {
			b.Assume(e)
		}
	case "assign":
		if err := needOperand(); err != nil {
			return err
		}
		if v.Kind != yaml.SequenceNode || len(v.Content) != 2 {
			return nodeErrorf(v, "assign expects [lhs, rhs]")
		}
		lhs, err := c.symbol(v.Content[0])
		if err != nil {
			return err
		}
		rhs, err := c.expr(v.Content[1], lhs.Typ)
		if err != nil {
			return err
		}
		b.Assign(lhs, rhs)
	case "branch":
		if err := needOperand(); err != nil {
			return err
		}
		fields, err := mappingFields(v, "cond", "else")
		if err != nil {
			return err
		}
		cond, err := c.expr(fields["cond"], irep.BoolType)
		if err != nil {
			return err
		}
		els, err := c.target(fields["else"])
		if err != nil {
			return err
		}
		b.Branch(cond, els)
	case "jump":
		if err := needOperand(); err != nil {
			return err
		}
		target, err := c.target(v)
		if err != nil {
			return err
		}
		b.Jump(target)
	case "call":
		if err := needOperand(); err != nil {
			return err
		}
		fields, err := mappingFields(v, "target", "locals")
		if err != nil {
			return err
		}
		target, err := c.target(fields["target"])
		if err != nil {
			return err
		}
		var locals []*irep.Symbol
		if ln := fields["locals"]; ln != nil {
			if ln.Kind != yaml.SequenceNode {
				return nodeErrorf(ln, "call locals must be a sequence")
			}
			for _, l := range ln.Content {
				sym, err := c.symbol(l)
				if err != nil {
					return err
				}
				locals = append(locals, sym)
			}
		}
		b.Call(target, locals...)
	case "thread":
		if err := needOperand(); err != nil {
			return err
		}
		id, err := strconv.ParseUint(v.Value, 10, 32)
		if err != nil {
			return nodeErrorf(v, "thread id %q is not a non-negative integer", v.Value)
		}
		b.Thread(uint32(id))
	default:
		return nodeErrorf(item, "unknown instruction %q", op)
	}
	return nil
}

// target resolves a label or an absolute pc.
func (c *compiler) target(n *yaml.Node) (int, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return 0, errors.New("missing jump target")
	}
	if pc, ok := c.scenario.Labels[n.Value]; ok {
		return pc, nil
	}
	if pc, err := strconv.Atoi(n.Value); err == nil {
		return pc, nil
	}
	return 0, nodeErrorf(n, "unknown label %q", n.Value)
}

func (c *compiler) symbol(n *yaml.Node) (*irep.Symbol, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, nodeErrorf(n, "expected a symbol name")
	}
	sym, ok := c.scenario.Symbols.Get(n.Value)
	if !ok {
		return nil, nodeErrorf(n, "undeclared symbol %q", n.Value)
	}
	return sym, nil
}

// mappingFields returns the values of a mapping, rejecting keys outside allowed.
func mappingFields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nodeErrorf(n, "expected a mapping")
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		ok := false
		for _, a := range allowed {
			if key.Value == a {
				ok = true
				break
			}
		}
		if !ok {
			return nil, nodeErrorf(key, "unexpected key %q", key.Value)
		}
		out[key.Value] = n.Content[i+1]
	}
	return out, nil
}

func nodeErrorf(n *yaml.Node, format string, args ...any) error {
	return errors.Wrapf(errors.Errorf(format, args...), "line %d", n.Line)
}
