package renaming

import (
	"fmt"
	"io"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	iradix "github.com/hashicorp/go-immutable-radix/v2"

	"github.com/speakeasy-api/symrename/irep"
	"github.com/speakeasy-api/symrename/pkg/logging"
)

// ValueSlot is the SSA table entry of one key.
type ValueSlot struct {
	Version  uint32    // current version; 0 means never written
	Constant irep.Expr // cached literal value of this version, or nil
	NodeID   uint32    // id of the write that produced this version
}

// entry is stored in the tree. Entries are shared between clones and
// must never be mutated after insertion.
type entry struct {
	key  SSAKey
	sym  *irep.Symbol // level 1 identity the slot belongs to
	slot ValueSlot
}

// nodeAllocator hands out write ids. It is shared by every clone of one
// root SSALevel so sibling paths never mint the same identity.
type nodeAllocator struct {
	last atomic.Uint32
}

func (a *nodeAllocator) next() uint32 { return a.last.Add(1) }

// SSAOptions configures an SSALevel.
type SSAOptions struct {
	// ConstantPropagation makes Rename substitute a slot's cached constant
	// for the versioned reference.
	ConstantPropagation bool
}

// SSALevel is renaming level 2. It tracks the current version of every
// level 1 identity on one path. The table is a persistent radix tree, so
// Clone is O(1) and clones never observe each other's writes.
type SSALevel struct {
	names *iradix.Tree[*entry]
	nodes *nodeAllocator
	opts  SSAOptions
}

// NewSSALevel creates an empty SSA table.
func NewSSALevel(opts ...SSAOptions) *SSALevel {
	opt := SSAOptions{}
	if len(opts) > 0 {
		opt = opts[0]
	}
	return &SSALevel{
		names: iradix.New[*entry](),
		nodes: &nodeAllocator{},
		opts:  opt,
	}
}

// Len returns the number of live keys.
func (l *SSALevel) Len() int { return l.names.Len() }

func (l *SSALevel) get(key SSAKey) (*entry, bool) {
	return l.names.Get(key.bytes())
}

// Rename replaces every level 1 reference in e by its current version.
// Keys never written read as version 0. With constant propagation on, a
// cached constant is substituted instead. Level 0 references are a
// contract violation: they must go through FrameLevel first.
func (l *SSALevel) Rename(e irep.Expr) irep.Expr {
	return irep.MapSymbols(e, l.renameSymbol)
}

func (l *SSALevel) renameSymbol(sym *irep.Symbol) irep.Expr {
	switch sym.Level {
	case irep.Level2, irep.Level2Global:
		return sym
	case irep.Level0:
		violate("SSALevel.Rename", sym.Ident, "symbol has not been renamed at level 1")
	}
	var slot ValueSlot
	if ent, ok := l.get(NewSSAKey(sym)); ok {
		slot = ent.slot
	}
	if l.opts.ConstantPropagation && slot.Constant != nil {
		return slot.Constant
	}
	return l.qualify(sym, slot.Version, slot.NodeID)
}

func (l *SSALevel) qualify(sym *irep.Symbol, version, node uint32) *irep.Symbol {
	out := sym.Clone()
	if sym.Level == irep.Level1Global {
		out.Level = irep.Level2Global
	} else {
		out.Level = irep.Level2
	}
	out.Version = version
	out.Node = node
	return out
}

// MakeAssignment allocates version current+1 for lhs, caches a literal
// value for it when one is known, and returns the renamed lhs. The cached
// value is the simplified `constant` if it is a literal, else the
// simplified `assigned` if that is a literal, else nothing.
func (l *SSALevel) MakeAssignment(lhs *irep.Symbol, constant, assigned irep.Expr) *irep.Symbol {
	switch lhs.Level {
	case irep.Level1, irep.Level1Global:
	default:
		violate("SSALevel.MakeAssignment", lhs.String(), "assignment target must be a level 1 reference, got %s", lhs.Level)
	}
	key := NewSSAKey(lhs)
	var cur uint32
	if ent, ok := l.get(key); ok {
		cur = ent.slot.Version
	}
	ent := &entry{
		key: key,
		sym: lhs,
		slot: ValueSlot{
			Version:  cur + 1,
			Constant: literalOf(constant, assigned),
			NodeID:   l.nodes.next(),
		},
	}
	l.names, _, _ = l.names.Insert(key.bytes(), ent)
	return l.qualify(lhs, ent.slot.Version, ent.slot.NodeID)
}

func literalOf(candidates ...irep.Expr) irep.Expr {
	for _, e := range candidates {
		if e == nil {
			continue
		}
		if c, ok := irep.Simplify(e).(*irep.Constant); ok {
			return c
		}
	}
	return nil
}

// RenameTo qualifies a level 1 reference with a caller-chosen version
// without touching the table. The node id is taken from the table when
// version is the current one, and is 0 otherwise.
func (l *SSALevel) RenameTo(sym *irep.Symbol, version uint32) *irep.Symbol {
	if sym.Level != irep.Level1 && sym.Level != irep.Level1Global {
		violate("SSALevel.RenameTo", sym.String(), "expected a level 1 reference, got %s", sym.Level)
	}
	var node uint32
	if ent, ok := l.get(NewSSAKey(sym)); ok && ent.slot.Version == version {
		node = ent.slot.NodeID
	}
	return l.qualify(sym, version, node)
}

// Remove erases the slot of sym. Absent keys are ignored.
func (l *SSALevel) Remove(sym *irep.Symbol) {
	l.RemoveKey(NewSSAKey(sym))
}

// RemoveKey erases a slot. Absent keys are ignored.
func (l *SSALevel) RemoveKey(key SSAKey) {
	l.names, _, _ = l.names.Delete(key.bytes())
}

// GetOriginalName strips version qualification from every reference in e,
// recovering the level 1 identities. The bool reports whether anything was
// rewritten.
func (l *SSALevel) GetOriginalName(e irep.Expr) (irep.Expr, bool) {
	return OriginalName(e, irep.Level1)
}

// CurrentNumber returns the current version of sym, 0 if never written.
func (l *SSALevel) CurrentNumber(sym *irep.Symbol) uint32 {
	return l.CurrentNumberKey(NewSSAKey(sym))
}

// CurrentNumberKey returns the current version of key, 0 if never written.
func (l *SSALevel) CurrentNumberKey(key SSAKey) uint32 {
	if ent, ok := l.get(key); ok {
		return ent.slot.Version
	}
	return 0
}

// Slot returns the slot of key.
func (l *SSALevel) Slot(key SSAKey) (ValueSlot, bool) {
	if ent, ok := l.get(key); ok {
		return ent.slot, true
	}
	return ValueSlot{}, false
}

// Symbol returns the level 1 reference the slot of key was written through.
func (l *SSALevel) Symbol(key SSAKey) (*irep.Symbol, bool) {
	if ent, ok := l.get(key); ok {
		return ent.sym, true
	}
	return nil, false
}

// NodeMark returns the most recent write id handed out by this level's
// allocator. Pair it with WrittenSince to detect writes after a checkpoint.
func (l *SSALevel) NodeMark() uint32 { return l.nodes.last.Load() }

// WrittenSince reports whether key has been written after the write with
// id mark.
func (l *SSALevel) WrittenSince(key SSAKey, mark uint32) bool {
	ent, ok := l.get(key)
	return ok && ent.slot.NodeID > mark
}

// GetVariables adds every live key to out.
func (l *SSALevel) GetVariables(out mapset.Set[SSAKey]) {
	l.walk(func(ent *entry) bool {
		out.Add(ent.key)
		return false
	})
}

// Variables returns the live keys in Compare order.
func (l *SSALevel) Variables() []SSAKey {
	keys := make([]SSAKey, 0, l.names.Len())
	l.walk(func(ent *entry) bool {
		keys = append(keys, ent.key)
		return false
	})
	return keys
}

// walk visits entries in key order until fn returns true.
func (l *SSALevel) walk(fn func(*entry) bool) {
	l.names.Root().Walk(func(_ []byte, ent *entry) bool {
		return fn(ent)
	})
}

// Clone returns an independent copy in O(1). The write-id allocator stays
// shared with the source.
func (l *SSALevel) Clone() *SSALevel {
	return &SSALevel{
		names: l.names,
		nodes: l.nodes,
		opts:  l.opts,
	}
}

// IdentName returns the level 2 identifier text of a level 1 reference.
func (l *SSALevel) IdentName(sym *irep.Symbol) string {
	var slot ValueSlot
	if ent, ok := l.get(NewSSAKey(sym)); ok {
		slot = ent.slot
	}
	return l.qualify(sym, slot.Version, slot.NodeID).String()
}

// Print writes one line per slot in key order.
func (l *SSALevel) Print(w io.Writer) error {
	var err error
	l.walk(func(ent *entry) bool {
		line := l.qualify(ent.sym, ent.slot.Version, ent.slot.NodeID).String()
		if ent.slot.Constant != nil {
			line += " = " + ent.slot.Constant.String()
		}
		_, err = fmt.Fprintln(w, line)
		return err != nil
	})
	return err
}

// Dump logs the table at debug level.
func (l *SSALevel) Dump(logger logging.Logger) {
	if !logger.IsEnabled(logging.LevelDebug) {
		return
	}
	l.walk(func(ent *entry) bool {
		fields := map[string]any{
			"key":     ent.key,
			"version": ent.slot.Version,
			"node":    ent.slot.NodeID,
		}
		if ent.slot.Constant != nil {
			fields["constant"] = ent.slot.Constant.String()
		}
		logger.With(fields).Debugf("level2 entry %s", ent.sym)
		return false
	})
}
