package renaming

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/speakeasy-api/symrename/irep"
	"github.com/speakeasy-api/symrename/pkg/logging"
)

// FrameLevel is renaming level 1. It tags each local variable reference
// with the call-frame instance currently installed for it, so recursive
// invocations of one lexical variable get private identities.
type FrameLevel struct {
	current map[FrameKey]uint32
	thread  uint32
}

// NewFrameLevel creates an empty frame table for the given modeled thread.
func NewFrameLevel(thread uint32) *FrameLevel {
	return &FrameLevel{
		current: make(map[FrameKey]uint32),
		thread:  thread,
	}
}

// Thread returns the thread number references are tagged with.
func (l *FrameLevel) Thread() uint32 { return l.thread }

// Len returns the number of installed variables.
func (l *FrameLevel) Len() int { return len(l.current) }

// Rename qualifies every level 0 reference in e with its installed frame
// and the level's thread. Globals become level1_global without a lookup.
// References already at a higher level are left alone. Renaming an
// unregistered local is a contract violation.
func (l *FrameLevel) Rename(e irep.Expr) irep.Expr {
	return irep.MapSymbols(e, l.renameSymbol)
}

func (l *FrameLevel) renameSymbol(sym *irep.Symbol) irep.Expr {
	if sym.Level != irep.Level0 {
		return sym
	}
	out := sym.Clone()
	if sym.Global {
		out.Level = irep.Level1Global
		return out
	}
	frame, ok := l.current[NewFrameKey(sym)]
	if !ok {
		violate("FrameLevel.Rename", sym.Ident, "no frame installed for local variable")
	}
	out.Level = irep.Level1
	out.Frame = frame
	out.Thread = l.thread
	return out
}

// Install records that sym now lives in call frame `frame`. Frame numbers
// for a key never decrease; installing a smaller one is a contract violation.
func (l *FrameLevel) Install(sym *irep.Symbol, frame uint32) {
	key := NewFrameKey(sym)
	if cur, ok := l.current[key]; ok && frame < cur {
		violate("FrameLevel.Install", sym.Ident, "frame %d is below current frame %d", frame, cur)
	}
	l.current[key] = frame
}

// Remove erases sym's entry. Absent keys are ignored.
func (l *FrameLevel) Remove(sym *irep.Symbol) {
	delete(l.current, NewFrameKey(sym))
}

// GetOriginalName strips frame qualification from every reference in e.
// The bool reports whether anything was rewritten.
func (l *FrameLevel) GetOriginalName(e irep.Expr) (irep.Expr, bool) {
	return OriginalName(e, irep.Level0)
}

// CurrentNumber returns the installed frame for a base name, 0 if none.
func (l *FrameLevel) CurrentNumber(name irep.Name) uint32 {
	return l.current[FrameKeyOf(name)]
}

// Installed reports whether a frame is installed for a base name.
func (l *FrameLevel) Installed(name irep.Name) bool {
	_, ok := l.current[FrameKeyOf(name)]
	return ok
}

// IdentName returns the level 1 identifier text of sym.
func (l *FrameLevel) IdentName(sym *irep.Symbol) string {
	return l.Rename(sym).String()
}

// Clone returns an independent copy.
func (l *FrameLevel) Clone() *FrameLevel {
	return &FrameLevel{
		current: maps.Clone(l.current),
		thread:  l.thread,
	}
}

func (l *FrameLevel) sortedKeys() []FrameKey {
	keys := slices.Collect(maps.Keys(l.current))
	slices.SortFunc(keys, FrameKey.Compare)
	return keys
}

// Print writes one "key frame" line per entry in key order. names, if
// non-nil, is used to print identifiers instead of ordinals.
func (l *FrameLevel) Print(w io.Writer, names *irep.Interner) error {
	for _, k := range l.sortedKeys() {
		label := k.String()
		if names != nil {
			label = names.Lookup(k.base)
		}
		if _, err := fmt.Fprintf(w, "%s @%d !%d\n", label, l.current[k], l.thread); err != nil {
			return err
		}
	}
	return nil
}

// Dump logs the table at debug level.
func (l *FrameLevel) Dump(logger logging.Logger) {
	if !logger.IsEnabled(logging.LevelDebug) {
		return
	}
	for _, k := range l.sortedKeys() {
		logger.With(map[string]any{
			"key":    k,
			"frame":  l.current[k],
			"thread": l.thread,
		}).Debugf("level1 entry")
	}
}
