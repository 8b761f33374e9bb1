package renaming

import "github.com/speakeasy-api/symrename/irep"

// Level is the closed set of renaming levels: *FrameLevel and *SSALevel.
// Callers dispatch with a type switch; the helpers below do so exhaustively.
type Level interface {
	isLevel()
}

func (*FrameLevel) isLevel() {}
func (*SSALevel) isLevel()   {}

// Rename applies one level's renaming to e.
func Rename(l Level, e irep.Expr) irep.Expr {
	switch l := l.(type) {
	case *FrameLevel:
		return l.Rename(e)
	case *SSALevel:
		return l.Rename(e)
	default:
		panic("unreachable")
	}
}

// Peel drops the qualification added by level l.
func Peel(l Level, e irep.Expr) (irep.Expr, bool) {
	switch l := l.(type) {
	case *FrameLevel:
		return l.GetOriginalName(e)
	case *SSALevel:
		return l.GetOriginalName(e)
	default:
		panic("unreachable")
	}
}

// RemoveSymbol erases sym from level l.
func RemoveSymbol(l Level, sym *irep.Symbol) {
	switch l := l.(type) {
	case *FrameLevel:
		l.Remove(sym)
	case *SSALevel:
		l.Remove(sym)
	default:
		panic("unreachable")
	}
}

// Target returns the symbol level that l renames local references to.
func Target(l Level) irep.Level {
	switch l.(type) {
	case *FrameLevel:
		return irep.Level1
	case *SSALevel:
		return irep.Level2
	default:
		panic("unreachable")
	}
}

// RenameAll runs frame renaming then SSA renaming, producing fully
// qualified references.
func RenameAll(e irep.Expr, frames *FrameLevel, ssa *SSALevel) irep.Expr {
	return ssa.Rename(frames.Rename(e))
}

// OriginalName lowers every reference in e that sits above `to`:
//
//	to == Level0: any renamed reference becomes level 0 with frame, thread,
//	              node and version cleared.
//	to == Level1: level2 becomes level1, level2_global becomes
//	              level1_global, with node and version cleared.
//
// The bool reports whether anything was rewritten.
func OriginalName(e irep.Expr, to irep.Level) (irep.Expr, bool) {
	changed := false
	out := irep.MapSymbols(e, func(sym *irep.Symbol) irep.Expr {
		var lowered *irep.Symbol
		switch to {
		case irep.Level0:
			if sym.Level == irep.Level0 {
				return sym
			}
			lowered = sym.Clone()
			lowered.Level = irep.Level0
			lowered.Frame, lowered.Thread = 0, 0
		case irep.Level1:
			switch sym.Level {
			case irep.Level2:
				lowered = sym.Clone()
				lowered.Level = irep.Level1
			case irep.Level2Global:
				lowered = sym.Clone()
				lowered.Level = irep.Level1Global
			default:
				return sym
			}
		default:
			violate("OriginalName", sym.String(), "cannot peel to %s", to)
		}
		lowered.Node, lowered.Version = 0, 0
		changed = true
		return lowered
	})
	return out, changed
}
