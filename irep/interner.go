package irep

import "sync"

// Name is the interned ordinal of an identifier. Renaming keys hash and
// order on it rather than on the identifier text.
type Name uint32

// NoName marks the absence of an interned identifier.
const NoName Name = 0

// IsValid reports whether the name was produced by an Interner.
func (n Name) IsValid() bool { return n != NoName }

// Interner maps identifiers to stable Names. Names are assigned
// sequentially starting at 1. Safe for concurrent use.
type Interner struct {
	mu  sync.Mutex
	ids map[string]Name
	rev []string
}

// NewInterner creates an empty Interner.
func NewInterner() *Interner {
	return &Interner{
		ids: make(map[string]Name),
		rev: []string{""}, // slot for NoName
	}
}

// Intern returns the Name for ident, creating a new one if ident has not been seen.
func (in *Interner) Intern(ident string) Name {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.ids[ident]; ok {
		return id
	}
	id := Name(len(in.rev))
	in.rev = append(in.rev, ident)
	in.ids[ident] = id
	return id
}

// Lookup returns the identifier for name. Panics if name was not interned here.
func (in *Interner) Lookup(name Name) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !name.IsValid() || int(name) >= len(in.rev) {
		panic("irep: Name out of range")
	}
	return in.rev[name]
}

// Len returns the number of interned identifiers.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.rev) - 1
}

// Symbol interns ident and returns a level 0 reference to it.
func (in *Interner) Symbol(ident string, typ Type) *Symbol {
	return NewSymbol(in.Intern(ident), ident, typ)
}

// Global interns ident and returns a level 0 reference flagged global.
func (in *Interner) Global(ident string, typ Type) *Symbol {
	s := in.Symbol(ident, typ)
	s.Global = true
	return s
}
