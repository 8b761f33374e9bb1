// Package renaming implements the two renaming levels of the symbolic
// executor: frame renaming (level 1), which separates recursive
// invocations of the same lexical variable, and SSA renaming (level 2),
// which versions every write and partitions identities per modeled
// thread. It also computes the phi set of two diverged SSA states.
package renaming

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/speakeasy-api/symrename/irep"
)

// FrameKey identifies a variable in the frame table by base name only.
type FrameKey struct {
	base irep.Name
}

// NewFrameKey returns the frame key of a symbol reference.
func NewFrameKey(sym *irep.Symbol) FrameKey {
	return FrameKey{base: sym.Name}
}

// FrameKeyOf returns the frame key of a raw base name.
func FrameKeyOf(name irep.Name) FrameKey {
	return FrameKey{base: name}
}

// Base returns the interned base name.
func (k FrameKey) Base() irep.Name { return k.base }

// Hash is the base name ordinal.
func (k FrameKey) Hash() uint64 { return uint64(k.base) }

// Compare returns -1, 0 or 1.
func (k FrameKey) Compare(o FrameKey) int {
	switch {
	case k.base < o.base:
		return -1
	case k.base > o.base:
		return 1
	}
	return 0
}

// Less reports whether k orders before o.
func (k FrameKey) Less(o FrameKey) bool { return k.Compare(o) < 0 }

func (k FrameKey) String() string { return fmt.Sprintf("name#%d", k.base) }

// SSAKey identifies a variable in the SSA table: base name, renaming
// level, frame instance and thread. The hash is computed once from the
// four fields at construction. Keys are comparable with ==, and == agrees
// with Compare because the hash is a pure function of the fields.
type SSAKey struct {
	hash   uint64
	base   irep.Name
	level  irep.Level
	frame  uint32
	thread uint32
}

// NewSSAKey returns the SSA key of a symbol reference. A level 2 reference
// maps to the key of the level 1 identity beneath it.
func NewSSAKey(sym *irep.Symbol) SSAKey {
	return MakeSSAKey(sym.Name, keyLevel(sym.Level), sym.Frame, sym.Thread)
}

// MakeSSAKey builds a key from its fields.
func MakeSSAKey(base irep.Name, level irep.Level, frame, thread uint32) SSAKey {
	k := SSAKey{base: base, level: level, frame: frame, thread: thread}
	k.hash = k.computeHash()
	return k
}

func keyLevel(l irep.Level) irep.Level {
	switch l {
	case irep.Level2:
		return irep.Level1
	case irep.Level2Global:
		return irep.Level1Global
	}
	return l
}

// computeHash is FNV-1a over the fields in a fixed order.
func (k SSAKey) computeHash() uint64 {
	var buf [13]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(k.base))
	buf[4] = byte(k.level)
	binary.LittleEndian.PutUint32(buf[5:9], k.frame)
	binary.LittleEndian.PutUint32(buf[9:13], k.thread)
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// Base returns the interned base name.
func (k SSAKey) Base() irep.Name { return k.base }

// Level returns the renaming level tag.
func (k SSAKey) Level() irep.Level { return k.level }

// Frame returns the frame instance number.
func (k SSAKey) Frame() uint32 { return k.frame }

// Thread returns the modeled thread number.
func (k SSAKey) Thread() uint32 { return k.thread }

// Hash returns the precomputed hash.
func (k SSAKey) Hash() uint64 { return k.hash }

// Compare orders by hash first, then lexicographically by base, level,
// frame and thread. Returns -1, 0 or 1.
func (k SSAKey) Compare(o SSAKey) int {
	if k.hash != o.hash {
		return cmp3(k.hash < o.hash)
	}
	if k.base != o.base {
		return cmp3(k.base < o.base)
	}
	if k.level != o.level {
		return cmp3(k.level < o.level)
	}
	if k.frame != o.frame {
		return cmp3(k.frame < o.frame)
	}
	if k.thread != o.thread {
		return cmp3(k.thread < o.thread)
	}
	return 0
}

func cmp3(less bool) int {
	if less {
		return -1
	}
	return 1
}

// Less reports whether k orders before o.
func (k SSAKey) Less(o SSAKey) bool { return k.Compare(o) < 0 }

// Equal reports whether all four fields match.
func (k SSAKey) Equal(o SSAKey) bool { return k.Compare(o) == 0 }

// bytes encodes k big-endian in Compare order, so byte-wise ordering of
// encoded keys matches Compare.
func (k SSAKey) bytes() []byte {
	buf := make([]byte, 21)
	binary.BigEndian.PutUint64(buf[0:8], k.hash)
	binary.BigEndian.PutUint32(buf[8:12], uint32(k.base))
	buf[12] = byte(k.level)
	binary.BigEndian.PutUint32(buf[13:17], k.frame)
	binary.BigEndian.PutUint32(buf[17:21], k.thread)
	return buf
}

func (k SSAKey) String() string {
	return fmt.Sprintf("name#%d/%s/frame=%d/thread=%d", k.base, k.level, k.frame, k.thread)
}
