package renaming

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// Fingerprint hashes the SSA table: every live key in order with its
// version and write id. Two levels with equal fingerprints renamed the
// same identities to the same versions. Cached constants are excluded;
// they are a function of the write.
func (l *SSALevel) Fingerprint() uint64 {
	h := sha256.New()
	l.WriteFingerprint(h)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// WriteFingerprint feeds the table into h, for callers combining several
// components into one state hash.
func (l *SSALevel) WriteFingerprint(h hash.Hash) {
	binary.Write(h, binary.LittleEndian, uint64(l.names.Len()))
	l.walk(func(ent *entry) bool {
		h.Write(ent.key.bytes())
		binary.Write(h, binary.LittleEndian, ent.slot.Version)
		binary.Write(h, binary.LittleEndian, ent.slot.NodeID)
		return false
	})
}

// Fingerprint hashes the frame table in key order.
func (l *FrameLevel) Fingerprint() uint64 {
	h := sha256.New()
	l.WriteFingerprint(h)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// WriteFingerprint feeds the table into h.
func (l *FrameLevel) WriteFingerprint(h hash.Hash) {
	binary.Write(h, binary.LittleEndian, l.thread)
	keys := l.sortedKeys()
	binary.Write(h, binary.LittleEndian, uint64(len(keys)))
	for _, k := range keys {
		binary.Write(h, binary.LittleEndian, uint32(k.base))
		binary.Write(h, binary.LittleEndian, l.current[k])
	}
}
