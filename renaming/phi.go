package renaming

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// GetPhiSet returns the keys whose latest write differs between two states
// that forked from a common ancestor. A key live in only one state counts
// as differing. Slots are compared by version and write id, never by their
// cached constant. The result is therefore a superset of a version-only
// comparison: it also holds keys that sibling branches each wrote to the
// same version number, since those writes carry different values.
func GetPhiSet(a, b *SSALevel) mapset.Set[SSAKey] {
	out := mapset.NewThreadUnsafeSet[SSAKey]()
	if a.names == b.names {
		return out
	}
	a.walk(func(ea *entry) bool {
		eb, ok := b.get(ea.key)
		if !ok || !sameWrite(ea.slot, eb.slot) {
			out.Add(ea.key)
		}
		return false
	})
	b.walk(func(eb *entry) bool {
		if _, ok := a.get(eb.key); !ok {
			out.Add(eb.key)
		}
		return false
	})
	return out
}

// sameWrite compares version first. Sibling paths may each allocate the
// same version number, so the write id decides when versions agree.
func sameWrite(a, b ValueSlot) bool {
	return a.Version == b.Version && a.NodeID == b.NodeID
}

// SortedKeys returns the members of set in Compare order.
func SortedKeys(set mapset.Set[SSAKey]) []SSAKey {
	keys := set.ToSlice()
	slices.SortFunc(keys, SSAKey.Compare)
	return keys
}
