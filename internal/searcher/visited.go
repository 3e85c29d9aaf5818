package searcher

import "github.com/bits-and-blooms/bitset"

// VisitedSet tracks visited node ids using a bitset and a dirty list so Reset
// costs O(visited) instead of O(capacity).
type VisitedSet struct {
	bits  *bitset.BitSet
	dirty []uint32
}

// NewVisitedSet creates a visited set sized for capacity nodes.
func NewVisitedSet(capacity int) *VisitedSet {
	if capacity < 64 {
		capacity = 64
	}
	return &VisitedSet{
		bits:  bitset.New(uint(capacity)),
		dirty: make([]uint32, 0, 128),
	}
}

// MarkVisited marks id as visited. Returns true if it was already visited.
func (v *VisitedSet) MarkVisited(id uint32) bool {
	if v.bits.Test(uint(id)) {
		return true
	}
	v.bits.Set(uint(id))
	v.dirty = append(v.dirty, id)
	return false
}

// Visited returns true if id has been visited.
func (v *VisitedSet) Visited(id uint32) bool {
	return v.bits.Test(uint(id))
}

// Reset clears the visited status for all ids visited since the last reset.
func (v *VisitedSet) Reset() {
	for _, id := range v.dirty {
		v.bits.Clear(uint(id))
	}
	v.dirty = v.dirty[:0]
}

// EnsureCapacity grows the bitset to hold at least capacity ids.
func (v *VisitedSet) EnsureCapacity(capacity int) {
	if capacity > 0 && uint(capacity) > v.bits.Len() {
		// Set then clear the top bit: bitset grows to fit.
		v.bits.Set(uint(capacity - 1))
		v.bits.Clear(uint(capacity - 1))
	}
}
