package searcher

import "sort"

type frontierEntry struct {
	id       uint32
	dist     float32
	expanded bool
}

// Frontier is the bounded ordered candidate sequence used by greedy search.
// Entries are kept ascending by (distance, id). Deduplication is the caller's
// job via the VisitedSet: an id is inserted at most once because it is marked
// visited on first insert.
//
// Frontier is not thread-safe; it is owned by a single query for its duration.
type Frontier struct {
	entries []frontierEntry

	// scanFrom is the lowest position that may hold an unexpanded entry.
	// Everything before it has been expanded.
	scanFrom int
}

// NewFrontier creates a frontier with capacity for a beam of the given size.
func NewFrontier(capacity int) *Frontier {
	return &Frontier{
		entries: make([]frontierEntry, 0, capacity+1),
	}
}

// Reset clears the frontier for reuse, preserving capacity.
func (f *Frontier) Reset() {
	f.entries = f.entries[:0]
	f.scanFrom = 0
}

// EnsureCapacity grows the backing array to hold a beam of the given size
// plus one in-flight insertion, so steady-state queries do not reallocate.
func (f *Frontier) EnsureCapacity(beam int) {
	if cap(f.entries) < beam+1 {
		entries := make([]frontierEntry, len(f.entries), beam+1)
		copy(entries, f.entries)
		f.entries = entries
	}
}

// Len returns the number of entries.
func (f *Frontier) Len() int {
	return len(f.entries)
}

// Insert adds (id, dist) keeping ascending (distance, id) order.
// The caller must have checked the visited set: ids are never inserted twice.
func (f *Frontier) Insert(id uint32, dist float32) {
	i := sort.Search(len(f.entries), func(j int) bool {
		e := f.entries[j]
		if e.dist != dist {
			return e.dist > dist
		}
		return e.id > id
	})

	f.entries = append(f.entries, frontierEntry{})
	copy(f.entries[i+1:], f.entries[i:])
	f.entries[i] = frontierEntry{id: id, dist: dist}

	if i < f.scanFrom {
		f.scanFrom = i
	}
}

// PopClosestUnexpanded returns the smallest-distance entry that has not yet
// had its neighbors explored and marks it expanded. ok is false when every
// entry has been expanded.
func (f *Frontier) PopClosestUnexpanded() (Candidate, bool) {
	for i := f.scanFrom; i < len(f.entries); i++ {
		e := &f.entries[i]
		if e.expanded {
			if i == f.scanFrom {
				f.scanFrom++
			}
			continue
		}
		e.expanded = true
		return Candidate{ID: e.id, Distance: e.dist}, true
	}
	return Candidate{}, false
}

// Truncate drops entries beyond position l under the ascending order.
func (f *Frontier) Truncate(l int) {
	if l < 0 {
		l = 0
	}
	if len(f.entries) > l {
		f.entries = f.entries[:l]
	}
	if f.scanFrom > len(f.entries) {
		f.scanFrom = len(f.entries)
	}
}

// AppendTo appends the frontier contents, ascending by (distance, id), to dst
// and returns it.
func (f *Frontier) AppendTo(dst []Candidate) []Candidate {
	for _, e := range f.entries {
		dst = append(dst, Candidate{ID: e.id, Distance: e.dist})
	}
	return dst
}

// At returns the i-th entry in ascending order. Panics if out of range.
func (f *Frontier) At(i int) Candidate {
	e := f.entries[i]
	return Candidate{ID: e.id, Distance: e.dist}
}
