package searcher

// CandidateHeap is a bounded max-heap of Candidates ordered worst-first, so
// the top element is the eviction candidate. It collects the best k entries
// of a stream in O(n log k).
type CandidateHeap struct {
	items []Candidate
}

// NewCandidateHeap creates a heap with the given initial capacity.
func NewCandidateHeap(capacity int) *CandidateHeap {
	return &CandidateHeap{items: make([]Candidate, 0, capacity)}
}

// Reset clears the heap for reuse.
func (h *CandidateHeap) Reset() {
	h.items = h.items[:0]
}

// Len returns the number of elements in the heap.
func (h *CandidateHeap) Len() int {
	return len(h.items)
}

// PushBounded offers c to a heap bounded at capacity. When full, c replaces
// the worst element only if it ranks better.
func (h *CandidateHeap) PushBounded(c Candidate, capacity int) {
	if len(h.items) < capacity {
		h.items = append(h.items, c)
		h.up(len(h.items) - 1)
		return
	}
	if capacity == 0 || !Better(c, h.items[0]) {
		return
	}
	h.items[0] = c
	h.down(0)
}

// Drain empties the heap into dst in ascending (distance, id) order.
func (h *CandidateHeap) Drain(dst []Candidate) []Candidate {
	start := len(dst)
	for len(h.items) > 0 {
		n := len(h.items) - 1
		h.items[0], h.items[n] = h.items[n], h.items[0]
		worst := h.items[n]
		h.items = h.items[:n]
		if len(h.items) > 0 {
			h.down(0)
		}
		dst = append(dst, worst)
	}
	// The heap pops worst-first; reverse into ascending order.
	for i, j := start, len(dst)-1; i < j; i, j = i+1, j-1 {
		dst[i], dst[j] = dst[j], dst[i]
	}
	return dst
}

// worse is the heap order: the root is the worst-ranked candidate.
func worse(a, b Candidate) bool {
	return Better(b, a)
}

func (h *CandidateHeap) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !worse(h.items[j], h.items[i]) {
			break
		}
		h.items[i], h.items[j] = h.items[j], h.items[i]
		j = i
	}
}

func (h *CandidateHeap) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && worse(h.items[right], h.items[left]) {
			child = right
		}
		if !worse(h.items[child], h.items[i]) {
			break
		}
		h.items[i], h.items[child] = h.items[child], h.items[i]
		i = child
	}
}
