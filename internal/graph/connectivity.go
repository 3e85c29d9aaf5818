package graph

import "github.com/RoaringBitmap/roaring/v2"

// ReachableFromMedoid returns the number of nodes reachable from the medoid
// by directed BFS, the medoid included.
func (g *Graph) ReachableFromMedoid() int {
	if g.n == 0 {
		return 0
	}

	seen := roaring.New()
	seen.Add(g.medoid)

	queue := make([]uint32, 0, 1024)
	queue = append(queue, g.medoid)

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.Neighbors(v) {
			if seen.CheckedAdd(w) {
				queue = append(queue, w)
			}
		}
	}

	return int(seen.GetCardinality())
}

// DegreeStats returns the maximum and mean out-degree.
func (g *Graph) DegreeStats() (maxDeg int, avgDeg float64) {
	if g.n == 0 {
		return 0, 0
	}

	total := 0
	for v := 0; v < g.n; v++ {
		d := g.Degree(uint32(v))
		total += d
		if d > maxDeg {
			maxDeg = d
		}
	}
	return maxDeg, float64(total) / float64(g.n)
}
