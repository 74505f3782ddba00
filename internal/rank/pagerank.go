// Package rank computes PageRank over the symbol graph.
package rank

// Damping and iteration count for the power method.
const (
	damping    = 0.85
	iterations = 20
)

// Score is the PageRank result for one symbol.
type Score struct {
	ID        int64
	Rank      float64
	InDegree  int
	OutDegree int
}

// Compute runs 20 power iterations with uniform dangling-node
// redistribution over the graph given as symbol ids and directed
// (from, to) edges. Edges whose endpoints are not in ids are dropped.
// The returned ranks sum to 1 within floating-point error; no explicit
// normalization is needed.
func Compute(ids []int64, edges [][2]int64) []Score {
	n := len(ids)
	if n == 0 {
		return nil
	}

	index := make(map[int64]int, n)
	for i, id := range ids {
		index[id] = i
	}

	out := make([][]int, n)
	inDegree := make([]int, n)
	for _, e := range edges {
		from, ok := index[e[0]]
		if !ok {
			continue
		}
		to, ok := index[e[1]]
		if !ok {
			continue
		}
		out[from] = append(out[from], to)
		inDegree[to]++
	}

	rank := make([]float64, n)
	next := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	base := (1 - damping) / float64(n)
	for iter := 0; iter < iterations; iter++ {
		for i := range next {
			next[i] = base
		}
		var dangling float64
		for i := 0; i < n; i++ {
			if len(out[i]) == 0 {
				dangling += rank[i]
				continue
			}
			share := damping * rank[i] / float64(len(out[i]))
			for _, j := range out[i] {
				next[j] += share
			}
		}
		// Dangling mass is spread uniformly so the vector stays
		// stochastic.
		if dangling > 0 {
			share := damping * dangling / float64(n)
			for i := range next {
				next[i] += share
			}
		}
		rank, next = next, rank
	}

	scores := make([]Score, n)
	for i, id := range ids {
		scores[i] = Score{
			ID:        id,
			Rank:      rank[i],
			InDegree:  inDegree[i],
			OutDegree: len(out[i]),
		}
	}
	return scores
}
