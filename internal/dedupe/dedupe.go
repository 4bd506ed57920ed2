package dedupe

import "fmt"

const (
	DefaultThreshold = 0.92
	DefaultNeighbors = 5
	DefaultMaxKeys   = 200
)

// Pair records that item J is a near-duplicate of the earlier item I.
type Pair struct {
	I   int     `json:"i"`
	J   int     `json:"j"`
	Sim float32 `json:"sim"`
}

// FindPairs searches each vector's nearest neighbours and returns every
// (i, j) with j > i whose similarity reaches threshold. Pairs come out in i
// order, then by hit rank. An item that is itself a duplicate still anchors
// pairs with later items.
func FindPairs(vectors [][]float32, threshold float32, neighbors int) ([]Pair, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	if neighbors <= 0 {
		neighbors = DefaultNeighbors
	}
	idx := NewIndex(len(vectors[0]))
	if err := idx.Add(vectors...); err != nil {
		return nil, err
	}

	var pairs []Pair
	for i, v := range vectors {
		hits, err := idx.Search(v, neighbors+1)
		if err != nil {
			return nil, fmt.Errorf("dedupe: search %d: %w", i, err)
		}
		hits = dropSelf(hits, i, neighbors)
		for _, h := range hits {
			if h.ID <= i || h.Score < threshold {
				continue
			}
			pairs = append(pairs, Pair{I: i, J: h.ID, Sim: h.Score})
		}
	}
	return pairs, nil
}

func dropSelf(hits []Hit, self, neighbors int) []Hit {
	out := hits[:0:0]
	for _, h := range hits {
		if h.ID == self {
			continue
		}
		out = append(out, h)
	}
	if len(out) > neighbors {
		out = out[:neighbors]
	}
	return out
}

// KeepIndices returns, in order, every index in [0, n) that is never the J of
// a pair.
func KeepIndices(n int, pairs []Pair) []int {
	drop := make(map[int]struct{}, len(pairs))
	for _, p := range pairs {
		drop[p.J] = struct{}{}
	}
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if _, ok := drop[i]; ok {
			continue
		}
		keep = append(keep, i)
	}
	return keep
}
