package dedupe

import (
	"fmt"
	"math"
	"sort"
)

// Hit is one search result: the stored vector id and its inner product with
// the query.
type Hit struct {
	ID    int
	Score float32
}

// Index is an exact in-memory inner-product index. Vectors are stored as given;
// callers normalise them when cosine similarity is wanted.
type Index struct {
	dim  int
	data []float32
}

func NewIndex(dim int) *Index {
	return &Index{dim: dim}
}

func (x *Index) Dim() int { return x.dim }

func (x *Index) Len() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.data) / x.dim
}

// Add appends vectors; ids are assigned in insertion order starting at Len().
func (x *Index) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != x.dim {
			return fmt.Errorf("dedupe: vector %d has dim %d, index dim %d", i, len(v), x.dim)
		}
	}
	for _, v := range vectors {
		x.data = append(x.data, v...)
	}
	return nil
}

// Search returns up to k hits ordered by descending score, ties broken by the
// lower id.
func (x *Index) Search(q []float32, k int) ([]Hit, error) {
	if len(q) != x.dim {
		return nil, fmt.Errorf("dedupe: query has dim %d, index dim %d", len(q), x.dim)
	}
	n := x.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	// hits stays sorted and never grows past k, so memory is O(k) however
	// many rows the index holds.
	hits := make([]Hit, 0, k)
	for id := 0; id < n; id++ {
		h := Hit{ID: id, Score: dot(q, x.data[id*x.dim:(id+1)*x.dim])}
		if len(hits) == k && !ranksBefore(h, hits[k-1]) {
			continue
		}
		pos := sort.Search(len(hits), func(i int) bool { return ranksBefore(h, hits[i]) })
		if len(hits) < k {
			hits = append(hits, Hit{})
		}
		copy(hits[pos+1:], hits[pos:len(hits)-1])
		hits[pos] = h
	}
	return hits, nil
}

// ranksBefore orders hits by descending score, then ascending id.
func ranksBefore(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Normalize scales v to unit length in place. Zero vectors are left as is.
func Normalize(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
