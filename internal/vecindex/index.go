// Package vecindex keeps an in-memory flat inner-product index over job
// embeddings. Vectors are unit-normalized by the encoder, so inner product and
// cosine similarity coincide.
package vecindex

import (
	"errors"
	"sort"
	"sync"
)

var ErrDimension = errors.New("vecindex: vector dimension mismatch")

type Hit struct {
	JobID      int64
	Similarity float64
}

// Index supports concurrent readers; writes for the same job id are
// serialized by the internal lock. Removal is swap-removal, no rebuild needed.
type Index struct {
	mu   sync.RWMutex
	dim  int
	ids  []int64
	vecs [][]float32
	slot map[int64]int
}

// New pins the dimension for the lifetime of the index. A model-version
// change means building a fresh index, never mixing dimensions.
func New(dim int) *Index {
	return &Index{dim: dim, slot: make(map[int64]int)}
}

func (ix *Index) Dim() int { return ix.dim }

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

func (ix *Index) Has(jobID int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.slot[jobID]
	return ok
}

func (ix *Index) Upsert(jobID int64, vec []float32) error {
	if len(vec) != ix.dim {
		return ErrDimension
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if s, ok := ix.slot[jobID]; ok {
		ix.vecs[s] = cp
		return nil
	}
	ix.slot[jobID] = len(ix.ids)
	ix.ids = append(ix.ids, jobID)
	ix.vecs = append(ix.vecs, cp)
	return nil
}

func (ix *Index) Remove(jobID int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	s, ok := ix.slot[jobID]
	if !ok {
		return
	}
	last := len(ix.ids) - 1
	if s != last {
		ix.ids[s] = ix.ids[last]
		ix.vecs[s] = ix.vecs[last]
		ix.slot[ix.ids[s]] = s
	}
	ix.ids = ix.ids[:last]
	ix.vecs = ix.vecs[:last]
	delete(ix.slot, jobID)
}

// Query returns up to k nearest jobs by inner product, ordered by similarity
// descending with job id ascending as the tie break, so identical inputs
// always produce identical orderings. An empty index returns an empty slice.
func (ix *Index) Query(vec []float32, k int) ([]Hit, error) {
	if len(vec) != ix.dim {
		return nil, ErrDimension
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	hits := make([]Hit, len(ix.ids))
	for i, id := range ix.ids {
		hits[i] = Hit{JobID: id, Similarity: dot(ix.vecs[i], vec)}
	}
	ix.mu.RUnlock()

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].JobID < hits[b].JobID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Rebuild drops all entries and repopulates from a stored-vector walk, the
// process-restart recovery path. walk must call emit once per job.
func (ix *Index) Rebuild(walk func(emit func(jobID int64, vec []float32) error) error) error {
	ix.mu.Lock()
	ix.ids = ix.ids[:0]
	ix.vecs = ix.vecs[:0]
	ix.slot = make(map[int64]int)
	ix.mu.Unlock()

	return walk(func(jobID int64, vec []float32) error {
		return ix.Upsert(jobID, vec)
	})
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
