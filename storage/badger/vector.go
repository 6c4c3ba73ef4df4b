package badger

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

type candidate struct {
	chunkID  core.ID
	distance *float64
}

// compareCandidates orders by ascending distance, unavailable distances
// last, ties broken by chunk ID.
func compareCandidates(a, b candidate) int {
	switch {
	case a.distance != nil && b.distance != nil:
		if c := cmp.Compare(*a.distance, *b.distance); c != 0 {
			return c
		}
	case a.distance != nil:
		return -1
	case b.distance != nil:
		return 1
	}
	return cmp.Compare(a.chunkID, b.chunkID)
}

// NearestChunks runs an exhaustive cosine distance scan over the active generation.
func (t *transaction) NearestChunks(vector []float32, k int) ([]*storage.ChunkMatch, error) {
	if k <= 0 {
		return nil, nil
	}
	gen, err := t.ActiveGeneration()
	if err != nil || gen == 0 {
		return nil, err
	}

	candidates, err := t.scoreVectors(gen, vector)
	if err != nil {
		return nil, err
	}
	if len(candidates) < k {
		candidates = append(candidates, t.unembedded(gen, candidates)...)
	}
	slices.SortFunc(candidates, compareCandidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	docs := make(map[core.ID]*core.Document)
	matches := make([]*storage.ChunkMatch, 0, len(candidates))
	for _, c := range candidates {
		chunk, err := t.getChunk(gen, c.chunkID)
		if err != nil {
			return nil, err
		}
		doc, ok := docs[chunk.DocumentID]
		if !ok {
			doc, err = t.getDocument(gen, chunk.DocumentID)
			if err != nil {
				return nil, err
			}
			docs[chunk.DocumentID] = doc
		}
		matches = append(matches, &storage.ChunkMatch{
			Chunk:    chunk,
			Document: doc,
			Distance: c.distance,
		})
	}
	return matches, nil
}

// scoreVectors computes the distance from query to every stored vector of gen.
func (t *transaction) scoreVectors(gen core.ID, query []float32) ([]candidate, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeGenPrefix(vectorPrefix, gen)
	iter := t.tx.NewIterator(opts)
	defer iter.Close()

	queryNorm := norm(query)
	var candidates []candidate
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		chunkID := idSuffix(item.Key())
		var distance *float64
		err := item.Value(func(val []byte) error {
			v, err := storage.UnmarshalVector(val)
			if err != nil {
				return err
			}
			if len(v) != len(query) {
				return fmt.Errorf("%w: query has %d dimensions, chunk %d has %d",
					storage.ErrDimensionMismatch, len(query), chunkID, len(v))
			}
			distance = cosineDistance(query, queryNorm, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{chunkID: chunkID, distance: distance})
	}
	return candidates, nil
}

// unembedded lists the chunks of gen that have no stored vector.
func (t *transaction) unembedded(gen core.ID, scored []candidate) []candidate {
	seen := make(map[core.ID]struct{}, len(scored))
	for _, c := range scored {
		seen[c.chunkID] = struct{}{}
	}
	var out []candidate
	for _, key := range t.collectKeys(makeGenPrefix(chunkPrefix, gen)) {
		id := idSuffix(key)
		if _, ok := seen[id]; !ok {
			out = append(out, candidate{chunkID: id})
		}
	}
	return out
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosineDistance returns 1 - cos(a, b), or nil when either vector has zero length.
func cosineDistance(a []float32, aNorm float64, b []float32) *float64 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return nil
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	d := 1 - dot/(aNorm*bNorm)
	if math.IsNaN(d) {
		return nil
	}
	return &d
}
