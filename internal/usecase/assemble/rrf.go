package assemble

import (
	"sort"

	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

// rrfK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges the vector and keyword rankings: score(d) = sum of 1/(k + rank_i(d)).
// Ties keep the vector ranking first. The fused score replaces Document.Score.
func fuseRRF(knn, text []retrieval.Document, topK int) []retrieval.Document {
	type scored struct {
		doc   retrieval.Document
		score float64
		order int
	}

	merged := make(map[string]*scored, len(knn)+len(text))
	add := func(list []retrieval.Document, offset int) {
		for rank, d := range list {
			s := 1.0 / float64(rrfK+rank+1)
			if existing, ok := merged[d.ID]; ok {
				existing.score += s
				continue
			}
			merged[d.ID] = &scored{doc: d, score: s, order: offset + rank}
		}
	}
	add(knn, 0)
	add(text, len(knn))

	all := make([]*scored, 0, len(merged))
	for _, s := range merged {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].order < all[j].order
	})

	if topK > 0 && len(all) > topK {
		all = all[:topK]
	}
	out := make([]retrieval.Document, len(all))
	for i, s := range all {
		out[i] = s.doc
		out[i].Score = s.score
	}
	return out
}
