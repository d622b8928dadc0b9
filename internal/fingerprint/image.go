package fingerprint

import "math"

// FrameEmbedding pairs a frame's global index with its embedding vector.
// All vectors in a comparison share one fixed dimensionality.
type FrameEmbedding struct {
	FrameIndex int
	Vector     []float32
}

// FrameMatch records, for one query frame, the best-matching reference frame
// and the cosine similarity of the pair. The full trace is retained for
// audit output, not just the aggregate score.
type FrameMatch struct {
	QueryFrame int     `json:"query_frame"`
	BaseFrame  int     `json:"base_frame"`
	Similarity float64 `json:"similarity"`
}

// CompareFrames scores a set of query frame embeddings against a reference
// set. Every embedding is L2-normalized, the full cosine-similarity matrix is
// evaluated, and each query frame greedily takes its best reference frame
// (one reference frame may serve several query frames). The aggregate score
// is the mean of the per-query-frame bests.
//
// Returns (0, nil) when either set is empty.
func CompareFrames(query, base []FrameEmbedding) (float64, []FrameMatch) {
	if len(query) == 0 || len(base) == 0 {
		return 0, nil
	}

	queryNorm := normalize(query)
	baseNorm := normalize(base)

	matches := make([]FrameMatch, 0, len(query))
	total := 0.0
	for qi, qv := range queryNorm {
		bestIdx := 0
		bestSim := math.Inf(-1)
		for bi, bv := range baseNorm {
			if sim := dot(qv, bv); sim > bestSim {
				bestSim = sim
				bestIdx = bi
			}
		}
		total += bestSim
		matches = append(matches, FrameMatch{
			QueryFrame: query[qi].FrameIndex,
			BaseFrame:  base[bestIdx].FrameIndex,
			Similarity: bestSim,
		})
	}
	return total / float64(len(query)), matches
}

func normalize(embeddings []FrameEmbedding) [][]float64 {
	out := make([][]float64, len(embeddings))
	for i, emb := range embeddings {
		vec := make([]float64, len(emb.Vector))
		sum := 0.0
		for j, v := range emb.Vector {
			f := float64(v)
			vec[j] = f
			sum += f * f
		}
		if norm := math.Sqrt(sum); norm > 0 {
			for j := range vec {
				vec[j] /= norm
			}
		}
		out[i] = vec
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
