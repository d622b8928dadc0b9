package fingerprint

import "sort"

// AudioChunk is one per-chunk audio fingerprint of a reference video,
// positioned by the chunk's start time within the video.
type AudioChunk struct {
	ChunkIndex  int
	StartTime   float64
	Duration    float64
	Fingerprint []byte
}

// MergeChunks stitches per-chunk fingerprints into one continuous fingerprint
// spanning the reference video, returning the merged bytes and the total
// covered duration.
//
// Chunks are concatenated in start-time order. The chunking scheme produces
// contiguous, non-overlapping spans, so no alignment search is needed at
// chunk boundaries. Chunks without extractable audio are simply absent from
// the input; the merged fingerprint is then shorter than the video but stays
// internally contiguous for the chunks present.
func MergeChunks(chunks []AudioChunk) ([]byte, float64) {
	if len(chunks) == 0 {
		return nil, 0
	}

	ordered := make([]AudioChunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartTime < ordered[j].StartTime
	})

	size := 0
	for _, chunk := range ordered {
		size += len(chunk.Fingerprint)
	}

	merged := make([]byte, 0, size)
	totalDuration := 0.0
	for _, chunk := range ordered {
		if len(chunk.Fingerprint) == 0 {
			continue
		}
		merged = append(merged, chunk.Fingerprint...)
		totalDuration += chunk.Duration
	}
	if len(merged) == 0 {
		return nil, 0
	}
	return merged, totalDuration
}
