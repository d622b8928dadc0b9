package fingerprint

import (
	"encoding/binary"
	"math/bits"
	"sort"
)

// SubFPSeconds is the duration of audio summarized by one 32-bit
// sub-fingerprint code. Fixed by the sample rate of the underlying
// chromaprint algorithm.
const SubFPSeconds = 0.1238

const (
	// coarseStep is the offset stride of the first search pass.
	coarseStep = 8
	// fineRadius is the window searched exhaustively around each
	// surviving coarse candidate.
	fineRadius = coarseStep
	// topCandidates is how many coarse offsets survive into the fine pass.
	topCandidates = 10
)

// DecodeCodes converts a little-endian fingerprint byte sequence into 32-bit
// codes. Trailing bytes that do not form a full code are ignored.
func DecodeCodes(fp []byte) []uint32 {
	codes := make([]uint32, 0, len(fp)/4)
	for i := 0; i+4 <= len(fp); i += 4 {
		codes = append(codes, binary.LittleEndian.Uint32(fp[i:i+4]))
	}
	return codes
}

// EncodeCodes converts 32-bit codes back into the little-endian byte
// representation stored in the database.
func EncodeCodes(codes []uint32) []byte {
	fp := make([]byte, len(codes)*4)
	for i, code := range codes {
		binary.LittleEndian.PutUint32(fp[i*4:], code)
	}
	return fp
}

// scoreAt returns the fraction of matching bits when query is laid over base
// starting at offset. Offsets outside base, or overlaps of zero codes, score 0.
func scoreAt(query, base []uint32, offset int) float64 {
	if offset < 0 || offset >= len(base) {
		return 0
	}
	n := len(query)
	if rest := len(base) - offset; rest < n {
		n = rest
	}
	if n <= 0 {
		return 0
	}
	matching := 0
	for i := 0; i < n; i++ {
		matching += 32 - bits.OnesCount32(query[i]^base[offset+i])
	}
	return float64(matching) / float64(32*n)
}

// scoreFn is swapped out in tests that count evaluations.
var scoreFn = scoreAt

// Align slides query along base and returns the offset with the highest
// bit-agreement score, together with that score in [0, 1].
//
// A coarse pass samples every coarseStep-th offset, then the best
// topCandidates seeds are refined exhaustively within fineRadius. Exhaustive
// search over every offset is O(len(base) * len(query)); the two-phase
// heuristic assumes scores vary smoothly with offset, which holds for
// chromaprint codes of real audio.
func Align(query, base []uint32) (int, float64) {
	if len(query) == 0 || len(base) == 0 {
		return 0, 0
	}

	maxOffset := len(base) - 1

	type candidate struct {
		offset int
		score  float64
	}
	coarse := make([]candidate, 0, maxOffset/coarseStep+1)
	for offset := 0; offset <= maxOffset; offset += coarseStep {
		coarse = append(coarse, candidate{offset, scoreFn(query, base, offset)})
	}
	sort.Slice(coarse, func(i, j int) bool {
		if coarse[i].score != coarse[j].score {
			return coarse[i].score > coarse[j].score
		}
		return coarse[i].offset < coarse[j].offset
	})
	if len(coarse) > topCandidates {
		coarse = coarse[:topCandidates]
	}

	bestOffset := 0
	bestScore := 0.0
	for _, seed := range coarse {
		lo := seed.offset - fineRadius
		if lo < 0 {
			lo = 0
		}
		hi := seed.offset + fineRadius
		if hi > maxOffset {
			hi = maxOffset
		}
		for offset := lo; offset <= hi; offset++ {
			if score := scoreFn(query, base, offset); score > bestScore {
				bestScore = score
				bestOffset = offset
			}
		}
	}
	return bestOffset, bestScore
}

// Compare scores two raw audio fingerprints under unknown time offset.
// Returns 0 when either fingerprint is empty or absent. Not symmetric:
// callers pass the query clip first and the reference second.
func Compare(query, base []byte) float64 {
	if len(query) == 0 || len(base) == 0 {
		return 0
	}
	q := DecodeCodes(query)
	b := DecodeCodes(base)
	if len(q) == 0 || len(b) == 0 {
		return 0
	}
	_, score := Align(q, b)
	return score
}
