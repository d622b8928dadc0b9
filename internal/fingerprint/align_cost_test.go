package fingerprint

import (
	"math/rand"
	"testing"
)

// Align promises a two-phase search: one coarse evaluation per coarseStep
// offsets plus at most topCandidates windows of 2*fineRadius+1 fine
// evaluations. Count the actual scoring calls to hold it to that.
func TestAlignEvaluationBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := make([]uint32, 4001)
	for i := range base {
		base[i] = rng.Uint32()
	}
	query := append([]uint32(nil), base[1200:1350]...)

	calls := 0
	orig := scoreFn
	scoreFn = func(query, base []uint32, offset int) float64 {
		calls++
		return orig(query, base, offset)
	}
	defer func() { scoreFn = orig }()

	offset, score := Align(query, base)
	if offset != 1200 {
		t.Fatalf("expected alignment at offset 1200, got %d", offset)
	}
	if score < 0.999 {
		t.Fatalf("expected near-perfect score for embedded slice, got %f", score)
	}

	coarse := (len(base)-1)/coarseStep + 1
	bound := coarse + topCandidates*(2*fineRadius+1)
	if calls > bound {
		t.Fatalf("Align used %d score evaluations, bound is %d", calls, bound)
	}
}
