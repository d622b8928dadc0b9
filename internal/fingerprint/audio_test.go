package fingerprint_test

import (
	"math/rand"
	"testing"

	"reprint/internal/fingerprint"
)

func randomCodes(t *testing.T, n int, seed int64) []uint32 {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	codes := make([]uint32, n)
	for i := range codes {
		codes[i] = rng.Uint32()
	}
	return codes
}

func TestAlignIdenticalFingerprints(t *testing.T) {
	base := randomCodes(t, 400, 1)
	offset, score := fingerprint.Align(base, base)
	if offset != 0 {
		t.Fatalf("expected offset 0, got %d", offset)
	}
	if score != 1.0 {
		t.Fatalf("expected score 1.0, got %f", score)
	}
}

func TestAlignRecoversSubSliceOffset(t *testing.T) {
	base := randomCodes(t, 512, 2)

	// Offsets on the coarse grid are sampled directly by the first pass, so
	// recovery is exact regardless of base length.
	for _, k := range []int{0, 8, 48, 256, 504} {
		query := base[k:min(k+64, len(base))]
		offset, score := fingerprint.Align(query, base)
		if offset != k {
			t.Fatalf("offset %d: expected recovery at %d, got %d", k, k, offset)
		}
		if score != 1.0 {
			t.Fatalf("offset %d: expected score 1.0, got %f", k, score)
		}
	}
}

func TestAlignRecoversOffGridOffsetInSmallBase(t *testing.T) {
	// With at most topCandidates coarse samples every offset falls inside
	// some fine window, so off-grid offsets are recovered too.
	base := randomCodes(t, 72, 3)
	for _, k := range []int{3, 13, 37, 61} {
		query := base[k : k+8]
		offset, score := fingerprint.Align(query, base)
		if offset != k {
			t.Fatalf("offset %d: expected recovery at %d, got %d", k, k, offset)
		}
		if score != 1.0 {
			t.Fatalf("offset %d: expected score 1.0, got %f", k, score)
		}
	}
}

func TestAlignScoreRange(t *testing.T) {
	query := randomCodes(t, 50, 4)
	base := randomCodes(t, 300, 5)
	offset, score := fingerprint.Align(query, base)
	if offset < 0 || offset >= len(base) {
		t.Fatalf("offset %d out of range", offset)
	}
	if score < 0 || score > 1 {
		t.Fatalf("score %f out of [0,1]", score)
	}
}

func TestAlignEmptyInputs(t *testing.T) {
	codes := randomCodes(t, 10, 6)
	if offset, score := fingerprint.Align(nil, codes); offset != 0 || score != 0 {
		t.Fatalf("empty query: got (%d, %f)", offset, score)
	}
	if offset, score := fingerprint.Align(codes, nil); offset != 0 || score != 0 {
		t.Fatalf("empty base: got (%d, %f)", offset, score)
	}
}

func TestCompareEmptyFingerprints(t *testing.T) {
	fp := fingerprint.EncodeCodes(randomCodes(t, 20, 7))
	if score := fingerprint.Compare(nil, fp); score != 0 {
		t.Fatalf("nil query: expected 0, got %f", score)
	}
	if score := fingerprint.Compare(fp, nil); score != 0 {
		t.Fatalf("nil base: expected 0, got %f", score)
	}
	// Fewer than four bytes decodes to zero codes.
	if score := fingerprint.Compare([]byte{1, 2}, fp); score != 0 {
		t.Fatalf("partial code query: expected 0, got %f", score)
	}
}

func TestCompareIdenticalFingerprints(t *testing.T) {
	fp := fingerprint.EncodeCodes(randomCodes(t, 100, 8))
	if score := fingerprint.Compare(fp, fp); score != 1.0 {
		t.Fatalf("expected score 1.0, got %f", score)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codes := randomCodes(t, 33, 9)
	decoded := fingerprint.DecodeCodes(fingerprint.EncodeCodes(codes))
	if len(decoded) != len(codes) {
		t.Fatalf("expected %d codes, got %d", len(codes), len(decoded))
	}
	for i := range codes {
		if decoded[i] != codes[i] {
			t.Fatalf("code %d: expected %d, got %d", i, codes[i], decoded[i])
		}
	}
}

func TestDecodeIgnoresTrailingPartialCode(t *testing.T) {
	raw := append(fingerprint.EncodeCodes([]uint32{7, 11}), 0xFF, 0x01)
	if codes := fingerprint.DecodeCodes(raw); len(codes) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(codes))
	}
}
