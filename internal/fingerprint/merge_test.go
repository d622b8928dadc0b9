package fingerprint_test

import (
	"bytes"
	"testing"

	"reprint/internal/fingerprint"
)

func TestMergeChunksConcatenatesInStartTimeOrder(t *testing.T) {
	chunks := []fingerprint.AudioChunk{
		{ChunkIndex: 1, StartTime: 60, Duration: 60, Fingerprint: []byte{5, 6, 7, 8}},
		{ChunkIndex: 0, StartTime: 0, Duration: 60, Fingerprint: []byte{1, 2, 3, 4}},
		{ChunkIndex: 2, StartTime: 120, Duration: 45, Fingerprint: []byte{9, 10, 11, 12}},
	}

	merged, duration := fingerprint.MergeChunks(chunks)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if !bytes.Equal(merged, want) {
		t.Fatalf("unexpected merged bytes: %v", merged)
	}
	if duration != 165 {
		t.Fatalf("expected duration 165, got %f", duration)
	}
}

func TestMergeChunksSkipsSilentChunks(t *testing.T) {
	chunks := []fingerprint.AudioChunk{
		{ChunkIndex: 0, StartTime: 0, Duration: 60, Fingerprint: []byte{1, 2, 3, 4}},
		{ChunkIndex: 1, StartTime: 60, Duration: 60, Fingerprint: nil},
		{ChunkIndex: 2, StartTime: 120, Duration: 30, Fingerprint: []byte{9, 10, 11, 12}},
	}

	merged, duration := fingerprint.MergeChunks(chunks)
	want := []byte{1, 2, 3, 4, 9, 10, 11, 12}
	if !bytes.Equal(merged, want) {
		t.Fatalf("unexpected merged bytes: %v", merged)
	}
	if duration != 90 {
		t.Fatalf("expected duration 90, got %f", duration)
	}
}

func TestMergeChunksEmptyInput(t *testing.T) {
	if merged, duration := fingerprint.MergeChunks(nil); merged != nil || duration != 0 {
		t.Fatalf("expected empty result, got (%v, %f)", merged, duration)
	}

	silent := []fingerprint.AudioChunk{{ChunkIndex: 0, StartTime: 0, Duration: 60}}
	if merged, duration := fingerprint.MergeChunks(silent); merged != nil || duration != 0 {
		t.Fatalf("expected empty result for all-silent input, got (%v, %f)", merged, duration)
	}
}

func TestMergeChunksDoesNotMutateInput(t *testing.T) {
	chunks := []fingerprint.AudioChunk{
		{ChunkIndex: 1, StartTime: 60, Duration: 60, Fingerprint: []byte{5, 6, 7, 8}},
		{ChunkIndex: 0, StartTime: 0, Duration: 60, Fingerprint: []byte{1, 2, 3, 4}},
	}

	fingerprint.MergeChunks(chunks)
	if chunks[0].ChunkIndex != 1 || chunks[1].ChunkIndex != 0 {
		t.Fatal("input slice was reordered")
	}
}
