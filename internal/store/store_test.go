package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"reprint/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenPath(filepath.Join(t.TempDir(), "reprint.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func createVideo(t *testing.T, s *store.Store, id string, totalChunks int) {
	t.Helper()
	if _, err := s.CreateReferenceVideo(context.Background(), id, id+".mp4", totalChunks); err != nil {
		t.Fatalf("CreateReferenceVideo: %v", err)
	}
}

func addChunks(t *testing.T, s *store.Store, videoID string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		if err := s.AddRegisterChunk(context.Background(), videoID, i, float64(i*60), 60); err != nil {
			t.Fatalf("AddRegisterChunk(%d): %v", i, err)
		}
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestCreateReferenceVideoDuplicate(t *testing.T) {
	s := openStore(t)
	createVideo(t, s, "vid-1", 2)

	if _, err := s.CreateReferenceVideo(context.Background(), "vid-1", "again.mp4", 2); !errors.Is(err, store.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestAddRegisterChunkErrors(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 2)

	if err := s.AddRegisterChunk(ctx, "vid-1", 0, 0, 60); err != nil {
		t.Fatalf("AddRegisterChunk: %v", err)
	}
	if err := s.AddRegisterChunk(ctx, "vid-1", 0, 0, 60); !errors.Is(err, store.ErrDuplicateChunk) {
		t.Fatalf("expected ErrDuplicateChunk, got %v", err)
	}
	if err := s.AddRegisterChunk(ctx, "missing", 0, 0, 60); !errors.Is(err, store.ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestCompleteRegisterChunkProgress(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 3)
	addChunks(t, s, "vid-1", 3)

	progress, err := s.CompleteRegisterChunk(ctx, "vid-1", 1, 60)
	if err != nil {
		t.Fatalf("CompleteRegisterChunk: %v", err)
	}
	if progress.Completed != 1 || progress.Total != 3 {
		t.Fatalf("expected 1/3, got %d/%d", progress.Completed, progress.Total)
	}
	if progress.Done() {
		t.Fatal("progress should not be done after one of three chunks")
	}

	progress, err = s.CompleteRegisterChunk(ctx, "vid-1", 0, 60)
	if err != nil {
		t.Fatalf("CompleteRegisterChunk: %v", err)
	}
	if progress.Completed != 2 {
		t.Fatalf("expected completed 2, got %d", progress.Completed)
	}

	progress, err = s.CompleteRegisterChunk(ctx, "vid-1", 2, 45)
	if err != nil {
		t.Fatalf("CompleteRegisterChunk: %v", err)
	}
	if !progress.Done() {
		t.Fatalf("expected done after final chunk, got %d/%d", progress.Completed, progress.Total)
	}
}

func TestCompleteRegisterChunkIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 2)
	addChunks(t, s, "vid-1", 2)

	if _, err := s.CompleteRegisterChunk(ctx, "vid-1", 0, 60); err != nil {
		t.Fatalf("CompleteRegisterChunk: %v", err)
	}
	progress, err := s.CompleteRegisterChunk(ctx, "vid-1", 0, 60)
	if err != nil {
		t.Fatalf("repeat CompleteRegisterChunk: %v", err)
	}
	if progress.Completed != 1 || progress.Total != 2 {
		t.Fatalf("repeat completion must not advance counter, got %d/%d", progress.Completed, progress.Total)
	}
}

func TestCompleteRegisterChunkUnknown(t *testing.T) {
	s := openStore(t)
	createVideo(t, s, "vid-1", 2)
	addChunks(t, s, "vid-1", 2)

	if _, err := s.CompleteRegisterChunk(context.Background(), "vid-1", 7, 60); !errors.Is(err, store.ErrUnknownChunk) {
		t.Fatalf("expected ErrUnknownChunk, got %v", err)
	}
}

func TestConcurrentCompletionSingleTrigger(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	const total = 8
	createVideo(t, s, "vid-1", total)
	addChunks(t, s, "vid-1", total)

	var wg sync.WaitGroup
	results := make(chan store.Progress, total)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			progress, err := s.CompleteRegisterChunk(ctx, "vid-1", index, 60)
			if err != nil {
				t.Errorf("CompleteRegisterChunk(%d): %v", index, err)
				return
			}
			results <- progress
		}(i)
	}
	wg.Wait()
	close(results)

	triggers := 0
	seen := make(map[int]bool)
	for progress := range results {
		if progress.Total != total {
			t.Fatalf("expected total %d, got %d", total, progress.Total)
		}
		if seen[progress.Completed] {
			t.Fatalf("counter value %d observed twice", progress.Completed)
		}
		seen[progress.Completed] = true
		if progress.Done() {
			triggers++
		}
	}
	if triggers != 1 {
		t.Fatalf("expected exactly one finalize trigger, got %d", triggers)
	}
}

// Pragmas travel on the DSN, so every connection the pool opens enforces
// foreign keys. Concurrent inserts force the pool past its first connection.
func TestForeignKeysEnforcedOnEveryConnection(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	failures := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			failures <- s.SaveChunkAudioFingerprint(ctx, "no-such-video", index, 0, []byte{1, 2, 3, 4}, 60)
		}(i)
	}
	wg.Wait()
	close(failures)

	for err := range failures {
		if err == nil {
			t.Fatal("insert referencing a missing video must fail")
		}
	}
}

func TestFinalizeReferenceVideo(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 2)
	addChunks(t, s, "vid-1", 2)

	if _, err := s.CompleteRegisterChunk(ctx, "vid-1", 0, 60); err != nil {
		t.Fatalf("CompleteRegisterChunk: %v", err)
	}
	if _, err := s.CompleteRegisterChunk(ctx, "vid-1", 1, 45); err != nil {
		t.Fatalf("CompleteRegisterChunk: %v", err)
	}

	frames, duration, err := s.RegisterChunkTotals(ctx, "vid-1")
	if err != nil {
		t.Fatalf("RegisterChunkTotals: %v", err)
	}
	if frames != 105 || duration != 120 {
		t.Fatalf("expected 105 frames over 120s, got %d over %v", frames, duration)
	}

	if err := s.FinalizeReferenceVideo(ctx, "vid-1", duration, frames); err != nil {
		t.Fatalf("FinalizeReferenceVideo: %v", err)
	}
	video, err := s.GetReferenceVideo(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetReferenceVideo: %v", err)
	}
	if video.Status != store.JobCompleted {
		t.Fatalf("expected completed status, got %s", video.Status)
	}
	if video.FrameCount != 105 {
		t.Fatalf("expected frame count 105, got %d", video.FrameCount)
	}

	if err := s.FinalizeReferenceVideo(ctx, "vid-1", duration, frames); !errors.Is(err, store.ErrAlreadyFinalized) {
		t.Fatalf("expected ErrAlreadyFinalized, got %v", err)
	}
}

func TestFinalizeFailedJob(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 1)

	if err := s.MarkReferenceFailed(ctx, "vid-1", "chunk download failed"); err != nil {
		t.Fatalf("MarkReferenceFailed: %v", err)
	}
	if err := s.FinalizeReferenceVideo(ctx, "vid-1", 60, 60); !errors.Is(err, store.ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}

	video, err := s.GetReferenceVideo(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetReferenceVideo: %v", err)
	}
	if video.Status != store.JobFailed || video.ErrorMessage != "chunk download failed" {
		t.Fatalf("unexpected failed state: %s %q", video.Status, video.ErrorMessage)
	}
}

func TestFrameFingerprintRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 2)

	prints := []store.FrameFingerprint{
		{VideoID: "vid-1", ChunkIndex: 1, FrameIndex: 60, Timestamp: 60, Embedding: []float32{0.25, -1, 3.5}},
		{VideoID: "vid-1", ChunkIndex: 0, FrameIndex: 0, Timestamp: 0, Embedding: []float32{1, 0, 0}},
	}
	if err := s.SaveFrameFingerprints(ctx, prints); err != nil {
		t.Fatalf("SaveFrameFingerprints: %v", err)
	}

	stored, err := s.FrameFingerprints(ctx, "vid-1")
	if err != nil {
		t.Fatalf("FrameFingerprints: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 fingerprints, got %d", len(stored))
	}
	if stored[0].FrameIndex != 0 || stored[1].FrameIndex != 60 {
		t.Fatalf("fingerprints not ordered by frame index: %d, %d", stored[0].FrameIndex, stored[1].FrameIndex)
	}
	if got := stored[1].Embedding; len(got) != 3 || got[0] != 0.25 || got[1] != -1 || got[2] != 3.5 {
		t.Fatalf("embedding mismatch: %v", got)
	}
}

func TestAudioFingerprintMergeReplacement(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 2)

	if err := s.SaveChunkAudioFingerprint(ctx, "vid-1", 0, 0, []byte{1, 2, 3, 4}, 60); err != nil {
		t.Fatalf("SaveChunkAudioFingerprint: %v", err)
	}
	if err := s.SaveChunkAudioFingerprint(ctx, "vid-1", 1, 60, []byte{5, 6, 7, 8}, 45); err != nil {
		t.Fatalf("SaveChunkAudioFingerprint: %v", err)
	}

	chunks, err := s.AudioChunkFingerprints(ctx, "vid-1")
	if err != nil {
		t.Fatalf("AudioChunkFingerprints: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunk fingerprints, got %d", len(chunks))
	}
	if *chunks[0].ChunkIndex != 0 || *chunks[1].ChunkIndex != 1 {
		t.Fatalf("chunk fingerprints not ordered by start time")
	}

	if err := s.ReplaceWithMergedFingerprint(ctx, "vid-1", []byte{1, 2, 3, 4, 5, 6, 7, 8}, 105); err != nil {
		t.Fatalf("ReplaceWithMergedFingerprint: %v", err)
	}
	chunks, err = s.AudioChunkFingerprints(ctx, "vid-1")
	if err != nil {
		t.Fatalf("AudioChunkFingerprints: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("per-chunk fingerprints should be gone, got %d", len(chunks))
	}

	merged, err := s.MergedAudioFingerprint(ctx, "vid-1")
	if err != nil {
		t.Fatalf("MergedAudioFingerprint: %v", err)
	}
	if len(merged) != 8 {
		t.Fatalf("expected merged fingerprint of 8 bytes, got %d", len(merged))
	}
}

func TestVerifySessionLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 1)

	if _, err := s.CreateVerifySession(ctx, "sess-1", "missing", "query.mp4", 2); !errors.Is(err, store.ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob for missing reference, got %v", err)
	}

	session, err := s.CreateVerifySession(ctx, "sess-1", "vid-1", "query.mp4", 2)
	if err != nil {
		t.Fatalf("CreateVerifySession: %v", err)
	}
	if session.Status != store.JobProcessing || session.TotalChunks != 2 {
		t.Fatalf("unexpected session state: %+v", session)
	}
	if _, err := s.CreateVerifySession(ctx, "sess-1", "vid-1", "query.mp4", 2); !errors.Is(err, store.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.AddVerifyChunk(ctx, "sess-1", i, float64(i*60), 60); err != nil {
			t.Fatalf("AddVerifyChunk(%d): %v", i, err)
		}
	}

	progress, err := s.CompleteVerifyChunk(ctx, "sess-1", 0, floatPtr(0.9), floatPtr(0.8))
	if err != nil {
		t.Fatalf("CompleteVerifyChunk: %v", err)
	}
	if progress.Done() {
		t.Fatal("session should not be done after one of two chunks")
	}
	progress, err = s.CompleteVerifyChunk(ctx, "sess-1", 1, floatPtr(0.7), nil)
	if err != nil {
		t.Fatalf("CompleteVerifyChunk: %v", err)
	}
	if !progress.Done() {
		t.Fatalf("expected done, got %d/%d", progress.Completed, progress.Total)
	}

	session, err = s.FinalizeVerifySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("FinalizeVerifySession: %v", err)
	}
	if session.Status != store.JobCompleted {
		t.Fatalf("expected completed session, got %s", session.Status)
	}
	if session.AvgImageScore == nil || *session.AvgImageScore < 0.799 || *session.AvgImageScore > 0.801 {
		t.Fatalf("expected image average ~0.8, got %v", session.AvgImageScore)
	}
	// The audio average covers only the chunk that produced a score.
	if session.AvgAudioScore == nil || *session.AvgAudioScore != 0.8 {
		t.Fatalf("expected audio average 0.8, got %v", session.AvgAudioScore)
	}

	if _, err := s.FinalizeVerifySession(ctx, "sess-1"); !errors.Is(err, store.ErrAlreadyFinalized) {
		t.Fatalf("expected ErrAlreadyFinalized, got %v", err)
	}
}

func TestVerifyChunkScorelessAverages(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createVideo(t, s, "vid-1", 1)
	if _, err := s.CreateVerifySession(ctx, "sess-1", "vid-1", "query.mp4", 1); err != nil {
		t.Fatalf("CreateVerifySession: %v", err)
	}
	if err := s.AddVerifyChunk(ctx, "sess-1", 0, 0, 60); err != nil {
		t.Fatalf("AddVerifyChunk: %v", err)
	}
	if _, err := s.CompleteVerifyChunk(ctx, "sess-1", 0, nil, nil); err != nil {
		t.Fatalf("CompleteVerifyChunk: %v", err)
	}

	session, err := s.FinalizeVerifySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("FinalizeVerifySession: %v", err)
	}
	if session.AvgImageScore != nil || session.AvgAudioScore != nil {
		t.Fatalf("expected nil averages with no scores, got %v %v", session.AvgImageScore, session.AvgAudioScore)
	}
}
