package testsupport

import (
	"context"
	"testing"

	"reprint/internal/config"
	"reprint/internal/store"
)

// MustOpenStore opens a job store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// NewReference creates a reference video with its pending chunk rows.
func NewReference(t testing.TB, st *store.Store, videoID string, totalChunks int, chunkSeconds float64) *store.ReferenceVideo {
	t.Helper()

	ctx := context.Background()
	video, err := st.CreateReferenceVideo(ctx, videoID, videoID+".mp4", totalChunks)
	if err != nil {
		t.Fatalf("CreateReferenceVideo: %v", err)
	}
	for i := 0; i < totalChunks; i++ {
		if err := st.AddRegisterChunk(ctx, videoID, i, float64(i)*chunkSeconds, chunkSeconds); err != nil {
			t.Fatalf("AddRegisterChunk(%d): %v", i, err)
		}
	}
	return video
}
