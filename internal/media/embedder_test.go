package media_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"reprint/internal/config"
	"reprint/internal/media"
	"reprint/internal/services"
	"reprint/internal/testsupport"
)

func writeFrames(t *testing.T, count int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, fmt.Sprintf("frame_%06d.jpg", i))
		testsupport.WriteFile(t, path, 512)
		paths = append(paths, path)
	}
	return paths
}

func embedderFor(t *testing.T, server *httptest.Server, dimension int) *media.HTTPEmbedder {
	t.Helper()
	cfg := config.Default()
	cfg.Embedder.BaseURL = server.URL
	cfg.Embedder.Dimension = dimension
	return media.NewHTTPEmbedder(&cfg)
}

func TestEmbedFrames(t *testing.T) {
	var gotFrames int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotFrames = len(r.MultipartForm.File["frames"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{1, 0, 0}, {0, 1, 0}},
		})
	}))
	defer server.Close()

	embedder := embedderFor(t, server, 3)
	vectors, err := embedder.EmbedFrames(context.Background(), writeFrames(t, 2))
	if err != nil {
		t.Fatalf("EmbedFrames: %v", err)
	}
	if gotFrames != 2 {
		t.Fatalf("expected 2 uploaded frames, got %d", gotFrames)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedFramesCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1, 0, 0}}})
	}))
	defer server.Close()

	embedder := embedderFor(t, server, 3)
	if _, err := embedder.EmbedFrames(context.Background(), writeFrames(t, 2)); err == nil {
		t.Fatal("expected error when vector count differs from frame count")
	}
}

func TestEmbedFramesDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1, 0}}})
	}))
	defer server.Close()

	embedder := embedderFor(t, server, 3)
	if _, err := embedder.EmbedFrames(context.Background(), writeFrames(t, 1)); err == nil {
		t.Fatal("expected error for wrong embedding dimension")
	}
}

func TestEmbedFramesServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	embedder := embedderFor(t, server, 3)
	_, err := embedder.EmbedFrames(context.Background(), writeFrames(t, 1))
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !services.IsRetryable(err) {
		t.Fatalf("inference outage should be retryable, got %v", err)
	}
}

func TestEmbedFramesEmptyInput(t *testing.T) {
	embedder := embedderFor(t, httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})), 3)
	vectors, err := embedder.EmbedFrames(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil, nil for empty input, got %v, %v", vectors, err)
	}
}
