package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reprint/internal/config"
	"reprint/internal/services"
)

// Embedder turns frame images into fixed-dimension feature vectors.
type Embedder interface {
	EmbedFrames(ctx context.Context, framePaths []string) ([][]float32, error)
}

// HTTPEmbedder calls the embedding inference service, which runs the vision
// model and returns one vector per uploaded frame in request order.
type HTTPEmbedder struct {
	baseURL   string
	dimension int
	client    *http.Client
}

// NewHTTPEmbedder builds an embedder from the inference configuration.
func NewHTTPEmbedder(cfg *config.Config) *HTTPEmbedder {
	timeout := time.Duration(cfg.Embedder.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPEmbedder{
		baseURL:   strings.TrimRight(cfg.Embedder.BaseURL, "/"),
		dimension: cfg.Embedder.Dimension,
		client:    &http.Client{Timeout: timeout},
	}
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedFrames uploads the frames as one multipart request and returns their
// vectors. The response must carry exactly one vector per frame, each with
// the configured dimension.
func (e *HTTPEmbedder) EmbedFrames(ctx context.Context, framePaths []string) ([][]float32, error) {
	if len(framePaths) == 0 {
		return nil, nil
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, path := range framePaths {
		if err := appendFrame(writer, path); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", body)
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "media", "embed frames", "inference request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrTransient, "media", "embed frames",
			fmt.Sprintf("inference service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(decoded.Embeddings) != len(framePaths) {
		return nil, fmt.Errorf("embed response carries %d vectors for %d frames", len(decoded.Embeddings), len(framePaths))
	}
	for i, vec := range decoded.Embeddings {
		if e.dimension > 0 && len(vec) != e.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(vec), e.dimension)
		}
	}
	return decoded.Embeddings, nil
}

func appendFrame(writer *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open frame %s: %w", path, err)
	}
	defer f.Close()

	part, err := writer.CreateFormFile("frames", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create frame part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy frame %s: %w", path, err)
	}
	return nil
}
