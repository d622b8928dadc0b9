package pipeline

import (
	"context"
	"log/slog"
	"os"

	"reprint/internal/config"
	"reprint/internal/logging"
	"reprint/internal/media"
	"reprint/internal/notifications"
	"reprint/internal/pubsub"
	"reprint/internal/store"
)

// MediaStore fetches chunk objects into local scratch space.
type MediaStore interface {
	DownloadToFile(ctx context.Context, key, destDir string) (string, error)
}

// Extractor runs the media tools over a downloaded chunk file. The default
// implementation shells out to ffmpeg, ffprobe, and fpcalc.
type Extractor interface {
	ExtractFrames(ctx context.Context, videoPath string, fps float64, workDir string) ([]string, error)
	ExtractAudio(ctx context.Context, videoPath, workDir string) (string, float64, error)
	AudioFingerprint(ctx context.Context, wavPath string) ([]byte, error)
}

// Pipeline wires the chunk workflows to their collaborators.
type Pipeline struct {
	cfg       *config.Config
	store     *store.Store
	objects   MediaStore
	extractor Extractor
	embedder  media.Embedder
	publisher pubsub.Publisher
	notifier  notifications.Service
	logger    *slog.Logger
}

// New assembles a pipeline. A nil logger falls back to a no-op logger, a nil
// extractor to the tool-based one, and a nil notifier to one derived from
// the configuration.
func New(cfg *config.Config, st *store.Store, objects MediaStore, extractor Extractor, embedder media.Embedder, publisher pubsub.Publisher, notifier notifications.Service, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if extractor == nil {
		extractor = toolExtractor{}
	}
	if publisher == nil {
		publisher = pubsub.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		objects:   objects,
		extractor: extractor,
		embedder:  embedder,
		publisher: publisher,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

type toolExtractor struct{}

func (toolExtractor) ExtractFrames(ctx context.Context, videoPath string, fps float64, workDir string) ([]string, error) {
	return media.ExtractFrames(ctx, videoPath, fps, workDir)
}

func (toolExtractor) ExtractAudio(ctx context.Context, videoPath, workDir string) (string, float64, error) {
	return media.ExtractAudio(ctx, videoPath, workDir)
}

func (toolExtractor) AudioFingerprint(ctx context.Context, wavPath string) ([]byte, error) {
	return media.AudioFingerprint(ctx, wavPath)
}

func (p *Pipeline) workDir() (string, error) {
	base := p.cfg.Paths.WorkDir
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", err
		}
	}
	return os.MkdirTemp(base, "chunk-*")
}
