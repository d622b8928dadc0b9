package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"reprint/internal/config"
	"reprint/internal/logging"
)

// Publisher delivers progress events to interested subscribers. Publishing
// is best-effort: a failed publish never fails the chunk that produced it.
type Publisher interface {
	PublishTask(ctx context.Context, event TaskEvent) error
	// MirrorTask repeats a chunk event on the video status subject, so a
	// subscriber watching one video sees per-chunk progress without knowing
	// the task ids.
	MirrorTask(ctx context.Context, event TaskEvent) error
	PublishJob(ctx context.Context, event JobEvent) error
	Close()
}

// NewPublisher connects a NATS-backed publisher. When no broker URL is
// configured, a noop implementation is returned.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (Publisher, error) {
	url := strings.TrimSpace(cfg.Broker.URL)
	if url == "" {
		return noopPublisher{}, nil
	}

	nc, err := nats.Connect(
		url,
		nats.Name("reprint-publisher"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &natsPublisher{
		nc:          nc,
		taskPrefix:  cfg.Broker.TaskStatusPrefix,
		videoPrefix: cfg.Broker.VideoStatusPrefix,
		logger:      logger,
	}, nil
}

type natsPublisher struct {
	nc          *nats.Conn
	taskPrefix  string
	videoPrefix string
	logger      *slog.Logger
}

func (p *natsPublisher) PublishTask(ctx context.Context, event TaskEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(ctx, p.taskPrefix+"."+event.TaskID, event)
}

func (p *natsPublisher) MirrorTask(ctx context.Context, event TaskEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(ctx, p.videoPrefix+"."+event.JobID, event)
}

func (p *natsPublisher) PublishJob(ctx context.Context, event JobEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(ctx, p.videoPrefix+"."+event.JobID, event)
}

func (p *natsPublisher) publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		if p.logger != nil {
			p.logger.Warn("event publish failed",
				logging.String("subject", subject),
				logging.Error(err))
		}
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	if p.nc == nil {
		return
	}
	_ = p.nc.Flush()
	p.nc.Close()
}

type noopPublisher struct{}

func (noopPublisher) PublishTask(context.Context, TaskEvent) error { return nil }
func (noopPublisher) MirrorTask(context.Context, TaskEvent) error  { return nil }
func (noopPublisher) PublishJob(context.Context, JobEvent) error   { return nil }
func (noopPublisher) Close()                                       {}

// NewNop returns a publisher that drops every event. Used by tests.
func NewNop() Publisher {
	return noopPublisher{}
}
