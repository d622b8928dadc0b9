package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reprint/internal/config"
)

const userAgent = "Reprint-Go/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRegistrationComplete(ctx context.Context, videoID string, frameCount int, duration float64) error
	NotifyVerificationComplete(ctx context.Context, sessionID, videoID string, matched bool, imageScore, audioScore *float64) error
	NotifyJobFailed(ctx context.Context, jobID, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRegistrationComplete(ctx context.Context, videoID string, frameCount int, duration float64) error {
	videoID = strings.TrimSpace(videoID)
	data := payload{
		title:   "Reprint - Reference Registered",
		message: fmt.Sprintf("Reference %s registered: %d frames, %.1fs", videoID, frameCount, duration),
		tags:    []string{"reprint", "register", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyVerificationComplete(ctx context.Context, sessionID, videoID string, matched bool, imageScore, audioScore *float64) error {
	sessionID = strings.TrimSpace(sessionID)
	videoID = strings.TrimSpace(videoID)

	var builder strings.Builder
	if matched {
		fmt.Fprintf(&builder, "Re-upload of %s detected (session %s)", videoID, sessionID)
	} else {
		fmt.Fprintf(&builder, "No match against %s (session %s)", videoID, sessionID)
	}
	if imageScore != nil {
		fmt.Fprintf(&builder, "\nImage similarity: %.3f", *imageScore)
	}
	if audioScore != nil {
		fmt.Fprintf(&builder, "\nAudio similarity: %.3f", *audioScore)
	}

	data := payload{
		title:   "Reprint - Verification Complete",
		message: builder.String(),
		tags:    []string{"reprint", "verify", "completed"},
	}
	if matched {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, reason string) error {
	jobID = strings.TrimSpace(jobID)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Reprint - Job Failed",
		message:  fmt.Sprintf("Job %s failed: %s", jobID, reason),
		tags:     []string{"reprint", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reprint - Test",
		message:  "Notification system test",
		tags:     []string{"reprint", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRegistrationComplete(context.Context, string, int, float64) error {
	return nil
}

func (noopService) NotifyVerificationComplete(context.Context, string, string, bool, *float64, *float64) error {
	return nil
}

func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
