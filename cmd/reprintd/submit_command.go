package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"reprint/internal/chunking"
	"reprint/internal/config"
	"reprint/internal/media"
	"reprint/internal/mediastore"
	"reprint/internal/pipeline"
	"reprint/internal/store"
)

func newSubmitCommand(cmdCtx *commandContext) *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Cut a video into chunks, upload them, and enqueue processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	submitCmd.AddCommand(newSubmitRegisterCommand(cmdCtx))
	submitCmd.AddCommand(newSubmitVerifyCommand(cmdCtx))
	return submitCmd
}

func newSubmitRegisterCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "register <video-file>",
		Short: "Register a reference video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			videoID, err := submitRegistration(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered video %s\n", videoID)
			return nil
		},
	}
}

func newSubmitVerifyCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <reference-id> <video-file>",
		Short: "Verify a query video against a registered reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			sessionID, err := submitVerification(cmd.Context(), cfg, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started verify session %s\n", sessionID)
			return nil
		},
	}
}

func submitRegistration(ctx context.Context, cfg *config.Config, videoFile string) (string, error) {
	spans, err := planChunks(ctx, cfg, videoFile)
	if err != nil {
		return "", err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return "", fmt.Errorf("open job store: %w", err)
	}
	defer st.Close()

	videoID := uuid.NewString()
	if _, err := st.CreateReferenceVideo(ctx, videoID, filepath.Base(videoFile), len(spans)); err != nil {
		return "", err
	}
	for _, span := range spans {
		if err := st.AddRegisterChunk(ctx, videoID, span.Index, span.StartTime, span.Duration); err != nil {
			return "", err
		}
	}

	keys, err := uploadChunks(ctx, cfg, videoFile, videoID, spans)
	if err != nil {
		return "", err
	}

	publish := func(js nats.JetStreamContext, i int) error {
		task := pipeline.RegisterTask{
			TaskID:      uuid.NewString(),
			ObjectKey:   keys[i],
			VideoID:     videoID,
			ChunkIndex:  spans[i].Index,
			StartTime:   spans[i].StartTime,
			TotalChunks: len(spans),
		}
		return publishTask(js, cfg.Broker.RegisterSubject, task)
	}
	if err := enqueueTasks(cfg, len(spans), publish); err != nil {
		return "", err
	}
	return videoID, nil
}

func submitVerification(ctx context.Context, cfg *config.Config, referenceID, videoFile string) (string, error) {
	spans, err := planChunks(ctx, cfg, videoFile)
	if err != nil {
		return "", err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return "", fmt.Errorf("open job store: %w", err)
	}
	defer st.Close()

	sessionID := uuid.NewString()
	if _, err := st.CreateVerifySession(ctx, sessionID, referenceID, filepath.Base(videoFile), len(spans)); err != nil {
		return "", err
	}
	for _, span := range spans {
		if err := st.AddVerifyChunk(ctx, sessionID, span.Index, span.StartTime, span.Duration); err != nil {
			return "", err
		}
	}

	keys, err := uploadChunks(ctx, cfg, videoFile, sessionID, spans)
	if err != nil {
		return "", err
	}

	publish := func(js nats.JetStreamContext, i int) error {
		task := pipeline.VerifyTask{
			TaskID:      uuid.NewString(),
			ObjectKey:   keys[i],
			SessionID:   sessionID,
			VideoID:     referenceID,
			ChunkIndex:  spans[i].Index,
			StartTime:   spans[i].StartTime,
			TotalChunks: len(spans),
		}
		return publishTask(js, cfg.Broker.VerifySubject, task)
	}
	if err := enqueueTasks(cfg, len(spans), publish); err != nil {
		return "", err
	}
	return sessionID, nil
}

func planChunks(ctx context.Context, cfg *config.Config, videoFile string) ([]chunking.Span, error) {
	if _, err := os.Stat(videoFile); err != nil {
		return nil, fmt.Errorf("video file: %w", err)
	}
	duration, err := media.Duration(ctx, videoFile)
	if err != nil {
		return nil, err
	}
	spans := chunking.Plan(duration, float64(cfg.Media.ChunkSeconds))
	if len(spans) == 0 {
		return nil, fmt.Errorf("video %s has no measurable duration", videoFile)
	}
	return spans, nil
}

// uploadChunks cuts the video per span and uploads each piece under the
// job's key prefix, returning the object keys in span order.
func uploadChunks(ctx context.Context, cfg *config.Config, videoFile, jobID string, spans []chunking.Span) ([]string, error) {
	objects, err := mediastore.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(cfg.Paths.WorkDir, "submit-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	keys := make([]string, 0, len(spans))
	for _, span := range spans {
		chunkPath := filepath.Join(workDir, fmt.Sprintf("%d.mp4", span.Index))
		if err := media.SplitChunk(ctx, videoFile, span.StartTime, span.Duration, chunkPath); err != nil {
			return nil, err
		}
		key := fmt.Sprintf("chunks/%s/%d.mp4", jobID, span.Index)
		if err := objects.UploadFile(ctx, key, chunkPath); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func enqueueTasks(cfg *config.Config, count int, publish func(js nats.JetStreamContext, i int) error) error {
	nc, err := nats.Connect(cfg.Broker.URL, nats.Name("reprint-submit"))
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}
	if err := ensureStream(js, cfg); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		if err := publish(js, i); err != nil {
			return err
		}
	}
	return nil
}

func publishTask(js nats.JetStreamContext, subject string, task any) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if _, err := js.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func ensureStream(js nats.JetStreamContext, cfg *config.Config) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     "REPRINT_TASKS",
		Subjects: []string{cfg.Broker.RegisterSubject, cfg.Broker.VerifySubject},
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("ensure task stream: %w", err)
	}
	return nil
}
