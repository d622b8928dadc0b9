package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reprint/internal/store"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's chunk-level progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			jobID := args[0]
			ctx := cmd.Context()

			video, err := st.GetReferenceVideo(ctx, jobID)
			if err != nil {
				return err
			}
			if video != nil {
				return printReferenceStatus(cmd, st, video)
			}

			session, err := st.GetVerifySession(ctx, jobID)
			if err != nil {
				return err
			}
			if session != nil {
				return printSessionStatus(cmd, st, session)
			}
			return fmt.Errorf("no job with id %s", jobID)
		},
	}
}

func printReferenceStatus(cmd *cobra.Command, st *store.Store, video *store.ReferenceVideo) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reference video %s (%s)\n", video.ID, video.DisplayName)
	fmt.Fprintf(out, "Status: %s\n", statusTitle.String(string(video.Status)))
	fmt.Fprintf(out, "Chunks: %d/%d\n", video.CompletedChunks, video.TotalChunks)
	if video.Status == store.JobCompleted {
		fmt.Fprintf(out, "Duration: %.1fs, Frames: %d\n", video.Duration, video.FrameCount)
	}
	if video.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", video.ErrorMessage)
	}

	chunks, err := st.RegisterChunks(cmd.Context(), video.ID)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(chunks))
	for _, chunk := range chunks {
		rows = append(rows, []string{
			fmt.Sprintf("%d", chunk.ChunkIndex),
			fmt.Sprintf("%.1fs", chunk.StartTime),
			fmt.Sprintf("%.1fs", chunk.Duration),
			statusTitle.String(string(chunk.Status)),
			fmt.Sprintf("%d", chunk.FrameCount),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Chunk", "Start", "Length", "Status", "Frames"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight},
	))
	return nil
}

func printSessionStatus(cmd *cobra.Command, st *store.Store, session *store.VerifySession) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Verify session %s against %s (%s)\n", session.ID, session.VideoID, session.QueryName)
	fmt.Fprintf(out, "Status: %s\n", statusTitle.String(string(session.Status)))
	fmt.Fprintf(out, "Chunks: %d/%d\n", session.CompletedChunks, session.TotalChunks)
	if session.Status == store.JobCompleted {
		fmt.Fprintf(out, "Average image similarity: %s\n", formatScore(session.AvgImageScore))
		fmt.Fprintf(out, "Average audio similarity: %s\n", formatScore(session.AvgAudioScore))
	}
	if session.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", session.ErrorMessage)
	}

	chunks, err := st.VerifyChunks(cmd.Context(), session.ID)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(chunks))
	for _, chunk := range chunks {
		rows = append(rows, []string{
			fmt.Sprintf("%d", chunk.ChunkIndex),
			fmt.Sprintf("%.1fs", chunk.StartTime),
			statusTitle.String(string(chunk.Status)),
			formatScore(chunk.ImageScore),
			formatScore(chunk.AudioScore),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Chunk", "Start", "Status", "Image", "Audio"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight},
	))
	return nil
}
