package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reprint/internal/store"
)

var statusTitle = cases.Title(language.English)

func newJobsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List reference videos and verify sessions",
		Args:  cobra.NoArgs,
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

			ctx := cmd.Context()
			videos, err := st.ListReferenceVideos(ctx)
			if err != nil {
				return err
			}
			sessions, err := st.ListVerifySessions(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(videos) == 0 && len(sessions) == 0 {
				fmt.Fprintln(out, "no jobs")
				return nil
			}

			if len(videos) > 0 {
				rows := make([][]string, 0, len(videos))
				for _, video := range videos {
					rows = append(rows, []string{
						video.ID,
						video.DisplayName,
						statusTitle.String(string(video.Status)),
						fmt.Sprintf("%d/%d", video.CompletedChunks, video.TotalChunks),
						fmt.Sprintf("%d", video.FrameCount),
					})
				}
				fmt.Fprintln(out, "Reference videos")
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Status", "Chunks", "Frames"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
			}

			if len(sessions) > 0 {
				rows := make([][]string, 0, len(sessions))
				for _, session := range sessions {
					rows = append(rows, []string{
						session.ID,
						session.VideoID,
						statusTitle.String(string(session.Status)),
						fmt.Sprintf("%d/%d", session.CompletedChunks, session.TotalChunks),
						formatScore(session.AvgImageScore),
						formatScore(session.AvgAudioScore),
					})
				}
				fmt.Fprintln(out, "Verify sessions")
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Reference", "Status", "Chunks", "Image", "Audio"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
			}
			return nil
		},
	}
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *score)
}
