package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reprint/internal/daemon"
	"reprint/internal/deps"
	"reprint/internal/logging"
	"reprint/internal/media"
	"reprint/internal/mediastore"
	"reprint/internal/pipeline"
	"reprint/internal/pubsub"
	"reprint/internal/store"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the chunk processing worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			if missing := deps.MissingRequired(); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}

			objects, err := mediastore.New(ctx, cfg)
			if err != nil {
				_ = st.Close()
				return err
			}

			publisher, err := pubsub.NewPublisher(cfg, logger)
			if err != nil {
				_ = st.Close()
				return err
			}
			defer publisher.Close()

			embedder := media.NewHTTPEmbedder(cfg)
			pipe := pipeline.New(cfg, st, objects, nil, embedder, publisher, nil, logger)

			consumer, err := daemon.NewConsumer(cfg, pipe, logger)
			if err != nil {
				_ = st.Close()
				return err
			}

			d, err := daemon.New(cfg, st, consumer, logger)
			if err != nil {
				consumer.Close()
				_ = st.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("shutting down")
			return nil
		},
	}
}
