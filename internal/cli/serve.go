package cli

import (
	"os/signal"
	"syscall"

	"github.com/fablecast/story-pipeline/internal/worker"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the NATS worker for queued story jobs",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) {
	app, err := setup()
	if err != nil {
		exitErr("setup", err)
	}

	synthesizer := app.newSynthesizer()

	err = synthesizer.HealthCheck(cmd.Context())
	if err != nil {
		exitErr("synthesis service unavailable", err)
	}

	natsConnection, artifacts, err := app.connectNats()
	if err != nil {
		exitErr("connect", err)
	}
	defer natsConnection.Close()

	producer := app.newProducer(artifacts, synthesizer)

	storyWorker := worker.NewNatsWorker(
		natsConnection,
		app.cfg.NATS.StoryJobSubject,
		producer,
		app.log,
	)

	ctx, stop := signal.NotifyContext(
		cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.log.System("Listening for story jobs on subject: %s",
		app.cfg.NATS.StoryJobSubject)

	err = storyWorker.Run(ctx)
	if err != nil {
		exitErr("worker", err)
	}
}
