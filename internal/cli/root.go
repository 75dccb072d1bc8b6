// Package cli implements the story-pipeline command-line interface.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/audio"
	"github.com/fablecast/story-pipeline/internal/config"
	"github.com/fablecast/story-pipeline/internal/core"
	"github.com/fablecast/story-pipeline/internal/objectstore"
	"github.com/fablecast/story-pipeline/internal/pipeline"
	"github.com/fablecast/story-pipeline/internal/store"
	"github.com/fablecast/story-pipeline/internal/synth"
	"github.com/fablecast/story-pipeline/internal/voice"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "story-pipeline",
	Short: "Produce multi-voice audio stories from tagged scripts",
	Long: "story-pipeline turns tagged narration scripts into published " +
		"multi-voice audio stories: segmentation, voice resolution, speech " +
		"synthesis, audio assembly, and a durable, backed-up story store.",
}

// appContext bundles the shared runtime pieces the subcommands need.
type appContext struct {
	cfg   *config.Config
	log   *logger.Logger
	store *store.FileStore
}

// setup loads configuration and opens the story store. The bootstrap logger
// lands in the temp directory until the configured log directory is known.
func setup() (*appContext, error) {
	bootstrapLog, err := logger.New(os.TempDir(), "story-pipeline-bootstrap.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Paths.BaseLogsDir, "story-pipeline.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	fileStore, err := store.NewFileStore(cfg.Store.Path, cfg.Store.BackupDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open story store: %w", err)
	}

	return &appContext{
		cfg:   cfg,
		log:   log,
		store: fileStore,
	}, nil
}

// connectNats opens the NATS connection and binds the artifact bucket.
func (a *appContext) connectNats() (*nats.Conn, *objectstore.NatsObjectStore, error) {
	natsConnection, err := nats.Connect(a.cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"failed to connect to NATS at %s: %w", a.cfg.NATS.URL, err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	artifacts, err := objectstore.New(jetstreamContext, a.cfg.NATS.ArtifactBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, err
	}

	return natsConnection, artifacts, nil
}

// newSynthesizer builds the HTTP client for the configured synthesis
// provider.
func (a *appContext) newSynthesizer() *synth.HTTPSynthesizer {
	return synth.NewHTTPSynthesizer(
		a.cfg.Synthesis.ServiceURL,
		time.Duration(a.cfg.Synthesis.TimeoutSeconds)*time.Second,
	)
}

// newProducer wires the pipeline stages from configuration.
func (a *appContext) newProducer(
	artifacts *objectstore.NatsObjectStore,
	synthesizer *synth.HTTPSynthesizer,
) *pipeline.Producer {
	orchestrator := synth.NewOrchestrator(synthesizer, voice.NewResolver(), a.log)

	var mixer core.Mixer
	if !a.cfg.Audio.DisableMixing {
		mixer = audio.NewFFmpegMixer(a.cfg.Audio.FFmpegPath, a.log)
	}

	assembler := audio.NewAssemblerWithMix(
		mixer,
		a.log,
		a.cfg.Audio.MusicVolume,
		a.cfg.Audio.FadeInSeconds,
		a.cfg.Audio.FadeOutSeconds,
	)

	return pipeline.NewProducer(
		orchestrator,
		assembler,
		artifacts,
		a.store,
		a.log,
		time.Duration(a.cfg.Synthesis.CallDelayMs)*time.Millisecond,
		a.cfg.Audio.BitrateKbps,
	)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
