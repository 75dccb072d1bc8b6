// Package pipeline runs the full story production flow: script segmentation,
// voice resolution, speech synthesis, audio assembly, artifact upload, and
// the durable story record write.
//
// The record is written only after the complete audio artifact exists, so an
// aborted run never leaves a partial story in the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/audio"
	"github.com/fablecast/story-pipeline/internal/core"
	"github.com/fablecast/story-pipeline/internal/script"
	"github.com/fablecast/story-pipeline/internal/synth"
	"github.com/google/uuid"
)

// audioExtension is the artifact extension for assembled narration.
const audioExtension = ".mp3"

// Static errors.
var (
	ErrEmptyScript = errors.New("script produced no utterances")
	ErrTitleEmpty  = errors.New("story title cannot be empty")
)

// Log formats.
const (
	logFmtProduced     = "Produced story %q (%d/%d utterances, %d bytes, %s)"
	logFmtDryRun       = "Dry run: story %q assembled (%d bytes), skipping upload and store"
	logFmtItemFailed   = "Story %q failed: %v"
	logFmtBatchSummary = "Batch finished: %d succeeded, %d failed"
)

// Request describes one story to produce.
type Request struct {
	Script      string
	Title       string
	Description string
	Category    string
	Dialect     string
	Tags        []string
	// Music optionally carries a background track layered under the
	// narration, best effort.
	Music []byte
	// Policy selects the orchestrator's reaction to per-utterance synthesis
	// failures: abort for interactive runs, skip for bulk runs.
	Policy synth.FailurePolicy
	// DryRun assembles the audio but skips the upload and the store write.
	DryRun bool
}

// Outcome reports what one production run did.
type Outcome struct {
	Record          *core.StoryRecord
	UpsertResult    core.UpsertResult
	UtteranceCount  int
	FailedSequences []int
	AudioBytes      int
}

// ItemResult pairs one batch item with its error, if any.
type ItemResult struct {
	Title   string
	Err     error
	Outcome *Outcome
}

// Producer wires the pipeline stages together.
type Producer struct {
	segmenter    *script.Segmenter
	orchestrator *synth.Orchestrator
	assembler    *audio.Assembler
	artifacts    core.ObjectStore
	stories      core.StoryStore
	log          *logger.Logger
	callDelay    time.Duration
	bitrateKbps  int
}

// NewProducer creates a producer over the given ports. callDelay is the
// inter-synthesis-call pause; zero selects the orchestrator default.
func NewProducer(
	orchestrator *synth.Orchestrator,
	assembler *audio.Assembler,
	artifacts core.ObjectStore,
	stories core.StoryStore,
	log *logger.Logger,
	callDelay time.Duration,
	bitrateKbps int,
) *Producer {
	return &Producer{
		segmenter:    script.NewSegmenter(),
		orchestrator: orchestrator,
		assembler:    assembler,
		artifacts:    artifacts,
		stories:      stories,
		log:          log,
		callDelay:    callDelay,
		bitrateKbps:  bitrateKbps,
	}
}

// Produce runs the full pipeline for one story.
func (p *Producer) Produce(ctx context.Context, req Request) (*Outcome, error) {
	if req.Title == "" {
		return nil, ErrTitleEmpty
	}

	utterances := p.segmenter.Segment(req.Script)
	if len(utterances) == 0 {
		return nil, ErrEmptyScript
	}

	result, err := p.orchestrator.Run(ctx, utterances, synth.Options{
		Policy:      req.Policy,
		ResumeAfter: 0,
		CallDelay:   p.callDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis failed for %q: %w", req.Title, err)
	}

	narration, err := p.assembler.Concat(result.Segments)
	if err != nil {
		return nil, fmt.Errorf("assembly failed for %q: %w", req.Title, err)
	}

	track := p.assembler.MixWithMusic(ctx, narration, req.Music)

	outcome := &Outcome{
		Record:          nil,
		UpsertResult:    core.UpsertInserted,
		UtteranceCount:  len(utterances),
		FailedSequences: result.FailedSequences,
		AudioBytes:      len(track),
	}

	if req.DryRun {
		p.log.Info(logFmtDryRun, req.Title, len(track))

		return outcome, nil
	}

	record, err := p.publish(ctx, req, track)
	if err != nil {
		return nil, err
	}

	upsertResult, err := p.stories.Upsert(*record)
	if err != nil {
		return nil, fmt.Errorf("store write failed for %q: %w", req.Title, err)
	}

	outcome.Record = record
	outcome.UpsertResult = upsertResult

	p.log.Info(logFmtProduced,
		req.Title,
		len(result.Segments), len(utterances),
		len(track), record.DurationLabel,
	)

	return outcome, nil
}

// ProduceBatch runs the pipeline for each request in turn. A failed item is
// reported and does not stop the rest of the batch.
func (p *Producer) ProduceBatch(ctx context.Context, requests []Request) []ItemResult {
	results := make([]ItemResult, 0, len(requests))
	failed := 0

	for _, req := range requests {
		outcome, err := p.Produce(ctx, req)
		if err != nil {
			p.log.Error(logFmtItemFailed, req.Title, err)

			failed++
		}

		results = append(results, ItemResult{
			Title:   req.Title,
			Err:     err,
			Outcome: outcome,
		})
	}

	p.log.Info(logFmtBatchSummary, len(requests)-failed, failed)

	return results
}

// publish uploads the assembled track and builds the story record. A crash
// between the upload and the store write can leave an orphaned artifact;
// operators reconcile via the store's backup listing.
func (p *Producer) publish(
	ctx context.Context,
	req Request,
	track []byte,
) (*core.StoryRecord, error) {
	key := uuid.NewString() + audioExtension

	audioURI, err := p.artifacts.Upload(ctx, key, track)
	if err != nil {
		return nil, fmt.Errorf("artifact upload failed for %q: %w", req.Title, err)
	}

	now := time.Now().UTC()

	return &core.StoryRecord{
		ID:            NewStoryID(),
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Dialect:       req.Dialect,
		DurationLabel: audio.DurationLabel(len(track), p.bitrateKbps),
		AudioURI:      audioURI,
		ThumbnailURI:  "",
		CreatedAt:     now,
		Generated:     true,
		Tags:          req.Tags,
	}, nil
}
