package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/core"
	"github.com/fablecast/story-pipeline/internal/voice"
)

// DefaultCallDelay is the pause inserted between consecutive provider calls
// to stay inside the provider's rate limit.
const DefaultCallDelay = 400 * time.Millisecond

// FailurePolicy selects how the orchestrator reacts when one utterance
// fails to synthesize.
type FailurePolicy int

const (
	// AbortOnFailure fails the whole batch on the first synthesis error and
	// returns no segments. Used by interactive, user-triggered flows.
	AbortOnFailure FailurePolicy = iota
	// SkipFailed logs the failed utterance and continues with the rest.
	// Used by bulk background generation.
	SkipFailed
)

// Static errors.
var (
	ErrNoUtterances = errors.New("no utterances to synthesize")
)

// Log formats.
const (
	logFmtUtteranceFailed = "Utterance %d (%s) failed to synthesize, skipping: %v"
	logFmtUtteranceDone   = "Synthesized utterance %d/%d (%d bytes)"
	logFmtResuming        = "Resuming synthesis after sequence %d"
)

// Options controls one orchestration run.
type Options struct {
	// Policy selects abort or skip behavior on per-utterance failure.
	Policy FailurePolicy
	// ResumeAfter skips utterances with Sequence <= ResumeAfter, so a rerun
	// does not repeat synthesis work that already completed. Zero means
	// start from the beginning.
	ResumeAfter int
	// CallDelay overrides the inter-call pause. Zero means DefaultCallDelay;
	// negative means no delay (tests).
	CallDelay time.Duration
}

// Result carries the outcome of one orchestration run.
type Result struct {
	// Segments holds one entry per successfully synthesized utterance, in
	// sequence order. Under SkipFailed it may be shorter than the input;
	// consumers must track by Sequence, not position.
	Segments []core.AudioSegment
	// FailedSequences lists the utterances skipped under SkipFailed.
	FailedSequences []int
	// LastSequence is the highest sequence the run got through, the resume
	// checkpoint for a follow-up run.
	LastSequence int
}

// Orchestrator produces one audio segment per utterance, strictly in
// sequence order, one provider call in flight at a time.
type Orchestrator struct {
	synthesizer core.SpeechSynthesizer
	resolver    *voice.Resolver
	log         *logger.Logger
}

// NewOrchestrator creates an orchestrator over the given synthesis port.
func NewOrchestrator(
	synthesizer core.SpeechSynthesizer,
	resolver *voice.Resolver,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		synthesizer: synthesizer,
		resolver:    resolver,
		log:         log,
	}
}

// Run synthesizes the ordered utterance list. Utterances are processed
// strictly in sequence order with a blocking delay between provider calls.
// Under AbortOnFailure the first error fails the batch and no segments are
// returned; under SkipFailed failed utterances are recorded and the run
// completes with the segments that succeeded.
func (o *Orchestrator) Run(
	ctx context.Context,
	utterances []core.Utterance,
	opts Options,
) (*Result, error) {
	if len(utterances) == 0 {
		return nil, ErrNoUtterances
	}

	if opts.ResumeAfter > 0 {
		o.log.Info(logFmtResuming, opts.ResumeAfter)
	}

	result := &Result{
		Segments:        nil,
		FailedSequences: nil,
		LastSequence:    opts.ResumeAfter,
	}

	delay := callDelay(opts)
	madeCall := false

	for _, utterance := range utterances {
		if utterance.Sequence <= opts.ResumeAfter {
			continue
		}

		if madeCall {
			waitErr := waitBetweenCalls(ctx, delay)
			if waitErr != nil {
				return nil, waitErr
			}
		}

		madeCall = true

		segment, synthErr := o.synthesizeOne(ctx, utterance)
		if synthErr != nil {
			if opts.Policy == AbortOnFailure {
				return nil, fmt.Errorf(
					"utterance %d failed: %w", utterance.Sequence, synthErr)
			}

			o.log.Warn(logFmtUtteranceFailed,
				utterance.Sequence, utterance.Speaker, synthErr)

			result.FailedSequences = append(
				result.FailedSequences, utterance.Sequence)
			result.LastSequence = utterance.Sequence

			continue
		}

		result.Segments = append(result.Segments, segment)
		result.LastSequence = utterance.Sequence

		o.log.Info(logFmtUtteranceDone,
			utterance.Sequence, len(utterances), len(segment.Bytes))
	}

	return result, nil
}

// synthesizeOne resolves the utterance's voice and parameters and performs
// a single provider call with cleaned text.
func (o *Orchestrator) synthesizeOne(
	ctx context.Context,
	utterance core.Utterance,
) (core.AudioSegment, error) {
	assignment := o.resolver.Resolve(utterance.Speaker, utterance.EmotionTag)

	audio, err := o.synthesizer.Synthesize(
		ctx,
		PrepareText(utterance.Text),
		assignment.VoiceID,
		assignment.Params,
	)
	if err != nil {
		return core.AudioSegment{}, err
	}

	return core.AudioSegment{
		Sequence:     utterance.Sequence,
		Bytes:        audio,
		DurationHint: 0,
	}, nil
}

func callDelay(opts Options) time.Duration {
	if opts.CallDelay < 0 {
		return 0
	}

	if opts.CallDelay == 0 {
		return DefaultCallDelay
	}

	return opts.CallDelay
}

// waitBetweenCalls blocks for the rate-limit delay, honoring cancellation.
func waitBetweenCalls(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("synthesis batch canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
