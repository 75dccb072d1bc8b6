// Package worker provides a NATS worker that runs the story production
// pipeline for queued jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/pipeline"
	"github.com/fablecast/story-pipeline/internal/synth"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// handleMessageTimeout bounds one full story production run, external
// synthesis calls included.
const handleMessageTimeout = 10 * time.Minute

// ErrScriptEmpty indicates a job arrived without a script.
var ErrScriptEmpty = errors.New("job script cannot be empty")

// StoryJobEvent is the payload of one queued story production job.
type StoryJobEvent struct {
	JobID       string   `json:"job_id"`
	Script      string   `json:"script"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Dialect     string   `json:"dialect"`
	Tags        []string `json:"tags,omitempty"`
}

// StoryCompletedEvent is the reply published when a job finishes.
type StoryCompletedEvent struct {
	JobID           string `json:"job_id"`
	StoryID         int64  `json:"story_id,omitempty"`
	AudioURI        string `json:"audio_uri,omitempty"`
	FailedSequences []int  `json:"failed_sequences,omitempty"`
	Error           string `json:"error,omitempty"`
}

// NatsWorker listens for story jobs on a NATS subject and runs the
// production pipeline for each one.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	producer       *pipeline.Producer
	log            *logger.Logger
}

// NewNatsWorker creates a worker bound to the given subject.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	producer *pipeline.Producer,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		producer:       producer,
		log:            log,
	}
}

// Run starts the worker and blocks until the context is canceled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := parseJobEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse story job: %v", err)

		return
	}

	reply := w.processJob(ctx, event)

	err = w.publishReply(msg, reply)
	if err != nil {
		w.log.Error("Failed to publish reply for job %s: %v", event.JobID, err)
	}
}

// processJob runs the pipeline for one job. Queued jobs are background bulk
// work, so failed utterances are skipped rather than aborting the story.
func (w *NatsWorker) processJob(
	ctx context.Context,
	event *StoryJobEvent,
) *StoryCompletedEvent {
	reply := &StoryCompletedEvent{
		JobID:           event.JobID,
		StoryID:         0,
		AudioURI:        "",
		FailedSequences: nil,
		Error:           "",
	}

	outcome, err := w.producer.Produce(ctx, pipeline.Request{
		Script:      event.Script,
		Title:       event.Title,
		Description: event.Description,
		Category:    event.Category,
		Dialect:     event.Dialect,
		Tags:        event.Tags,
		Music:       nil,
		Policy:      synth.SkipFailed,
		DryRun:      false,
	})
	if err != nil {
		w.log.Error("Story job %s failed: %v", event.JobID, err)

		reply.Error = err.Error()

		return reply
	}

	reply.StoryID = outcome.Record.ID
	reply.AudioURI = outcome.Record.AudioURI
	reply.FailedSequences = outcome.FailedSequences

	return reply
}

func (w *NatsWorker) publishReply(msg *nats.Msg, reply *StoryCompletedEvent) error {
	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseJobEvent(msg *nats.Msg) (*StoryJobEvent, error) {
	var event StoryJobEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal job event: %w", err)
	}

	if event.Script == "" {
		return nil, ErrScriptEmpty
	}

	if event.JobID == "" {
		event.JobID = uuid.NewString()
	}

	return &event, nil
}
