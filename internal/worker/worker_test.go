// Package worker_test tests the NATS story job worker.
package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/audio"
	"github.com/fablecast/story-pipeline/internal/core"
	"github.com/fablecast/story-pipeline/internal/pipeline"
	"github.com/fablecast/story-pipeline/internal/synth"
	"github.com/fablecast/story-pipeline/internal/voice"
	"github.com/fablecast/story-pipeline/internal/worker"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobSubject = "story.jobs"

// mockSynthesizer returns canned audio for every utterance.
type mockSynthesizer struct{}

func (m *mockSynthesizer) Synthesize(
	_ context.Context,
	text, _ string,
	_ core.SynthesisParams,
) ([]byte, error) {
	return []byte("<" + text + ">"), nil
}

// mockArtifactStore returns a fixed URI.
type mockArtifactStore struct{}

func (m *mockArtifactStore) Upload(_ context.Context, key string, _ []byte) (string, error) {
	return "nats://artifacts/" + key, nil
}

func (m *mockArtifactStore) Download(_ context.Context, _ string) ([]byte, error) {
	return nil, nil
}

// mockStoryStore captures records.
type mockStoryStore struct {
	records []core.StoryRecord
}

func (m *mockStoryStore) Get(_ int64) (*core.StoryRecord, error) { return nil, nil }
func (m *mockStoryStore) ListAll() ([]core.StoryRecord, error)   { return m.records, nil }

func (m *mockStoryStore) Upsert(record core.StoryRecord) (core.UpsertResult, error) {
	m.records = append(m.records, record)

	return core.UpsertInserted, nil
}

func (m *mockStoryStore) Backup(_ string) (string, error)         { return "", nil }
func (m *mockStoryStore) ListBackups() ([]core.BackupInfo, error) { return nil, nil }
func (m *mockStoryStore) Restore(_ string) error                  { return nil }
func (m *mockStoryStore) Stats() (core.StoreStats, error)         { return core.StoreStats{}, nil }

func setupWorker(t *testing.T) (*nats.Conn, *mockStoryStore, func()) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	require.NoError(t, err)

	log, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	stories := &mockStoryStore{records: nil}

	orchestrator := synth.NewOrchestrator(&mockSynthesizer{}, voice.NewResolver(), log)
	assembler := audio.NewAssembler(nil, log)
	producer := pipeline.NewProducer(
		orchestrator, assembler, &mockArtifactStore{}, stories, log, -1, 128)

	storyWorker := worker.NewNatsWorker(natsConnection, jobSubject, producer, log)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		runErr := storyWorker.Run(ctx)
		if runErr != nil {
			t.Logf("worker stopped: %v", runErr)
		}
	}()

	// Give the subscription a moment to register.
	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		cancel()
		natsConnection.Close()
		natsServer.Shutdown()
	}

	return natsConnection, stories, cleanup
}

func TestWorkerProcessesJobAndReplies(t *testing.T) {
	t.Parallel()

	natsConnection, stories, cleanup := setupWorker(t)
	defer cleanup()

	job := worker.StoryJobEvent{
		JobID:       "job-1",
		Script:      "[NARRATOR]: Hello. [WHISPER]\n[HERO]: I am ready.",
		Title:       "The Ready Hero",
		Description: "a short test story",
		Category:    "adventure",
		Dialect:     "en",
		Tags:        []string{"test"},
	}

	payload, err := json.Marshal(job)
	require.NoError(t, err)

	msg, err := natsConnection.Request(jobSubject, payload, 10*time.Second)
	require.NoError(t, err)

	var reply worker.StoryCompletedEvent

	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Equal(t, "job-1", reply.JobID)
	assert.Empty(t, reply.Error)
	assert.Positive(t, reply.StoryID)
	assert.Contains(t, reply.AudioURI, "nats://artifacts/")

	require.Len(t, stories.records, 1)
	assert.Equal(t, "The Ready Hero", stories.records[0].Title)
	assert.True(t, stories.records[0].Generated)
}

func TestWorkerReportsFailureInReply(t *testing.T) {
	t.Parallel()

	natsConnection, stories, cleanup := setupWorker(t)
	defer cleanup()

	job := worker.StoryJobEvent{
		JobID:  "job-2",
		Script: "no tagged lines at all",
		Title:  "Broken",
	}

	payload, err := json.Marshal(job)
	require.NoError(t, err)

	msg, err := natsConnection.Request(jobSubject, payload, 10*time.Second)
	require.NoError(t, err)

	var reply worker.StoryCompletedEvent

	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Equal(t, "job-2", reply.JobID)
	assert.NotEmpty(t, reply.Error)
	assert.Zero(t, reply.StoryID)

	assert.Empty(t, stories.records)
}
