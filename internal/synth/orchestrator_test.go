// Package synth_test tests the synthesis orchestrator and failure policies.
package synth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/core"
	"github.com/fablecast/story-pipeline/internal/synth"
	"github.com/fablecast/story-pipeline/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockSynthesis = errors.New("mock synthesis error")

// mockSynthesizer fails for the sequences listed in failOn and records the
// order of texts it received.
type mockSynthesizer struct {
	failOn    map[int]bool
	callCount int
	texts     []string
	voiceIDs  []string
}

func (m *mockSynthesizer) Synthesize(
	_ context.Context,
	text, voiceID string,
	_ core.SynthesisParams,
) ([]byte, error) {
	m.callCount++
	if m.failOn[m.callCount] {
		return nil, errMockSynthesis
	}

	m.texts = append(m.texts, text)
	m.voiceIDs = append(m.voiceIDs, voiceID)

	return []byte("audio-" + text), nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "synth-test.log")
	require.NoError(t, err)

	return log
}

func makeUtterances(count int) []core.Utterance {
	utterances := make([]core.Utterance, 0, count)
	for i := 1; i <= count; i++ {
		utterances = append(utterances, core.Utterance{
			Sequence:   i,
			Speaker:    "NARRATOR",
			EmotionTag: "",
			Text:       "line " + string(rune('a'+i-1)),
		})
	}

	return utterances
}

func newOrchestrator(t *testing.T, mock *mockSynthesizer) *synth.Orchestrator {
	t.Helper()

	return synth.NewOrchestrator(mock, voice.NewResolver(), testLogger(t))
}

func TestRunSkipPolicyContinuesPastFailure(t *testing.T) {
	t.Parallel()

	mock := &mockSynthesizer{failOn: map[int]bool{3: true}}
	orchestrator := newOrchestrator(t, mock)

	result, err := orchestrator.Run(context.Background(), makeUtterances(5), synth.Options{
		Policy:    synth.SkipFailed,
		CallDelay: -1,
	})
	require.NoError(t, err)

	require.Len(t, result.Segments, 4)

	gotSequences := make([]int, 0, len(result.Segments))
	for _, segment := range result.Segments {
		gotSequences = append(gotSequences, segment.Sequence)
	}

	assert.Equal(t, []int{1, 2, 4, 5}, gotSequences)
	assert.Equal(t, []int{3}, result.FailedSequences)
	assert.Equal(t, 5, result.LastSequence)
}

func TestRunAbortPolicyFailsBatch(t *testing.T) {
	t.Parallel()

	mock := &mockSynthesizer{failOn: map[int]bool{3: true}}
	orchestrator := newOrchestrator(t, mock)

	result, err := orchestrator.Run(context.Background(), makeUtterances(5), synth.Options{
		Policy:    synth.AbortOnFailure,
		CallDelay: -1,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, errMockSynthesis)
	assert.Nil(t, result)

	// The batch stops at the failure: later utterances are never attempted.
	assert.Equal(t, 3, mock.callCount)
}

func TestRunProcessesInSequenceOrder(t *testing.T) {
	t.Parallel()

	mock := &mockSynthesizer{failOn: nil}
	orchestrator := newOrchestrator(t, mock)

	result, err := orchestrator.Run(context.Background(), makeUtterances(3), synth.Options{
		Policy:    synth.AbortOnFailure,
		CallDelay: -1,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"line a.", "line b.", "line c."}, mock.texts)
	assert.Equal(t, 3, result.LastSequence)
}

func TestRunResumeSkipsCompletedSequences(t *testing.T) {
	t.Parallel()

	mock := &mockSynthesizer{failOn: nil}
	orchestrator := newOrchestrator(t, mock)

	result, err := orchestrator.Run(context.Background(), makeUtterances(5), synth.Options{
		Policy:      synth.SkipFailed,
		ResumeAfter: 3,
		CallDelay:   -1,
	})
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)
	assert.Equal(t, 4, result.Segments[0].Sequence)
	assert.Equal(t, 5, result.Segments[1].Sequence)
	assert.Equal(t, 2, mock.callCount)
}

func TestRunResolvesVoicesPerSpeaker(t *testing.T) {
	t.Parallel()

	mock := &mockSynthesizer{failOn: nil}
	orchestrator := newOrchestrator(t, mock)

	utterances := []core.Utterance{
		{Sequence: 1, Speaker: "NARRATOR", EmotionTag: "WHISPER", Text: "Hello."},
		{Sequence: 2, Speaker: "HERO", EmotionTag: "", Text: "I am ready."},
	}

	result, err := orchestrator.Run(context.Background(), utterances, synth.Options{
		Policy:    synth.AbortOnFailure,
		CallDelay: -1,
	})
	require.NoError(t, err)
	require.Len(t, result.Segments, 2)

	assert.Equal(t, "vc-narrator-01", mock.voiceIDs[0])
	assert.Equal(t, "vc-young-male-01", mock.voiceIDs[1])
}

func TestRunEmptyBatch(t *testing.T) {
	t.Parallel()

	orchestrator := newOrchestrator(t, &mockSynthesizer{failOn: nil})

	_, err := orchestrator.Run(context.Background(), nil, synth.Options{
		Policy:    synth.SkipFailed,
		CallDelay: -1,
	})
	require.ErrorIs(t, err, synth.ErrNoUtterances)
}
