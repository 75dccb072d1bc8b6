// Package script_test tests the script segmenter.
package script_test

import (
	"testing"

	"github.com/fablecast/story-pipeline/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentBasicScript(t *testing.T) {
	t.Parallel()

	input := "[NARRATOR]: Once upon a time.\n[HERO]: I am ready."

	utterances := script.NewSegmenter().Segment(input)
	require.Len(t, utterances, 2)

	assert.Equal(t, 1, utterances[0].Sequence)
	assert.Equal(t, "NARRATOR", utterances[0].Speaker)
	assert.Equal(t, "Once upon a time.", utterances[0].Text)
	assert.Empty(t, utterances[0].EmotionTag)

	assert.Equal(t, 2, utterances[1].Sequence)
	assert.Equal(t, "HERO", utterances[1].Speaker)
	assert.Equal(t, "I am ready.", utterances[1].Text)
}

func TestSegmentExtractsEmotionMarker(t *testing.T) {
	t.Parallel()

	input := "[NARRATOR]: Hello. [WHISPER]\n[HERO]: I am ready."

	utterances := script.NewSegmenter().Segment(input)
	require.Len(t, utterances, 2)

	assert.Equal(t, "WHISPER", utterances[0].EmotionTag)
	assert.Equal(t, "Hello.", utterances[0].Text)
	assert.Empty(t, utterances[1].EmotionTag)
}

func TestSegmentFirstEmbeddedTokenWins(t *testing.T) {
	t.Parallel()

	input := "[ELDER]: Listen [FEARFUL] closely [CHEERFUL] now."

	utterances := script.NewSegmenter().Segment(input)
	require.Len(t, utterances, 1)

	assert.Equal(t, "FEARFUL", utterances[0].EmotionTag)
	assert.Equal(t, "Listen closely now.", utterances[0].Text)
}

func TestSegmentSplitsTurnsWithinOneLine(t *testing.T) {
	t.Parallel()

	input := "[NARRATOR]: Hello. [WHISPER] [HERO]: I am ready."

	utterances := script.NewSegmenter().Segment(input)
	require.Len(t, utterances, 2)

	assert.Equal(t, "NARRATOR", utterances[0].Speaker)
	assert.Equal(t, "WHISPER", utterances[0].EmotionTag)
	assert.Equal(t, "Hello.", utterances[0].Text)

	assert.Equal(t, 2, utterances[1].Sequence)
	assert.Equal(t, "HERO", utterances[1].Speaker)
	assert.Equal(t, "I am ready.", utterances[1].Text)
	assert.Empty(t, utterances[1].EmotionTag)
}

func TestSegmentDropsUntaggedLines(t *testing.T) {
	t.Parallel()

	input := "Scene one, a dark forest.\n" +
		"[NARRATOR]: The trees whispered.\n" +
		"no colon here\n" +
		"[]: empty tag\n" +
		"[NARRATOR] missing separator\n" +
		"[CHILD]: Are we lost?"

	utterances := script.NewSegmenter().Segment(input)
	require.Len(t, utterances, 2)

	assert.Equal(t, "The trees whispered.", utterances[0].Text)
	assert.Equal(t, "Are we lost?", utterances[1].Text)
}

func TestSegmentSequencesAreGapless(t *testing.T) {
	t.Parallel()

	input := "[A]: one\n\n   \nnot a line\n[B]: two\n[C]: three"

	utterances := script.NewSegmenter().Segment(input)
	require.Len(t, utterances, 3)

	for i, utterance := range utterances {
		assert.Equal(t, i+1, utterance.Sequence)
	}
}

func TestSegmentIsDeterministic(t *testing.T) {
	t.Parallel()

	input := "[NARRATOR]: Hello. [WHISPER]\n[HERO]: I am ready."

	segmenter := script.NewSegmenter()

	first := segmenter.Segment(input)
	second := segmenter.Segment(input)

	assert.Equal(t, first, second)
}

func TestSegmentEmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, script.NewSegmenter().Segment(""))
	assert.Empty(t, script.NewSegmenter().Segment("   \n\t\n"))
}

func TestSegmentDropsEmotionOnlyBody(t *testing.T) {
	t.Parallel()

	// A line whose body is just a marker has no speakable text.
	utterances := script.NewSegmenter().Segment("[NARRATOR]: [WHISPER]")
	assert.Empty(t, utterances)
}
