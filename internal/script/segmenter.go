// Package script turns a tagged narration script into an ordered list of
// speaker utterances.
//
// The grammar is deliberately small. A bracketed token followed by a colon
// (`[TAG]: text`) starts a speaker turn; several turns may share one line.
// A bracketed token without a colon inside a turn's body is an emotion
// marker. Lines containing no speaker turn are dropped, never appended to
// the previous utterance.
package script

import (
	"strings"

	"github.com/fablecast/story-pipeline/internal/core"
)

// Tag delimiters and separators recognized by the parser.
const (
	tagOpen      = '['
	tagClose     = ']'
	tagSeparator = ':'
)

// firstSequence is the sequence number assigned to the first utterance.
const firstSequence = 1

// speakerTurn is one `[TAG]: body` span found within a line.
type speakerTurn struct {
	speaker string
	body    string
}

// Segmenter parses script text into utterances. It is stateless; the zero
// value is not usable, construct with NewSegmenter.
type Segmenter struct{}

// NewSegmenter creates a script segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment parses a raw script into its ordered utterance list. Sequence
// numbers start at 1 and are gapless. Text on a line before its first
// speaker tag is dropped, as are lines with no speaker tag at all. The
// same input always yields the same output.
func (s *Segmenter) Segment(text string) []core.Utterance {
	var utterances []core.Utterance

	sequence := firstSequence

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, turn := range scanTurns(line) {
			emotion, cleanText := extractEmotion(turn.body)
			if cleanText == "" {
				continue
			}

			utterances = append(utterances, core.Utterance{
				Sequence:   sequence,
				Speaker:    turn.speaker,
				EmotionTag: emotion,
				Text:       cleanText,
			})
			sequence++
		}
	}

	return utterances
}

// scanTurns splits a line at each speaker tag. Each turn's body runs until
// the next speaker tag or the end of the line.
func scanTurns(line string) []speakerTurn {
	var turns []speakerTurn

	_, speaker, bodyStart, found := findSpeakerTag(line, 0)

	for found {
		nextStart, nextSpeaker, nextBodyStart, nextFound := findSpeakerTag(line, bodyStart)

		bodyEnd := len(line)
		if nextFound {
			bodyEnd = nextStart
		}

		turns = append(turns, speakerTurn{
			speaker: speaker,
			body:    strings.TrimSpace(line[bodyStart:bodyEnd]),
		})

		speaker, bodyStart, found = nextSpeaker, nextBodyStart, nextFound
	}

	return turns
}

// findSpeakerTag locates the next `[tag]:` occurrence at or after from. A
// bracketed token only starts a turn when a colon follows it (whitespace
// allowed); anything else, including an empty tag, is skipped.
func findSpeakerTag(line string, from int) (start int, speaker string, bodyStart int, found bool) {
	for from < len(line) {
		openIdx := strings.IndexByte(line[from:], byte(tagOpen))
		if openIdx < 0 {
			return 0, "", 0, false
		}

		openIdx += from

		closeOffset := strings.IndexByte(line[openIdx:], byte(tagClose))
		if closeOffset < 0 {
			return 0, "", 0, false
		}

		closeIdx := openIdx + closeOffset

		tag := strings.TrimSpace(line[openIdx+1 : closeIdx])
		afterTag := skipSpaces(line, closeIdx+1)

		if tag != "" && afterTag < len(line) && rune(line[afterTag]) == tagSeparator {
			return openIdx, tag, afterTag + 1, true
		}

		from = closeIdx + 1
	}

	return 0, "", 0, false
}

// extractEmotion applies the embedded-token sub-rule: the first bracketed
// token in the body becomes the emotion tag. All bracketed tokens are
// stripped from the returned text, so stray markers never reach synthesis.
func extractEmotion(body string) (emotion, cleanText string) {
	var builder strings.Builder

	remaining := body

	for {
		openIdx := strings.IndexByte(remaining, byte(tagOpen))
		if openIdx < 0 {
			builder.WriteString(remaining)

			break
		}

		closeOffset := strings.IndexByte(remaining[openIdx:], byte(tagClose))
		if closeOffset < 0 {
			builder.WriteString(remaining)

			break
		}

		token := strings.TrimSpace(remaining[openIdx+1 : openIdx+closeOffset])
		if emotion == "" && token != "" {
			emotion = token
		}

		builder.WriteString(remaining[:openIdx])

		remaining = remaining[openIdx+closeOffset+1:]
	}

	return emotion, normalizeSpaces(builder.String())
}

// skipSpaces returns the index of the first non-space byte at or after idx.
func skipSpaces(line string, idx int) int {
	for idx < len(line) && (line[idx] == ' ' || line[idx] == '\t') {
		idx++
	}

	return idx
}

// normalizeSpaces collapses runs of whitespace left behind by token
// removal into single spaces.
func normalizeSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
