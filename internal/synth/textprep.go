package synth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Punctuation normalization constants.
const (
	emDash       = "—"
	enDash       = "–"
	ellipsisChar = "…"
	ellipsis     = "..."
)

// quoteAndDashReplacer folds typographic punctuation the provider tends to
// mispronounce into plain ASCII equivalents.
var quoteAndDashReplacer = strings.NewReplacer(
	emDash, "-",
	enDash, "-",
	ellipsisChar, ellipsis,
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
)

// PrepareText normalizes utterance text before synthesis: collapses
// whitespace, folds smart quotes and dashes, and ensures the text ends with
// sentence punctuation so the provider does not trail off mid-phrase.
func PrepareText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = quoteAndDashReplacer.Replace(text)

	return ensureSentenceEnding(text)
}

// ensureSentenceEnding appends a period when the text does not already end
// with terminal punctuation.
func ensureSentenceEnding(text string) string {
	if text == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(text)

	switch lastChar {
	case '.', '!', '?':
		return text
	}

	if unicode.IsPunct(lastChar) {
		return text
	}

	return text + "."
}
