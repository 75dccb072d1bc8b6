// Package voice maps script speaker labels to synthesis voice identities and
// emotion labels to provider tone presets.
//
// Both resolutions are total: any input, including the empty string or an
// unknown label, yields a usable voice and a complete parameter set.
package voice

import (
	"strings"

	"github.com/fablecast/story-pipeline/internal/core"
)

// Role category names. The narrator doubles as the fallback for speakers
// that match no category.
const (
	RoleNarrator    = "narrator"
	RoleElderMale   = "elder-male"
	RoleElderFemale = "elder-female"
	RoleYoungMale   = "young-male"
	RoleYoungFemale = "young-female"
	RoleChild       = "child"
)

// Emotion preset names.
const (
	EmotionNeutral  = "neutral"
	EmotionWhisper  = "whisper"
	EmotionFearful  = "fearful"
	EmotionCheerful = "cheerful"
	EmotionSolemn   = "solemn"
	EmotionAngry    = "angry"
)

// roleKeywords associates each role category with the lowercase keywords
// matched as substrings against the speaker label. Order matters: the first
// category with a matching keyword wins.
type roleKeywords struct {
	role     string
	keywords []string
}

// Resolver performs speaker and emotion resolution against static tables.
type Resolver struct {
	voiceByRole  map[string]string
	roleMatchers []roleKeywords
	presets      map[string]core.SynthesisParams
	defaultVoice string
}

// NewResolver creates a resolver with the built-in role and emotion tables.
func NewResolver() *Resolver {
	return &Resolver{
		voiceByRole: map[string]string{
			RoleNarrator:    "vc-narrator-01",
			RoleElderMale:   "vc-elder-male-01",
			RoleElderFemale: "vc-elder-female-01",
			RoleYoungMale:   "vc-young-male-01",
			RoleYoungFemale: "vc-young-female-01",
			RoleChild:       "vc-child-01",
		},
		roleMatchers: []roleKeywords{
			{RoleChild, []string{"child", "kid", "boy", "girl", "little"}},
			{RoleElderFemale, []string{"grandmother", "grandma", "old woman", "elder woman", "crone", "witch"}},
			{RoleElderMale, []string{"grandfather", "grandpa", "old man", "elder", "sage", "wizard"}},
			{RoleYoungFemale, []string{"woman", "girl", "heroine", "princess", "mother", "sister", "queen"}},
			{RoleYoungMale, []string{"man", "hero", "prince", "father", "brother", "king", "soldier"}},
			{RoleNarrator, []string{"narrator", "storyteller", "voice"}},
		},
		presets: map[string]core.SynthesisParams{
			EmotionNeutral:  {Stability: 0.50, SimilarityBoost: 0.75, Style: 0.00, SpeakerBoost: true},
			EmotionWhisper:  {Stability: 0.30, SimilarityBoost: 0.80, Style: 0.60, SpeakerBoost: false},
			EmotionFearful:  {Stability: 0.25, SimilarityBoost: 0.75, Style: 0.70, SpeakerBoost: true},
			EmotionCheerful: {Stability: 0.45, SimilarityBoost: 0.70, Style: 0.45, SpeakerBoost: true},
			EmotionSolemn:   {Stability: 0.70, SimilarityBoost: 0.80, Style: 0.20, SpeakerBoost: true},
			EmotionAngry:    {Stability: 0.20, SimilarityBoost: 0.70, Style: 0.80, SpeakerBoost: true},
		},
		defaultVoice: "vc-narrator-01",
	}
}

// Resolve maps a speaker label and an optional emotion label to a voice
// identity and a complete parameter set. It never fails.
func (r *Resolver) Resolve(speaker, emotionTag string) core.VoiceAssignment {
	return core.VoiceAssignment{
		VoiceID: r.ResolveVoice(speaker),
		Params:  r.ResolveEmotion(emotionTag),
	}
}

// ResolveVoice matches the speaker label, case-insensitively, against the
// role keyword table. Speakers matching no category get the narrator voice.
func (r *Resolver) ResolveVoice(speaker string) string {
	label := strings.ToLower(strings.TrimSpace(speaker))
	if label == "" {
		return r.defaultVoice
	}

	for _, matcher := range r.roleMatchers {
		for _, keyword := range matcher.keywords {
			if strings.Contains(label, keyword) {
				return r.voiceByRole[matcher.role]
			}
		}
	}

	return r.defaultVoice
}

// ResolveEmotion looks up the preset for the given emotion label. Unknown
// or absent labels resolve to the neutral preset.
func (r *Resolver) ResolveEmotion(emotionTag string) core.SynthesisParams {
	label := strings.ToLower(strings.TrimSpace(emotionTag))

	preset, found := r.presets[label]
	if !found {
		return r.presets[EmotionNeutral]
	}

	return preset
}
