// Package core defines the shared types and ports for the story production
// pipeline.
package core

import "context"

// SynthesisParams is the bundle of provider tone parameters attached to a
// voice for one utterance.
type SynthesisParams struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// SpeechSynthesizer converts one utterance of text into raw audio bytes.
// Implementations own their transport, timeouts, and provider error mapping.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, params SynthesisParams) ([]byte, error)
}

// Mixer layers a background track under a narration track at a reduced
// volume with fades. Implementations may shell out to an external tool;
// failures are surfaced to the caller, not absorbed.
type Mixer interface {
	Mix(ctx context.Context, narration, music []byte, volume, fadeIn, fadeOut float64) ([]byte, error)
}

// ObjectStore persists final artifacts (audio, thumbnails) outside the
// process and returns a public URI for each upload.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// StoryStore is the durable collection of story records. Every mutating
// operation snapshots the store before applying the change.
type StoryStore interface {
	Get(id int64) (*StoryRecord, error)
	ListAll() ([]StoryRecord, error)
	Upsert(record StoryRecord) (UpsertResult, error)
	Backup(label string) (string, error)
	ListBackups() ([]BackupInfo, error)
	Restore(backupID string) error
	Stats() (StoreStats, error)
}

// UpsertResult reports what an upsert actually did.
type UpsertResult int

const (
	// UpsertInserted means a brand-new record was added.
	UpsertInserted UpsertResult = iota
	// UpsertReplaced means an existing record with the same ID was replaced
	// in place.
	UpsertReplaced
	// UpsertSkippedDuplicate means a near-duplicate title already existed and
	// the insert was treated as already satisfied.
	UpsertSkippedDuplicate
)
