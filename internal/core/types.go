package core

import "time"

// Utterance is one speaker turn extracted from a script. Sequence is the
// sole ordering key: strictly increasing and gapless within one script.
// Immutable once created.
type Utterance struct {
	Sequence   int    `json:"sequence"`
	Speaker    string `json:"speaker"`
	EmotionTag string `json:"emotion_tag,omitempty"`
	Text       string `json:"text"`
}

// VoiceAssignment binds one utterance to a synthesis voice and its tone
// parameters. Derived, never persisted.
type VoiceAssignment struct {
	UtteranceSequence int
	VoiceID           string
	Params            SynthesisParams
}

// AudioSegment is the audio produced for one utterance. A failed utterance
// has no segment, so callers track segments by Sequence, not by position.
type AudioSegment struct {
	Sequence     int
	Bytes        []byte
	DurationHint float64
}

// StoryRecord is the durable unit representing one published audio story.
type StoryRecord struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Dialect       string    `json:"dialect"`
	DurationLabel string    `json:"duration_label"`
	AudioURI      string    `json:"audio_uri"`
	ThumbnailURI  string    `json:"thumbnail_uri,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Generated     bool      `json:"generated"`
	Tags          []string  `json:"tags,omitempty"`
}

// BackupInfo describes one snapshot of the story store.
type BackupInfo struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// StoreStats is the aggregate view returned by a full store scan.
type StoreStats struct {
	TotalRecords       int `json:"total_records"`
	GeneratedRecords   int `json:"generated_records"`
	DistinctCategories int `json:"distinct_categories"`
	BackupCount        int `json:"backup_count"`
}

// ScheduleSlot is one planned content slot for a given date.
type ScheduleSlot struct {
	Date              time.Time `json:"date"`
	SlotIndex         int       `json:"slot_index"`
	Genre             string    `json:"genre"`
	IsSpecialOccasion bool      `json:"is_special_occasion"`
	OccasionName      string    `json:"occasion_name,omitempty"`
}
