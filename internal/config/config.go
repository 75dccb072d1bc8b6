// Package config provides the configuration structure for the story
// production pipeline.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// SynthesisConfig holds the speech-synthesis provider settings.
type SynthesisConfig struct {
	ServiceURL     string `toml:"service_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CallDelayMs    int    `toml:"call_delay_ms"`
}

// StoreConfig holds the content store file locations.
type StoreConfig struct {
	Path        string `toml:"path"`
	BackupDir   string `toml:"backup_dir"`
	KeepBackups int    `toml:"keep_backups"`
}

// NATSConfig holds the connection and bucket settings for artifact storage
// and queued story jobs.
type NATSConfig struct {
	URL             string `toml:"url"`
	ArtifactBucket  string `toml:"artifact_bucket"`
	StoryJobSubject string `toml:"story_job_subject"`
}

// AudioConfig holds assembly and mixing settings.
type AudioConfig struct {
	FFmpegPath     string  `toml:"ffmpeg_path"`
	MusicPath      string  `toml:"music_path"`
	MusicVolume    float64 `toml:"music_volume"`
	BitrateKbps    int     `toml:"bitrate_kbps"`
	DisableMixing  bool    `toml:"disable_mixing"`
	FadeInSeconds  float64 `toml:"fade_in_seconds"`
	FadeOutSeconds float64 `toml:"fade_out_seconds"`
}

// ScheduleConfig holds the genre rotation settings.
type ScheduleConfig struct {
	Genres      []string `toml:"genres"`
	SlotsPerDay int      `toml:"slots_per_day"`
}

// PathsConfig holds file path settings.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Synthesis SynthesisConfig `toml:"synthesis"`
	Store     StoreConfig     `toml:"store"`
	NATS      NATSConfig      `toml:"nats"`
	Audio     AudioConfig     `toml:"audio"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load loads the pipeline configuration.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
