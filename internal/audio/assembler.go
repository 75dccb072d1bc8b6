// Package audio assembles per-utterance audio segments into one narration
// track and optionally layers background music under it.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/core"
)

// Background music mix defaults: music sits well under the narration with a
// gentle fade at both ends.
const (
	DefaultMusicVolume = 0.15
	DefaultFadeIn      = 2.0
	DefaultFadeOut     = 3.0
)

// DefaultBitrateKbps is the assumed encode bitrate when deriving a duration
// label from raw byte length.
const DefaultBitrateKbps = 128

const secondsPerMinute = 60

// Static errors.
var (
	ErrNoSegments   = errors.New("no audio segments to assemble")
	ErrEmptySegment = errors.New("audio segment has no data")
)

// Assembler concatenates ordered audio segments and applies the optional
// background music stage through a mixing port.
type Assembler struct {
	mixer       core.Mixer
	log         *logger.Logger
	musicVolume float64
	fadeIn      float64
	fadeOut     float64
}

// NewAssembler creates an assembler with the default mix settings. The
// mixer may be nil, in which case MixWithMusic always returns the narration
// unchanged.
func NewAssembler(mixer core.Mixer, log *logger.Logger) *Assembler {
	return NewAssemblerWithMix(
		mixer, log, DefaultMusicVolume, DefaultFadeIn, DefaultFadeOut)
}

// NewAssemblerWithMix creates an assembler with explicit music volume and
// fade durations. Non-positive values fall back to the defaults.
func NewAssemblerWithMix(
	mixer core.Mixer,
	log *logger.Logger,
	musicVolume, fadeIn, fadeOut float64,
) *Assembler {
	if musicVolume <= 0 {
		musicVolume = DefaultMusicVolume
	}

	if fadeIn <= 0 {
		fadeIn = DefaultFadeIn
	}

	if fadeOut <= 0 {
		fadeOut = DefaultFadeOut
	}

	return &Assembler{
		mixer:       mixer,
		log:         log,
		musicVolume: musicVolume,
		fadeIn:      fadeIn,
		fadeOut:     fadeOut,
	}
}

// Concat joins the segments into one gap-less buffer in sequence order.
// All segments are assumed to share one codec and bitrate; the assembler
// does not verify this. A missing or empty segment fails the batch, since
// no valid output can exist without it.
func (a *Assembler) Concat(segments []core.AudioSegment) ([]byte, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	ordered := make([]core.AudioSegment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	totalSize := 0

	for _, segment := range ordered {
		if len(segment.Bytes) == 0 {
			return nil, fmt.Errorf("%w: sequence %d", ErrEmptySegment, segment.Sequence)
		}

		totalSize += len(segment.Bytes)
	}

	track := make([]byte, 0, totalSize)
	for _, segment := range ordered {
		track = append(track, segment.Bytes...)
	}

	return track, nil
}

// MixWithMusic layers the background track under the narration at a low
// relative volume with fades. Mixing is best-effort: any failure of the
// mixing port degrades to the unmixed narration rather than failing the
// pipeline.
func (a *Assembler) MixWithMusic(
	ctx context.Context,
	narration, music []byte,
) []byte {
	if a.mixer == nil || len(music) == 0 {
		return narration
	}

	mixed, err := a.mixer.Mix(
		ctx, narration, music,
		a.musicVolume, a.fadeIn, a.fadeOut,
	)
	if err != nil {
		a.log.Warn("Background mix failed, keeping narration only: %v", err)

		return narration
	}

	return mixed
}

// DurationLabel derives a human-readable duration label from the encoded
// byte length, assuming a constant bitrate.
func DurationLabel(byteLen int, bitrateKbps int) string {
	if bitrateKbps <= 0 {
		bitrateKbps = DefaultBitrateKbps
	}

	seconds := byteLen * 8 / (bitrateKbps * 1000)
	duration := time.Duration(seconds) * time.Second

	minutes := int(duration.Minutes())
	if minutes < 1 {
		return fmt.Sprintf("%d sec", seconds)
	}

	remainder := seconds % secondsPerMinute
	if remainder == 0 {
		return fmt.Sprintf("%d min", minutes)
	}

	return fmt.Sprintf("%d min %d sec", minutes, remainder)
}
