package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/book-expert/logger"
)

const mixFilterFormat = "[1:a]volume=%.2f,afade=t=in:d=%.1f,afade=t=out:st=%.1f:d=%.1f[bg];" +
	"[0:a][bg]amix=inputs=2:duration=first:dropout_transition=0[out]"

const tempFilePermissions = 0o600

// FFmpegMixer implements the core.Mixer port by shelling out to ffmpeg.
// Buffers are staged through temp files because ffmpeg's filter graph needs
// seekable inputs.
type FFmpegMixer struct {
	binaryPath string
	log        *logger.Logger
}

// NewFFmpegMixer creates a mixer using the given ffmpeg binary. An empty
// path means "ffmpeg" resolved from PATH.
func NewFFmpegMixer(binaryPath string, log *logger.Logger) *FFmpegMixer {
	if binaryPath == "" {
		binaryPath = "ffmpeg"
	}

	return &FFmpegMixer{
		binaryPath: binaryPath,
		log:        log,
	}
}

// Mix layers music under narration at the given relative volume with a
// fade-in at the start and a fade-out ending at the narration's end.
func (m *FFmpegMixer) Mix(
	ctx context.Context,
	narration, music []byte,
	volume, fadeIn, fadeOut float64,
) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "story-mix-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create mix work directory: %w", err)
	}

	defer func() {
		removeErr := os.RemoveAll(workDir)
		if removeErr != nil {
			m.log.Warn("Failed to remove mix work directory '%s': %v", workDir, removeErr)
		}
	}()

	narrationPath := filepath.Join(workDir, "narration.mp3")
	musicPath := filepath.Join(workDir, "music.mp3")
	outputPath := filepath.Join(workDir, "mixed.mp3")

	err = os.WriteFile(narrationPath, narration, tempFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to write narration temp file: %w", err)
	}

	err = os.WriteFile(musicPath, music, tempFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to write music temp file: %w", err)
	}

	narrationSeconds := float64(len(narration)*8) / float64(DefaultBitrateKbps*1000)
	fadeOutStart := narrationSeconds - fadeOut

	if fadeOutStart < 0 {
		fadeOutStart = 0
	}

	filter := fmt.Sprintf(mixFilterFormat, volume, fadeIn, fadeOutStart, fadeOut)

	args := []string{
		"-y",
		"-i", narrationPath,
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "[out]",
		outputPath,
	}

	// #nosec G204 -- binary path comes from validated configuration
	cmd := exec.CommandContext(ctx, m.binaryPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf(
			"ffmpeg mix failed: %w - output: %s", err, string(output))
	}

	mixed, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mixed output: %w", err)
	}

	return mixed, nil
}
