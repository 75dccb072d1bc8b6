package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fablecast/story-pipeline/internal/pipeline"
	"github.com/fablecast/story-pipeline/internal/synth"
	"github.com/spf13/cobra"
)

var (
	generateTitle       string
	generateDescription string
	generateCategory    string
	generateDialect     string
	generateTags        []string
	generateDryRun      bool
	generateAbort       bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate <script-file>...",
		Short: "Produce one audio story per script file",
		Args:  cobra.MinimumNArgs(1),
		Run:   runGenerate,
	}

	cmd.Flags().StringVarP(&generateTitle, "title", "t", "",
		"Story title (single script only; defaults to the script filename)")
	cmd.Flags().StringVar(&generateDescription, "description", "", "Story description")
	cmd.Flags().StringVarP(&generateCategory, "genre", "g", "", "Story genre/category")
	cmd.Flags().StringVarP(&generateDialect, "dialect", "d", "en", "Language/dialect code")
	cmd.Flags().StringSliceVar(&generateTags, "tag", nil, "Tags (repeatable)")
	cmd.Flags().BoolVar(&generateDryRun, "dry-run", false,
		"Assemble audio but skip upload and store write")
	cmd.Flags().BoolVar(&generateAbort, "abort-on-failure", false,
		"Abort a story on the first failed utterance instead of skipping it")

	RootCmd.AddCommand(cmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	if generateTitle != "" && len(args) > 1 {
		exitErr("generate", fmt.Errorf(
			"--title applies to a single script, got %d", len(args)))
	}

	app, err := setup()
	if err != nil {
		exitErr("setup", err)
	}

	music := loadMusic(app)

	requests, err := buildRequests(args, music)
	if err != nil {
		exitErr("read scripts", err)
	}

	synthesizer := app.newSynthesizer()

	err = synthesizer.HealthCheck(cmd.Context())
	if err != nil {
		exitErr("synthesis service unavailable", err)
	}

	natsConnection, artifacts, err := app.connectNats()
	if err != nil {
		exitErr("connect", err)
	}
	defer natsConnection.Close()

	producer := app.newProducer(artifacts, synthesizer)

	results := producer.ProduceBatch(cmd.Context(), requests)
	failed := printSummary(results)

	if app.cfg.Store.KeepBackups > 0 {
		_, pruneErr := app.store.PruneBackups(app.cfg.Store.KeepBackups)
		if pruneErr != nil {
			app.log.Warn("Backup pruning failed: %v", pruneErr)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// loadMusic reads the configured background track. Missing music is not an
// error: mixing is best effort, so generation proceeds narration-only.
func loadMusic(app *appContext) []byte {
	if app.cfg.Audio.MusicPath == "" {
		return nil
	}

	music, err := os.ReadFile(app.cfg.Audio.MusicPath)
	if err != nil {
		app.log.Warn("Failed to read background music %s: %v",
			app.cfg.Audio.MusicPath, err)

		return nil
	}

	return music
}

// buildRequests reads each script file into a production request.
func buildRequests(paths []string, music []byte) ([]pipeline.Request, error) {
	policy := synth.SkipFailed
	if generateAbort {
		policy = synth.AbortOnFailure
	}

	requests := make([]pipeline.Request, 0, len(paths))

	for _, path := range paths {
		scriptText, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", path, err)
		}

		title := generateTitle
		if title == "" {
			title = titleFromPath(path)
		}

		requests = append(requests, pipeline.Request{
			Script:      string(scriptText),
			Title:       title,
			Description: generateDescription,
			Category:    generateCategory,
			Dialect:     generateDialect,
			Tags:        generateTags,
			Music:       music,
			Policy:      policy,
			DryRun:      generateDryRun,
		})
	}

	return requests, nil
}

// printSummary prints one line per item and returns the failure count.
func printSummary(results []pipeline.ItemResult) int {
	failed := 0

	for _, result := range results {
		if result.Err != nil {
			failed++

			fmt.Printf("FAIL  %s: %v\n", result.Title, result.Err)

			continue
		}

		if result.Outcome.Record == nil {
			fmt.Printf("OK    %s (dry run, %d bytes)\n",
				result.Title, result.Outcome.AudioBytes)

			continue
		}

		fmt.Printf("OK    %s (id %d, %s)\n",
			result.Title,
			result.Outcome.Record.ID,
			result.Outcome.Record.DurationLabel)
	}

	fmt.Printf("%d succeeded, %d failed\n", len(results)-failed, failed)

	return failed
}

// titleFromPath derives a human title from a script filename.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")

	return strings.TrimSpace(base)
}
