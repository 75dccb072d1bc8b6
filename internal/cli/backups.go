package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupsPrune int

func init() {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List store backups, newest first",
		Run:   runBackups,
	}

	cmd.Flags().IntVar(&backupsPrune, "prune", 0,
		"Keep only the newest N backups and delete the rest")

	RootCmd.AddCommand(cmd)
}

func runBackups(_ *cobra.Command, _ []string) {
	app, err := setup()
	if err != nil {
		exitErr("setup", err)
	}

	if backupsPrune > 0 {
		removed, pruneErr := app.store.PruneBackups(backupsPrune)
		if pruneErr != nil {
			exitErr("prune backups", pruneErr)
		}

		fmt.Printf("pruned %d backups\n", removed)
	}

	backups, err := app.store.ListBackups()
	if err != nil {
		exitErr("list backups", err)
	}

	if len(backups) == 0 {
		fmt.Println("no backups")

		return
	}

	for _, backup := range backups {
		fmt.Printf("%s  %-12s  %s  %d bytes\n",
			backup.CreatedAt.Format("2006-01-02 15:04:05"),
			backup.Label,
			backup.ID,
			backup.SizeBytes)
	}
}
