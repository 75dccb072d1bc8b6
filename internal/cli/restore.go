package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Overwrite the live store from a backup",
		Long: "Overwrite the live store from the named backup. The current " +
			"state is snapshotted first, so a restore can itself be undone.",
		Args: cobra.ExactArgs(1),
		Run:  runRestore,
	}

	RootCmd.AddCommand(cmd)
}

func runRestore(_ *cobra.Command, args []string) {
	app, err := setup()
	if err != nil {
		exitErr("setup", err)
	}

	err = app.store.Restore(args[0])
	if err != nil {
		exitErr("restore", err)
	}

	fmt.Printf("restored store from %s\n", args[0])
}
