package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show story store statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(_ *cobra.Command, _ []string) {
	app, err := setup()
	if err != nil {
		exitErr("setup", err)
	}

	stats, err := app.store.Stats()
	if err != nil {
		exitErr("stats", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		exitErr("encode stats", err)
	}

	fmt.Println(string(data))
}
