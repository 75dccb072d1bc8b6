// main package for the story-pipeline CLI.
package main

import (
	"os"

	"github.com/fablecast/story-pipeline/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
