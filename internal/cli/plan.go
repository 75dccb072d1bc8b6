package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fablecast/story-pipeline/internal/schedule"
	"github.com/spf13/cobra"
)

var (
	planStart  string
	planCursor int
)

func init() {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Project the next week's genre schedule",
		Run:   runPlan,
	}

	cmd.Flags().StringVar(&planStart, "start", "",
		"Start date (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&planCursor, "cursor", 0,
		"Rotation cursor carried over from the previous window")

	RootCmd.AddCommand(cmd)
}

func runPlan(_ *cobra.Command, _ []string) {
	app, err := setup()
	if err != nil {
		exitErr("setup", err)
	}

	startDate := time.Now().UTC().Truncate(24 * time.Hour)

	if planStart != "" {
		startDate, err = time.Parse("2006-01-02", planStart)
		if err != nil {
			exitErr("parse start date", err)
		}
	}

	planner, err := schedule.NewPlanner(
		app.cfg.Schedule.Genres,
		schedule.DefaultOccasions(),
		app.cfg.Schedule.SlotsPerDay,
	)
	if err != nil {
		exitErr("plan", err)
	}

	slots, nextCursor := planner.PlanWeek(startDate, schedule.Cursor(planCursor))

	output := struct {
		Slots      any `json:"slots"`
		NextCursor int `json:"next_cursor"`
	}{
		Slots:      slots,
		NextCursor: int(nextCursor),
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		exitErr("encode plan", err)
	}

	fmt.Println(string(data))
}
