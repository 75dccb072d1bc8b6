// Package schedule assigns a genre to each daily content slot by rotating
// over a fixed genre list, with calendar-keyed special occasions overriding
// the rotation.
package schedule

import (
	"errors"
	"time"

	"github.com/fablecast/story-pipeline/internal/core"
)

// PlanDays is the length of the window produced by PlanWeek.
const PlanDays = 7

// monthDayFormat keys the occasion table: month and day, year-independent.
const monthDayFormat = "01-02"

// ErrNoGenres is returned when a planner is constructed without genres.
var ErrNoGenres = errors.New("genre list cannot be empty")

// Cursor is the rotation position over the genre list. Callers thread it
// through NextSlot/PlanWeek themselves; the planner holds no hidden state,
// so planning is deterministic and safe to run in parallel.
type Cursor int

// Occasion is a calendar-keyed genre override.
type Occasion struct {
	Name  string
	Genre string
}

// Planner produces schedule slots from a fixed genre rotation and an
// occasion table keyed by month-day.
type Planner struct {
	genres      []string
	occasions   map[string]Occasion
	slotsPerDay int
}

// NewPlanner creates a planner. slotsPerDay values below one are clamped
// to one.
func NewPlanner(
	genres []string,
	occasions map[string]Occasion,
	slotsPerDay int,
) (*Planner, error) {
	if len(genres) == 0 {
		return nil, ErrNoGenres
	}

	if slotsPerDay < 1 {
		slotsPerDay = 1
	}

	if occasions == nil {
		occasions = map[string]Occasion{}
	}

	return &Planner{
		genres:      genres,
		occasions:   occasions,
		slotsPerDay: slotsPerDay,
	}, nil
}

// DefaultOccasions is the built-in special-occasion table.
func DefaultOccasions() map[string]Occasion {
	return map[string]Occasion{
		"01-01": {Name: "New Year", Genre: "celebration"},
		"02-14": {Name: "Valentine's Day", Genre: "romance"},
		"10-31": {Name: "Halloween", Genre: "horror"},
		"12-24": {Name: "Christmas Eve", Genre: "family"},
		"12-25": {Name: "Christmas", Genre: "family"},
		"12-31": {Name: "New Year's Eve", Genre: "celebration"},
	}
}

// NextSlot returns the slot for the given date and slot index together with
// the advanced cursor. A date in the occasion table yields the occasion's
// genre and returns the cursor untouched, so the rotation resumes where it
// left off on the next ordinary day.
func (p *Planner) NextSlot(
	date time.Time,
	slotIndex int,
	cursor Cursor,
) (core.ScheduleSlot, Cursor) {
	occasion, isOccasion := p.occasions[date.Format(monthDayFormat)]
	if isOccasion {
		return core.ScheduleSlot{
			Date:              date,
			SlotIndex:         slotIndex,
			Genre:             occasion.Genre,
			IsSpecialOccasion: true,
			OccasionName:      occasion.Name,
		}, cursor
	}

	genre := p.genres[int(cursor)%len(p.genres)]

	return core.ScheduleSlot{
		Date:              date,
		SlotIndex:         slotIndex,
		Genre:             genre,
		IsSpecialOccasion: false,
		OccasionName:      "",
	}, cursor + 1
}

// PlanWeek produces the slots for seven consecutive days starting at
// startDate, slotsPerDay slots each day, returning the cursor to carry into
// the next planning window.
func (p *Planner) PlanWeek(
	startDate time.Time,
	cursor Cursor,
) ([]core.ScheduleSlot, Cursor) {
	slots := make([]core.ScheduleSlot, 0, PlanDays*p.slotsPerDay)

	for day := 0; day < PlanDays; day++ {
		date := startDate.AddDate(0, 0, day)

		for slotIndex := 0; slotIndex < p.slotsPerDay; slotIndex++ {
			var slot core.ScheduleSlot

			slot, cursor = p.NextSlot(date, slotIndex, cursor)
			slots = append(slots, slot)
		}
	}

	return slots, cursor
}
