package engine

import (
	"encoding/json"
	"math"
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
)

// Calendar converts planned man-hours into calendar time. HoursPerDay is
// the length of one working day; a task's man-hours are consumed one
// working day at a time and the remainder is added as wall-clock hours.
type Calendar struct {
	HoursPerDay  float64
	SkipWeekends bool
}

// DefaultHoursPerDay is the working-day length used when none is configured.
const DefaultHoursPerDay = 8

// DefaultCalendar is an 8-hour day, seven days a week.
var DefaultCalendar = Calendar{HoursPerDay: DefaultHoursPerDay}

// Validate checks the calendar constants.
func (c Calendar) Validate() error {
	if c.HoursPerDay <= 0 || c.HoursPerDay > 24 {
		return Invalid("hours_per_day", "must be in (0, 24], got %v", c.HoursPerDay)
	}
	return nil
}

// End returns the scheduled end for a task of manHours starting at start.
// With an 8-hour day, 16 man-hours starting day 0 09:00 end day 2 09:00.
func (c Calendar) End(start time.Time, manHours float64) (time.Time, error) {
	if err := c.Validate(); err != nil {
		return time.Time{}, err
	}
	if manHours <= 0 || math.IsNaN(manHours) || math.IsInf(manHours, 0) {
		return time.Time{}, Invalid("man_hours", "must be positive, got %v", manHours)
	}

	days := int(math.Floor(manHours / c.HoursPerDay))
	remainder := manHours - float64(days)*c.HoursPerDay

	end := start
	for n := 0; n < days; {
		end = end.AddDate(0, 0, 1)
		if c.SkipWeekends && isWeekend(end) {
			continue
		}
		n++
	}
	end = end.Add(time.Duration(math.Round(remainder*60)) * time.Minute)
	return end, nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Schedule sets the task's scheduled window from start and its man-hours.
// The task is left untouched on error.
func (c Calendar) Schedule(task *entity.ProjectTask, start time.Time) error {
	if task.ManHours <= 0 {
		return Invalid("man_hours", "task %s has no positive man-hours", task.ID)
	}
	end, err := c.End(start, task.ManHours)
	if err != nil {
		return err
	}
	task.ScheduledStart = &start
	task.ScheduledEnd = &end
	task.Status = StageStatus(*task)
	return nil
}

// ActualDates is a partial update of a task's recorded timestamps.
type ActualDates struct {
	ActualStart *time.Time `json:"actual_start"`
	ActualEnd   *time.Time `json:"actual_end"`
}

// ApplyActuals merges upd into the task. Recorded reality is accepted even
// when it contradicts the schedule; only an end before the start is
// rejected. The task is left untouched on error.
func ApplyActuals(task *entity.ProjectTask, upd ActualDates) error {
	if upd.ActualStart == nil && upd.ActualEnd == nil {
		return Invalid("actual_dates", "actual_start or actual_end is required")
	}
	start, end := task.ActualStart, task.ActualEnd
	if upd.ActualStart != nil {
		start = upd.ActualStart
	}
	if upd.ActualEnd != nil {
		end = upd.ActualEnd
	}
	if start != nil && end != nil && end.Before(*start) {
		return Invalid("actual_end", "%s is before actual_start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	task.ActualStart = start
	task.ActualEnd = end
	task.Status = StageStatus(*task)
	return nil
}

// StageStatus derives the task status from its timestamps:
// PENDING → SCHEDULED → IN_PROGRESS → DONE.
func StageStatus(task entity.ProjectTask) string {
	switch {
	case task.ActualEnd != nil:
		return entity.TaskStatusDone
	case task.ActualStart != nil:
		return entity.TaskStatusInProgress
	case task.ScheduledStart != nil && task.ScheduledEnd != nil:
		return entity.TaskStatusScheduled
	}
	return entity.TaskStatusPending
}

// Efficiency is planned duration over actual duration. The zero value is
// Undetermined.
type Efficiency struct {
	ratio      float64
	determined bool
}

// Undetermined marks a task lacking a scheduled or an actual window.
var Undetermined = Efficiency{}

// Ratio returns the ratio and whether it is determined.
func (e Efficiency) Ratio() (float64, bool) { return e.ratio, e.determined }

// Determined reports whether both durations were available.
func (e Efficiency) Determined() bool { return e.determined }

// MarshalJSON encodes {"status", "ratio"} with a null ratio when undetermined.
func (e Efficiency) MarshalJSON() ([]byte, error) {
	if !e.determined {
		return json.Marshal(struct {
			Status string   `json:"status"`
			Ratio  *float64 `json:"ratio"`
		}{Status: "undetermined"})
	}
	return json.Marshal(struct {
		Status string  `json:"status"`
		Ratio  float64 `json:"ratio"`
	}{Status: "determined", Ratio: e.ratio})
}

// CalculateEfficiency returns scheduled hours divided by actual hours.
// Values below 1 mean the task ran longer than planned.
func CalculateEfficiency(task entity.ProjectTask) Efficiency {
	planned, ok := span(task.ScheduledStart, task.ScheduledEnd)
	if !ok {
		return Undetermined
	}
	actual, ok := span(task.ActualStart, task.ActualEnd)
	if !ok {
		return Undetermined
	}
	return Efficiency{ratio: planned / actual, determined: true}
}

func span(start, end *time.Time) (float64, bool) {
	if start == nil || end == nil {
		return 0, false
	}
	h := end.Sub(*start).Hours()
	if h <= 0 {
		return 0, false
	}
	return h, true
}
