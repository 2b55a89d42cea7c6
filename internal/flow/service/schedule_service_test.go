package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func day(d, hour int) time.Time {
	return time.Date(2026, 10, 12+d, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestScheduleTask(t *testing.T) {
	fx := newFixture()
	fx.tasks.tasks["task-print"] = entity.ProjectTask{ID: "task-print", ProjectID: "proj-001", Title: "Print panels", ManHours: 16, Status: entity.TaskStatusPending}
	fx.tasks.tasks["task-empty"] = entity.ProjectTask{ID: "task-empty", ProjectID: "proj-001", Title: "Unestimated"}
	ctx := context.Background()

	task, err := fx.schedule.ScheduleTask(ctx, "task-print", day(0, 9))
	require.NoError(t, err)
	assert.Equal(t, day(2, 9), *task.ScheduledEnd)
	assert.Equal(t, entity.TaskStatusScheduled, fx.tasks.tasks["task-print"].Status)

	_, err = fx.schedule.ScheduleTask(ctx, "task-empty", day(0, 9))
	assert.True(t, errors.Is(err, engine.ErrValidation))
	_, err = fx.schedule.ScheduleTask(ctx, "task-print", time.Time{})
	assert.True(t, errors.Is(err, engine.ErrValidation))
	_, err = fx.schedule.ScheduleTask(ctx, "task-ghost", day(0, 9))
	assert.True(t, errors.Is(err, engine.ErrNotFound))
	assert.Equal(t, 1, fx.tasks.writes)
}

func TestRecordActualDatesAndEfficiency(t *testing.T) {
	fx := newFixture()
	fx.tasks.tasks["task-install"] = entity.ProjectTask{
		ID: "task-install", ProjectID: "proj-001", Title: "Install", ManHours: 8,
		ScheduledStart: ptr(day(0, 9)), ScheduledEnd: ptr(day(0, 17)),
		Status: entity.TaskStatusScheduled,
	}
	ctx := context.Background()

	eff, err := fx.schedule.GetTaskEfficiency(ctx, "task-install")
	require.NoError(t, err)
	assert.False(t, eff.Determined())

	task, err := fx.schedule.RecordActualDates(ctx, "task-install", engine.ActualDates{ActualStart: ptr(day(0, 8))})
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusInProgress, task.Status)

	_, err = fx.schedule.RecordActualDates(ctx, "task-install", engine.ActualDates{ActualEnd: ptr(day(0, 7))})
	assert.True(t, errors.Is(err, engine.ErrValidation))
	assert.Nil(t, fx.tasks.tasks["task-install"].ActualEnd)

	_, err = fx.schedule.RecordActualDates(ctx, "task-install", engine.ActualDates{ActualEnd: ptr(day(0, 18))})
	require.NoError(t, err)

	eff, err = fx.schedule.GetTaskEfficiency(ctx, "task-install")
	require.NoError(t, err)
	ratio, ok := eff.Ratio()
	require.True(t, ok)
	assert.InDelta(t, 0.8, ratio, 1e-9)

	_, err = fx.schedule.GetTaskEfficiency(ctx, "task-ghost")
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}

func TestExportSchedule(t *testing.T) {
	fx := newFixture()
	phase := &entity.ProjectPhase{ID: "ph-print", Name: "Print"}
	fx.tasks.tasks["task-print"] = entity.ProjectTask{
		ID: "task-print", ProjectID: "proj-001", Title: "Print panels", ManHours: 8, Phase: phase,
		ScheduledStart: ptr(day(0, 9)), ScheduledEnd: ptr(day(0, 17)),
		ActualStart: ptr(day(0, 9)), ActualEnd: ptr(day(0, 19)),
		Status: entity.TaskStatusDone,
	}
	fx.tasks.tasks["task-install"] = entity.ProjectTask{ID: "task-install", ProjectID: "proj-001", Title: "Install", ManHours: 6, Status: entity.TaskStatusPending}

	f, filename, err := fx.schedule.ExportSchedule(context.Background(), "proj-001")
	require.NoError(t, err)
	assert.Contains(t, filename, "WRAP-001")

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Schedule")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Task", rows[0][2])
	assert.Equal(t, "Print", rows[1][1])
	assert.Equal(t, "Print panels", rows[1][2])
	assert.Equal(t, "2026-10-12 09:00", rows[1][5])
	assert.Equal(t, "0.8", rows[1][9])
	assert.Equal(t, "undetermined", rows[2][9])
	assert.Equal(t, "Total", rows[3][0])

	_, _, err = fx.schedule.ExportSchedule(context.Background(), "proj-404")
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}
