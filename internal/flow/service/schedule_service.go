package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ScheduleService 任务排期与效率
type ScheduleService struct {
	projects ProjectStore
	tasks    TaskStore
	calendar engine.Calendar
	logger   *zap.Logger
}

// NewScheduleService 创建排期服务
func NewScheduleService(projects ProjectStore, tasks TaskStore, calendar engine.Calendar, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{projects: projects, tasks: tasks, calendar: calendar, logger: logger}
}

// ScheduleTask 根据工时与工作日历计算计划结束时间
func (s *ScheduleService) ScheduleTask(ctx context.Context, taskID string, start time.Time) (*entity.ProjectTask, error) {
	if start.IsZero() {
		return nil, engine.Invalid("scheduled_start", "is required")
	}
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(err, "task", taskID)
	}
	if err := s.calendar.Schedule(task, start); err != nil {
		return nil, err
	}
	if err := s.tasks.UpdateSchedule(ctx, task); err != nil {
		return nil, fmt.Errorf("update task schedule: %w", lookupErr(err, "task", taskID))
	}
	s.logger.Info("task scheduled",
		zap.String("task_id", taskID),
		zap.Float64("man_hours", task.ManHours),
		zap.Time("scheduled_start", *task.ScheduledStart),
		zap.Time("scheduled_end", *task.ScheduledEnd))
	return task, nil
}

// RecordActualDates 记录实际开始/结束时间，可只传其一
func (s *ScheduleService) RecordActualDates(ctx context.Context, taskID string, upd engine.ActualDates) (*entity.ProjectTask, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(err, "task", taskID)
	}
	if err := engine.ApplyActuals(task, upd); err != nil {
		return nil, err
	}
	if err := s.tasks.UpdateActuals(ctx, task); err != nil {
		return nil, fmt.Errorf("update task actuals: %w", lookupErr(err, "task", taskID))
	}
	s.logger.Info("task actual dates recorded",
		zap.String("task_id", taskID),
		zap.String("status", task.Status))
	return task, nil
}

// GetTaskEfficiency 计划工期 / 实际工期
func (s *ScheduleService) GetTaskEfficiency(ctx context.Context, taskID string) (engine.Efficiency, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return engine.Undetermined, lookupErr(err, "task", taskID)
	}
	return engine.CalculateEfficiency(*task), nil
}

var scheduleExportHeaders = []string{
	"#", "Phase", "Task", "Status", "Man-hours",
	"Scheduled start", "Scheduled end", "Actual start", "Actual end", "Efficiency",
}

// ExportSchedule 导出项目排期为 xlsx
func (s *ScheduleService) ExportSchedule(ctx context.Context, projectID string) (*excelize.File, string, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, "", lookupErr(err, "project", projectID)
	}
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, "", fmt.Errorf("list tasks: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Schedule"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range scheduleExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	var planned, spent float64
	for idx, task := range tasks {
		row := idx + 2
		phase := ""
		if task.Phase != nil {
			phase = task.Phase.Name
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), idx+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), phase)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), task.Title)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), task.Status)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), task.ManHours)
		setTimeCell(f, sheet, fmt.Sprintf("F%d", row), task.ScheduledStart)
		setTimeCell(f, sheet, fmt.Sprintf("G%d", row), task.ScheduledEnd)
		setTimeCell(f, sheet, fmt.Sprintf("H%d", row), task.ActualStart)
		setTimeCell(f, sheet, fmt.Sprintf("I%d", row), task.ActualEnd)
		if ratio, ok := engine.CalculateEfficiency(task).Ratio(); ok {
			f.SetCellValue(sheet, fmt.Sprintf("J%d", row), ratio)
			planned += task.ScheduledEnd.Sub(*task.ScheduledStart).Hours()
			spent += task.ActualEnd.Sub(*task.ActualStart).Hours()
		} else {
			f.SetCellValue(sheet, fmt.Sprintf("J%d", row), "undetermined")
		}
	}

	// 汇总行：只统计效率已确定的任务
	summaryRow := len(tasks) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("%d tasks", len(tasks)))
	if spent > 0 {
		f.SetCellValue(sheet, fmt.Sprintf("J%d", summaryRow), planned/spent)
	}
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("J%d", summaryRow), summaryStyle)

	colWidths := []float64{5, 14, 28, 12, 10, 18, 18, 18, 18, 12}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("schedule_%s_%s.xlsx", project.Code, time.Now().Format("20060102"))
	return f, filename, nil
}

func setTimeCell(f *excelize.File, sheet, cell string, t *time.Time) {
	if t == nil {
		return
	}
	f.SetCellValue(sheet, cell, t.UTC().Format("2006-01-02 15:04"))
}
