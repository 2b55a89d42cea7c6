package handler

import (
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/service"
	"github.com/gin-gonic/gin"
)

// ScheduleHandler 任务排期处理器
type ScheduleHandler struct {
	svc *service.ScheduleService
}

// NewScheduleHandler 创建任务排期处理器
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

// ScheduleTask 按工时排期
// POST /tasks/:taskId/schedule
func (h *ScheduleHandler) ScheduleTask(c *gin.Context) {
	var req struct {
		ScheduledStart time.Time `json:"scheduled_start"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.ScheduleTask(c.Request.Context(), c.Param("taskId"), req.ScheduledStart)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, task)
}

// RecordActuals 记录实际开始/结束时间
// PUT /tasks/:taskId/actuals
func (h *ScheduleHandler) RecordActuals(c *gin.Context) {
	var req engine.ActualDates
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.RecordActualDates(c.Request.Context(), c.Param("taskId"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, task)
}

// GetEfficiency 任务效率
// GET /tasks/:taskId/efficiency
func (h *ScheduleHandler) GetEfficiency(c *gin.Context) {
	eff, err := h.svc.GetTaskEfficiency(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, eff)
}

// ExportSchedule 导出排期表
// GET /projects/:id/schedule/export
func (h *ScheduleHandler) ExportSchedule(c *gin.Context) {
	f, filename, err := h.svc.ExportSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
