package handler

import (
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/bitfantasy/wrapflow/internal/flow/service"
	"github.com/gin-gonic/gin"
)

// FormHandler 表单处理器
type FormHandler struct {
	svc *service.FormService
}

// NewFormHandler 创建表单处理器
func NewFormHandler(svc *service.FormService) *FormHandler {
	return &FormHandler{svc: svc}
}

// GetCompletion 检查表单完成情况
// GET /forms/:formId/completion
func (h *FormHandler) GetCompletion(c *gin.Context) {
	res, err := h.svc.CheckFormCompletion(c.Request.Context(), c.Param("formId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, res)
}

// TransitionStatus 变更单个表单状态
// PATCH /forms/:formId/status
func (h *FormHandler) TransitionStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	inst, err := h.svc.TransitionFormStatus(c.Request.Context(), GetUserID(c), c.Param("formId"), req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, inst)
}

// TransitionBatch 批量变更表单状态，全部成功或全部失败
// POST /form-transitions
func (h *FormHandler) TransitionBatch(c *gin.Context) {
	var req struct {
		InstanceIDs []string `json:"instance_ids" binding:"required"`
		Status      string   `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.svc.TransitionFormStatusBatch(c.Request.Context(), GetUserID(c), req.InstanceIDs, req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": updated})
}

// SubmitResponse 提交表单
// POST /forms/:formId/responses
func (h *FormHandler) SubmitResponse(c *gin.Context) {
	var req struct {
		Payload entity.Payload `json:"payload" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.SubmitResponse(c.Request.Context(), GetUserID(c), c.Param("formId"), req.Payload)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, resp)
}

// ListResponses 提交历史
// GET /forms/:formId/responses
func (h *FormHandler) ListResponses(c *gin.Context) {
	history, err := h.svc.ListResponseHistory(c.Request.Context(), c.Param("formId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": history})
}

// PublishVersion 发布模板新版本
// POST /templates/:templateId/versions
func (h *FormHandler) PublishVersion(c *gin.Context) {
	var req struct {
		Schema entity.FormSchema `json:"schema"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	v, err := h.svc.PublishVersion(c.Request.Context(), GetUserID(c), c.Param("templateId"), req.Schema)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, v)
}
