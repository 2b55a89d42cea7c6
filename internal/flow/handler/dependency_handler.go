package handler

import (
	"github.com/bitfantasy/wrapflow/internal/flow/service"
	"github.com/gin-gonic/gin"
)

// DependencyHandler 表单依赖处理器
type DependencyHandler struct {
	svc *service.DependencyService
}

// NewDependencyHandler 创建表单依赖处理器
func NewDependencyHandler(svc *service.DependencyService) *DependencyHandler {
	return &DependencyHandler{svc: svc}
}

// GetGraph 项目依赖图
// GET /projects/:id/dependency-graph
func (h *DependencyHandler) GetGraph(c *gin.Context) {
	res, err := h.svc.GetDependencyGraph(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, res)
}

// GetFormView 单个表单的依赖视图
// GET /projects/:id/forms/:formId/dependencies
func (h *DependencyHandler) GetFormView(c *gin.Context) {
	view, err := h.svc.GetFormDependencyView(c.Request.Context(), c.Param("id"), c.Param("formId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, view)
}

// GetReadyForms 可开始填写的表单
// GET /projects/:id/ready-forms
func (h *DependencyHandler) GetReadyForms(c *gin.Context) {
	nodes, err := h.svc.GetReadyForms(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": nodes})
}

// GetCompletionOrder 建议完成顺序
// GET /projects/:id/completion-order
func (h *DependencyHandler) GetCompletionOrder(c *gin.Context) {
	order, err := h.svc.GetCompletionOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": order})
}

// UpdateDependencies 更新模板依赖声明
// PUT /templates/:templateId/dependencies
func (h *DependencyHandler) UpdateDependencies(c *gin.Context) {
	var req struct {
		PhaseID    string   `json:"phase_id"`
		DependsOn  []string `json:"depends_on"`
		IsBlocking *bool    `json:"is_blocking"`
		Scope      string   `json:"scope"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	// 未指定时默认阻塞
	blocking := true
	if req.IsBlocking != nil {
		blocking = *req.IsBlocking
	}

	saved, err := h.svc.UpdateFormDependencies(c.Request.Context(), service.UpdateDependenciesInput{
		TemplateID: c.Param("templateId"),
		PhaseID:    req.PhaseID,
		DependsOn:  req.DependsOn,
		IsBlocking: blocking,
		Scope:      req.Scope,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, saved)
}
