package handler

import (
	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册 API 路由；api 需已挂 JWT 认证
func RegisterRoutes(api *gin.RouterGroup, h *Handlers) {
	authz := middleware.Authorize

	// 项目依赖图
	projects := api.Group("/projects/:id")
	{
		projects.GET("/dependency-graph", authz(engine.ActionRead, engine.ResourceProject), h.Dependency.GetGraph)
		projects.GET("/forms/:formId/dependencies", authz(engine.ActionRead, engine.ResourceForm), h.Dependency.GetFormView)
		projects.GET("/ready-forms", authz(engine.ActionRead, engine.ResourceProject), h.Dependency.GetReadyForms)
		projects.GET("/completion-order", authz(engine.ActionRead, engine.ResourceProject), h.Dependency.GetCompletionOrder)
		projects.GET("/schedule/export", authz(engine.ActionRead, engine.ResourceProject), h.Schedule.ExportSchedule)
	}

	// 模板
	templates := api.Group("/templates/:templateId")
	{
		templates.PUT("/dependencies", authz(engine.ActionEditDependencies, engine.ResourceTemplate), h.Dependency.UpdateDependencies)
		templates.POST("/versions", authz(engine.ActionManageTemplates, engine.ResourceTemplate), h.Form.PublishVersion)
	}

	// 表单实例
	forms := api.Group("/forms/:formId")
	{
		forms.GET("/completion", authz(engine.ActionRead, engine.ResourceForm), h.Form.GetCompletion)
		forms.PATCH("/status", authz(engine.ActionTransition, engine.ResourceForm), h.Form.TransitionStatus)
		forms.POST("/responses", authz(engine.ActionSubmit, engine.ResourceForm), h.Form.SubmitResponse)
		forms.GET("/responses", authz(engine.ActionRead, engine.ResourceForm), h.Form.ListResponses)
	}
	api.POST("/form-transitions", authz(engine.ActionTransition, engine.ResourceForm), h.Form.TransitionBatch)

	// 任务排期
	tasks := api.Group("/tasks/:taskId")
	{
		tasks.POST("/schedule", authz(engine.ActionSchedule, engine.ResourceTask), h.Schedule.ScheduleTask)
		tasks.PUT("/actuals", authz(engine.ActionRecordActuals, engine.ResourceTask), h.Schedule.RecordActuals)
		tasks.GET("/efficiency", authz(engine.ActionRead, engine.ResourceTask), h.Schedule.GetEfficiency)
	}
}
