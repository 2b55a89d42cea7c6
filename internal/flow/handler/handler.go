package handler

import (
	"errors"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/service"
	"github.com/bitfantasy/wrapflow/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Dependency *DependencyHandler
	Form       *FormHandler
	Schedule   *ScheduleHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Dependency: NewDependencyHandler(svc.Dependency),
		Form:       NewFormHandler(svc.Form),
		Schedule:   NewScheduleHandler(svc.Schedule),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带明细的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleError 按引擎错误类型映射响应码
func HandleError(c *gin.Context, err error) {
	var (
		incomplete *engine.IncompleteError
		integrity  *engine.IntegrityError
	)
	switch {
	case errors.As(err, &incomplete):
		ErrorWithData(c, 42200, err.Error(), gin.H{
			"instance_ids": incomplete.InstanceIDs,
			"reasons":      incomplete.Reasons,
		})
	case errors.As(err, &integrity):
		ErrorWithData(c, 40900, err.Error(), gin.H{"form_ids": integrity.FormIDs})
	case errors.Is(err, engine.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, engine.ErrValidation):
		BadRequest(c, err.Error())
	default:
		_ = c.Error(err)
		InternalError(c, "internal error")
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}
