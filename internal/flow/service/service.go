package service

import (
	"context"
	"errors"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/bitfantasy/wrapflow/internal/flow/repository"
	"go.uber.org/zap"
)

// ProjectStore 项目读取
type ProjectStore interface {
	FindByID(ctx context.Context, id string) (*entity.Project, error)
}

// FormStore 表单模板、实例、提交与依赖声明的存取
type FormStore interface {
	FindTemplateByID(ctx context.Context, id string) (*entity.FormTemplate, error)
	FindTemplatesByIDs(ctx context.Context, ids []string) ([]entity.FormTemplate, error)
	FindVersion(ctx context.Context, templateID string, version int) (*entity.FormVersion, error)
	CreateVersion(ctx context.Context, templateID string, schema entity.FormSchema, createdBy string) (*entity.FormVersion, error)

	FindInstanceByID(ctx context.Context, id string) (*entity.FormInstance, error)
	FindInstancesByIDs(ctx context.Context, ids []string) ([]entity.FormInstance, error)
	ListInstancesByProject(ctx context.Context, projectID string) ([]entity.FormInstance, error)
	UpdateStatuses(ctx context.Context, instances []entity.FormInstance, status, operatorID string) (string, error)

	LatestResponse(ctx context.Context, instanceID string) (*entity.FormResponse, error)
	LatestResponses(ctx context.Context, instanceIDs []string) (map[string]*entity.FormResponse, error)
	AppendResponse(ctx context.Context, resp *entity.FormResponse) error
	ListResponses(ctx context.Context, instanceID string) ([]entity.FormResponse, error)

	ListRequirements(ctx context.Context, templateIDs []string) ([]entity.FormCompletionRequirement, error)
	ReplaceRequirement(ctx context.Context, req *entity.FormCompletionRequirement, check func(existing []entity.FormCompletionRequirement) error) error
}

// TaskStore 项目任务存取
type TaskStore interface {
	FindByID(ctx context.Context, id string) (*entity.ProjectTask, error)
	ListByProject(ctx context.Context, projectID string) ([]entity.ProjectTask, error)
	UpdateSchedule(ctx context.Context, task *entity.ProjectTask) error
	UpdateActuals(ctx context.Context, task *entity.ProjectTask) error
}

var (
	_ ProjectStore = (*repository.ProjectRepository)(nil)
	_ FormStore    = (*repository.FormRepository)(nil)
	_ TaskStore    = (*repository.TaskRepository)(nil)
)

// Options 引擎参数，来自配置
type Options struct {
	Calendar    engine.Calendar
	StrictGraph bool
}

// Services 服务集合
type Services struct {
	Dependency *DependencyService
	Form       *FormService
	Schedule   *ScheduleService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, cache SchemaCache, opts Options, logger *zap.Logger) *Services {
	if cache == nil {
		cache = NoopSchemaCache{}
	}
	deps := NewDependencyService(repos.Project, repos.Form, opts, logger)
	return &Services{
		Dependency: deps,
		Form:       NewFormService(repos.Form, deps, cache, logger),
		Schedule:   NewScheduleService(repos.Project, repos.Task, opts.Calendar, logger),
	}
}

// lookupErr turns a repository miss into the engine's NotFound for kind/id.
func lookupErr(err error, kind, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return engine.NotFound(kind, id)
	}
	return err
}
