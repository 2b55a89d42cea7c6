package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// DependencyService 表单依赖图服务；每次调用重新读取数据构建依赖图
type DependencyService struct {
	projects ProjectStore
	forms    FormStore
	opts     Options
	logger   *zap.Logger
}

// NewDependencyService 创建依赖图服务
func NewDependencyService(projects ProjectStore, forms FormStore, opts Options, logger *zap.Logger) *DependencyService {
	return &DependencyService{projects: projects, forms: forms, opts: opts, logger: logger}
}

// GraphResult 项目依赖图
type GraphResult struct {
	ProjectID string           `json:"project_id"`
	Nodes     []engine.Node    `json:"nodes"`
	Warnings  []engine.Warning `json:"warnings"`
}

// buildGraph loads the project's instances and their requirements and
// derives a fresh graph.
func (s *DependencyService) buildGraph(ctx context.Context, projectID string) (*engine.Graph, []entity.FormInstance, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, nil, lookupErr(err, "project", projectID)
	}
	instances, err := s.forms.ListInstancesByProject(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("list form instances: %w", err)
	}
	templateIDs := make([]string, 0, len(instances))
	for _, inst := range instances {
		templateIDs = append(templateIDs, inst.TemplateID)
	}
	reqs, err := s.forms.ListRequirements(ctx, templateIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("list completion requirements: %w", err)
	}

	g, err := engine.Build(instances, reqs, engine.BuildOptions{Strict: s.opts.StrictGraph})
	if err != nil {
		s.logger.Error("dependency graph rejected",
			zap.String("project_id", projectID), zap.Error(err))
		return nil, nil, err
	}
	for _, w := range g.Warnings() {
		s.logger.Warn("dangling form dependency dropped",
			zap.String("project_id", projectID),
			zap.String("form_id", w.FormID),
			zap.String("missing_template_id", w.MissingTemplateID))
	}
	return g, instances, nil
}

// GetDependencyGraph 获取项目依赖图
func (s *DependencyService) GetDependencyGraph(ctx context.Context, projectID string) (*GraphResult, error) {
	g, _, err := s.buildGraph(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &GraphResult{ProjectID: projectID, Nodes: g.Nodes(), Warnings: g.Warnings()}, nil
}

// GetFormDependencyView 获取单个表单的依赖视图
func (s *DependencyService) GetFormDependencyView(ctx context.Context, projectID, formID string) (*engine.DependencyView, error) {
	g, _, err := s.buildGraph(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return g.View(formID)
}

// GetReadyForms 获取当前可推进的表单
func (s *DependencyService) GetReadyForms(ctx context.Context, projectID string) ([]engine.Node, error) {
	g, _, err := s.buildGraph(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ready := g.Ready()
	if ready == nil {
		ready = []engine.Node{}
	}
	return ready, nil
}

// GetCompletionOrder 获取满足依赖的完成顺序
func (s *DependencyService) GetCompletionOrder(ctx context.Context, projectID string) ([]string, error) {
	g, _, err := s.buildGraph(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return g.TopologicalOrder(), nil
}

// UpdateDependenciesInput 依赖声明更新
type UpdateDependenciesInput struct {
	TemplateID string
	PhaseID    string
	DependsOn  []string
	IsBlocking bool
	Scope      string
}

// UpdateFormDependencies 更新模板的完成依赖声明。
// 依赖ID必须是已存在的模板；更新后若形成环则拒绝。
func (s *DependencyService) UpdateFormDependencies(ctx context.Context, in UpdateDependenciesInput) (*entity.FormCompletionRequirement, error) {
	if strings.TrimSpace(in.TemplateID) == "" {
		return nil, engine.Invalid("template_id", "is required")
	}
	scope := in.Scope
	if scope == "" {
		scope = entity.RequirementScopePhase
	}
	if scope != entity.RequirementScopePhase && scope != entity.RequirementScopeTask {
		return nil, engine.Invalid("scope", "unknown scope %q", scope)
	}

	dependsOn := make([]string, 0, len(in.DependsOn))
	seen := make(map[string]bool, len(in.DependsOn))
	for _, id := range in.DependsOn {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, engine.Invalid("depends_on", "contains an empty id")
		}
		if id == in.TemplateID {
			return nil, engine.Invalid("depends_on", "template %s cannot depend on itself", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		dependsOn = append(dependsOn, id)
	}

	if _, err := s.forms.FindTemplateByID(ctx, in.TemplateID); err != nil {
		return nil, lookupErr(err, "template", in.TemplateID)
	}
	known, err := s.forms.FindTemplatesByIDs(ctx, dependsOn)
	if err != nil {
		return nil, fmt.Errorf("find dependency templates: %w", err)
	}
	if len(known) != len(dependsOn) {
		found := make(map[string]bool, len(known))
		for _, t := range known {
			found[t.ID] = true
		}
		for _, id := range dependsOn {
			if !found[id] {
				return nil, engine.NotFound("template", id)
			}
		}
	}

	req := entity.FormCompletionRequirement{
		TemplateID: in.TemplateID,
		PhaseID:    in.PhaseID,
		DependsOn:  datatypes.JSONSlice[string](dependsOn),
		IsBlocking: in.IsBlocking,
		Scope:      scope,
	}
	// 查环与写入在同一事务内完成
	err = s.forms.ReplaceRequirement(ctx, &req, func(existing []entity.FormCompletionRequirement) error {
		merged := make([]entity.FormCompletionRequirement, 0, len(existing)+1)
		for _, r := range existing {
			if r.TemplateID == in.TemplateID && r.PhaseID == in.PhaseID {
				req.ID = r.ID
				continue
			}
			merged = append(merged, r)
		}
		merged = append(merged, req)
		return engine.ValidateRequirements(merged)
	})
	if err != nil {
		if errors.Is(err, engine.ErrIntegrity) {
			return nil, err
		}
		return nil, fmt.Errorf("replace completion requirement: %w", err)
	}
	s.logger.Info("form dependencies updated",
		zap.String("template_id", in.TemplateID),
		zap.String("phase_id", in.PhaseID),
		zap.Strings("depends_on", dependsOn),
		zap.Bool("is_blocking", in.IsBlocking))
	return &req, nil
}
