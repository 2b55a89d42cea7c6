package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/bitfantasy/wrapflow/internal/flow/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// FormService 表单完成校验、状态流转、提交与版本发布
type FormService struct {
	forms  FormStore
	deps   *DependencyService
	cache  SchemaCache
	logger *zap.Logger
}

// NewFormService 创建表单服务
func NewFormService(forms FormStore, deps *DependencyService, cache SchemaCache, logger *zap.Logger) *FormService {
	return &FormService{forms: forms, deps: deps, cache: cache, logger: logger}
}

// schemaFor returns the schema of the version an instance was created from.
func (s *FormService) schemaFor(ctx context.Context, inst *entity.FormInstance) (entity.FormSchema, error) {
	if schema, ok := s.cache.Get(ctx, inst.TemplateID, inst.Version); ok {
		return *schema, nil
	}
	v, err := s.forms.FindVersion(ctx, inst.TemplateID, inst.Version)
	if err != nil {
		return entity.FormSchema{}, lookupErr(err, "form version", fmt.Sprintf("%s@v%d", inst.TemplateID, inst.Version))
	}
	schema := v.Schema.Data()
	s.cache.Set(ctx, inst.TemplateID, inst.Version, schema)
	return schema, nil
}

// CheckFormCompletion 校验表单当前提交是否满足必填项
func (s *FormService) CheckFormCompletion(ctx context.Context, instanceID string) (*engine.CompletionResult, error) {
	inst, err := s.forms.FindInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, lookupErr(err, "form instance", instanceID)
	}
	schema, err := s.schemaFor(ctx, inst)
	if err != nil {
		return nil, err
	}
	resp, err := s.forms.LatestResponse(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("latest response: %w", err)
	}
	var payload entity.Payload
	if resp != nil {
		payload = resp.Payload.Data()
	}
	res := engine.Evaluate(schema, payload)
	return &res, nil
}

// TransitionFormStatus 单个表单状态流转
func (s *FormService) TransitionFormStatus(ctx context.Context, actorID, instanceID, status string) (*entity.FormInstance, error) {
	updated, err := s.TransitionFormStatusBatch(ctx, actorID, []string{instanceID}, status)
	if err != nil {
		return nil, err
	}
	return &updated[0], nil
}

// TransitionFormStatusBatch 批量状态流转：全部通过才写入，单事务。
// 批次内实例必须属于同一项目。
func (s *FormService) TransitionFormStatusBatch(ctx context.Context, actorID string, instanceIDs []string, status string) ([]entity.FormInstance, error) {
	if !entity.ValidFormStatus(status) {
		return nil, engine.Invalid("status", "unknown form status %q", status)
	}
	if len(instanceIDs) == 0 {
		return nil, engine.Invalid("instance_ids", "at least one instance is required")
	}
	seen := make(map[string]bool, len(instanceIDs))
	for _, id := range instanceIDs {
		if seen[id] {
			return nil, engine.Invalid("instance_ids", "duplicate instance %s", id)
		}
		seen[id] = true
	}

	found, err := s.forms.FindInstancesByIDs(ctx, instanceIDs)
	if err != nil {
		return nil, fmt.Errorf("find form instances: %w", err)
	}
	byID := make(map[string]entity.FormInstance, len(found))
	for _, inst := range found {
		byID[inst.ID] = inst
	}
	instances := make([]entity.FormInstance, 0, len(instanceIDs))
	for _, id := range instanceIDs {
		inst, ok := byID[id]
		if !ok {
			return nil, engine.NotFound("form instance", id)
		}
		instances = append(instances, inst)
	}
	projectID := instances[0].ProjectID
	for _, inst := range instances[1:] {
		if inst.ProjectID != projectID {
			return nil, engine.Invalid("instance_ids", "instances span projects %s and %s", projectID, inst.ProjectID)
		}
	}

	candidates := make([]engine.TransitionCandidate, len(instances))
	for i, inst := range instances {
		candidates[i] = engine.TransitionCandidate{Instance: inst}
	}
	var graph *engine.Graph
	if status == entity.FormStatusCompleted {
		if graph, _, err = s.deps.buildGraph(ctx, projectID); err != nil {
			return nil, err
		}
		responses, err := s.forms.LatestResponses(ctx, instanceIDs)
		if err != nil {
			return nil, fmt.Errorf("latest responses: %w", err)
		}
		for i := range candidates {
			inst := &candidates[i].Instance
			if candidates[i].Schema, err = s.schemaFor(ctx, inst); err != nil {
				return nil, err
			}
			candidates[i].Response = responses[inst.ID]
		}
	}
	if err := engine.ValidateTransition(candidates, status, graph); err != nil {
		var incomplete *engine.IncompleteError
		if errors.As(err, &incomplete) {
			s.logger.Info("form transition rejected",
				zap.String("project_id", projectID),
				zap.String("status", status),
				zap.Strings("failing_ids", incomplete.InstanceIDs))
		}
		return nil, err
	}

	batchID, err := s.forms.UpdateStatuses(ctx, instances, status, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &engine.NotFoundError{Kind: "form instance", Message: "a form instance in the batch was removed concurrently"}
		}
		return nil, fmt.Errorf("update form statuses: %w", err)
	}
	now := time.Now()
	for i := range instances {
		instances[i].Status = status
		instances[i].UpdatedAt = now
	}
	s.logger.Info("form status transitioned",
		zap.String("project_id", projectID),
		zap.String("batch_id", batchID),
		zap.String("status", status),
		zap.String("operator_id", actorID),
		zap.Int("count", len(instances)))
	return instances, nil
}

// SubmitResponse 追加一次表单提交；已完成或已取消的表单不可再提交
func (s *FormService) SubmitResponse(ctx context.Context, actorID, instanceID string, payload entity.Payload) (*entity.FormResponse, error) {
	inst, err := s.forms.FindInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, lookupErr(err, "form instance", instanceID)
	}
	if inst.Status == entity.FormStatusCompleted || inst.Status == entity.FormStatusCancelled {
		return nil, engine.Invalid("status", "form %s is %s and no longer accepts responses", instanceID, inst.Status)
	}
	schema, err := s.schemaFor(ctx, inst)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool)
	for _, sec := range schema.Sections {
		for _, f := range sec.Fields {
			known[f.Key] = true
		}
	}
	var unknown []string
	for _, k := range payload.Keys() {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return nil, engine.Invalid("payload", "unknown fields %v", unknown)
	}
	if payload == nil {
		payload = entity.Payload{}
	}

	resp := &entity.FormResponse{
		ID:          uuid.New().String(),
		InstanceID:  instanceID,
		Payload:     datatypes.NewJSONType(payload),
		SubmittedBy: actorID,
		SubmittedAt: time.Now(),
	}
	if err := s.forms.AppendResponse(ctx, resp); err != nil {
		return nil, fmt.Errorf("append response: %w", err)
	}
	s.logger.Info("form response submitted",
		zap.String("instance_id", instanceID),
		zap.Int("seq", resp.Seq),
		zap.String("submitted_by", actorID))
	return resp, nil
}

// ListResponseHistory 提交历史，最新在前
func (s *FormService) ListResponseHistory(ctx context.Context, instanceID string) ([]entity.FormResponse, error) {
	if _, err := s.forms.FindInstanceByID(ctx, instanceID); err != nil {
		return nil, lookupErr(err, "form instance", instanceID)
	}
	history, err := s.forms.ListResponses(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	if history == nil {
		history = []entity.FormResponse{}
	}
	return history, nil
}

// PublishVersion 发布模板新版本；旧版本与已有实例不受影响
func (s *FormService) PublishVersion(ctx context.Context, actorID, templateID string, schema entity.FormSchema) (*entity.FormVersion, error) {
	if err := schema.Validate(); err != nil {
		return nil, engine.Invalid("schema", "%v", err)
	}
	v, err := s.forms.CreateVersion(ctx, templateID, schema, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, engine.NotFound("template", templateID)
		}
		return nil, fmt.Errorf("create form version: %w", err)
	}
	s.cache.Set(ctx, templateID, v.Version, schema)
	s.logger.Info("form version published",
		zap.String("template_id", templateID),
		zap.Int("version", v.Version),
		zap.String("created_by", actorID))
	return v, nil
}
