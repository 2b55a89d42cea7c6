package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FormRepository 表单仓库：模板、版本、实例、提交记录、完成依赖
type FormRepository struct {
	db *gorm.DB
}

// NewFormRepository 创建表单仓库
func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

// ==================== 模板 ====================

// FindTemplateByID 根据ID查找模板
func (r *FormRepository) FindTemplateByID(ctx context.Context, id string) (*entity.FormTemplate, error) {
	var tpl entity.FormTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &tpl, nil
}

// FindTemplateByCode 根据编码查找模板
func (r *FormRepository) FindTemplateByCode(ctx context.Context, code string) (*entity.FormTemplate, error) {
	var tpl entity.FormTemplate
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&tpl).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &tpl, nil
}

// FindTemplatesByIDs 批量查找模板，缺失的ID不报错
func (r *FormRepository) FindTemplatesByIDs(ctx context.Context, ids []string) ([]entity.FormTemplate, error) {
	var tpls []entity.FormTemplate
	if len(ids) == 0 {
		return tpls, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tpls).Error
	return tpls, err
}

// CreateTemplate 创建模板
func (r *FormRepository) CreateTemplate(ctx context.Context, tpl *entity.FormTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

// ==================== 版本 ====================

// FindVersion 查找模板的指定版本
func (r *FormRepository) FindVersion(ctx context.Context, templateID string, version int) (*entity.FormVersion, error) {
	var v entity.FormVersion
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND version = ?", templateID, version).
		First(&v).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// CreateVersion 追加新版本，版本号在模板行锁内递增
func (r *FormRepository) CreateVersion(ctx context.Context, templateID string, schema entity.FormSchema, createdBy string) (*entity.FormVersion, error) {
	var created entity.FormVersion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tpl entity.FormTemplate
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", templateID).
			First(&tpl).Error; err != nil {
			return notFound(err)
		}

		created = entity.FormVersion{
			ID:         uuid.New().String(),
			TemplateID: templateID,
			Version:    tpl.CurrentVersion + 1,
			Schema:     datatypes.NewJSONType(schema),
			CreatedBy:  createdBy,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return tx.Model(&entity.FormTemplate{}).
			Where("id = ?", templateID).
			Updates(map[string]interface{}{"current_version": created.Version, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ==================== 实例 ====================

// FindInstanceByID 根据ID查找表单实例
func (r *FormRepository) FindInstanceByID(ctx context.Context, id string) (*entity.FormInstance, error) {
	var inst entity.FormInstance
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &inst, nil
}

// FindInstancesByIDs 批量查找表单实例，缺失的ID不报错
func (r *FormRepository) FindInstancesByIDs(ctx context.Context, ids []string) ([]entity.FormInstance, error) {
	var instances []entity.FormInstance
	if len(ids) == 0 {
		return instances, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&instances).Error
	return instances, err
}

// ListInstancesByProject 获取项目下所有表单实例，按创建顺序
func (r *FormRepository) ListInstancesByProject(ctx context.Context, projectID string) ([]entity.FormInstance, error) {
	var instances []entity.FormInstance
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&instances).Error
	return instances, err
}

// CreateInstance 创建表单实例
func (r *FormRepository) CreateInstance(ctx context.Context, inst *entity.FormInstance) error {
	return r.db.WithContext(ctx).Create(inst).Error
}

// UpdateStatuses 单事务批量更新状态并写入状态日志，返回批次ID。
// 任一实例缺失则整体回滚。
func (r *FormRepository) UpdateStatuses(ctx context.Context, instances []entity.FormInstance, status, operatorID string) (string, error) {
	if len(instances) == 0 {
		return "", nil
	}
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	batchID := uuid.New().String()
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.FormInstance{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": status, "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return ErrNotFound
		}

		logs := make([]entity.FormStatusLog, len(instances))
		for i, inst := range instances {
			logs[i] = entity.FormStatusLog{
				ID:         uuid.New().String(),
				ProjectID:  inst.ProjectID,
				InstanceID: inst.ID,
				FromStatus: inst.Status,
				ToStatus:   status,
				OperatorID: operatorID,
				BatchID:    batchID,
				CreatedAt:  now,
			}
		}
		return tx.Create(&logs).Error
	})
	if err != nil {
		return "", err
	}
	return batchID, nil
}

// ListStatusLogs 获取实例状态变更日志
func (r *FormRepository) ListStatusLogs(ctx context.Context, instanceID string) ([]entity.FormStatusLog, error) {
	var logs []entity.FormStatusLog
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// ==================== 提交记录 ====================

// LatestResponse 获取当前提交（seq最大）
func (r *FormRepository) LatestResponse(ctx context.Context, instanceID string) (*entity.FormResponse, error) {
	var resp entity.FormResponse
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("seq DESC").
		First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 尚未提交不算错误
		}
		return nil, err
	}
	return &resp, nil
}

// LatestResponses 批量获取多个实例的当前提交，按实例ID索引
func (r *FormRepository) LatestResponses(ctx context.Context, instanceIDs []string) (map[string]*entity.FormResponse, error) {
	out := make(map[string]*entity.FormResponse, len(instanceIDs))
	if len(instanceIDs) == 0 {
		return out, nil
	}
	var responses []entity.FormResponse
	err := r.db.WithContext(ctx).
		Where("instance_id IN ?", instanceIDs).
		Where("seq = (SELECT MAX(seq) FROM form_responses fr WHERE fr.instance_id = form_responses.instance_id)").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}
	for i := range responses {
		out[responses[i].InstanceID] = &responses[i]
	}
	return out, nil
}

// AppendResponse 追加提交记录，seq 自动递增
func (r *FormRepository) AppendResponse(ctx context.Context, resp *entity.FormResponse) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		if err := tx.Model(&entity.FormResponse{}).
			Where("instance_id = ?", resp.InstanceID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		resp.Seq = maxSeq + 1
		return tx.Create(resp).Error
	})
}

// ListResponses 获取提交历史，最新在前
func (r *FormRepository) ListResponses(ctx context.Context, instanceID string) ([]entity.FormResponse, error) {
	var responses []entity.FormResponse
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("seq DESC").
		Find(&responses).Error
	return responses, err
}

// ==================== 完成依赖 ====================

// ListRequirements 获取模板的完成依赖声明
func (r *FormRepository) ListRequirements(ctx context.Context, templateIDs []string) ([]entity.FormCompletionRequirement, error) {
	var reqs []entity.FormCompletionRequirement
	if len(templateIDs) == 0 {
		return reqs, nil
	}
	err := r.db.WithContext(ctx).
		Where("template_id IN ?", templateIDs).
		Order("template_id ASC, phase_id ASC").
		Find(&reqs).Error
	return reqs, err
}

// ListAllRequirements 获取全部完成依赖声明
func (r *FormRepository) ListAllRequirements(ctx context.Context) ([]entity.FormCompletionRequirement, error) {
	var reqs []entity.FormCompletionRequirement
	err := r.db.WithContext(ctx).
		Order("template_id ASC, phase_id ASC").
		Find(&reqs).Error
	return reqs, err
}

// UpsertRequirement 按 (template_id, phase_id) 创建或覆盖依赖声明
func (r *FormRepository) UpsertRequirement(ctx context.Context, req *entity.FormCompletionRequirement) error {
	return upsertRequirement(r.db.WithContext(ctx), req)
}

// ReplaceRequirement 锁定依赖声明表后读取全部声明交给 check 校验，通过后写入 req；
// 并发的修改依次执行，check 总是看到已提交的最新声明
func (r *FormRepository) ReplaceRequirement(ctx context.Context, req *entity.FormCompletionRequirement, check func(existing []entity.FormCompletionRequirement) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("LOCK TABLE form_completion_requirements IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
			return err
		}
		var existing []entity.FormCompletionRequirement
		if err := tx.Order("template_id ASC, phase_id ASC").Find(&existing).Error; err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}
		return upsertRequirement(tx, req)
	})
}

func upsertRequirement(db *gorm.DB, req *entity.FormCompletionRequirement) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_id"}, {Name: "phase_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"depends_on", "is_blocking", "scope", "updated_at"}),
	}).Create(req).Error
}
