package repository

import (
	"context"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓库
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓库
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID 根据ID查找项目
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&project).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

// FindByCode 根据编码查找项目
func (r *ProjectRepository) FindByCode(ctx context.Context, code string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Where("code = ? AND deleted_at IS NULL", code).
		First(&project).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// CreatePhase 创建项目阶段
func (r *ProjectRepository) CreatePhase(ctx context.Context, phase *entity.ProjectPhase) error {
	return r.db.WithContext(ctx).Create(phase).Error
}

// ListPhases 获取项目阶段列表
func (r *ProjectRepository) ListPhases(ctx context.Context, projectID string) ([]entity.ProjectPhase, error) {
	var phases []entity.ProjectPhase
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("sequence ASC").
		Find(&phases).Error
	return phases, err
}
