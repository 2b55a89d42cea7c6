package repository

import (
	"context"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"gorm.io/gorm"
)

// TaskRepository 任务仓库
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID 根据ID查找任务
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.ProjectTask, error) {
	var task entity.ProjectTask
	err := r.db.WithContext(ctx).
		Preload("Phase").
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

// Create 创建任务
func (r *TaskRepository) Create(ctx context.Context, task *entity.ProjectTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// ListByProject 获取项目任务列表
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]entity.ProjectTask, error) {
	var tasks []entity.ProjectTask
	err := r.db.WithContext(ctx).
		Preload("Phase").
		Where("project_id = ?", projectID).
		Order("sequence ASC, created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// UpdateSchedule 只写排期字段和状态
func (r *TaskRepository) UpdateSchedule(ctx context.Context, task *entity.ProjectTask) error {
	return r.updateColumns(ctx, task, "scheduled_start", "scheduled_end", "status", "updated_at")
}

// UpdateActuals 只写实际起止时间和状态
func (r *TaskRepository) UpdateActuals(ctx context.Context, task *entity.ProjectTask) error {
	return r.updateColumns(ctx, task, "actual_start", "actual_end", "status", "updated_at")
}

func (r *TaskRepository) updateColumns(ctx context.Context, task *entity.ProjectTask, columns ...string) error {
	result := r.db.WithContext(ctx).
		Model(task).
		Select(columns).
		Updates(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
