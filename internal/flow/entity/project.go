package entity

import (
	"time"
)

// Project 项目实体（一个印刷/车身包膜订单）
type Project struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Code        string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name        string     `json:"name" gorm:"size:128;not null"`
	Status      string     `json:"status" gorm:"size:16;not null;default:planning"`
	Description string     `json:"description" gorm:"type:text"`
	ManagerID   string     `json:"manager_id" gorm:"size:32"`
	CreatedBy   string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	// 关联
	Phases []ProjectPhase `json:"phases,omitempty" gorm:"foreignKey:ProjectID"`
	Tasks  []ProjectTask  `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectPhase 项目阶段（设计、打印、覆膜、安装……）
type ProjectPhase struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string    `json:"project_id" gorm:"size:32;not null;index"`
	Code      string    `json:"code" gorm:"size:32;not null"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	Status    string    `json:"status" gorm:"size:16;not null;default:pending"`
	Sequence  int       `json:"sequence" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectPhase) TableName() string {
	return "project_phases"
}

// ProjectTask 项目任务
type ProjectTask struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	ProjectID      string     `json:"project_id" gorm:"size:32;not null;index"`
	PhaseID        *string    `json:"phase_id" gorm:"size:32"`
	Title          string     `json:"title" gorm:"size:256;not null"`
	Description    string     `json:"description" gorm:"type:text"`
	Status         string     `json:"status" gorm:"size:16;not null;default:PENDING"`
	Priority       string     `json:"priority" gorm:"size:16;not null;default:medium"`
	AssigneeID     *string    `json:"assignee_id" gorm:"size:32"`
	ManHours       float64    `json:"man_hours" gorm:"type:decimal(8,2)"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	ActualStart    *time.Time `json:"actual_start"`
	ActualEnd      *time.Time `json:"actual_end"`
	Sequence       int        `json:"sequence" gorm:"not null;default:0"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Phase *ProjectPhase `json:"phase,omitempty" gorm:"foreignKey:PhaseID"`
}

func (ProjectTask) TableName() string {
	return "project_tasks"
}

// TaskStatus 任务状态
const (
	TaskStatusPending    = "PENDING"
	TaskStatusScheduled  = "SCHEDULED"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
)

// TaskPriority 任务优先级
const (
	TaskPriorityLow      = "low"
	TaskPriorityMedium   = "medium"
	TaskPriorityHigh     = "high"
	TaskPriorityCritical = "critical"
)
