package entity

import (
	"time"

	"gorm.io/datatypes"
)

// FormTemplate 表单模板
type FormTemplate struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Code           string    `json:"code" gorm:"size:64;uniqueIndex"`
	Name           string    `json:"name" gorm:"size:128;not null"`
	Phase          string    `json:"phase" gorm:"size:32"` // 所属工作流阶段代码
	CurrentVersion int       `json:"current_version" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (FormTemplate) TableName() string {
	return "form_templates"
}

// FormVersion 表单模板版本，只追加不修改
type FormVersion struct {
	ID         string                         `json:"id" gorm:"primaryKey;size:36"`
	TemplateID string                         `json:"template_id" gorm:"size:36;not null;uniqueIndex:idx_form_version"`
	Version    int                            `json:"version" gorm:"not null;uniqueIndex:idx_form_version"`
	Schema     datatypes.JSONType[FormSchema] `json:"schema" gorm:"not null"`
	CreatedBy  string                         `json:"created_by" gorm:"size:32"`
	CreatedAt  time.Time                      `json:"created_at"`
}

func (FormVersion) TableName() string {
	return "form_versions"
}

// FormInstance 项目内的表单实例，每个 (project, template) 一条
type FormInstance struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID  string    `json:"project_id" gorm:"size:32;not null;uniqueIndex:idx_form_instance_project_template"`
	TemplateID string    `json:"template_id" gorm:"size:36;not null;uniqueIndex:idx_form_instance_project_template"`
	Version    int       `json:"version" gorm:"not null"`
	Name       string    `json:"name" gorm:"size:128"`
	Status     string    `json:"status" gorm:"size:16;not null;default:DRAFT"`
	TaskID     *string   `json:"task_id" gorm:"size:32"`
	PhaseID    *string   `json:"phase_id" gorm:"size:32"`
	Order      *int      `json:"order" gorm:"column:sort_order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (FormInstance) TableName() string {
	return "form_instances"
}

// FormResponse 表单提交记录，只追加；seq 最大的一条为当前提交
type FormResponse struct {
	ID          string                      `json:"id" gorm:"primaryKey;size:36"`
	InstanceID  string                      `json:"instance_id" gorm:"size:36;not null;uniqueIndex:idx_form_response_seq"`
	Seq         int                         `json:"seq" gorm:"not null;uniqueIndex:idx_form_response_seq"`
	Payload     datatypes.JSONType[Payload] `json:"payload" gorm:"not null"`
	SubmittedBy string                      `json:"submitted_by" gorm:"size:32;not null"`
	SubmittedAt time.Time                   `json:"submitted_at"`
}

func (FormResponse) TableName() string {
	return "form_responses"
}

// FormCompletionRequirement 模板级完成依赖声明，按 (template, phase) 唯一
type FormCompletionRequirement struct {
	ID         string                      `json:"id" gorm:"primaryKey;size:36"`
	TemplateID string                      `json:"template_id" gorm:"size:36;not null;uniqueIndex:idx_form_requirement"`
	PhaseID    string                      `json:"phase_id" gorm:"size:32;not null;default:'';uniqueIndex:idx_form_requirement"`
	DependsOn  datatypes.JSONSlice[string] `json:"depends_on" gorm:"not null"`
	IsBlocking bool                        `json:"is_blocking" gorm:"not null"`
	Scope      string                      `json:"scope" gorm:"size:16;not null;default:PHASE"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

func (FormCompletionRequirement) TableName() string {
	return "form_completion_requirements"
}

// FormStatusLog 表单状态变更日志
type FormStatusLog struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID  string    `json:"project_id" gorm:"size:32;not null;index"`
	InstanceID string    `json:"instance_id" gorm:"size:36;not null;index"`
	FromStatus string    `json:"from_status" gorm:"size:16"`
	ToStatus   string    `json:"to_status" gorm:"size:16;not null"`
	OperatorID string    `json:"operator_id" gorm:"size:64;not null"`
	BatchID    string    `json:"batch_id" gorm:"size:36;index"`
	CreatedAt  time.Time `json:"created_at"`
}

func (FormStatusLog) TableName() string {
	return "form_status_logs"
}

// FormStatus 表单状态
const (
	FormStatusDraft      = "DRAFT"
	FormStatusInProgress = "IN_PROGRESS"
	FormStatusSubmitted  = "SUBMITTED"
	FormStatusCompleted  = "COMPLETED"
	FormStatusCancelled  = "CANCELLED"
)

// ValidFormStatus 是否为已知表单状态
func ValidFormStatus(status string) bool {
	switch status {
	case FormStatusDraft, FormStatusInProgress, FormStatusSubmitted, FormStatusCompleted, FormStatusCancelled:
		return true
	}
	return false
}

// RequirementScope 依赖作用范围
const (
	RequirementScopePhase = "PHASE"
	RequirementScopeTask  = "TASK"
)
