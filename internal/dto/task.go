package dto

import (
	"time"

	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/services"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assigned_to"`
	CreatedBy   string              `json:"created_by"`
	GroupID     uint64              `json:"group_id"`
	GroupName   string              `json:"group_name,omitempty"`
	DueDate     time.Time           `json:"due_date"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	Note        *string             `json:"note"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	Capabilities *TaskCapabilitiesDTO `json:"capabilities,omitempty"`
}

// TaskCapabilitiesDTO mirrors the caller's per-task permissions
type TaskCapabilitiesDTO struct {
	CanEditContent  bool `json:"can_edit_content"`
	CanUpdateStatus bool `json:"can_update_status"`
	CanUpdateNote   bool `json:"can_update_note"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		AssignedTo:  task.AssignedTo,
		CreatedBy:   task.CreatedBy,
		GroupID:     task.GroupID,
		DueDate:     task.DueDate,
		Status:      task.Status,
		Priority:    task.Priority,
		Note:        task.Note,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Include group name if preloaded
	if task.Group.ID != 0 {
		dto.GroupName = task.Group.Name
	}

	return dto
}

// ToTaskDTOWithCapabilities attaches the caller's permissions to the task
func ToTaskDTOWithCapabilities(task models.Task, caps services.TaskCapabilities) TaskDTO {
	dto := ToTaskDTO(task)
	dto.Capabilities = &TaskCapabilitiesDTO{
		CanEditContent:  caps.CanEditContent,
		CanUpdateStatus: caps.CanUpdateStatus,
		CanUpdateNote:   caps.CanUpdateNote,
	}
	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
