package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/repository"
	"github.com/taskassign/taskassign-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskPermissionDenied = errors.New("no permission to modify this task")
	ErrTitleRequired        = errors.New("title is required")
	ErrDescriptionRequired  = errors.New("description is required")
	ErrAssigneeRequired     = errors.New("assignee is required")
	ErrDueDateRequired      = errors.New("due date is required")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrInvalidTaskPriority  = errors.New("invalid task priority")
	ErrInvalidAssignee      = errors.New("assignee is not a member of this group")
)

// TaskService handles task business logic and per-task capability checks.
type TaskService struct {
	taskRepo  repository.TaskRepository
	groupRepo repository.GroupRepository
	access    *AccessService
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, groupRepo repository.GroupRepository, access *AccessService) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		groupRepo: groupRepo,
		access:    access,
	}
}

// TaskCapabilities are the three independent permissions a user holds on a
// task. Content editing belongs to the lead; status to lead or assignee; the
// note to the assignee alone.
type TaskCapabilities struct {
	CanEditContent  bool `json:"can_edit_content"`
	CanUpdateStatus bool `json:"can_update_status"`
	CanUpdateNote   bool `json:"can_update_note"`
}

// CapabilitiesFor derives the caller's capabilities on a task. Assignee
// comparison is case-insensitive because assignees are usernames.
func (s *TaskService) CapabilitiesFor(task *models.Task, userID uint64, username string) TaskCapabilities {
	isLead := s.access.IsGroupLead(userID, task.GroupID)
	isAssignee := username != "" && strings.EqualFold(task.AssignedTo, username)

	return TaskCapabilities{
		CanEditContent:  isLead,
		CanUpdateStatus: isLead || isAssignee,
		CanUpdateNote:   isAssignee,
	}
}

// CanAccessTask is the view-level gate: membership of the task's group.
func (s *TaskService) CanAccessTask(task *models.Task, userID uint64) bool {
	return s.access.CanAccessGroup(userID, task.GroupID)
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title         string
	Description   string
	AssignedTo    string
	GroupID       uint64
	DueDate       time.Time
	Status        models.TaskStatus
	Priority      models.TaskPriority
	Note          *string
	ActorID       uint64
	ActorUsername string
}

// CreateTask creates a task. Only the group lead may create tasks, and the
// assignee must belong to the group (lead included).
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if !s.access.CanAccessGroup(input.ActorID, input.GroupID) {
		return nil, ErrGroupNotFound
	}
	if !s.access.IsGroupLead(input.ActorID, input.GroupID) {
		return nil, ErrTaskPermissionDenied
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, ErrDescriptionRequired
	}
	if strings.TrimSpace(input.AssignedTo) == "" {
		return nil, ErrAssigneeRequired
	}
	if input.DueDate.IsZero() {
		return nil, ErrDueDateRequired
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusNew
	}
	if !models.ValidTaskStatus(status) {
		return nil, ErrInvalidTaskStatus
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskPriority(priority) {
		return nil, ErrInvalidTaskPriority
	}

	assignee, err := s.resolveAssignee(input.GroupID, input.AssignedTo)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		AssignedTo:  assignee,
		CreatedBy:   input.ActorUsername,
		GroupID:     input.GroupID,
		DueDate:     input.DueDate,
		Status:      status,
		Priority:    priority,
		Note:        input.Note,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// GetTask returns a task the caller can access. Missing and inaccessible
// tasks are indistinguishable.
func (s *TaskService) GetTask(taskID, userID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Group")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !s.CanAccessTask(task, userID) {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// UpdateTaskInput represents a partial task update. Nil fields are untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	AssignedTo  *string
	DueDate     *time.Time
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	Note        *string
	ClearNote   bool
}

func (in UpdateTaskInput) touchesContent() bool {
	return in.Title != nil || in.Description != nil || in.AssignedTo != nil ||
		in.DueDate != nil || in.Priority != nil
}

// UpdateTask applies a partial update, checking each touched field group
// against the caller's capabilities. A capability miss is an authorization
// error, never a silent skip.
func (s *TaskService) UpdateTask(taskID, actorID uint64, actorUsername string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !s.CanAccessTask(task, actorID) {
		return nil, ErrTaskNotFound
	}

	caps := s.CapabilitiesFor(task, actorID, actorUsername)

	if input.touchesContent() && !caps.CanEditContent {
		return nil, ErrTaskPermissionDenied
	}
	if input.Status != nil && !caps.CanUpdateStatus {
		return nil, ErrTaskPermissionDenied
	}
	if (input.Note != nil || input.ClearNote) && !caps.CanUpdateNote {
		return nil, ErrTaskPermissionDenied
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = title
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if desc == "" {
			return nil, ErrDescriptionRequired
		}
		task.Description = desc
	}
	if input.AssignedTo != nil {
		assignee, err := s.resolveAssignee(task.GroupID, *input.AssignedTo)
		if err != nil {
			return nil, err
		}
		task.AssignedTo = assignee
	}
	if input.DueDate != nil {
		task.DueDate = *input.DueDate
	}
	if input.Priority != nil {
		if !models.ValidTaskPriority(*input.Priority) {
			return nil, ErrInvalidTaskPriority
		}
		task.Priority = *input.Priority
	}
	if input.Status != nil {
		if !models.ValidTaskStatus(*input.Status) {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
	}
	if input.ClearNote {
		task.Note = nil
	} else if input.Note != nil {
		note := strings.TrimSpace(*input.Note)
		if note == "" {
			task.Note = nil
		} else {
			task.Note = &note
		}
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// UpdateStatus changes only the status; allowed for lead or assignee.
func (s *TaskService) UpdateStatus(taskID, actorID uint64, actorUsername string, status models.TaskStatus) (*models.Task, error) {
	if !models.ValidTaskStatus(status) {
		return nil, ErrInvalidTaskStatus
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !s.CanAccessTask(task, actorID) {
		return nil, ErrTaskNotFound
	}
	if !s.CapabilitiesFor(task, actorID, actorUsername).CanUpdateStatus {
		return nil, ErrTaskPermissionDenied
	}

	task.Status = status
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// UpdateNote changes only the note; allowed for the assignee alone.
func (s *TaskService) UpdateNote(taskID, actorID uint64, actorUsername string, note *string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !s.CanAccessTask(task, actorID) {
		return nil, ErrTaskNotFound
	}
	if !s.CapabilitiesFor(task, actorID, actorUsername).CanUpdateNote {
		return nil, ErrTaskPermissionDenied
	}

	if note != nil {
		trimmed := strings.TrimSpace(*note)
		if trimmed == "" {
			note = nil
		} else {
			note = &trimmed
		}
	}

	task.Note = note
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// DeleteTask soft deletes a task; lead only.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if !s.CanAccessTask(task, actorID) {
		return ErrTaskNotFound
	}
	if !s.access.IsGroupLead(actorID, task.GroupID) {
		return ErrTaskPermissionDenied
	}

	if err := s.taskRepo.Delete(task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ListTasksInput represents filters for listing tasks.
type ListTasksInput struct {
	UserID     uint64
	GroupID    *uint64
	Search     string
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo string
	Page       int
	PageSize   int
}

// ListTasks returns tasks across the caller's accessible groups, optionally
// narrowed to one of them. An inaccessible group filter yields an empty list
// rather than an existence hint.
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	groupIDs, err := s.accessibleGroupIDs(input.UserID, input.GroupID)
	if err != nil {
		return nil, 0, err
	}
	if len(groupIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	filter := repository.TaskFilter{
		GroupIDs:   groupIDs,
		Search:     strings.TrimSpace(input.Search),
		Status:     input.Status,
		Priority:   input.Priority,
		AssignedTo: strings.TrimSpace(input.AssignedTo),
	}
	if input.PageSize > 0 {
		filter.Pagination = utils.NewPaginationParams(input.Page, input.PageSize)
	}

	return s.taskRepo.List(filter)
}

// DashboardSummary aggregates the caller's task counts. GroupName is set only
// when the dashboard is scoped to a single group.
type DashboardSummary struct {
	GroupName           string `json:"group_name,omitempty"`

	TotalTasks          int `json:"total_tasks"`
	OverdueTasks        int `json:"overdue_tasks"`
	HighPriorityTasks   int `json:"high_priority_tasks"`
	MediumPriorityTasks int `json:"medium_priority_tasks"`
	LowPriorityTasks    int `json:"low_priority_tasks"`
	MyTasks             int `json:"my_tasks"`
}

// Dashboard aggregates counts over the caller's accessible tasks. Overdue
// excludes completed and closed tasks.
func (s *TaskService) Dashboard(userID uint64, username string, groupID *uint64) (*DashboardSummary, error) {
	groupIDs, err := s.accessibleGroupIDs(userID, groupID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListForGroups(groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard tasks: %w", err)
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	summary := &DashboardSummary{TotalTasks: len(tasks)}
	if groupID != nil {
		// Only name a group the caller can actually see
		summary.GroupName = "No Group"
		if len(groupIDs) > 0 {
			summary.GroupName = s.access.GroupName(*groupID)
		}
	}
	for _, t := range tasks {
		if t.DueDate.Before(today) && t.Status != models.TaskStatusCompleted && t.Status != models.TaskStatusClosed {
			summary.OverdueTasks++
		}
		switch t.Priority {
		case models.TaskPriorityHigh:
			summary.HighPriorityTasks++
		case models.TaskPriorityMedium:
			summary.MediumPriorityTasks++
		case models.TaskPriorityLow:
			summary.LowPriorityTasks++
		}
		if strings.EqualFold(t.AssignedTo, username) {
			summary.MyTasks++
		}
	}

	return summary, nil
}

func (s *TaskService) accessibleGroupIDs(userID uint64, groupID *uint64) ([]uint64, error) {
	groups, err := s.access.GroupsForUser(userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(groups))
	for _, g := range groups {
		if groupID != nil && g.ID != *groupID {
			continue
		}
		ids = append(ids, g.ID)
	}
	return ids, nil
}

func (s *TaskService) resolveAssignee(groupID uint64, assignee string) (string, error) {
	usernames, err := s.groupRepo.ListMemberUsernames(groupID)
	if err != nil {
		return "", fmt.Errorf("failed to list group members: %w", err)
	}

	trimmed := strings.TrimSpace(assignee)
	for _, name := range usernames {
		if strings.EqualFold(name, trimmed) {
			return name, nil
		}
	}
	return "", ErrInvalidAssignee
}
