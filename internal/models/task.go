package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "NEW"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusUAT        TaskStatus = "UAT"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusClosed     TaskStatus = "CLOSED"
)

type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityLow    TaskPriority = "LOW"
)

// Task belongs to a group. AssignedTo and CreatedBy are usernames, not foreign
// keys; assignee comparisons are case-insensitive.
type Task struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Title       string         `gorm:"type:varchar(120);not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	AssignedTo  string         `gorm:"type:varchar(80);not null" json:"assigned_to"`
	CreatedBy   string         `gorm:"type:varchar(80);not null" json:"created_by"`
	GroupID     uint64         `gorm:"not null;index" json:"group_id"`
	DueDate     time.Time      `gorm:"not null" json:"due_date"`
	Status      TaskStatus     `gorm:"type:varchar(20);not null;default:'NEW'" json:"status"`
	Priority    TaskPriority   `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	Note        *string        `gorm:"type:varchar(1000)" json:"note"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// ValidTaskStatus reports whether s is one of the known statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusUAT, TaskStatusCompleted, TaskStatusClosed:
		return true
	}
	return false
}

// ValidTaskPriority reports whether p is one of the known priorities.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}
