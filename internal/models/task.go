package models

import (
	"fmt"
	"time"
)

// TaskSource tells where a task was imported from
type TaskSource string

const (
	SourcePlanner TaskSource = "planner"
	SourceTodo    TaskSource = "todo"
	SourceLocal   TaskSource = "local"
)

// ParseTaskSource validates a source tag, empty means local
func ParseTaskSource(s string) (TaskSource, error) {
	switch TaskSource(s) {
	case "":
		return SourceLocal, nil
	case SourcePlanner, SourceTodo, SourceLocal:
		return TaskSource(s), nil
	default:
		return "", fmt.Errorf("invalid task source %q (use planner, todo or local)", s)
	}
}

// Task represents a unit of work sessions can be logged against
type Task struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	Name       string     `gorm:"not null" json:"name"`
	QuickRef   *string    `gorm:"uniqueIndex" json:"quick_ref"` // nil keeps the unique index happy for tasks without one
	URL        string     `json:"url"`
	ExternalID string     `gorm:"column:task_id" json:"task_id"`
	Source     TaskSource `gorm:"type:text;not null;default:local;check:chk_tasks_source,source IN ('planner','todo','local')" json:"source"`
	Notes      string     `json:"notes"`
	DueDate    *time.Time `json:"due_date"`

	CreatedDate time.Time  `gorm:"not null" json:"created_date"`
	LastWorked  *time.Time `gorm:"index:idx_tasks_last_worked" json:"last_worked"`
}

// DisplayName returns the name with the quick reference appended when set
func (t *Task) DisplayName() string {
	if t.QuickRef != nil && *t.QuickRef != "" {
		return fmt.Sprintf("%s (%s)", t.Name, *t.QuickRef)
	}
	return t.Name
}
