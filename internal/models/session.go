package models

import (
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a work session
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

// Session represents one bounded interval of tracked work
type Session struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	TaskID          *uint  `gorm:"index:idx_sessions_task" json:"task_id"`
	TaskDescription string `json:"task_description"` // snapshot of the task name at start

	StartTime       time.Time  `gorm:"not null;index:idx_sessions_start" json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationMinutes *int       `json:"duration_minutes"`
	TargetMinutes   int        `gorm:"not null;default:25" json:"target_minutes"`

	Intent           string `json:"intent"`
	Outcome          string `json:"outcome"`
	FilesModified    string `json:"files_modified"`
	WorkingDirectory string `json:"working_directory"`
	PausedDuration   int    `gorm:"not null;default:0" json:"paused_duration"`

	Status SessionStatus `gorm:"type:text;not null;default:active;index;check:chk_sessions_status,status IN ('active','completed','cancelled')" json:"status"`

	// Relationships
	Task *Task `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"task,omitempty"`
}

// IsActive reports whether the session is still running
func (s *Session) IsActive() bool {
	return s.Status == StatusActive && s.EndTime == nil
}

// ActualMinutes returns the logged duration minus absorbed pauses.
// Zero for sessions that were never completed.
func (s *Session) ActualMinutes() int {
	if s.DurationMinutes == nil {
		return 0
	}
	return max(0, *s.DurationMinutes-s.PausedDuration)
}

// Files splits the comma-joined files_modified column
func (s *Session) Files() []string {
	if s.FilesModified == "" {
		return nil
	}
	var files []string
	for _, f := range strings.Split(s.FilesModified, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// JoinFiles produces the files_modified representation of a file list
func JoinFiles(files []string) string {
	return strings.Join(files, ", ")
}
