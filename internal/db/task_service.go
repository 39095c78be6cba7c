package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/pomo/internal/models"
	"github.com/balkashynov/pomo/internal/parser"
)

// CreateTaskRequest holds the data needed to create a new task
type CreateTaskRequest struct {
	Name       string
	QuickRef   string // normalized to ABC-12 form when it looks like one
	URL        string
	ExternalID string
	Source     string // planner, todo or local (default)
	Notes      string
	DueDate    *time.Time
}

// CreateTask inserts a new task
func (s *Store) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	source, err := models.ParseTaskSource(req.Source)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		Name:        strings.TrimSpace(req.Name),
		URL:         req.URL,
		ExternalID:  req.ExternalID,
		Source:      source,
		Notes:       req.Notes,
		DueDate:     req.DueDate,
		CreatedDate: s.now(),
	}
	if ref := strings.TrimSpace(req.QuickRef); ref != "" {
		if normalized, err := parser.NormalizeQuickRef(ref); err == nil {
			ref = normalized
		}
		task.QuickRef = &ref
	}

	err = s.run(ctx, "create task", func(tx *gorm.DB) error {
		task.ID = 0
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask retrieves a task by ID
func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := s.run(ctx, "get task", func(tx *gorm.DB) error {
		return tx.First(&task, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTaskByQuickRef looks a task up by its quick reference, case-insensitively
func (s *Store) GetTaskByQuickRef(ctx context.Context, ref string) (*models.Task, error) {
	var task models.Task
	err := s.run(ctx, "get task by ref", func(tx *gorm.DB) error {
		return tx.Where("UPPER(quick_ref) = ?", strings.ToUpper(strings.TrimSpace(ref))).First(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ResolveTask accepts either a quick reference or a numeric task ID.
// Quick refs win so a task named by a number-like ref stays reachable.
func (s *Store) ResolveTask(ctx context.Context, ref string) (*models.Task, error) {
	task, err := s.GetTaskByQuickRef(ctx, ref)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	id, convErr := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(ref), "#"), 10, 64)
	if convErr != nil {
		return nil, err
	}
	return s.GetTask(ctx, uint(id))
}

// ListTasks returns every task, most recently worked first
func (s *Store) ListTasks(ctx context.Context) ([]models.Task, error) {
	return s.findTasks(ctx, "list tasks", 0, nil)
}

// RecentTasks returns up to limit tasks ordered by last_worked
func (s *Store) RecentTasks(ctx context.Context, limit int) ([]models.Task, error) {
	return s.findTasks(ctx, "list recent tasks", limit, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("last_worked IS NOT NULL")
	})
}

// SearchTasks matches term against name, quick ref, external id and notes
func (s *Store) SearchTasks(ctx context.Context, term string) ([]models.Task, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	return s.findTasks(ctx, "search tasks", 0, func(tx *gorm.DB) *gorm.DB {
		return tx.Where(
			"LOWER(name) LIKE ? OR LOWER(COALESCE(quick_ref, '')) LIKE ? OR LOWER(task_id) LIKE ? OR LOWER(notes) LIKE ?",
			like, like, like, like,
		)
	})
}

func (s *Store) findTasks(ctx context.Context, op string, limit int, scope func(*gorm.DB) *gorm.DB) ([]models.Task, error) {
	var tasks []models.Task
	err := s.run(ctx, op, func(tx *gorm.DB) error {
		q := tx.Model(&models.Task{})
		if scope != nil {
			q = scope(q)
		}
		// SQLite sorts NULL first on DESC; never-worked tasks go last
		q = q.Order("last_worked IS NULL").Order("last_worked DESC").Order("id DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&tasks).Error
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// TouchTask records that work was logged against a task at the given time.
func (s *Store) TouchTask(ctx context.Context, id uint, at time.Time) error {
	return s.run(ctx, "touch task", func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).Where("id = ?", id).Update("last_worked", at)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

