package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/pomo/internal/models"
)

// CreateSession inserts s as the active session. The existence check and the
// insert share one transaction, so two callers cannot both succeed.
func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	return s.run(ctx, "create session", func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			var active int64
			if err := tx.Model(&models.Session{}).Where("status = ?", models.StatusActive).Count(&active).Error; err != nil {
				return err
			}
			if active > 0 {
				return ErrActiveSessionExists
			}
			session.ID = 0
			session.Status = models.StatusActive
			return tx.Create(session).Error
		})
	})
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	err := s.run(ctx, "get session", func(tx *gorm.DB) error {
		return tx.First(&session, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSession returns the currently active session, if any
func (s *Store) ActiveSession(ctx context.Context) (*models.Session, error) {
	var sessions []models.Session
	err := s.run(ctx, "find active session", func(tx *gorm.DB) error {
		return tx.Where("status = ?", models.StatusActive).Limit(1).Find(&sessions).Error
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil // No active session is not an error
	}
	return &sessions[0], nil
}

// CompleteSession records the end of an active session and returns the stored row.
func (s *Store) CompleteSession(ctx context.Context, id uint, end time.Time, durationMinutes int, outcome, files string) (*models.Session, error) {
	err := s.updateActive(ctx, "complete session", id, map[string]any{
		"end_time":         end,
		"duration_minutes": durationMinutes,
		"outcome":          outcome,
		"files_modified":   files,
		"status":           models.StatusCompleted,
	})
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

// CancelSession ends an active session without a duration.
func (s *Store) CancelSession(ctx context.Context, id uint, end time.Time) (*models.Session, error) {
	err := s.updateActive(ctx, "cancel session", id, map[string]any{
		"end_time": end,
		"status":   models.StatusCancelled,
	})
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

// SetTargetMinutes stores a new target for an active session.
func (s *Store) SetTargetMinutes(ctx context.Context, id uint, target int) error {
	return s.updateActive(ctx, "extend session", id, map[string]any{"target_minutes": target})
}

// SetPausedDuration stores the accumulated paused minutes of an active session.
func (s *Store) SetPausedDuration(ctx context.Context, id uint, paused int) error {
	return s.updateActive(ctx, "pause session", id, map[string]any{"paused_duration": paused})
}

// updateActive applies fields to session id only while it is still active;
// finished sessions are immutable.
func (s *Store) updateActive(ctx context.Context, op string, id uint, fields map[string]any) error {
	return s.run(ctx, op, func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).
			Where("id = ? AND status = ?", id, models.StatusActive).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// RecoverInterrupted cancels every session still marked active. It runs at
// startup: a session can only be active inside the process that started it.
func (s *Store) RecoverInterrupted(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.run(ctx, "recover interrupted sessions", func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).
			Where("status = ?", models.StatusActive).
			Updates(map[string]any{
				"status":   models.StatusCancelled,
				"end_time": now,
			})
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}

// LastCompletedSession returns the most recently ended completed session, or nil.
func (s *Store) LastCompletedSession(ctx context.Context) (*models.Session, error) {
	var sessions []models.Session
	err := s.run(ctx, "find last completed session", func(tx *gorm.DB) error {
		return tx.Where("status = ? AND end_time IS NOT NULL", models.StatusCompleted).
			Order("end_time DESC").
			Limit(1).
			Find(&sessions).Error
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// GetSessionsInRange returns completed sessions started within [from, to]
func (s *Store) GetSessionsInRange(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := s.run(ctx, "list sessions", func(tx *gorm.DB) error {
		return tx.Where("start_time >= ? AND start_time <= ? AND status = ?", from, to, models.StatusCompleted).
			Preload("Task").
			Order("start_time ASC").
			Find(&sessions).Error
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetTaskSessions returns the latest sessions logged against a task
func (s *Store) GetTaskSessions(ctx context.Context, taskID uint, limit int) ([]models.Session, error) {
	var sessions []models.Session
	err := s.run(ctx, "list task sessions", func(tx *gorm.DB) error {
		q := tx.Where("task_id = ?", taskID).Order("start_time DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&sessions).Error
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
