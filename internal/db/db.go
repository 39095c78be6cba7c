package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/balkashynov/pomo/internal/logging"
	"github.com/balkashynov/pomo/internal/models"
	"github.com/balkashynov/pomo/internal/retry"
)

// DefaultRetryPolicy tolerates a sync agent briefly holding the database file:
// three attempts, 100ms then 200ms apart, lock errors only.
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		Attempts:       3,
		InitialBackoff: 100 * time.Millisecond,
		Retryable:      IsLocked,
	}
}

// Options tune how a Store is opened.
type Options struct {
	// Retry overrides DefaultRetryPolicy. A nil Retryable means IsLocked.
	Retry  *retry.Policy
	Logger *slog.Logger
	// BusyTimeout is how long SQLite itself waits on a lock before reporting it.
	BusyTimeout time.Duration
	Now         func() time.Time
}

// Store is the durable record of tasks and sessions.
type Store struct {
	db     *gorm.DB
	policy retry.Policy
	log    *slog.Logger
	now    func() time.Time
}

// Open connects to the SQLite file at path, creates the schema and cancels
// sessions left active by a previous run. Nothing else may touch the store
// before Open returns.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, busy.Milliseconds())

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	store := newStore(gdb, opts)
	if err := store.init(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

func newStore(gdb *gorm.DB, opts Options) *Store {
	policy := DefaultRetryPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
		if policy.Retryable == nil {
			policy.Retryable = IsLocked
		}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{db: gdb, policy: policy, log: log, now: now}
}

func (s *Store) init(ctx context.Context) error {
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	n, err := s.RecoverInterrupted(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("cancelled sessions interrupted by a previous run", "count", n)
	}
	return s.ensureSingleActiveIndex(ctx)
}

// Migrate creates or updates the schema. Safe to run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	return s.run(ctx, "migrate schema", func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&models.Task{},
			&models.Session{},
		)
	})
}

// ensureSingleActiveIndex lets SQLite itself refuse a second active session.
// It must run after RecoverInterrupted so legacy rows cannot violate it.
func (s *Store) ensureSingleActiveIndex(ctx context.Context) error {
	return s.run(ctx, "create active session index", func(tx *gorm.DB) error {
		return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_single_active
			ON sessions(status) WHERE status = 'active'`).Error
	})
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// run executes fn under the retry policy and maps the outcome onto the
// store's error taxonomy. Every store operation goes through here.
func (s *Store) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	attempt := 0
	err := retry.Do(ctx, s.policy, func() error {
		attempt++
		err := fn(s.db.WithContext(ctx))
		if err != nil && IsLocked(err) {
			s.log.Debug("database locked", "op", op, "attempt", attempt, "err", err)
		}
		return err
	})
	return s.classify(op, err)
}

func (s *Store) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if errors.Is(err, ErrActiveSessionExists) {
		return err
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		s.log.Warn("database stayed locked", "op", op, "attempts", exhausted.Attempts)
		return &LockedError{Op: op, Attempts: exhausted.Attempts, Err: exhausted.Err}
	}
	s.log.Error("database operation failed", "op", op, "err", err)
	return &FailureError{Op: op, Err: err}
}
