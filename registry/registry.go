// Package registry owns Run and Attendance lookups behind small interfaces
// so the registration engine and query handlers can be tested against fakes.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	appdb "github.com/sundayrunners/attendapi/db"
	"github.com/sundayrunners/attendapi/models"
)

// ErrDuplicate is returned by AttendanceStore.Create when the
// (run_id, runner_name) uniqueness constraint is hit.
var ErrDuplicate = errors.New("attendance already recorded for this runner")

// RunStore resolves Run rows against committed state. Flows that must read
// and mutate runs atomically (calendar configuration, override add) run
// tx-scoped queries inside their own transaction instead of going through
// the store.
type RunStore interface {
	// FindActiveBySession returns the active Run for a session identifier.
	// Inactive runs behave as if the identifier were unknown.
	FindActiveBySession(ctx context.Context, sessionID string) (*models.Run, error)
	// FindByDate returns the Run for a date regardless of active flag.
	FindByDate(ctx context.Context, date string) (*models.Run, error)
	// FindActiveByDate returns the active Run for a date.
	FindActiveByDate(ctx context.Context, date string) (*models.Run, error)
}

// AttendanceStore persists and counts Attendance rows.
type AttendanceStore interface {
	// Exists reports whether the runner is already registered for the run.
	Exists(ctx context.Context, runID int, runnerName string) (bool, error)
	// Create inserts a new attendance row. Returns ErrDuplicate when the
	// row lost a race with a concurrent insert for the same identity.
	Create(ctx context.Context, att *models.Attendance) error
	// Count returns the number of committed attendance rows for the run.
	Count(ctx context.Context, runID int) (int, error)
}

type runStore struct {
	db *bun.DB
}

// NewRunStore returns the database-backed RunStore.
func NewRunStore(db *bun.DB) RunStore {
	return &runStore{db: db}
}

func (s *runStore) FindActiveBySession(ctx context.Context, sessionID string) (*models.Run, error) {
	run := new(models.Run)
	err := s.db.NewSelect().Model(run).
		Where("session_id = ?", sessionID).
		Where("is_active = ?", true).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *runStore) FindByDate(ctx context.Context, date string) (*models.Run, error) {
	run := new(models.Run)
	err := s.db.NewSelect().Model(run).
		Where("date = ?", date).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *runStore) FindActiveByDate(ctx context.Context, date string) (*models.Run, error) {
	run := new(models.Run)
	err := s.db.NewSelect().Model(run).
		Where("date = ?", date).
		Where("is_active = ?", true).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

type attendanceStore struct {
	db *bun.DB
}

// NewAttendanceStore returns the database-backed AttendanceStore.
func NewAttendanceStore(db *bun.DB) AttendanceStore {
	return &attendanceStore{db: db}
}

func (s *attendanceStore) Exists(ctx context.Context, runID int, runnerName string) (bool, error) {
	return s.db.NewSelect().Model((*models.Attendance)(nil)).
		Where("run_id = ?", runID).
		Where("runner_name = ?", runnerName).
		Exists(ctx)
}

func (s *attendanceStore) Create(ctx context.Context, att *models.Attendance) error {
	if att.RegisteredAt.IsZero() {
		att.RegisteredAt = time.Now()
	}
	if _, err := s.db.NewInsert().Model(att).Exec(ctx); err != nil {
		if appdb.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *attendanceStore) Count(ctx context.Context, runID int) (int, error) {
	return s.db.NewSelect().Model((*models.Attendance)(nil)).
		Where("run_id = ?", runID).
		Count(ctx)
}
