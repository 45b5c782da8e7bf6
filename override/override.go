// Package override is the administrative correction path for attendance
// records. It bypasses the registration engine's submit flow but still
// honors the (run_id, runner_name) uniqueness invariant.
package override

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	appdb "github.com/sundayrunners/attendapi/db"
	"github.com/sundayrunners/attendapi/models"
	"github.com/sundayrunners/attendapi/registration"
	"github.com/sundayrunners/attendapi/session"
)

var (
	// ErrNotFound means the referenced attendance row does not exist.
	ErrNotFound = errors.New("attendance record not found")
	// ErrDuplicate means the change would violate the (run, name) invariant.
	ErrDuplicate = errors.New("attendance record already exists for this runner and run")
	// ErrBadName means the runner name fails validation.
	ErrBadName = errors.New("runner name is empty or contains invalid characters")
)

// Service performs manual attendance corrections.
type Service struct {
	db     *bun.DB
	logger *zap.Logger
}

// New returns an override Service.
func New(db *bun.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// Add inserts an attendance record for a runner on a date, creating an
// active Run for the date first when none exists. registeredAt defaults to
// now when zero.
func (s *Service) Add(ctx context.Context, runnerName, runDate string, registeredAt time.Time) (*models.Attendance, error) {
	name := registration.NormalizeName(runnerName)
	if !registration.ValidateName(name) {
		return nil, ErrBadName
	}
	if _, err := time.Parse("2006-01-02", runDate); err != nil {
		return nil, fmt.Errorf("run date must be YYYY-MM-DD: %w", err)
	}
	if registeredAt.IsZero() {
		registeredAt = time.Now()
	}

	att := &models.Attendance{RunnerName: name, RegisteredAt: registeredAt}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		run := new(models.Run)
		err := tx.NewSelect().Model(run).Where("date = ?", runDate).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			run = &models.Run{
				Date:      runDate,
				SessionID: session.NewIDFromDateString(runDate),
				IsActive:  true,
				CreatedAt: time.Now(),
			}
			if _, err := tx.NewInsert().Model(run).Exec(ctx); err != nil {
				return fmt.Errorf("creating run for override: %w", err)
			}
			s.logger.Info("run created for manual attendance",
				zap.String("date", runDate), zap.String("session_id", run.SessionID))
		case err != nil:
			return fmt.Errorf("looking up run: %w", err)
		}

		att.RunID = run.ID
		if _, err := tx.NewInsert().Model(att).Exec(ctx); err != nil {
			if appdb.IsUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("inserting attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual attendance added",
		zap.String("runner", name), zap.String("date", runDate))
	return att, nil
}

// Edit updates an existing attendance record's runner name and/or timestamp.
// A nil field leaves the current value in place.
func (s *Service) Edit(ctx context.Context, attendanceID int, runnerName *string, registeredAt *time.Time) (*models.Attendance, error) {
	att := new(models.Attendance)
	err := s.db.NewSelect().Model(att).Where("a.id = ?", attendanceID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading attendance: %w", err)
	}

	if runnerName != nil {
		name := registration.NormalizeName(*runnerName)
		if !registration.ValidateName(name) {
			return nil, ErrBadName
		}
		att.RunnerName = name
	}
	if registeredAt != nil {
		att.RegisteredAt = *registeredAt
	}

	if _, err := s.db.NewUpdate().Model(att).
		Column("runner_name", "registered_at").
		WherePK().
		Exec(ctx); err != nil {
		if appdb.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("updating attendance: %w", err)
	}

	s.logger.Info("manual attendance edited", zap.Int("attendance_id", attendanceID))
	return att, nil
}

// Delete removes a single attendance record.
func (s *Service) Delete(ctx context.Context, attendanceID int) error {
	res, err := s.db.NewDelete().Model((*models.Attendance)(nil)).
		Where("id = ?", attendanceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("deleting attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logger.Info("manual attendance deleted", zap.Int("attendance_id", attendanceID))
	return nil
}

// DeleteRun removes a Run and all its attendance rows. This is the only bulk
// deletion path; normal calendar reconfiguration only deactivates.
func (s *Service) DeleteRun(ctx context.Context, runDate string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		run := new(models.Run)
		err := tx.NewSelect().Model(run).Where("date = ?", runDate).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("looking up run: %w", err)
		}

		if _, err := tx.NewDelete().Model((*models.Attendance)(nil)).
			Where("run_id = ?", run.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("deleting attendances: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.Run)(nil)).
			Where("id = ?", run.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("deleting run: %w", err)
		}
		s.logger.Info("run deleted with attendance", zap.String("date", runDate))
		return nil
	})
}

// List returns attendance rows for a date, or all rows when date is empty,
// joined with run info, most recent first.
func (s *Service) List(ctx context.Context, runDate string) ([]models.Attendance, error) {
	var atts []models.Attendance
	q := s.db.NewSelect().Model(&atts).
		Relation("Run").
		OrderExpr("a.registered_at DESC")
	if runDate != "" {
		q = q.Where("run.date = ?", runDate)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	return atts, nil
}
