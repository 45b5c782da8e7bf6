// Package calendar owns run-day configuration: the mapping from calendar
// date to "has a run", and the Run lifecycle side effects that come with it.
package calendar

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
	"github.com/sundayrunners/attendapi/session"
)

// ConfigureResult reports the outcome of a run-day configuration.
type ConfigureResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Date    string `json:"date"`
	HasRun  bool   `json:"has_run"`
}

// Day is one calendar day as presented to the frontend. AttendanceCount and
// SessionID are only set for days with an active run.
type Day struct {
	Date            string  `json:"date"`
	HasRun          bool    `json:"has_run"`
	AttendanceCount *int    `json:"attendance_count"`
	SessionID       *string `json:"session_id"`
}

// TodayStatus is today's run state. HasRunToday true with an empty SessionID
// means the day is configured but its Run row is missing – a recoverable
// desync, not an error.
type TodayStatus struct {
	HasRunToday     bool    `json:"has_run_today"`
	SessionID       *string `json:"session_id"`
	AttendanceCount int     `json:"attendance_count"`
	Message         string  `json:"message"`
}

// Service manages calendar configuration rows and their Run lifecycle.
type Service struct {
	db     *bun.DB
	logger *zap.Logger
}

// New returns a calendar Service.
func New(db *bun.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// ConfigureRunDay marks a date as having a run or not. The config upsert and
// the Run create/reactivate/deactivate commit as one transaction; a failure
// partway rolls the whole thing back.
//
// Reactivating a previously-deactivated Run keeps its existing session
// identifier, so QR codes distributed before the day was toggled off work
// again once it is toggled back on.
func (s *Service) ConfigureRunDay(ctx context.Context, date string, hasRun bool) (ConfigureResult, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ConfigureResult{
			Message: "Date must be in YYYY-MM-DD format",
		}, nil
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		cfg := &models.CalendarConfig{
			Date:      date,
			HasRun:    hasRun,
			UpdatedAt: time.Now(),
		}
		if _, err := tx.NewInsert().Model(cfg).
			On("CONFLICT (date) DO UPDATE SET has_run = EXCLUDED.has_run, updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("upserting calendar config: %w", err)
		}

		if hasRun {
			return s.ensureRun(ctx, tx, date)
		}
		return s.deactivateRun(ctx, tx, date)
	})
	if err != nil {
		s.logger.Error("configure run day failed",
			zap.String("date", date), zap.Bool("has_run", hasRun), zap.Error(err))
		if appdb.IsUniqueViolation(err) {
			return ConfigureResult{
				Message: "Database error occurred while updating calendar",
			}, nil
		}
		return ConfigureResult{}, err
	}

	s.logger.Info("calendar configured",
		zap.String("date", date), zap.Bool("has_run", hasRun))

	return ConfigureResult{
		Success: true,
		Message: fmt.Sprintf("Calendar configuration updated for %s", date),
		Date:    date,
		HasRun:  hasRun,
	}, nil
}

// ensureRun makes sure an active Run row exists for the date. An existing
// inactive row is reactivated without touching its session identifier.
func (s *Service) ensureRun(ctx context.Context, tx bun.Tx, date string) error {
	run := new(models.Run)
	err := tx.NewSelect().Model(run).Where("date = ?", date).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		run = &models.Run{
			Date:      date,
			SessionID: session.NewIDFromDateString(date),
			IsActive:  true,
			CreatedAt: time.Now(),
		}
		if _, err := tx.NewInsert().Model(run).Exec(ctx); err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		s.logger.Info("run created",
			zap.String("date", date), zap.String("session_id", run.SessionID))
		return nil
	case err != nil:
		return fmt.Errorf("looking up run: %w", err)
	}

	if !run.IsActive {
		if _, err := tx.NewUpdate().Model((*models.Run)(nil)).
			Set("is_active = ?", true).
			Where("id = ?", run.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("reactivating run: %w", err)
		}
		s.logger.Info("run reactivated", zap.String("date", date))
	}
	return nil
}

// deactivateRun flips the date's Run inactive if one exists. The row and its
// attendance history stay put.
func (s *Service) deactivateRun(ctx context.Context, tx bun.Tx, date string) error {
	res, err := tx.NewUpdate().Model((*models.Run)(nil)).
		Set("is_active = ?", false).
		Where("date = ?", date).
		Where("is_active = ?", true).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("deactivating run: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("run deactivated", zap.String("date", date))
	}
	return nil
}

// Configuration returns calendar days ordered by date ascending, optionally
// bounded to an inclusive range. Run-day entries carry the active run's
// session identifier and live attendance count.
func (s *Service) Configuration(ctx context.Context, startDate, endDate string) ([]Day, error) {
	var configs []models.CalendarConfig
	q := s.db.NewSelect().Model(&configs).OrderExpr("date ASC")
	if startDate != "" {
		q = q.Where("date >= ?", startDate)
	}
	if endDate != "" {
		q = q.Where("date <= ?", endDate)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("loading calendar config: %w", err)
	}

	days := make([]Day, 0, len(configs))
	for _, cfg := range configs {
		day := Day{Date: cfg.Date, HasRun: cfg.HasRun}
		if cfg.HasRun {
			run := new(models.Run)
			err := s.db.NewSelect().Model(run).
				Where("date = ?", cfg.Date).
				Where("is_active = ?", true).
				Scan(ctx)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				// Configured but run row missing: leave both fields nil.
			case err != nil:
				return nil, fmt.Errorf("loading run for %s: %w", cfg.Date, err)
			default:
				count, err := s.db.NewSelect().Model((*models.Attendance)(nil)).
					Where("run_id = ?", run.ID).
					Count(ctx)
				if err != nil {
					return nil, fmt.Errorf("counting attendance for %s: %w", cfg.Date, err)
				}
				day.SessionID = &run.SessionID
				day.AttendanceCount = &count
			}
		}
		days = append(days, day)
	}
	return days, nil
}

// Today resolves today's run status in the server's local date.
func (s *Service) Today(ctx context.Context) (TodayStatus, error) {
	today := time.Now().Format("2006-01-02")

	cfg := new(models.CalendarConfig)
	err := s.db.NewSelect().Model(cfg).Where("date = ?", today).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !cfg.HasRun) {
		return TodayStatus{
			Message: "No run scheduled for today",
		}, nil
	}
	if err != nil {
		return TodayStatus{}, fmt.Errorf("loading today's config: %w", err)
	}

	run := new(models.Run)
	err = s.db.NewSelect().Model(run).
		Where("date = ?", today).
		Where("is_active = ?", true).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("calendar config indicates run but no run row found",
			zap.String("date", today))
		return TodayStatus{
			HasRunToday: true,
			Message:     "Run scheduled but not yet active",
		}, nil
	}
	if err != nil {
		return TodayStatus{}, fmt.Errorf("loading today's run: %w", err)
	}

	count, err := s.db.NewSelect().Model((*models.Attendance)(nil)).
		Where("run_id = ?", run.ID).
		Count(ctx)
	if err != nil {
		return TodayStatus{}, fmt.Errorf("counting today's attendance: %w", err)
	}

	return TodayStatus{
		HasRunToday:     true,
		SessionID:       &run.SessionID,
		AttendanceCount: count,
		Message:         fmt.Sprintf("Run scheduled for today with %d attendees", count),
	}, nil
}
