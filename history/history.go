// Package history provides the read-only views over attendance: paginated
// history and full-range CSV export, both over the Attendance⋈Run join.
package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// Record is one attendance row joined with its run.
type Record struct {
	ID           int       `bun:"id" json:"id"`
	RunnerName   string    `bun:"runner_name" json:"runner_name"`
	RegisteredAt time.Time `bun:"registered_at" json:"registered_at"`
	RunDate      string    `bun:"run_date" json:"run_date"`
	SessionID    string    `bun:"session_id" json:"session_id"`
}

// Page is one page of attendance history.
type Page struct {
	Data       []Record `json:"data"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
	HasNext    bool     `json:"has_next"`
	HasPrev    bool     `json:"has_prev"`
}

// Service reads attendance history.
type Service struct {
	db     *bun.DB
	logger *zap.Logger
}

// New returns a history Service.
func New(db *bun.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// baseQuery builds the Attendance⋈Run join, most recent runs first.
// Malformed date bounds are ignored with a warning rather than rejected;
// existing callers depend on that leniency.
func (s *Service) baseQuery(startDate, endDate string) *bun.SelectQuery {
	q := s.db.NewSelect().
		TableExpr("attendances AS a").
		ColumnExpr("a.id, a.runner_name, a.registered_at, r.date AS run_date, r.session_id").
		Join("INNER JOIN runs AS r ON r.id = a.run_id")

	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			s.logger.Warn("ignoring invalid start_date filter", zap.String("start_date", startDate))
		} else {
			q = q.Where("r.date >= ?", startDate)
		}
	}
	if endDate != "" {
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			s.logger.Warn("ignoring invalid end_date filter", zap.String("end_date", endDate))
		} else {
			q = q.Where("r.date <= ?", endDate)
		}
	}

	return q.OrderExpr("r.date DESC, a.registered_at DESC")
}

// History returns one page of attendance records. Page numbers are 1-based;
// out-of-range page and page_size values clamp instead of erroring.
func (s *Service) History(ctx context.Context, startDate, endDate string, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	totalCount, err := s.baseQuery(startDate, endDate).Count(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("counting attendance history: %w", err)
	}

	records := make([]Record, 0, pageSize)
	err = s.baseQuery(startDate, endDate).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(ctx, &records)
	if err != nil {
		return Page{}, fmt.Errorf("loading attendance history: %w", err)
	}

	totalPages := (totalCount + pageSize - 1) / pageSize

	return Page{
		Data:       records,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// ExportCSV renders all matching attendance as CSV. The header row is always
// present, even with zero matching records.
func (s *Service) ExportCSV(ctx context.Context, startDate, endDate string) (string, error) {
	var records []Record
	if err := s.baseQuery(startDate, endDate).Scan(ctx, &records); err != nil {
		return "", fmt.Errorf("loading attendance for export: %w", err)
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Runner Name", "Run Date", "Registration Time", "Session ID", "Attendance ID"}); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.RunnerName,
			rec.RunDate,
			rec.RegisteredAt.Format("2006-01-02 15:04:05"),
			rec.SessionID,
			fmt.Sprintf("%d", rec.ID),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}

	s.logger.Info("generated csv export", zap.Int("records", len(records)))
	return buf.String(), nil
}

// ExportFilename derives a download filename from the requested range.
func ExportFilename(startDate, endDate string) string {
	const base = "attendance_export"
	switch {
	case startDate != "" && endDate != "":
		return fmt.Sprintf("%s_%s_to_%s.csv", base, startDate, endDate)
	case startDate != "":
		return fmt.Sprintf("%s_from_%s.csv", base, startDate)
	case endDate != "":
		return fmt.Sprintf("%s_until_%s.csv", base, endDate)
	default:
		return fmt.Sprintf("%s_%s.csv", base, time.Now().Format("2006-01-02"))
	}
}
