// Package registration implements the attendance-recording workflow with
// duplicate prevention. The pre-insert existence check catches most repeat
// submissions cheaply; the (run_id, runner_name) database constraint is the
// authoritative guard when two submissions for the same identity race.
package registration

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sundayrunners/attendapi/models"
	"github.com/sundayrunners/attendapi/notify"
	"github.com/sundayrunners/attendapi/registry"
)

// Outcome classifies the result of a registration attempt.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeInvalidSession
	OutcomeDuplicate
	OutcomeInvalidName
)

// Result is the structured outcome of a registration attempt. CurrentCount
// is the run's attendance count after the attempt settles, whatever the
// outcome, so callers can always show a live number.
type Result struct {
	Outcome      Outcome `json:"-"`
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	CurrentCount int     `json:"current_count"`
	RunnerName   string  `json:"runner_name,omitempty"`
}

// nameRe matches valid runner names: letters, spaces, hyphens, apostrophes
// and periods.
var nameRe = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeName trims surrounding whitespace and collapses internal runs of
// whitespace. Trimmed and untrimmed spellings must resolve to the same
// identity for duplicate detection.
func NormalizeName(name string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
}

// ValidateName reports whether a normalized name is acceptable.
func ValidateName(name string) bool {
	return name != "" && len(name) <= 255 && nameRe.MatchString(name)
}

// Engine is the registration state machine. All dependencies are injected so
// tests can substitute fakes.
type Engine struct {
	runs     registry.RunStore
	atts     registry.AttendanceStore
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewEngine wires an Engine. notifier may be nil when no sink is configured.
func NewEngine(runs registry.RunStore, atts registry.AttendanceStore, notifier notify.Notifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{runs: runs, atts: atts, notifier: notifier, logger: logger}
}

// Register records attendance for a runner against an active run session.
// Expected failure modes (unknown/inactive session, duplicate, bad name) are
// reported in the Result; the error return is reserved for unexpected
// storage failures.
func (e *Engine) Register(ctx context.Context, sessionID, runnerName string) (Result, error) {
	name := NormalizeName(runnerName)
	if !ValidateName(name) {
		return Result{
			Outcome:    OutcomeInvalidName,
			Message:    "Runner name is empty or contains invalid characters",
			RunnerName: name,
		}, nil
	}

	run, err := e.runs.FindActiveBySession(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("resolving session: %w", err)
	}
	if run == nil {
		e.logger.Warn("registration against unknown or inactive session",
			zap.String("session_id", sessionID))
		return Result{
			Outcome:    OutcomeInvalidSession,
			Message:    "Invalid session ID or run not active",
			RunnerName: name,
		}, nil
	}

	exists, err := e.atts.Exists(ctx, run.ID, name)
	if err != nil {
		return Result{}, fmt.Errorf("checking existing attendance: %w", err)
	}
	if exists {
		return e.duplicate(ctx, run, name)
	}

	att := &models.Attendance{
		RunID:        run.ID,
		RunnerName:   name,
		RegisteredAt: time.Now(),
	}
	if err := e.atts.Create(ctx, att); err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			// Lost the race with a concurrent submission for the same
			// identity. Same outcome as the pre-check.
			return e.duplicate(ctx, run, name)
		}
		return Result{}, fmt.Errorf("inserting attendance: %w", err)
	}

	count, err := e.atts.Count(ctx, run.ID)
	if err != nil {
		return Result{}, fmt.Errorf("counting attendance: %w", err)
	}

	res := Result{
		Outcome:      OutcomeAccepted,
		Success:      true,
		Message:      fmt.Sprintf("Registration successful! Welcome to the run, %s", name),
		CurrentCount: count,
		RunnerName:   name,
	}

	if e.notifier != nil {
		ev := notify.Event{
			RunnerName:   name,
			CurrentCount: count,
			RegisteredAt: att.RegisteredAt,
			RunDate:      run.Date,
			Message:      res.Message,
		}
		// Fire and forget. A panicking or failing sink never touches the
		// registration outcome.
		go func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Warn("notification sink panic", zap.Any("panic", r))
				}
			}()
			e.notifier.NotifyRegistration(sessionID, ev)
		}()
	}

	e.logger.Info("registration accepted",
		zap.String("session_id", sessionID),
		zap.String("runner", name),
		zap.Int("count", count))

	return res, nil
}

func (e *Engine) duplicate(ctx context.Context, run *models.Run, name string) (Result, error) {
	count, err := e.atts.Count(ctx, run.ID)
	if err != nil {
		return Result{}, fmt.Errorf("counting attendance: %w", err)
	}
	e.logger.Info("duplicate registration rejected",
		zap.String("session_id", run.SessionID),
		zap.String("runner", name))
	return Result{
		Outcome:      OutcomeDuplicate,
		Message:      "You have already registered for this run",
		CurrentCount: count,
		RunnerName:   name,
	}, nil
}

// TodayCount summarizes today's run for the attendance-focused caller.
type TodayCount struct {
	Count       int    `json:"count"`
	HasRunToday bool   `json:"has_run_today"`
	SessionID   string `json:"session_id,omitempty"`
	Message     string `json:"message"`
}

// TodayAttendanceCount returns the live count for today's active run, or a
// no-run result when none is scheduled. "Today" is the server's local date.
func (e *Engine) TodayAttendanceCount(ctx context.Context) (TodayCount, error) {
	today := time.Now().Format("2006-01-02")

	run, err := e.runs.FindActiveByDate(ctx, today)
	if err != nil {
		return TodayCount{}, fmt.Errorf("resolving today's run: %w", err)
	}
	if run == nil {
		return TodayCount{
			Message: "No run scheduled for today",
		}, nil
	}

	count, err := e.atts.Count(ctx, run.ID)
	if err != nil {
		return TodayCount{}, fmt.Errorf("counting attendance: %w", err)
	}

	return TodayCount{
		Count:       count,
		HasRunToday: true,
		SessionID:   run.SessionID,
		Message:     fmt.Sprintf("Today's attendance: %d runners", count),
	}, nil
}
